package editcache

import (
	"context"
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-visible message about the outcome of an intent.
type Notice struct {
	At       time.Time `json:"at"`
	Level    Level     `json:"level"`
	Resource string    `json:"resource"`
	Message  string    `json:"message"`
}

type Notifier interface {
	Notify(n Notice)
}

// Event describes one finished operation for the audit journal.
type Event struct {
	Resource  string
	Operation string
	EntityID  string
	Err       error
}

type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Feed keeps the most recent notices for the view to poll.
type Feed struct {
	mu      sync.Mutex
	notices []Notice
	limit   int
}

func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 50
	}
	return &Feed{limit: limit}
}

func (f *Feed) Notify(n Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	if over := len(f.notices) - f.limit; over > 0 {
		f.notices = append([]Notice(nil), f.notices[over:]...)
	}
}

// Recent returns the notices newest first.
func (f *Feed) Recent() []Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notice, len(f.notices))
	for i, n := range f.notices {
		out[len(f.notices)-1-i] = n
	}
	return out
}
