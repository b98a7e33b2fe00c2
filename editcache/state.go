package editcache

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of one identifier in the edit cache.
type State int

const (
	Absent State = iota
	Clean
	Editing
	Saving
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	default:
		return "absent"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "absent":
		*s = Absent
	case "clean":
		*s = Clean
	case "editing":
		*s = Editing
	case "saving":
		*s = Saving
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}

var (
	ErrNoDraft            = errors.New("no draft for this id")
	ErrNotClean           = errors.New("draft is already being edited")
	ErrNotEditing         = errors.New("draft is not being edited")
	ErrNotAdding          = errors.New("not adding a new row")
	ErrIdentityMismatch   = errors.New("draft id does not match")
	ErrIdentifierAssigned = errors.New("new row must not carry an id")
)

// Draft is the exported view of one cache entry.
type Draft[T any] struct {
	State   State `json:"state"`
	Editing bool  `json:"edit"`
	Data    T     `json:"data"`
}

// View is a deep copy of a controller's state for rendering.
type View[T any] struct {
	Items  []T                 `json:"items"`
	Drafts map[string]Draft[T] `json:"editCache"`
	Adding bool                `json:"isAdding"`
	NewRow T                   `json:"newRow"`
}

type entry[T any] struct {
	state    State
	data     T
	original T
}
