// Package editcache holds the table state of one catalog resource: the last
// fetched entity list, a per-id edit cache of decoupled drafts and the single
// add-row draft. Every mutation goes through the backend first; local state
// is only touched once the backend has answered successfully.
package editcache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"catalogadmin/catalog"
	"catalogadmin/models"

	"github.com/sirupsen/logrus"
)

const (
	opRefresh = "refresh"
	opReload  = "reload"
	opCreate  = "create"
	opUpdate  = "update"
	opDelete  = "delete"

	// guard key for the add-row flow; backend ids are never empty
	newRowKey = ""
)

type Config struct {
	Logger   logrus.FieldLogger
	Notifier Notifier
	Recorder Recorder
}

type Controller[T models.Entity] struct {
	resource string
	repo     catalog.Repository[T]
	log      logrus.FieldLogger
	notifier Notifier
	recorder Recorder
	guard    *keyedMutex
	issued   uint64

	mu      sync.RWMutex
	items   []T
	cache   map[string]*entry[T]
	adding  bool
	newRow  T
	applied uint64
	hooks   []func(context.Context, []T)

	// hookMu orders hook batches; hooked is the newest refresh they ran for
	hookMu sync.Mutex
	hooked uint64
}

func New[T models.Entity](resource string, repo catalog.Repository[T], cfg Config) *Controller[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Controller[T]{
		resource: resource,
		repo:     repo,
		log:      logger.WithField("resource", resource),
		notifier: cfg.Notifier,
		recorder: cfg.Recorder,
		guard:    newKeyedMutex(),
		items:    []T{},
		cache:    make(map[string]*entry[T]),
	}
}

func (c *Controller[T]) Resource() string { return c.resource }

// OnRefresh registers fn to run with a copy of the list after every applied refresh.
func (c *Controller[T]) OnRefresh(fn func(context.Context, []T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Refresh replaces the entity list with the backend's. New ids get a clean
// draft, clean drafts follow the server, drafts being edited keep the user's
// input and drafts whose id disappeared are dropped. A response to a request
// older than the last applied one is discarded.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	seq := atomic.AddUint64(&c.issued, 1)

	items, err := c.repo.ListAll(ctx)
	if err != nil {
		c.fail(ctx, opRefresh, "", "failed to load the "+c.resource+" list", err)
		return err
	}

	c.mu.Lock()
	if seq < c.applied {
		c.mu.Unlock()
		c.log.Warnf("Discarding stale %s list response (request %d, applied %d)", c.resource, seq, c.applied)
		return nil
	}
	c.applied = seq
	c.items = cloneSlice(items)

	present := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := item.EntityID()
		present[id] = struct{}{}

		e, ok := c.cache[id]
		switch {
		case !ok:
			c.cache[id] = &entry[T]{state: Clean, data: item, original: item}
		case e.state == Clean:
			e.data = item
			e.original = item
		default:
			e.original = item
		}
	}

	for id, e := range c.cache {
		if _, ok := present[id]; ok {
			continue
		}
		if e.state != Clean {
			c.log.WithField("id", id).Warnf("Dropping %s draft: %s no longer exists on the server", e.state, c.resource)
		}
		delete(c.cache, id)
	}

	hooks := cloneSlice(c.hooks)
	snapshot := cloneSlice(c.items)
	c.mu.Unlock()

	c.log.Debugf("Loaded %d %s entries", len(snapshot), c.resource)
	c.runHooks(ctx, seq, hooks, snapshot)
	return nil
}

// runHooks runs the hooks of refresh seq unless a newer refresh already ran
// its own, so hooks never see an older list after a newer one.
func (c *Controller[T]) runHooks(ctx context.Context, seq uint64, hooks []func(context.Context, []T), items []T) {
	if len(hooks) == 0 {
		return
	}

	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	if seq < c.hooked {
		c.log.Debugf("Skipping %s refresh hooks for request %d, %d already ran", c.resource, seq, c.hooked)
		return
	}
	c.hooked = seq
	for _, fn := range hooks {
		fn(ctx, items)
	}
}

// Reload fetches a single entity and patches it into the list.
func (c *Controller[T]) Reload(ctx context.Context, id string) (T, error) {
	unlock := c.guard.Lock(id)
	defer unlock()

	item, err := c.repo.GetByID(ctx, id)
	if err != nil {
		c.fail(ctx, opReload, id, "failed to load "+c.resource, err)
		return item, err
	}

	c.mu.Lock()
	if !c.replaceItem(id, item) {
		c.items = append(c.items, item)
	}
	if e, ok := c.cache[id]; !ok {
		c.cache[id] = &entry[T]{state: Clean, data: item, original: item}
	} else if e.state == Clean {
		e.data = item
		e.original = item
	} else {
		e.original = item
	}
	c.mu.Unlock()

	return item, nil
}

// StartEdit moves a clean draft to editing. The draft data is already a
// copy of the list entry, so the list keeps showing the saved values.
func (c *Controller[T]) StartEdit(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache[id]
	if !ok {
		c.log.WithField("id", id).Warn("Cannot edit: no draft for this id")
		return fmt.Errorf("%w: %s", ErrNoDraft, id)
	}
	if e.state != Clean {
		c.log.WithField("id", id).Warnf("Cannot edit: draft is %s", e.state)
		return fmt.Errorf("%w: %s is %s", ErrNotClean, id, e.state)
	}

	e.original = e.data
	e.state = Editing
	return nil
}

// UpdateDraft replaces the working copy of an editing draft.
func (c *Controller[T]) UpdateDraft(id string, data T) error {
	if data.EntityID() != id {
		return fmt.Errorf("%w: want %s, got %s", ErrIdentityMismatch, id, data.EntityID())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoDraft, id)
	}
	if e.state != Editing {
		return fmt.Errorf("%w: %s is %s", ErrNotEditing, id, e.state)
	}

	e.data = data
	return nil
}

// SaveEdit sends the draft to the backend. On success the list entry is
// replaced by the server's answer and the draft is clean again; on failure
// the draft stays in editing with the user's input intact.
func (c *Controller[T]) SaveEdit(ctx context.Context, id string) (T, error) {
	var zero T

	unlock := c.guard.Lock(id)
	defer unlock()

	c.mu.Lock()
	e, ok := c.cache[id]
	if !ok {
		c.mu.Unlock()
		return zero, fmt.Errorf("%w: %s", ErrNoDraft, id)
	}
	if e.state != Editing {
		state := e.state
		c.mu.Unlock()
		return zero, fmt.Errorf("%w: %s is %s", ErrNotEditing, id, state)
	}

	payload := e.data
	if err := payload.Validate(); err != nil {
		c.mu.Unlock()
		err = c.invalid(catalog.OpUpdate, err)
		c.reject(opUpdate, id, "failed to update "+c.resource, err)
		return zero, err
	}
	e.state = Saving
	c.mu.Unlock()

	updated, err := c.repo.Update(ctx, id, payload)

	c.mu.Lock()
	e, ok = c.cache[id]
	if err != nil {
		if ok && e.state == Saving {
			e.state = Editing
		}
		c.mu.Unlock()
		c.fail(ctx, opUpdate, id, "failed to update "+c.resource, err)
		return zero, err
	}

	// some backends answer updates with a bare message, which decodes to an
	// entity without id
	if got := updated.EntityID(); got != id {
		if got != "" {
			c.log.WithField("id", id).Warnf("Update response carried id %q, keeping the sent values", got)
		}
		updated = payload
	}
	c.replaceItem(id, updated)
	if ok {
		e.state = Clean
		e.data = updated
		e.original = updated
	}
	c.mu.Unlock()

	c.succeed(ctx, opUpdate, id, title(c.resource)+" updated successfully")
	return updated, nil
}

// CancelEdit abandons an edit and restores the values the draft had when
// editing started (or the newest server values seen since).
func (c *Controller[T]) CancelEdit(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoDraft, id)
	}
	if e.state != Editing {
		return fmt.Errorf("%w: %s is %s", ErrNotEditing, id, e.state)
	}

	e.data = e.original
	e.state = Clean
	return nil
}

// Delete removes the entity on the backend, then from the list and cache.
// A not-found answer means it is already gone: the local copy is removed and
// the caller gets a warning notice instead of an error.
func (c *Controller[T]) Delete(ctx context.Context, id string) error {
	unlock := c.guard.Lock(id)
	defer unlock()

	err := c.repo.Delete(ctx, id)
	if err != nil && !catalog.IsNotFound(err) {
		c.fail(ctx, opDelete, id, "failed to delete "+c.resource, err)
		return err
	}

	c.mu.Lock()
	c.removeItem(id)
	delete(c.cache, id)
	c.mu.Unlock()

	if err != nil {
		c.warn(ctx, opDelete, id, title(c.resource)+" was already removed")
		return nil
	}

	c.succeed(ctx, opDelete, id, title(c.resource)+" deleted successfully")
	return nil
}

// AddNewRow enters adding mode with an empty new-row draft.
func (c *Controller[T]) AddNewRow() {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()
	c.adding = true
	c.newRow = zero
}

func (c *Controller[T]) SetNewRow(data T) error {
	if data.EntityID() != "" {
		return ErrIdentifierAssigned
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.adding {
		return ErrNotAdding
	}
	c.newRow = data
	return nil
}

// SaveNewRow creates the new-row draft on the backend, appends the created
// entity, leaves adding mode and re-fetches the list so server computed
// fields show up. On failure adding mode stays active.
func (c *Controller[T]) SaveNewRow(ctx context.Context) (T, error) {
	var zero T

	unlock := c.guard.Lock(newRowKey)
	defer unlock()

	c.mu.RLock()
	adding, draft := c.adding, c.newRow
	c.mu.RUnlock()

	if !adding {
		return zero, ErrNotAdding
	}
	if err := draft.Validate(); err != nil {
		err = c.invalid(catalog.OpCreate, err)
		c.reject(opCreate, "", "failed to create "+c.resource, err)
		return zero, err
	}

	created, err := c.repo.Create(ctx, draft)
	if err != nil {
		c.fail(ctx, opCreate, "", "failed to create "+c.resource, err)
		return zero, err
	}

	c.mu.Lock()
	if id := created.EntityID(); id != "" {
		c.items = append(c.items, created)
		if _, ok := c.cache[id]; !ok {
			c.cache[id] = &entry[T]{state: Clean, data: created, original: created}
		}
	} else {
		// the backend created it but did not say what; the refresh below lists it
		c.log.Warn("Create response carried no id, waiting for the list refresh")
	}
	c.adding = false
	c.newRow = zero
	c.mu.Unlock()

	c.succeed(ctx, opCreate, created.EntityID(), title(c.resource)+" created successfully")

	if err := c.Refresh(ctx); err != nil {
		c.log.Warnf("List refresh after create failed: %v", err)
	}
	return created, nil
}

func (c *Controller[T]) CancelNewRow() {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()
	c.adding = false
	c.newRow = zero
}

// Snapshot returns a copy of the list, the cache and the add-row state.
func (c *Controller[T]) Snapshot() View[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	drafts := make(map[string]Draft[T], len(c.cache))
	for id, e := range c.cache {
		drafts[id] = Draft[T]{State: e.state, Editing: e.state != Clean, Data: e.data}
	}

	return View[T]{
		Items:  cloneSlice(c.items),
		Drafts: drafts,
		Adding: c.adding,
		NewRow: c.newRow,
	}
}

func (c *Controller[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneSlice(c.items)
}

func (c *Controller[T]) Draft(id string) (Draft[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.cache[id]
	if !ok {
		return Draft[T]{}, false
	}
	return Draft[T]{State: e.state, Editing: e.state != Clean, Data: e.data}, true
}

func (c *Controller[T]) State(id string) State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.cache[id]; ok {
		return e.state
	}
	return Absent
}

// TrackBy is the stable row identity for list rendering.
func (c *Controller[T]) TrackBy(item T) string {
	return item.EntityID()
}

// replaceItem swaps the list entry with the given id; caller holds mu.
func (c *Controller[T]) replaceItem(id string, item T) bool {
	for i := range c.items {
		if c.items[i].EntityID() == id {
			c.items[i] = item
			return true
		}
	}
	return false
}

// removeItem drops the list entry with the given id; caller holds mu.
func (c *Controller[T]) removeItem(id string) {
	kept := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if item.EntityID() != id {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

func (c *Controller[T]) invalid(op string, err error) error {
	return &catalog.ValidationError{Resource: c.resource, Op: op, Message: err.Error(), Fields: models.FieldErrors(err)}
}

func (c *Controller[T]) succeed(ctx context.Context, op, id, msg string) {
	c.log.WithFields(logrus.Fields{"op": op, "id": id}).Info(msg)
	c.notify(LevelSuccess, msg)
	c.record(ctx, op, id, nil)
}

func (c *Controller[T]) warn(ctx context.Context, op, id, msg string) {
	c.log.WithFields(logrus.Fields{"op": op, "id": id}).Warn(msg)
	c.notify(LevelWarning, msg)
	c.record(ctx, op, id, nil)
}

func (c *Controller[T]) fail(ctx context.Context, op, id, msg string, err error) {
	c.log.WithFields(logrus.Fields{"op": op, "id": id}).Errorf("%s: %v", msg, err)
	c.notify(LevelError, msg+": "+err.Error())
	if op != opRefresh {
		c.record(ctx, op, id, err)
	}
}

// reject reports a draft refused locally. Nothing reached the backend, so
// there is nothing to journal.
func (c *Controller[T]) reject(op, id, msg string, err error) {
	c.log.WithFields(logrus.Fields{"op": op, "id": id}).Warnf("%s: %v", msg, err)
	c.notify(LevelError, msg+": "+err.Error())
}

func (c *Controller[T]) notify(level Level, msg string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(Notice{At: time.Now().UTC(), Level: level, Resource: c.resource, Message: msg})
}

func (c *Controller[T]) record(ctx context.Context, op, id string, err error) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(ctx, Event{Resource: c.resource, Operation: op, EntityID: id, Err: err})
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
