// Package store keeps the in-memory copy of each backend collection and
// reconciles it with the gateway. Local state only changes after the
// backend confirms a write.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/spendwise-dev/spendwise/internal/gateway"
	"github.com/spendwise-dev/spendwise/internal/model"
)

// Entity is a record the backend assigns an id to.
type Entity interface {
	EntityID() string
	Validate() error
}

// ErrMissingID is returned when an update or delete names no record.
var ErrMissingID = errors.New("record id is required")

// Action names a confirmed mutation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event describes one confirmed mutation.
type Event struct {
	Collection string
	Action     Action
	ID         string
	Record     any
}

// Observer is told about every confirmed mutation. It runs synchronously
// after the lock is released.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

// Snapshotter persists a collection's items between runs.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, collection string, data []byte) error
	LoadSnapshot(ctx context.Context, collection string) ([]byte, bool, error)
}

// Collection is the local view of one backend collection.
type Collection[T Entity] struct {
	name     string
	resource gateway.Resource[T]
	log      *logrus.Entry

	mu    sync.RWMutex
	items []T
	err   error

	inflight atomic.Int32

	observers []Observer
	mirror    Snapshotter
}

// Option configures a Collection.
type Option func(*options)

type options struct {
	log       *logrus.Logger
	observers []Observer
	mirror    Snapshotter
}

// WithLogger routes store logs to l.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithObserver adds an observer for confirmed mutations.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithMirror snapshots items after every fetch and mutation.
func WithMirror(s Snapshotter) Option {
	return func(o *options) { o.mirror = s }
}

// NewCollection creates an empty collection backed by resource.
func NewCollection[T Entity](name string, resource gateway.Resource[T], opts ...Option) *Collection[T] {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[T]{
		name:      name,
		resource:  resource,
		log:       o.log.WithField("collection", name),
		items:     []T{},
		observers: o.observers,
		mirror:    o.mirror,
	}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// Loading reports whether any gateway call is in flight.
func (c *Collection[T]) Loading() bool { return c.inflight.Load() > 0 }

// Err returns the last recorded failure.
func (c *Collection[T]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// ClearError forgets the last failure.
func (c *Collection[T]) ClearError() {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
}

// Items returns a copy of the current items.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns the item with id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Reset drops all items and the recorded error.
func (c *Collection[T]) Reset() {
	c.mu.Lock()
	c.items = []T{}
	c.err = nil
	c.mu.Unlock()
}

// FetchAll replaces the items with the backend's. A collection the backend
// does not implement becomes empty without an error.
func (c *Collection[T]) FetchAll(ctx context.Context) error {
	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	items, err := c.resource.List(ctx)
	if errors.Is(err, gateway.ErrEndpointUnavailable) {
		c.log.Debug("endpoint not available, using empty collection")
		items, err = []T{}, nil
	}
	if err != nil {
		return c.fail("fetching", err)
	}

	c.mu.Lock()
	c.items = items
	c.err = nil
	c.mu.Unlock()

	c.log.WithField("count", len(items)).Debug("fetched")
	c.snapshot(ctx)
	return nil
}

// Create sends draft to the backend and appends the record it returns.
func (c *Collection[T]) Create(ctx context.Context, draft T) (T, error) {
	if err := draft.Validate(); err != nil {
		var zero T
		return zero, err
	}

	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	created, err := c.resource.Create(ctx, draft)
	if err != nil {
		var zero T
		return zero, c.fail("creating", err)
	}

	c.mu.Lock()
	c.items = append(c.items, created)
	c.err = nil
	c.mu.Unlock()

	c.confirmed(ctx, ActionCreate, created.EntityID(), created)
	return created, nil
}

// Update replaces the record with id by the backend's updated copy. Two
// concurrent updates of the same id resolve to whichever response lands last.
func (c *Collection[T]) Update(ctx context.Context, id string, rec T) (T, error) {
	var zero T
	if id == "" {
		return zero, ErrMissingID
	}
	if err := rec.Validate(); err != nil {
		return zero, err
	}

	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	updated, err := c.resource.Update(ctx, id, rec)
	if err != nil {
		return zero, c.fail("updating", err)
	}

	c.mu.Lock()
	if i := c.indexOf(id); i >= 0 {
		c.items[i] = updated
	}
	c.err = nil
	c.mu.Unlock()

	c.confirmed(ctx, ActionUpdate, id, updated)
	return updated, nil
}

// Delete removes the record with id once the backend confirms.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}

	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	if err := c.resource.Delete(ctx, id); err != nil {
		return c.fail("deleting", err)
	}

	c.mu.Lock()
	var removed T
	if i := c.indexOf(id); i >= 0 {
		removed = c.items[i]
		c.items = slices.Delete(c.items, i, i+1)
	}
	c.err = nil
	c.mu.Unlock()

	c.confirmed(ctx, ActionDelete, id, removed)
	return nil
}

// Hydrate restores items from the mirror. It reports whether a snapshot
// was found.
func (c *Collection[T]) Hydrate(ctx context.Context) (bool, error) {
	if c.mirror == nil {
		return false, nil
	}
	data, ok, err := c.mirror.LoadSnapshot(ctx, c.name)
	if err != nil || !ok {
		return false, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return false, fmt.Errorf("decoding %s snapshot: %w", c.name, err)
	}
	if items == nil {
		items = []T{}
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return true, nil
}

// Replace sets the items directly, bypassing the backend.
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	c.items = slices.Clone(items)
	if c.items == nil {
		c.items = []T{}
	}
	c.mu.Unlock()
}

// indexOf must be called with mu held.
func (c *Collection[T]) indexOf(id string) int {
	return slices.IndexFunc(c.items, func(item T) bool { return item.EntityID() == id })
}

func (c *Collection[T]) fail(op string, err error) error {
	if model.IsValidation(err) {
		return err
	}
	wrapped := fmt.Errorf("%s %s: %w", op, c.name, err)
	c.mu.Lock()
	c.err = wrapped
	c.mu.Unlock()
	c.log.WithError(err).Warnf("%s failed", op)
	return wrapped
}

func (c *Collection[T]) confirmed(ctx context.Context, action Action, id string, rec T) {
	c.log.WithFields(logrus.Fields{"action": action, "id": id}).Info("confirmed")
	ev := Event{Collection: c.name, Action: action, ID: id, Record: rec}
	for _, obs := range c.observers {
		obs.Observe(ctx, ev)
	}
	c.snapshot(ctx)
}

func (c *Collection[T]) snapshot(ctx context.Context) {
	if c.mirror == nil {
		return
	}
	data, err := json.Marshal(c.Items())
	if err == nil {
		err = c.mirror.SaveSnapshot(ctx, c.name, data)
	}
	if err != nil {
		c.log.WithError(err).Warn("mirror snapshot failed")
	}
}
