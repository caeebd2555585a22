// Package engine implements the entity managers on top of the keyed
// collection store. The managers are deliberately permissive: they never
// validate input, unknown ids on update or delete are no-ops, and
// cross-collection references are not enforced.
package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"testlab/internal/domain"
	"testlab/internal/events"
	"testlab/internal/ids"
	"testlab/internal/store"
)

// ErrNotFound is returned by single-record lookups only.
var ErrNotFound = errors.New("not found")

type Engine struct {
	Store  *store.Store
	Events *events.Writer
	Log    *zap.Logger
	Now    func() time.Time

	Folders  Folders
	Catalog  Catalog
	Projects Projects
	Issues   Issues
}

// New wires the managers to s. Events are recorded unless disabled with WithoutEvents.
func New(s *store.Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{Store: s, Log: log.Named("engine"), Now: time.Now}
	e.Events = &events.Writer{Store: s, Now: e.now, Max: events.DefaultMaxEvents}
	e.Folders = Folders{e: e}
	e.Catalog = Catalog{e: e}
	e.Projects = Projects{e: e}
	e.Issues = Issues{e: e}
	return e
}

// WithoutEvents turns off the activity log.
func (e *Engine) WithoutEvents() *Engine {
	e.Events = nil
	return e
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) stamp() (time.Time, string) {
	t := e.now()
	return t, domain.FormatTime(t)
}

func (e *Engine) newID(prefix string, t time.Time) string {
	return ids.New(prefix, t)
}

// record appends to the activity log. The mutation it describes is already
// persisted, so a failure here is logged rather than returned.
func (e *Engine) record(ctx context.Context, evtType, kind, id, projectID string, payload events.Payload) {
	if e.Events == nil {
		return
	}
	if err := e.Events.Append(ctx, evtType, kind, id, projectID, payload); err != nil {
		e.Log.Warn("append event", zap.String("type", evtType), zap.String("entity_id", id), zap.Error(err))
	}
}

func (e *Engine) missing(op, id string) {
	e.Log.Debug("unknown id, nothing to do", zap.String("op", op), zap.String("id", id))
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, it := range items {
		if match(it) {
			return i
		}
	}
	return -1
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
