package events

import (
	"context"
	"time"

	"testlab/internal/domain"
	"testlab/internal/ids"
	"testlab/internal/store"
)

// DefaultMaxEvents bounds the activity log kept by a Writer.
const DefaultMaxEvents = 1000

// Writer appends to the activity log. Once it holds more than Max events the
// oldest are dropped; Max <= 0 keeps everything.
type Writer struct {
	Store *store.Store
	Now   func() time.Time
	Max   int
}

type Payload map[string]string

func (w Writer) Append(ctx context.Context, evtType, entityKind, entityID, projectID string, payload Payload) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ts := now()
	evt := domain.Event{
		ID:         ids.New("event", ts),
		TS:         domain.FormatTime(ts),
		Type:       evtType,
		EntityKind: entityKind,
		EntityID:   entityID,
		ProjectID:  projectID,
		Payload:    payload,
	}
	return store.Update(ctx, w.Store, store.KeyEvents, func(evts []domain.Event) ([]domain.Event, bool) {
		evts = append(evts, evt)
		if w.Max > 0 && len(evts) > w.Max {
			evts = evts[len(evts)-w.Max:]
		}
		return evts, true
	})
}

// Filter narrows Latest; empty fields match everything.
type Filter struct {
	Type       string
	EntityKind string
	EntityID   string
	ProjectID  string
}

func (f Filter) match(e domain.Event) bool {
	return (f.Type == "" || e.Type == f.Type) &&
		(f.EntityKind == "" || e.EntityKind == f.EntityKind) &&
		(f.EntityID == "" || e.EntityID == f.EntityID) &&
		(f.ProjectID == "" || e.ProjectID == f.ProjectID)
}

// Latest returns up to n matching events, newest first.
func (w Writer) Latest(ctx context.Context, n int, f Filter) ([]domain.Event, error) {
	evts, err := store.List[domain.Event](ctx, w.Store, store.KeyEvents)
	if err != nil {
		return nil, err
	}
	var out []domain.Event
	for i := len(evts) - 1; i >= 0; i-- {
		if !f.match(evts[i]) {
			continue
		}
		out = append(out, evts[i])
		if n > 0 && len(out) == n {
			break
		}
	}
	return out, nil
}
