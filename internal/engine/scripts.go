package engine

import (
	"context"
	"strings"

	"testlab/internal/domain"
	"testlab/internal/events"
	"testlab/internal/store"
)

// Catalog manages the authoritative test scripts.
type Catalog struct {
	e *Engine
}

func (c Catalog) List(ctx context.Context) ([]domain.Script, error) {
	return store.List[domain.Script](ctx, c.e.Store, store.KeyScripts)
}

func (c Catalog) Get(ctx context.Context, id string) (domain.Script, error) {
	scripts, err := c.List(ctx)
	if err != nil {
		return domain.Script{}, err
	}
	i := indexOf(scripts, func(s domain.Script) bool { return s.ID == id })
	if i < 0 {
		return domain.Script{}, ErrNotFound
	}
	return scripts[i], nil
}

// Add stores a new script as given; assumptions are not cleaned here.
func (c Catalog) Add(ctx context.Context, in domain.NewScript) (domain.Script, error) {
	t, now := c.e.stamp()
	s := domain.Script{
		ID:               c.e.newID("script", t),
		ScriptID:         in.ScriptID,
		ShortDescription: in.ShortDescription,
		TestEnvironment:  in.TestEnvironment,
		TestType:         in.TestType,
		Purpose:          in.Purpose,
		Assumptions:      nonNil(append([]string(nil), in.Assumptions...)),
		ExpectedResults:  in.ExpectedResults,
		ScriptDetails:    in.ScriptDetails,
		Screenshots:      nonNil(append([]domain.Screenshot(nil), in.Screenshots...)),
		SubfolderID:      in.SubfolderID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := store.Update(ctx, c.e.Store, store.KeyScripts, func(items []domain.Script) ([]domain.Script, bool) {
		return append(items, s), true
	})
	if err != nil {
		return domain.Script{}, err
	}
	c.e.record(ctx, "script.created", "script", s.ID, "", events.Payload{"script_id": s.ScriptID, "subfolder_id": s.SubfolderID})
	return s, nil
}

// Update merges p into the script and bumps updatedAt.
func (c Catalog) Update(ctx context.Context, id string, p domain.ScriptPatch) error {
	_, now := c.e.stamp()
	found := false
	err := store.Update(ctx, c.e.Store, store.KeyScripts, func(items []domain.Script) ([]domain.Script, bool) {
		i := indexOf(items, func(s domain.Script) bool { return s.ID == id })
		if i < 0 {
			return items, false
		}
		s := p.Apply(items[i])
		s.UpdatedAt = now
		items[i] = s
		found = true
		return items, true
	})
	if err != nil {
		return err
	}
	if !found {
		c.e.missing("script.update", id)
		return nil
	}
	c.e.record(ctx, "script.updated", "script", id, "", nil)
	return nil
}

// Delete hard-removes the script. Snapshots already imported into projects are kept.
func (c Catalog) Delete(ctx context.Context, id string) error {
	found := false
	err := store.Update(ctx, c.e.Store, store.KeyScripts, func(items []domain.Script) ([]domain.Script, bool) {
		i := indexOf(items, func(s domain.Script) bool { return s.ID == id })
		if i < 0 {
			return items, false
		}
		found = true
		return append(items[:i], items[i+1:]...), true
	})
	if err != nil {
		return err
	}
	if !found {
		c.e.missing("script.delete", id)
		return nil
	}
	c.e.record(ctx, "script.deleted", "script", id, "", nil)
	return nil
}

// Orphans returns scripts whose subfolder no longer exists, typically left
// behind by Folders.Delete.
func (c Catalog) Orphans(ctx context.Context) ([]domain.Script, error) {
	folders, err := c.e.Folders.List(ctx)
	if err != nil {
		return nil, err
	}
	scripts, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	subs := map[string]bool{}
	for _, f := range AllSubfolders(folders) {
		subs[f.ID] = true
	}
	var out []domain.Script
	for _, s := range scripts {
		if !subs[s.SubfolderID] {
			out = append(out, s)
		}
	}
	return out, nil
}

type ScriptFilter struct {
	SubfolderID string
	Search      string
}

// Filter applies the catalog browsing filters: exact subfolder match and a
// case-insensitive search over scriptId and shortDescription.
func Filter(scripts []domain.Script, f ScriptFilter) []domain.Script {
	term := strings.ToLower(f.Search)
	var out []domain.Script
	for _, s := range scripts {
		if f.SubfolderID != "" && s.SubfolderID != f.SubfolderID {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(s.ScriptID), term) &&
			!strings.Contains(strings.ToLower(s.ShortDescription), term) {
			continue
		}
		out = append(out, s)
	}
	return out
}
