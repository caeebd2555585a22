package engine

import (
	"context"
	"errors"

	"testlab/internal/domain"
	"testlab/internal/events"
	"testlab/internal/store"
)

// Projects manages user projects and the script snapshots imported into them.
type Projects struct {
	e *Engine
}

// List returns the projects owned by userID.
func (p Projects) List(ctx context.Context, userID string) ([]domain.Project, error) {
	all, err := store.List[domain.Project](ctx, p.e.Store, store.KeyProjects)
	if err != nil {
		return nil, err
	}
	out := []domain.Project{}
	for _, pr := range all {
		if pr.UserID == userID {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (p Projects) Get(ctx context.Context, id string) (domain.Project, error) {
	all, err := store.List[domain.Project](ctx, p.e.Store, store.KeyProjects)
	if err != nil {
		return domain.Project{}, err
	}
	i := indexOf(all, func(pr domain.Project) bool { return pr.ID == id })
	if i < 0 {
		return domain.Project{}, ErrNotFound
	}
	return all[i], nil
}

// Add creates a project. Names need not be unique.
func (p Projects) Add(ctx context.Context, name, userID string) (domain.Project, error) {
	t, now := p.e.stamp()
	pr := domain.Project{
		ID:        p.e.newID("project", t),
		Name:      name,
		UserID:    userID,
		CreatedAt: now,
	}
	err := store.Update(ctx, p.e.Store, store.KeyProjects, func(items []domain.Project) ([]domain.Project, bool) {
		return append(items, pr), true
	})
	if err != nil {
		return domain.Project{}, err
	}
	p.e.record(ctx, "project.created", "project", pr.ID, pr.ID, events.Payload{"name": name, "user_id": userID})
	return pr, nil
}

// Imported returns the script snapshots of a project.
func (p Projects) Imported(ctx context.Context, projectID string) ([]domain.ImportedScript, error) {
	all, err := store.List[domain.ImportedScript](ctx, p.e.Store, store.KeyImportedScripts)
	if err != nil {
		return nil, err
	}
	out := []domain.ImportedScript{}
	for _, s := range all {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (p Projects) ImportedByID(ctx context.Context, id string) (domain.ImportedScript, error) {
	all, err := store.List[domain.ImportedScript](ctx, p.e.Store, store.KeyImportedScripts)
	if err != nil {
		return domain.ImportedScript{}, err
	}
	i := indexOf(all, func(s domain.ImportedScript) bool { return s.ID == id })
	if i < 0 {
		return domain.ImportedScript{}, ErrNotFound
	}
	return all[i], nil
}

// Import snapshots the catalog script into the project. An unknown scriptID
// is a silent no-op reported through ok=false. Importing the same script
// twice yields two independent snapshots.
func (p Projects) Import(ctx context.Context, scriptID, projectID string) (imp domain.ImportedScript, ok bool, err error) {
	src, err := p.e.Catalog.Get(ctx, scriptID)
	if errors.Is(err, ErrNotFound) {
		p.e.missing("script.import", scriptID)
		return domain.ImportedScript{}, false, nil
	}
	if err != nil {
		return domain.ImportedScript{}, false, err
	}
	t, _ := p.e.stamp()
	imp = domain.ImportedScript{
		ID:               p.e.newID("imported", t),
		OriginalScriptID: scriptID,
		ProjectID:        projectID,
		Script:           src.Clone(),
		Status:           domain.StatusPending,
		TestScreenshots:  []domain.Screenshot{},
		Issues:           []string{},
	}
	err = store.Update(ctx, p.e.Store, store.KeyImportedScripts, func(items []domain.ImportedScript) ([]domain.ImportedScript, bool) {
		return append(items, imp), true
	})
	if err != nil {
		return domain.ImportedScript{}, false, err
	}
	p.e.record(ctx, "script.imported", "imported_script", imp.ID, projectID, events.Payload{"original_script_id": scriptID})
	return imp, true, nil
}

// UpdateImported merges patch into the snapshot. Any status value is
// accepted and no timestamp is touched unless the patch sets CompletedAt.
func (p Projects) UpdateImported(ctx context.Context, id string, patch domain.ImportedScriptPatch) error {
	var projectID string
	found := false
	err := store.Update(ctx, p.e.Store, store.KeyImportedScripts, func(items []domain.ImportedScript) ([]domain.ImportedScript, bool) {
		i := indexOf(items, func(s domain.ImportedScript) bool { return s.ID == id })
		if i < 0 {
			return items, false
		}
		items[i] = patch.Apply(items[i])
		projectID = items[i].ProjectID
		found = true
		return items, true
	})
	if err != nil {
		return err
	}
	if !found {
		p.e.missing("imported.update", id)
		return nil
	}
	var payload events.Payload
	if patch.Status != nil {
		payload = events.Payload{"status": string(*patch.Status)}
	}
	p.e.record(ctx, "imported.updated", "imported_script", id, projectID, payload)
	return nil
}
