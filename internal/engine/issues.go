package engine

import (
	"context"
	"errors"
	"slices"

	"testlab/internal/domain"
	"testlab/internal/events"
	"testlab/internal/store"
)

// Issues tracks per-project defects and their links to imported scripts.
type Issues struct {
	e *Engine
}

func (is Issues) List(ctx context.Context, projectID string) ([]domain.Issue, error) {
	all, err := store.List[domain.Issue](ctx, is.e.Store, store.KeyIssues)
	if err != nil {
		return nil, err
	}
	out := []domain.Issue{}
	for _, i := range all {
		if i.ProjectID == projectID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (is Issues) Get(ctx context.Context, id string) (domain.Issue, error) {
	all, err := store.List[domain.Issue](ctx, is.e.Store, store.KeyIssues)
	if err != nil {
		return domain.Issue{}, err
	}
	i := indexOf(all, func(x domain.Issue) bool { return x.ID == id })
	if i < 0 {
		return domain.Issue{}, ErrNotFound
	}
	return all[i], nil
}

// NextNumber is one more than the highest number used in the project, or 1.
// It is max-based so gaps left by removed issues are never refilled.
func NextNumber(issues []domain.Issue, projectID string) int {
	highest := 0
	for _, i := range issues {
		if i.ProjectID == projectID && i.IssueNumber > highest {
			highest = i.IssueNumber
		}
	}
	return highest + 1
}

// Add numbers and stores the issue. ScriptIDs are stored as given; the
// imported scripts are not back-linked (see Raise).
func (is Issues) Add(ctx context.Context, in domain.NewIssue) (domain.Issue, error) {
	t, now := is.e.stamp()
	issue := domain.Issue{
		ID:          is.e.newID("issue", t),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		ProjectID:   in.ProjectID,
		ScriptIDs:   nonNil(append([]string(nil), in.ScriptIDs...)),
		Screenshots: nonNil(append([]domain.Screenshot(nil), in.Screenshots...)),
		Resolution:  in.Resolution,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := store.Update(ctx, is.e.Store, store.KeyIssues, func(items []domain.Issue) ([]domain.Issue, bool) {
		issue.IssueNumber = NextNumber(items, in.ProjectID)
		return append(items, issue), true
	})
	if err != nil {
		return domain.Issue{}, err
	}
	is.e.record(ctx, "issue.created", "issue", issue.ID, issue.ProjectID, events.Payload{
		"title":  issue.Title,
		"status": string(issue.Status),
	})
	return issue, nil
}

// Update merges p and bumps updatedAt. Status transitions are not checked.
func (is Issues) Update(ctx context.Context, id string, p domain.IssuePatch) error {
	_, err := is.mutate(ctx, "issue.updated", id, func(i domain.Issue) (domain.Issue, bool) {
		return p.Apply(i), true
	}, statusPayload(p.Status))
	return err
}

// Raise adds the issue and links it back from every imported script in ScriptIDs.
func (is Issues) Raise(ctx context.Context, in domain.NewIssue) (domain.Issue, error) {
	issue, err := is.Add(ctx, in)
	if err != nil {
		return domain.Issue{}, err
	}
	for _, sid := range issue.ScriptIDs {
		if err := is.linkImported(ctx, sid, issue.ID); err != nil {
			return issue, err
		}
	}
	return issue, nil
}

// Link records the issue against the imported script on both sides. Nothing
// is written unless both records exist; each side is skipped when the link is
// already present.
func (is Issues) Link(ctx context.Context, issueID, importedID string) error {
	if _, err := is.e.Projects.ImportedByID(ctx, importedID); errors.Is(err, ErrNotFound) {
		is.e.missing("issue.linked", importedID)
		return nil
	} else if err != nil {
		return err
	}
	found, err := is.mutate(ctx, "issue.linked", issueID, func(i domain.Issue) (domain.Issue, bool) {
		if slices.Contains(i.ScriptIDs, importedID) {
			return i, false
		}
		i.ScriptIDs = append(i.ScriptIDs, importedID)
		return i, true
	}, events.Payload{"imported_script_id": importedID})
	if err != nil || !found {
		return err
	}
	return is.linkImported(ctx, importedID, issueID)
}

// Unlink removes the link from both sides.
func (is Issues) Unlink(ctx context.Context, issueID, importedID string) error {
	_, err := is.mutate(ctx, "issue.unlinked", issueID, func(i domain.Issue) (domain.Issue, bool) {
		n := len(i.ScriptIDs)
		i.ScriptIDs = slices.DeleteFunc(i.ScriptIDs, func(s string) bool { return s == importedID })
		return i, len(i.ScriptIDs) != n
	}, events.Payload{"imported_script_id": importedID})
	if err != nil {
		return err
	}
	return store.Update(ctx, is.e.Store, store.KeyImportedScripts, func(items []domain.ImportedScript) ([]domain.ImportedScript, bool) {
		i := indexOf(items, func(s domain.ImportedScript) bool { return s.ID == importedID })
		if i < 0 {
			return items, false
		}
		n := len(items[i].Issues)
		items[i].Issues = slices.DeleteFunc(items[i].Issues, func(s string) bool { return s == issueID })
		return items, len(items[i].Issues) != n
	})
}

func (is Issues) linkImported(ctx context.Context, importedID, issueID string) error {
	return store.Update(ctx, is.e.Store, store.KeyImportedScripts, func(items []domain.ImportedScript) ([]domain.ImportedScript, bool) {
		i := indexOf(items, func(s domain.ImportedScript) bool { return s.ID == importedID })
		if i < 0 || slices.Contains(items[i].Issues, issueID) {
			return items, false
		}
		items[i].Issues = append(items[i].Issues, issueID)
		return items, true
	})
}

// mutate applies fn to the issue with id and bumps updatedAt when fn reports a
// change. It reports whether the issue exists.
func (is Issues) mutate(ctx context.Context, evtType, id string, fn func(domain.Issue) (domain.Issue, bool), payload events.Payload) (bool, error) {
	_, now := is.e.stamp()
	var projectID string
	found, changed := false, false
	err := store.Update(ctx, is.e.Store, store.KeyIssues, func(items []domain.Issue) ([]domain.Issue, bool) {
		i := indexOf(items, func(x domain.Issue) bool { return x.ID == id })
		if i < 0 {
			return items, false
		}
		found = true
		next, ok := fn(items[i])
		if !ok {
			return items, false
		}
		next.UpdatedAt = now
		items[i] = next
		projectID = next.ProjectID
		changed = true
		return items, true
	})
	if err != nil {
		return false, err
	}
	if !found {
		is.e.missing(evtType, id)
	}
	if changed {
		is.e.record(ctx, evtType, "issue", id, projectID, payload)
	}
	return found, nil
}

func statusPayload(s *domain.IssueStatus) events.Payload {
	if s == nil {
		return nil
	}
	return events.Payload{"status": string(*s)}
}
