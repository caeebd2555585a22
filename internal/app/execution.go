package app

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"testlab/internal/domain"
)

func (s *Service) CreateProject(ctx context.Context, name, userID string) (domain.Project, error) {
	name = strings.TrimSpace(name)
	err := validation.Errors{
		"name":   validation.Validate(name, validation.Required.Error("project name is required")),
		"userId": validation.Validate(userID, validation.Required),
	}.Filter()
	if err != nil {
		return domain.Project{}, err
	}
	return s.Engine.Projects.Add(ctx, name, userID)
}

// ImportResult reports which catalog scripts were snapshotted and which were
// skipped because the project already holds them or they do not exist.
type ImportResult struct {
	Imported []domain.ImportedScript `json:"imported"`
	Skipped  []string                `json:"skipped,omitempty"`
	Missing  []string                `json:"missing,omitempty"`
}

// ImportScripts imports each script at most once per project.
func (s *Service) ImportScripts(ctx context.Context, projectID string, scriptIDs ...string) (ImportResult, error) {
	var res ImportResult
	done, err := s.ImportedOriginals(ctx, projectID)
	if err != nil {
		return res, err
	}
	for _, id := range scriptIDs {
		if done[id] {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		imp, ok, err := s.Engine.Projects.Import(ctx, id, projectID)
		if err != nil {
			return res, err
		}
		if !ok {
			res.Missing = append(res.Missing, id)
			continue
		}
		done[id] = true
		res.Imported = append(res.Imported, imp)
	}
	s.Log.Debug("import finished", zap.String("project_id", projectID),
		zap.Int("imported", len(res.Imported)), zap.Int("skipped", len(res.Skipped)), zap.Int("missing", len(res.Missing)))
	return res, nil
}

// ImportedOriginals returns the set of catalog script ids already imported into the project.
func (s *Service) ImportedOriginals(ctx context.Context, projectID string) (map[string]bool, error) {
	imported, err := s.Engine.Projects.Imported(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(imported))
	for _, imp := range imported {
		out[imp.OriginalScriptID] = true
	}
	return out, nil
}

// SaveProgress records remarks and evidence. A pending script moves to
// in-progress; any other status is kept.
func (s *Service) SaveProgress(ctx context.Context, importedID, remarks string, shots []domain.Screenshot) error {
	imp, err := s.Engine.Projects.ImportedByID(ctx, importedID)
	if err != nil {
		return err
	}
	status := imp.Status
	if status == domain.StatusPending {
		status = domain.StatusInProgress
	}
	return s.Engine.Projects.UpdateImported(ctx, importedID, domain.ImportedScriptPatch{
		Status:          &status,
		Remarks:         &remarks,
		TestScreenshots: evidence(shots, imp.TestScreenshots),
	})
}

// MarkComplete closes the execution and stamps completedAt.
func (s *Service) MarkComplete(ctx context.Context, importedID, remarks string, shots []domain.Screenshot) error {
	imp, err := s.Engine.Projects.ImportedByID(ctx, importedID)
	if err != nil {
		return err
	}
	status := domain.StatusCompleted
	completed := domain.FormatTime(s.Engine.Now())
	return s.Engine.Projects.UpdateImported(ctx, importedID, domain.ImportedScriptPatch{
		Status:          &status,
		Remarks:         &remarks,
		TestScreenshots: evidence(shots, imp.TestScreenshots),
		CompletedAt:     &completed,
	})
}

// evidence keeps the stored screenshots when the caller passes none.
func evidence(shots, current []domain.Screenshot) *[]domain.Screenshot {
	if shots == nil {
		shots = current
	}
	return &shots
}

// TestLabSummary is the per-project execution overview.
type TestLabSummary struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	WithOpenIssues int `json:"withOpenIssues"`
}

// Summary counts executions. Pending includes in-progress; WithOpenIssues
// counts unfinished scripts that have a linked issue not yet fixed.
func (s *Service) Summary(ctx context.Context, projectID string) (TestLabSummary, error) {
	imported, err := s.Engine.Projects.Imported(ctx, projectID)
	if err != nil {
		return TestLabSummary{}, err
	}
	issues, err := s.Engine.Issues.List(ctx, projectID)
	if err != nil {
		return TestLabSummary{}, err
	}
	sum := TestLabSummary{Total: len(imported)}
	for _, imp := range imported {
		switch imp.Status {
		case domain.StatusCompleted:
			sum.Completed++
			continue
		case domain.StatusPending, domain.StatusInProgress:
			sum.Pending++
		}
		if len(OpenIssues(issues, imp.ID)) > 0 {
			sum.WithOpenIssues++
		}
	}
	return sum, nil
}

// OpenIssues returns the issues linked to the imported script that are not fixed.
func OpenIssues(issues []domain.Issue, importedID string) []domain.Issue {
	var out []domain.Issue
	for _, is := range issues {
		if is.Status == domain.IssueFixed {
			continue
		}
		for _, id := range is.ScriptIDs {
			if id == importedID {
				out = append(out, is)
				break
			}
		}
	}
	return out
}
