package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"testlab/internal/domain"
)

// IssueInput is the raise-issue form.
type IssueInput struct {
	Title       string
	Description string
	Screenshots []domain.Screenshot
}

// RaiseIssue opens a new issue in the project linked to the imported script.
func (s *Service) RaiseIssue(ctx context.Context, projectID, importedID string, in IssueInput) (domain.Issue, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required),
		validation.Field(&in.Description, validation.Required),
	)
	if err != nil {
		return domain.Issue{}, err
	}
	var scriptIDs []string
	if importedID != "" {
		scriptIDs = []string{importedID}
	}
	return s.Engine.Issues.Raise(ctx, domain.NewIssue{
		Title:       in.Title,
		Description: in.Description,
		Status:      domain.IssueOpen,
		ProjectID:   projectID,
		ScriptIDs:   scriptIDs,
		Screenshots: in.Screenshots,
	})
}

// LinkIssue attaches an existing issue to another imported script. It
// reports false when the two were already linked.
func (s *Service) LinkIssue(ctx context.Context, issueID, importedID string) (bool, error) {
	issue, err := s.Engine.Issues.Get(ctx, issueID)
	if err != nil {
		return false, err
	}
	if slices.Contains(issue.ScriptIDs, importedID) {
		return false, nil
	}
	if _, err := s.Engine.Projects.ImportedByID(ctx, importedID); err != nil {
		return false, err
	}
	return true, s.Engine.Issues.Link(ctx, issueID, importedID)
}

func (s *Service) UnlinkIssue(ctx context.Context, issueID, importedID string) error {
	return s.Engine.Issues.Unlink(ctx, issueID, importedID)
}

// FixIssue marks the issue fixed; a resolution is required.
func (s *Service) FixIssue(ctx context.Context, issueID, resolution string) error {
	resolution = strings.TrimSpace(resolution)
	if err := validation.Validate(resolution, validation.Required.Error("resolution is required to mark an issue fixed")); err != nil {
		return validation.Errors{"resolution": err}
	}
	status := domain.IssueFixed
	return s.Engine.Issues.Update(ctx, issueID, domain.IssuePatch{Status: &status, Resolution: &resolution})
}

// ReopenIssue reopens a fixed issue and clears its resolution.
func (s *Service) ReopenIssue(ctx context.Context, issueID string) error {
	issue, err := s.Engine.Issues.Get(ctx, issueID)
	if err != nil {
		return err
	}
	if issue.Status != domain.IssueFixed {
		return fmt.Errorf("issue #%d is %s; only fixed issues can be reopened", issue.IssueNumber, issue.Status)
	}
	status := domain.IssueReopened
	none := ""
	return s.Engine.Issues.Update(ctx, issueID, domain.IssuePatch{Status: &status, Resolution: &none})
}

// LinkedIssues returns the issues recorded on the imported script.
func (s *Service) LinkedIssues(ctx context.Context, importedID string) ([]domain.Issue, error) {
	imp, err := s.Engine.Projects.ImportedByID(ctx, importedID)
	if err != nil {
		return nil, err
	}
	issues, err := s.Engine.Issues.List(ctx, imp.ProjectID)
	if err != nil {
		return nil, err
	}
	var out []domain.Issue
	for _, is := range issues {
		if slices.Contains(imp.Issues, is.ID) {
			out = append(out, is)
		}
	}
	return out, nil
}
