package domain

// Patch types carry partial updates. A nil field leaves the stored value unchanged.

type FolderPatch struct {
	Name *string
}

func (p FolderPatch) Apply(f Folder) Folder {
	if p.Name != nil {
		f.Name = *p.Name
	}
	return f
}

// NewScript holds the caller-supplied fields of a Script.
type NewScript struct {
	ScriptID         string
	ShortDescription string
	TestEnvironment  TestEnvironment
	TestType         TestType
	Purpose          string
	Assumptions      []string
	ExpectedResults  string
	ScriptDetails    string
	Screenshots      []Screenshot
	SubfolderID      string
}

type ScriptPatch struct {
	ScriptID         *string
	ShortDescription *string
	TestEnvironment  *TestEnvironment
	TestType         *TestType
	Purpose          *string
	Assumptions      *[]string
	ExpectedResults  *string
	ScriptDetails    *string
	Screenshots      *[]Screenshot
	SubfolderID      *string
}

func (p ScriptPatch) Apply(s Script) Script {
	if p.ScriptID != nil {
		s.ScriptID = *p.ScriptID
	}
	if p.ShortDescription != nil {
		s.ShortDescription = *p.ShortDescription
	}
	if p.TestEnvironment != nil {
		s.TestEnvironment = *p.TestEnvironment
	}
	if p.TestType != nil {
		s.TestType = *p.TestType
	}
	if p.Purpose != nil {
		s.Purpose = *p.Purpose
	}
	if p.Assumptions != nil {
		s.Assumptions = append([]string(nil), (*p.Assumptions)...)
	}
	if p.ExpectedResults != nil {
		s.ExpectedResults = *p.ExpectedResults
	}
	if p.ScriptDetails != nil {
		s.ScriptDetails = *p.ScriptDetails
	}
	if p.Screenshots != nil {
		s.Screenshots = append([]Screenshot(nil), (*p.Screenshots)...)
	}
	if p.SubfolderID != nil {
		s.SubfolderID = *p.SubfolderID
	}
	return s
}

// ImportedScriptPatch excludes the issue list; links go through the issue tracker.
type ImportedScriptPatch struct {
	Status          *ExecutionStatus
	Remarks         *string
	TestScreenshots *[]Screenshot
	CompletedAt     *string
}

func (p ImportedScriptPatch) Apply(s ImportedScript) ImportedScript {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Remarks != nil {
		s.Remarks = *p.Remarks
	}
	if p.TestScreenshots != nil {
		s.TestScreenshots = append([]Screenshot{}, (*p.TestScreenshots)...)
	}
	if p.CompletedAt != nil {
		s.CompletedAt = *p.CompletedAt
	}
	return s
}

type NewIssue struct {
	Title       string
	Description string
	Status      IssueStatus
	ProjectID   string
	ScriptIDs   []string
	Screenshots []Screenshot
	Resolution  *string
}

// IssuePatch excludes the script list. A Resolution pointing at "" clears it.
type IssuePatch struct {
	Title       *string
	Description *string
	Status      *IssueStatus
	Screenshots *[]Screenshot
	Resolution  *string
}

func (p IssuePatch) Apply(i Issue) Issue {
	if p.Title != nil {
		i.Title = *p.Title
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	if p.Status != nil {
		i.Status = *p.Status
	}
	if p.Screenshots != nil {
		i.Screenshots = append([]Screenshot{}, (*p.Screenshots)...)
	}
	if p.Resolution != nil {
		if *p.Resolution == "" {
			i.Resolution = nil
		} else {
			r := *p.Resolution
			i.Resolution = &r
		}
	}
	return i
}

// Ptr returns a pointer to v; handy for building patches.
func Ptr[T any](v T) *T { return &v }
