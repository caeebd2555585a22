package app

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"testlab/internal/domain"
)

// ScriptInput is the script form. Empty environment and type default to
// Online and Positive.
type ScriptInput struct {
	ScriptID         string
	ShortDescription string
	TestEnvironment  domain.TestEnvironment
	TestType         domain.TestType
	Purpose          string
	Assumptions      []string
	ExpectedResults  string
	ScriptDetails    string
	Screenshots      []domain.Screenshot
	SubfolderID      string
}

func (s *Service) normalizeScript(ctx context.Context, in *ScriptInput) error {
	in.ScriptID = strings.TrimSpace(in.ScriptID)
	in.ShortDescription = strings.TrimSpace(in.ShortDescription)
	if in.TestEnvironment == "" {
		in.TestEnvironment = domain.EnvOnline
	}
	if in.TestType == "" {
		in.TestType = domain.TypePositive
	}
	in.Assumptions = StripBlank(in.Assumptions)
	folders, err := s.Engine.Folders.List(ctx)
	if err != nil {
		return err
	}
	return validation.ValidateStruct(in,
		validation.Field(&in.ScriptID, validation.Required),
		validation.Field(&in.ShortDescription, validation.Required),
		validation.Field(&in.SubfolderID, validation.Required, validation.By(subfolderRule(folders))),
		validation.Field(&in.TestEnvironment, validation.In(domain.EnvOnline, domain.EnvBatch, domain.EnvOnlineAndBatch)),
		validation.Field(&in.TestType, validation.In(domain.TypePositive, domain.TypeNegative)),
	)
}

func (s *Service) CreateScript(ctx context.Context, in ScriptInput) (domain.Script, error) {
	if err := s.normalizeScript(ctx, &in); err != nil {
		return domain.Script{}, err
	}
	return s.Engine.Catalog.Add(ctx, domain.NewScript{
		ScriptID:         in.ScriptID,
		ShortDescription: in.ShortDescription,
		TestEnvironment:  in.TestEnvironment,
		TestType:         in.TestType,
		Purpose:          in.Purpose,
		Assumptions:      in.Assumptions,
		ExpectedResults:  in.ExpectedResults,
		ScriptDetails:    in.ScriptDetails,
		Screenshots:      in.Screenshots,
		SubfolderID:      in.SubfolderID,
	})
}

// EditScript replaces every editable field of the script with the form values.
func (s *Service) EditScript(ctx context.Context, id string, in ScriptInput) error {
	if err := s.normalizeScript(ctx, &in); err != nil {
		return err
	}
	shots := in.Screenshots
	if shots == nil {
		shots = []domain.Screenshot{}
	}
	return s.Engine.Catalog.Update(ctx, id, domain.ScriptPatch{
		ScriptID:         &in.ScriptID,
		ShortDescription: &in.ShortDescription,
		TestEnvironment:  &in.TestEnvironment,
		TestType:         &in.TestType,
		Purpose:          &in.Purpose,
		Assumptions:      &in.Assumptions,
		ExpectedResults:  &in.ExpectedResults,
		ScriptDetails:    &in.ScriptDetails,
		Screenshots:      &shots,
		SubfolderID:      &in.SubfolderID,
	})
}

// StripBlank drops assumptions that are empty after trimming.
func StripBlank(items []string) []string {
	out := []string{}
	for _, a := range items {
		if strings.TrimSpace(a) != "" {
			out = append(out, a)
		}
	}
	return out
}
