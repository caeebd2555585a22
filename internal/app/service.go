// Package app is the calling layer over the engine. It applies the input
// rules of the test workflow (required fields, resolution needed to fix an
// issue, one import per script and project) that the engine leaves to its
// callers.
package app

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"testlab/internal/domain"
	"testlab/internal/engine"
)

type Service struct {
	Engine *engine.Engine
	Log    *zap.Logger
}

func New(e *engine.Engine, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Engine: e, Log: log.Named("app")}
}

func (s *Service) Close() error {
	return s.Engine.Store.Close()
}

// FolderInput is the folder form.
type FolderInput struct {
	Name     string
	ParentID string
}

// CreateFolder adds a root folder, or a subfolder under an existing root.
func (s *Service) CreateFolder(ctx context.Context, in FolderInput) (domain.Folder, error) {
	in.Name = strings.TrimSpace(in.Name)
	folders, err := s.Engine.Folders.List(ctx)
	if err != nil {
		return domain.Folder{}, err
	}
	err = validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required.Error("folder name is required")),
		validation.Field(&in.ParentID, validation.By(rootFolderRule(folders))),
	)
	if err != nil {
		return domain.Folder{}, err
	}
	return s.Engine.Folders.Add(ctx, in.Name, in.ParentID)
}

func (s *Service) RenameFolder(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, validation.Required.Error("folder name is required")); err != nil {
		return validation.Errors{"name": err}
	}
	return s.Engine.Folders.Update(ctx, id, domain.FolderPatch{Name: &name})
}

// DeleteFolder removes a folder and its subfolders; with purge the scripts
// filed under them are removed too.
func (s *Service) DeleteFolder(ctx context.Context, id string, purge bool) error {
	if purge {
		return s.Engine.Folders.Purge(ctx, id)
	}
	return s.Engine.Folders.Delete(ctx, id)
}

func rootFolderRule(folders []domain.Folder) validation.RuleFunc {
	return func(v interface{}) error {
		id, _ := v.(string)
		if id == "" {
			return nil
		}
		for _, f := range folders {
			if f.ID != id {
				continue
			}
			if f.IsSubfolder {
				return errors.New("folders nest two levels deep; parent must be a root folder")
			}
			return nil
		}
		return errors.New("parent folder does not exist")
	}
}

func subfolderRule(folders []domain.Folder) validation.RuleFunc {
	return func(v interface{}) error {
		id, _ := v.(string)
		if id == "" {
			return nil
		}
		for _, f := range folders {
			if f.ID == id && f.IsSubfolder {
				return nil
			}
		}
		return errors.New("must reference an existing subfolder")
	}
}
