package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"testlab/internal/config"
	"testlab/internal/db"
	"testlab/internal/engine"
	"testlab/internal/migrate"
	"testlab/internal/store"
)

// Open builds the storage backend selected by cfg and returns a ready service.
// The caller owns the service and must Close it.
func Open(ctx context.Context, workspace string, cfg *config.Config, log *zap.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	var b store.Backend
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		sb, err := store.OpenSQLite(ctx, db.Config{Workspace: workspace, Path: cfg.Storage.Path})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		b = sb
	case config.DriverJSON:
		dir := cfg.Storage.Path
		if dir == "" {
			dir = db.CollectionsDir(workspace)
		}
		b = store.DirBackend{Dir: dir}
	case config.DriverMemory:
		b = store.NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	log.Debug("store opened", zap.String("driver", cfg.Storage.Driver), zap.String("workspace", workspace))
	return New(engine.New(store.New(b, log), log), log), nil
}

// SchemaVersion reports the applied migration version of a SQLite-backed
// workspace. ok is false for the other drivers, which have no schema.
func (s *Service) SchemaVersion(ctx context.Context) (v int, ok bool, err error) {
	sb, isSQLite := s.Engine.Store.Backend().(store.SQLiteBackend)
	if !isSQLite {
		return 0, false, nil
	}
	v, err = migrate.Version(ctx, sb.DB)
	return v, err == nil, err
}

// ResolveProject picks the active project for userID: the override when
// given, otherwise the user's only project.
func (s *Service) ResolveProject(ctx context.Context, override, userID string) (string, error) {
	if override != "" {
		p, err := s.Engine.Projects.Get(ctx, override)
		if errors.Is(err, engine.ErrNotFound) {
			return "", fmt.Errorf("project %s not found", override)
		}
		if err != nil {
			return "", err
		}
		if p.UserID != userID {
			return "", fmt.Errorf("project %s is not owned by %s", override, userID)
		}
		return p.ID, nil
	}
	projects, err := s.Engine.Projects.List(ctx, userID)
	if err != nil {
		return "", err
	}
	switch len(projects) {
	case 0:
		return "", fmt.Errorf("no projects for %s; create one with tl project create", userID)
	case 1:
		return projects[0].ID, nil
	default:
		return "", fmt.Errorf("multiple projects exist; specify --project")
	}
}
