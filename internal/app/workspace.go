package app

import (
	"context"
	"database/sql"
	"fmt"

	"flowmetric/internal/config"
	"flowmetric/internal/db"
	"flowmetric/internal/engine"
	"flowmetric/internal/migrate"
)

// Workspace is an opened, migrated workspace with its config loaded.
type Workspace struct {
	Dir     string
	DB      *sql.DB
	Config  *config.Config
	Engine  engine.Engine
	Applied []string
}

// Open prepares the workspace directory, opens the database, applies pending
// migrations and loads flowmetric.yml, falling back to defaults when the file
// is missing. Callers must Close the workspace.
func Open(ctx context.Context, dir string) (*Workspace, error) {
	if _, err := db.EnsureWorkspace(dir); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOptional(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		return nil, err
	}
	applied, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Workspace{
		Dir:     dir,
		DB:      conn,
		Config:  cfg,
		Engine:  engine.New(conn, cfg),
		Applied: applied,
	}, nil
}

func (w *Workspace) Close() error {
	if w == nil || w.DB == nil {
		return nil
	}
	return w.DB.Close()
}
