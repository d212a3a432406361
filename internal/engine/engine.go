package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"flowmetric/internal/analytics"
	"flowmetric/internal/config"
	"flowmetric/internal/domain"
	"flowmetric/internal/engine/auth"
	"flowmetric/internal/events"
	"flowmetric/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Auth   auth.Service
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	r := repo.New(db)
	return Engine{
		DB:     db,
		Repo:   r,
		Events: events.Writer{Repo: r},
		Auth:   auth.Service{Repo: r},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// activity returns the log writer stamped with the engine clock.
func (e Engine) activity() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

// Snapshot loads the four collections inside one read transaction, so a
// concurrent write lands either entirely before or entirely after it.
func (e Engine) Snapshot(ctx context.Context) (analytics.Snapshot, error) {
	var s analytics.Snapshot
	err := e.Repo.WithReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		if s.Users, err = e.Repo.ListUsersTx(ctx, tx); err != nil {
			return fmt.Errorf("users: %w", err)
		}
		if s.Projects, err = e.Repo.ListProjectsTx(ctx, tx); err != nil {
			return fmt.Errorf("projects: %w", err)
		}
		if s.Tasks, err = e.Repo.ListTasksTx(ctx, tx, repo.TaskFilters{}); err != nil {
			return fmt.Errorf("tasks: %w", err)
		}
		if s.Resources, err = e.Repo.ListResourcesTx(ctx, tx); err != nil {
			return fmt.Errorf("resources: %w", err)
		}
		return nil
	})
	if err != nil {
		return analytics.Snapshot{}, err
	}
	return s, nil
}

// Dashboard assembles the dashboard from a fresh snapshot. limit <= 0 uses the
// configured recent activity count.
func (e Engine) Dashboard(ctx context.Context, limit int) (analytics.Dashboard, error) {
	if limit <= 0 {
		limit = e.Config.RecentActivityLimit()
	}
	var (
		s      analytics.Snapshot
		recent []domain.Activity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		s, err = e.Snapshot(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = e.Repo.RecentActivities(gctx, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return analytics.Dashboard{}, err
	}
	return analytics.BuildDashboard(s, recent, e.now(), e.Config.Thresholds()), nil
}

func (e Engine) TaskStatusBreakdown(ctx context.Context) (map[domain.TaskStatus]int, error) {
	tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{})
	if err != nil {
		return nil, err
	}
	return analytics.StatusBreakdown(tasks), nil
}

func (e Engine) ProjectProgress(ctx context.Context) ([]analytics.ProjectProgress, error) {
	var (
		projects []domain.Project
		tasks    []domain.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projects, err = e.Repo.ListProjects(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = e.Repo.ListTasks(gctx, repo.TaskFilters{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return analytics.ProjectProgressFor(projects, tasks), nil
}

func (e Engine) ResourceUtilization(ctx context.Context) ([]analytics.ResourceUtilization, error) {
	resources, err := e.Repo.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.ResourceUtilizationFor(resources), nil
}

// RecentActivity returns up to limit entries, newest first. limit <= 0 uses the
// configured count.
func (e Engine) RecentActivity(ctx context.Context, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = e.Config.RecentActivityLimit()
	}
	return e.Repo.RecentActivities(ctx, limit)
}
