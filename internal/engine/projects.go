package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"flowmetric/internal/domain"
	"flowmetric/internal/engine/auth"
	"flowmetric/internal/events"
)

type CreateProjectOptions struct {
	ProjectName   string               `json:"projectName" validate:"required"`
	DueDate       string               `json:"dueDate" validate:"required,duedate"`
	AssignedUsers []string             `json:"assignedUsers" validate:"required"`
	Status        domain.ProjectStatus `json:"status" validate:"omitempty,oneof=active completed delayed idle"`
	Progress      float64              `json:"progress" validate:"gte=0,lte=100"`
	ActorID       string               `json:"-"`
}

// CreateProject stores a new project, active with zero progress unless given,
// and logs a project_started activity.
func (e Engine) CreateProject(ctx context.Context, opts CreateProjectOptions) (domain.Project, error) {
	opts.ProjectName = strings.TrimSpace(opts.ProjectName)
	if err := validateInput(opts); err != nil {
		return domain.Project{}, err
	}
	p := domain.Project{
		ProjectID:     uuid.NewString(),
		ProjectName:   opts.ProjectName,
		DueDate:       strings.TrimSpace(opts.DueDate),
		Status:        opts.Status,
		Progress:      opts.Progress,
		AssignedUsers: opts.AssignedUsers,
	}
	if p.Status == "" {
		p.Status = domain.ProjectActive
	}
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		_, err := e.activity().Append(ctx, tx, domain.ActivityProjectStarted,
			fmt.Sprintf("Project \"%s\" started", p.ProjectName),
			events.Refs{UserID: opts.ActorID, ProjectID: p.ProjectID})
		return err
	})
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

type UpdateProjectOptions struct {
	ProjectID     string                `json:"-" validate:"required"`
	ProjectName   *string               `json:"projectName" validate:"omitempty,min=1"`
	DueDate       *string               `json:"dueDate" validate:"omitempty,duedate"`
	Status        *domain.ProjectStatus `json:"status" validate:"omitempty,oneof=active completed delayed idle"`
	Progress      *float64              `json:"progress" validate:"omitempty,gte=0,lte=100"`
	AssignedUsers []string              `json:"assignedUsers"`
	// Actor, when set, must be allowed to edit the project.
	Actor *domain.User `json:"-"`
}

// UpdateProject applies the non-nil fields of opts to an existing project.
func (e Engine) UpdateProject(ctx context.Context, opts UpdateProjectOptions) (domain.Project, error) {
	if err := validateInput(opts); err != nil {
		return domain.Project{}, err
	}
	var p domain.Project
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = e.Repo.GetProject(ctx, tx, opts.ProjectID)
		if err != nil {
			return err
		}
		if opts.Actor != nil {
			if err := auth.CanEditProject(*opts.Actor, p); err != nil {
				return err
			}
		}
		if opts.ProjectName != nil {
			p.ProjectName = strings.TrimSpace(*opts.ProjectName)
		}
		if opts.DueDate != nil {
			p.DueDate = strings.TrimSpace(*opts.DueDate)
		}
		if opts.Status != nil {
			p.Status = *opts.Status
		}
		if opts.Progress != nil {
			p.Progress = *opts.Progress
		}
		if opts.AssignedUsers != nil {
			p.AssignedUsers = opts.AssignedUsers
		}
		return e.Repo.UpdateProject(ctx, tx, p)
	})
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (e Engine) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return e.Repo.GetProject(ctx, nil, id)
}

// ListProjects returns all projects, or those assigned to userID when set.
func (e Engine) ListProjects(ctx context.Context, userID string) ([]domain.Project, error) {
	if userID != "" {
		return e.Repo.ListProjectsByUser(ctx, userID)
	}
	return e.Repo.ListProjects(ctx)
}
