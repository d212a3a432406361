package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"flowmetric/internal/domain"
	"flowmetric/internal/events"
	"flowmetric/internal/repo"
)

type CreateTaskOptions struct {
	ProjectID       string          `json:"projectId" validate:"required"`
	AssignedUserID  string          `json:"assignedUserId" validate:"required"`
	Description     string          `json:"description" validate:"required"`
	EstimatedEffort float64         `json:"estimatedEffort" validate:"gt=0"`
	Priority        domain.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	ActorID         string          `json:"-"`
}

// CreateTask stores a pending task in an existing project.
func (e Engine) CreateTask(ctx context.Context, opts CreateTaskOptions) (domain.Task, error) {
	opts.Description = strings.TrimSpace(opts.Description)
	if err := validateInput(opts); err != nil {
		return domain.Task{}, err
	}
	t := domain.Task{
		TaskID:          uuid.NewString(),
		ProjectID:       opts.ProjectID,
		AssignedUserID:  opts.AssignedUserID,
		Description:     opts.Description,
		Status:          domain.TaskPending,
		EstimatedEffort: opts.EstimatedEffort,
		Priority:        opts.Priority,
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := e.Repo.GetProject(ctx, tx, t.ProjectID); err != nil {
			return fmt.Errorf("project %s: %w", t.ProjectID, err)
		}
		return e.Repo.InsertTask(ctx, tx, t)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (e Engine) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return e.Repo.GetTask(ctx, nil, id)
}

func (e Engine) ListTasks(ctx context.Context, f repo.TaskFilters) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, f)
}

// applyStatus moves t to status and maintains the lifecycle timestamps:
// entering in-progress stamps startTime, completing stamps endTime and the
// actual effort, and resetting to pending clears both timestamps.
func applyStatus(t *domain.Task, status domain.TaskStatus, now time.Time) {
	now = now.UTC()
	switch status {
	case domain.TaskInProgress:
		if t.Status != domain.TaskInProgress || t.StartTime == nil {
			t.StartTime = &now
		}
		t.EndTime = nil
	case domain.TaskCompleted:
		t.EndTime = &now
		if t.StartTime != nil {
			hours := math.Round(now.Sub(*t.StartTime).Hours()*100) / 100
			t.ActualEffort = &hours
		}
	case domain.TaskPending:
		t.StartTime = nil
		t.EndTime = nil
		t.ActualEffort = nil
	}
	t.Status = status
}

type SetTaskStatusOptions struct {
	TaskID  string            `json:"-" validate:"required"`
	Status  domain.TaskStatus `json:"status" validate:"required,oneof=pending in-progress completed blocked"`
	ActorID string            `json:"-"`
}

// SetTaskStatus transitions a task and logs task_completed when it completes,
// task_update otherwise.
func (e Engine) SetTaskStatus(ctx context.Context, opts SetTaskStatusOptions) (domain.Task, error) {
	if err := validateInput(opts); err != nil {
		return domain.Task{}, err
	}
	var t domain.Task
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = e.Repo.GetTask(ctx, tx, opts.TaskID)
		if err != nil {
			return err
		}
		applyStatus(&t, opts.Status, e.now())
		if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
			return err
		}
		activityType := domain.ActivityTaskUpdate
		desc := fmt.Sprintf("Task \"%s\" moved to %s", t.Description, t.Status)
		if t.Status == domain.TaskCompleted {
			activityType = domain.ActivityTaskCompleted
			desc = fmt.Sprintf("Task \"%s\" completed", t.Description)
		}
		actor := opts.ActorID
		if actor == "" {
			actor = t.AssignedUserID
		}
		_, err = e.activity().Append(ctx, tx, activityType, desc, events.Refs{UserID: actor, ProjectID: t.ProjectID, TaskID: t.TaskID})
		return err
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// taskProject returns the project a task belongs to, or a zero project when it
// no longer exists.
func (e Engine) taskProject(ctx context.Context, t domain.Task) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, nil, t.ProjectID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Project{}, nil
	}
	return p, err
}
