package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flowmetric/internal/domain"
	"flowmetric/internal/engine/auth"
	"flowmetric/internal/events"
	"flowmetric/internal/repo"
)

type FrameAction string

const (
	ActionMarkComplete   FrameAction = "mark_complete"
	ActionMarkInProgress FrameAction = "mark_in_progress"
	ActionMarkPending    FrameAction = "mark_pending"
)

type FrameActionOptions struct {
	Action      FrameAction `json:"action" validate:"required,oneof=mark_complete mark_in_progress mark_pending"`
	TaskID      string      `json:"taskId" validate:"required"`
	FarcasterID string      `json:"farcasterId" validate:"required"`
}

type FrameActionResult struct {
	Task    domain.Task
	User    domain.User
	Message string
}

// ApplyFrameAction performs a status change requested from a social frame.
// Only the task's assignee may act on it.
func (e Engine) ApplyFrameAction(ctx context.Context, opts FrameActionOptions) (FrameActionResult, error) {
	if err := validateInput(opts); err != nil {
		return FrameActionResult{}, err
	}
	var res FrameActionResult
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		u, err := e.Repo.GetUserByFarcasterID(ctx, tx, opts.FarcasterID)
		if err != nil {
			return fmt.Errorf("user: %w", err)
		}
		t, err := e.Repo.GetTask(ctx, tx, opts.TaskID)
		if err != nil {
			return fmt.Errorf("task: %w", err)
		}
		if t.AssignedUserID != u.UserID {
			return auth.ForbiddenError{Reason: "not authorized to update this task"}
		}
		var msg string
		switch opts.Action {
		case ActionMarkComplete:
			applyStatus(&t, domain.TaskCompleted, e.now())
			msg = fmt.Sprintf("✅ Task \"%s\" marked as completed!", t.Description)
		case ActionMarkInProgress:
			applyStatus(&t, domain.TaskInProgress, e.now())
			msg = fmt.Sprintf("🚀 Started working on \"%s\"", t.Description)
		case ActionMarkPending:
			applyStatus(&t, domain.TaskPending, e.now())
			msg = fmt.Sprintf("⏸️ Task \"%s\" marked as pending", t.Description)
		}
		if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
			return err
		}
		if _, err := e.activity().Append(ctx, tx, domain.ActivityTaskUpdate, msg,
			events.Refs{UserID: u.UserID, ProjectID: t.ProjectID, TaskID: t.TaskID}); err != nil {
			return err
		}
		res = FrameActionResult{Task: t, User: u, Message: msg}
		return nil
	})
	if err != nil {
		return FrameActionResult{}, err
	}
	return res, nil
}

// TaskCard is a task with the display names of its project and assignee.
// Names are empty when the referenced record does not exist.
type TaskCard struct {
	Task         domain.Task
	ProjectName  string
	AssigneeName string
}

func (e Engine) TaskCard(ctx context.Context, taskID string) (TaskCard, error) {
	t, err := e.Repo.GetTask(ctx, nil, taskID)
	if err != nil {
		return TaskCard{}, err
	}
	card := TaskCard{Task: t}
	p, err := e.taskProject(ctx, t)
	if err != nil {
		return TaskCard{}, err
	}
	card.ProjectName = p.ProjectName
	u, err := e.Repo.GetUser(ctx, nil, t.AssignedUserID)
	switch {
	case err == nil:
		card.AssigneeName = u.Name
	case !errors.Is(err, repo.ErrNotFound):
		return TaskCard{}, err
	}
	return card, nil
}
