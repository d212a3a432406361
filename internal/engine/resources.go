package engine

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"flowmetric/internal/domain"
	"flowmetric/internal/events"
)

type CreateResourceOptions struct {
	ResourceName string              `json:"resourceName" validate:"required"`
	ResourceType domain.ResourceType `json:"resourceType" validate:"required,oneof=human equipment software space"`
	Availability *float64            `json:"availability" validate:"required,gte=0,lte=100"`
	Skills       []string            `json:"skills"`
}

func (e Engine) CreateResource(ctx context.Context, opts CreateResourceOptions) (domain.Resource, error) {
	opts.ResourceName = strings.TrimSpace(opts.ResourceName)
	if err := validateInput(opts); err != nil {
		return domain.Resource{}, err
	}
	res := domain.Resource{
		ResourceID:         uuid.NewString(),
		ResourceName:       opts.ResourceName,
		ResourceType:       opts.ResourceType,
		Availability:       *opts.Availability,
		CurrentAssignments: []string{},
		Skills:             opts.Skills,
	}
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		return e.Repo.InsertResource(ctx, tx, res)
	})
	if err != nil {
		return domain.Resource{}, err
	}
	return res, nil
}

func (e Engine) ListResources(ctx context.Context) ([]domain.Resource, error) {
	return e.Repo.ListResources(ctx)
}

type AssignResourceOptions struct {
	ResourceID string `json:"-" validate:"required"`
	TaskID     string `json:"taskId" validate:"required"`
	ActorID    string `json:"-"`
}

// AssignResource adds a task to a resource's current assignments and logs a
// resource_allocated activity. Assigning the same task twice is a no-op.
func (e Engine) AssignResource(ctx context.Context, opts AssignResourceOptions) (domain.Resource, error) {
	if err := validateInput(opts); err != nil {
		return domain.Resource{}, err
	}
	var res domain.Resource
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = e.Repo.GetResource(ctx, tx, opts.ResourceID)
		if err != nil {
			return err
		}
		t, err := e.Repo.GetTask(ctx, tx, opts.TaskID)
		if err != nil {
			return fmt.Errorf("task %s: %w", opts.TaskID, err)
		}
		if slices.Contains(res.CurrentAssignments, t.TaskID) {
			return nil
		}
		res.CurrentAssignments = append(res.CurrentAssignments, t.TaskID)
		if err := e.Repo.UpdateResourceAssignments(ctx, tx, res.ResourceID, res.CurrentAssignments); err != nil {
			return err
		}
		_, err = e.activity().Append(ctx, tx, domain.ActivityResourceAllocated,
			fmt.Sprintf("Resource \"%s\" allocated to task \"%s\"", res.ResourceName, t.Description),
			events.Refs{UserID: opts.ActorID, ProjectID: t.ProjectID, TaskID: t.TaskID})
		return err
	})
	if err != nil {
		return domain.Resource{}, err
	}
	return res, nil
}
