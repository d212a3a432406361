package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"flowmetric/internal/domain"
	"flowmetric/internal/repo"
)

// Writer appends entries to the activity log inside the caller's transaction.
type Writer struct {
	Repo repo.Repo
	Now  func() time.Time
}

// Refs names the records an activity is about. Empty fields are omitted.
type Refs struct {
	UserID    string
	ProjectID string
	TaskID    string
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, activityType, description string, refs Refs) (domain.Activity, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	if activityType == "" {
		return domain.Activity{}, fmt.Errorf("activity type required")
	}
	a := domain.Activity{
		ID:          uuid.NewString(),
		Type:        activityType,
		Description: description,
		Timestamp:   w.Now().UTC(),
		UserID:      refs.UserID,
		ProjectID:   refs.ProjectID,
		TaskID:      refs.TaskID,
	}
	if err := w.Repo.InsertActivity(ctx, tx, a); err != nil {
		return domain.Activity{}, fmt.Errorf("append activity: %w", err)
	}
	return a, nil
}
