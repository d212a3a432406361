package repo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"flowmetric/internal/domain"
)

const taskColumns = `task_id,project_id,assigned_user_id,description,status,start_time,end_time,estimated_effort,actual_effort,priority`

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var start, end sql.NullString
	var actual sql.NullFloat64
	if err := row.Scan(&t.TaskID, &t.ProjectID, &t.AssignedUserID, &t.Description, &t.Status, &start, &end, &t.EstimatedEffort, &actual, &t.Priority); err != nil {
		return t, notFound(err)
	}
	var err error
	if t.StartTime, err = parseNullTime(start); err != nil {
		return t, err
	}
	if t.EndTime, err = parseNullTime(end); err != nil {
		return t, err
	}
	if actual.Valid {
		t.ActualEffort = &actual.Float64
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(task_id,project_id,assigned_user_id,description,status,start_time,end_time,estimated_effort,actual_effort,priority,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.TaskID, t.ProjectID, t.AssignedUserID, t.Description, t.Status, nullableTime(t.StartTime), nullableTime(t.EndTime),
		t.EstimatedEffort, nullableFloatPtr(t.ActualEffort), t.Priority, formatTime(time.Now()))
	return conflictErr(err, "task")
}

// UpdateTask overwrites every mutable field of an existing task.
func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET project_id=?, assigned_user_id=?, description=?, status=?, start_time=?, end_time=?, estimated_effort=?, actual_effort=?, priority=? WHERE task_id=?`,
		t.ProjectID, t.AssignedUserID, t.Description, t.Status, nullableTime(t.StartTime), nullableTime(t.EndTime),
		t.EstimatedEffort, nullableFloatPtr(t.ActualEffort), t.Priority, t.TaskID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return scanTask(r.reader(tx).QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id=?`, id))
}

type TaskFilters struct {
	ProjectID string
	UserID    string
	Status    domain.TaskStatus
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	return r.ListTasksTx(ctx, nil, f)
}

func (r Repo) ListTasksTx(ctx context.Context, tx *sql.Tx, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.UserID != "" {
		clauses = append(clauses, "assigned_user_id=?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.reader(tx).QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks `+where+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
