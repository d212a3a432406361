package repo

import (
	"context"
	"database/sql"

	"flowmetric/internal/domain"
)

const activityColumns = `seq,id,type,description,ts,user_id,project_id,task_id`

func scanActivity(row rowScanner) (domain.Activity, error) {
	var a domain.Activity
	var ts string
	var userID, projectID, taskID sql.NullString
	if err := row.Scan(&a.Seq, &a.ID, &a.Type, &a.Description, &ts, &userID, &projectID, &taskID); err != nil {
		return a, notFound(err)
	}
	t, err := parseTime(ts)
	if err != nil {
		return a, err
	}
	a.Timestamp = t
	a.UserID = userID.String
	a.ProjectID = projectID.String
	a.TaskID = taskID.String
	return a, nil
}

func (r Repo) InsertActivity(ctx context.Context, tx *sql.Tx, a domain.Activity) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO activities(id,type,description,ts,user_id,project_id,task_id) VALUES (?,?,?,?,?,?,?)`,
		a.ID, a.Type, a.Description, formatTime(a.Timestamp), nullable(a.UserID), nullable(a.ProjectID), nullable(a.TaskID))
	return conflictErr(err, "activity")
}

// RecentActivities returns up to limit entries, newest first.
func (r Repo) RecentActivities(ctx context.Context, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		return []domain.Activity{}, nil
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

// ActivitiesAfter returns entries with a sequence greater than the cursor in
// ascending order.
func (r Repo) ActivitiesAfter(ctx context.Context, cursor int64, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE seq>? ORDER BY seq ASC LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

// LatestActivitySeq returns the newest sequence number, 0 when the log is empty.
func (r Repo) LatestActivitySeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq),0) FROM activities`).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func collectActivities(rows *sql.Rows) ([]domain.Activity, error) {
	res := []domain.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
