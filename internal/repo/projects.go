package repo

import (
	"context"
	"database/sql"
	"time"

	"flowmetric/internal/domain"
)

const projectColumns = `project_id,project_name,due_date,status,progress,assigned_users_json`

func scanProject(row rowScanner) (domain.Project, error) {
	var p domain.Project
	var assigned sql.NullString
	if err := row.Scan(&p.ProjectID, &p.ProjectName, &p.DueDate, &p.Status, &p.Progress, &assigned); err != nil {
		return p, notFound(err)
	}
	list, err := decodeList(assigned)
	if err != nil {
		return p, err
	}
	p.AssignedUsers = list
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	assigned, err := encodeList(p.AssignedUsers)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO projects(project_id,project_name,due_date,status,progress,assigned_users_json,created_at) VALUES (?,?,?,?,?,?,?)`,
		p.ProjectID, p.ProjectName, p.DueDate, p.Status, p.Progress, assigned, formatTime(time.Now()))
	return conflictErr(err, "project")
}

// UpdateProject overwrites every mutable field of an existing project.
func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	assigned, err := encodeList(p.AssignedUsers)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE projects SET project_name=?, due_date=?, status=?, progress=?, assigned_users_json=? WHERE project_id=?`,
		p.ProjectName, p.DueDate, p.Status, p.Progress, assigned, p.ProjectID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetProject(ctx context.Context, tx *sql.Tx, id string) (domain.Project, error) {
	return scanProject(r.reader(tx).QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE project_id=?`, id))
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return r.ListProjectsTx(ctx, nil)
}

func (r Repo) ListProjectsTx(ctx context.Context, tx *sql.Tx) ([]domain.Project, error) {
	rows, err := r.reader(tx).QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// ListProjectsByUser returns projects whose assigned users include userID.
func (r Repo) ListProjectsByUser(ctx context.Context, userID string) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects
WHERE EXISTS (SELECT 1 FROM json_each(projects.assigned_users_json) WHERE json_each.value = ?)
ORDER BY rowid`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
