package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"flowmetric/internal/domain"
)

const resourceColumns = `resource_id,resource_name,resource_type,availability,current_assignments_json,skills_json`

func scanResource(row rowScanner) (domain.Resource, error) {
	var res domain.Resource
	var assignments, skills sql.NullString
	if err := row.Scan(&res.ResourceID, &res.ResourceName, &res.ResourceType, &res.Availability, &assignments, &skills); err != nil {
		return res, notFound(err)
	}
	list, err := decodeList(assignments)
	if err != nil {
		return res, err
	}
	res.CurrentAssignments = list
	if skills.Valid {
		if err := json.Unmarshal([]byte(skills.String), &res.Skills); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (r Repo) InsertResource(ctx context.Context, tx *sql.Tx, res domain.Resource) error {
	assignments, err := encodeList(res.CurrentAssignments)
	if err != nil {
		return err
	}
	var skills any
	if res.Skills != nil {
		data, err := encodeList(res.Skills)
		if err != nil {
			return err
		}
		skills = data
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO resources(resource_id,resource_name,resource_type,availability,current_assignments_json,skills_json,created_at) VALUES (?,?,?,?,?,?,?)`,
		res.ResourceID, res.ResourceName, res.ResourceType, res.Availability, assignments, skills, formatTime(time.Now()))
	return conflictErr(err, "resource")
}

func (r Repo) UpdateResourceAssignments(ctx context.Context, tx *sql.Tx, resourceID string, assignments []string) error {
	data, err := encodeList(assignments)
	if err != nil {
		return err
	}
	out, err := tx.ExecContext(ctx, `UPDATE resources SET current_assignments_json=? WHERE resource_id=?`, data, resourceID)
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetResource(ctx context.Context, tx *sql.Tx, id string) (domain.Resource, error) {
	return scanResource(r.reader(tx).QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE resource_id=?`, id))
}

func (r Repo) ListResources(ctx context.Context) ([]domain.Resource, error) {
	return r.ListResourcesTx(ctx, nil)
}

func (r Repo) ListResourcesTx(ctx context.Context, tx *sql.Tx) ([]domain.Resource, error) {
	rows, err := r.reader(tx).QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Resource{}
	for rows.Next() {
		item, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, item)
	}
	return res, rows.Err()
}
