package repo

import (
	"context"
	"database/sql"
	"time"

	"flowmetric/internal/domain"
)

const userColumns = `user_id,farcaster_id,name,role,skills_json,avatar`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	var farcasterID, avatar, skills sql.NullString
	if err := row.Scan(&u.UserID, &farcasterID, &u.Name, &u.Role, &skills, &avatar); err != nil {
		return u, notFound(err)
	}
	if farcasterID.Valid {
		u.FarcasterID = &farcasterID.String
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	list, err := decodeList(skills)
	if err != nil {
		return u, err
	}
	u.Skills = list
	return u, nil
}

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	skills, err := encodeList(u.Skills)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO users(user_id,farcaster_id,name,role,skills_json,avatar,created_at) VALUES (?,?,?,?,?,?,?)`,
		u.UserID, nullableStringPtr(u.FarcasterID), u.Name, u.Role, skills, nullableStringPtr(u.Avatar), formatTime(time.Now()))
	return conflictErr(err, "user")
}

func (r Repo) GetUser(ctx context.Context, tx *sql.Tx, id string) (domain.User, error) {
	return scanUser(r.reader(tx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=?`, id))
}

func (r Repo) GetUserByFarcasterID(ctx context.Context, tx *sql.Tx, farcasterID string) (domain.User, error) {
	return scanUser(r.reader(tx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE farcaster_id=?`, farcasterID))
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	return r.ListUsersTx(ctx, nil)
}

func (r Repo) ListUsersTx(ctx context.Context, tx *sql.Tx) ([]domain.User, error) {
	rows, err := r.reader(tx).QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}
