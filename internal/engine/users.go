package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"flowmetric/internal/domain"
	"flowmetric/internal/repo"
)

type RegisterUserOptions struct {
	FarcasterID string   `json:"farcasterId" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Role        string   `json:"role" validate:"required"`
	Skills      []string `json:"skills"`
	Avatar      string   `json:"avatar"`
}

// RegisterUser creates a user bound to a farcaster id. A second registration
// for the same id fails with repo.ErrConflict.
func (e Engine) RegisterUser(ctx context.Context, opts RegisterUserOptions) (domain.User, error) {
	opts.FarcasterID = strings.TrimSpace(opts.FarcasterID)
	opts.Name = strings.TrimSpace(opts.Name)
	opts.Role = strings.TrimSpace(opts.Role)
	if err := validateInput(opts); err != nil {
		return domain.User{}, err
	}
	fid := opts.FarcasterID
	u := domain.User{
		UserID:      uuid.NewString(),
		FarcasterID: &fid,
		Name:        opts.Name,
		Role:        opts.Role,
		Skills:      opts.Skills,
	}
	if u.Skills == nil {
		u.Skills = []string{}
	}
	if opts.Avatar != "" {
		avatar := opts.Avatar
		u.Avatar = &avatar
	}
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := e.Repo.GetUserByFarcasterID(ctx, tx, fid); err == nil {
			return fmt.Errorf("user with farcaster id %s already exists: %w", fid, repo.ErrConflict)
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		return e.Repo.InsertUser(ctx, tx, u)
	})
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (e Engine) UserByFarcasterID(ctx context.Context, farcasterID string) (domain.User, error) {
	return e.Repo.GetUserByFarcasterID(ctx, nil, farcasterID)
}

func (e Engine) ListUsers(ctx context.Context) ([]domain.User, error) {
	return e.Repo.ListUsers(ctx)
}
