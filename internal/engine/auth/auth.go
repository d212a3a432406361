package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flowmetric/internal/domain"
	"flowmetric/internal/repo"
)

// Roles with elevated rights. Role names are free-form and compared
// case-insensitively.
const (
	RoleAdmin          = "admin"
	RoleProjectManager = "project manager"
	DefaultRole        = "Team Member"
)

// ForbiddenError indicates the principal lacks a role or assignment.
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string {
	if e.Reason == "" {
		return "forbidden"
	}
	return e.Reason
}

// UnauthenticatedError indicates no known user could be resolved.
type UnauthenticatedError struct {
	Reason string
}

func (e UnauthenticatedError) Error() string {
	if e.Reason == "" {
		return "authentication required"
	}
	return e.Reason
}

// Service resolves farcaster identities to stored users.
type Service struct {
	Repo repo.Repo
}

// Authenticate looks up the user registered under farcasterID.
func (s Service) Authenticate(ctx context.Context, farcasterID string) (domain.User, error) {
	farcasterID = strings.TrimSpace(farcasterID)
	if farcasterID == "" {
		return domain.User{}, UnauthenticatedError{Reason: "farcaster id required"}
	}
	u, err := s.Repo.GetUserByFarcasterID(ctx, nil, farcasterID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, UnauthenticatedError{Reason: fmt.Sprintf("no user registered for farcaster id %s", farcasterID)}
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// UserByID resolves a user id, as carried in a bearer token subject.
func (s Service) UserByID(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Repo.GetUser(ctx, nil, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, UnauthenticatedError{Reason: "unknown user"}
	}
	return u, err
}

// HasRole reports whether the user holds role. Admins hold every role.
func HasRole(u domain.User, role string) bool {
	have := strings.ToLower(strings.TrimSpace(u.Role))
	return have == RoleAdmin || have == strings.ToLower(strings.TrimSpace(role))
}

// RequireRole returns a ForbiddenError unless the user holds one of roles.
func RequireRole(u domain.User, roles ...string) error {
	for _, r := range roles {
		if HasRole(u, r) {
			return nil
		}
	}
	return ForbiddenError{Reason: fmt.Sprintf("role %s required", strings.Join(roles, " or "))}
}

// CanEditProject allows assigned users, project managers and admins.
func CanEditProject(u domain.User, p domain.Project) error {
	for _, id := range p.AssignedUsers {
		if id == u.UserID {
			return nil
		}
	}
	if err := RequireRole(u, RoleProjectManager); err != nil {
		return ForbiddenError{Reason: "not assigned to project " + p.ProjectID}
	}
	return nil
}
