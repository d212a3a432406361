package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"flowmetric/internal/domain"
)

func TestHasRole(t *testing.T) {
	dev := domain.User{UserID: "u1", Role: "Developer"}
	admin := domain.User{UserID: "u2", Role: "Admin"}

	assert.True(t, HasRole(dev, "developer"))
	assert.True(t, HasRole(dev, " DEVELOPER "))
	assert.False(t, HasRole(dev, "project manager"))
	assert.True(t, HasRole(admin, "project manager"))
	assert.True(t, HasRole(admin, "anything"))
}

func TestRequireRole(t *testing.T) {
	pm := domain.User{Role: "Project Manager"}
	assert.NoError(t, RequireRole(pm, "developer", RoleProjectManager))

	err := RequireRole(domain.User{Role: "Designer"}, RoleProjectManager)
	var fe ForbiddenError
	assert.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Error(), "project manager")
}

func TestCanEditProject(t *testing.T) {
	p := domain.Project{ProjectID: "p1", AssignedUsers: []string{"u1"}}
	assert.NoError(t, CanEditProject(domain.User{UserID: "u1", Role: "Designer"}, p))
	assert.NoError(t, CanEditProject(domain.User{UserID: "u9", Role: "project manager"}, p))
	assert.NoError(t, CanEditProject(domain.User{UserID: "u9", Role: "ADMIN"}, p))

	err := CanEditProject(domain.User{UserID: "u9", Role: "Designer"}, p)
	assert.ErrorAs(t, err, &ForbiddenError{})
}
