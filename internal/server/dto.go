package server

import (
	"time"

	"flowmetric/internal/domain"
)

// Request payloads. Fields are optional at the schema level so missing values
// reach the engine's validation and come back as field-level 400s.

type RegisterUserRequest struct {
	FarcasterID string   `json:"farcasterId,omitempty"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role,omitempty"`
	Skills      []string `json:"skills,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
}

type CreateProjectRequest struct {
	ProjectName   string   `json:"projectName,omitempty"`
	DueDate       string   `json:"dueDate,omitempty" example:"2024-02-15"`
	AssignedUsers []string `json:"assignedUsers,omitempty"`
	Status        string   `json:"status,omitempty" enum:"active,completed,delayed,idle"`
	Progress      *float64 `json:"progress,omitempty"`
}

type UpdateProjectRequest struct {
	ProjectName   *string  `json:"projectName,omitempty"`
	DueDate       *string  `json:"dueDate,omitempty"`
	Status        *string  `json:"status,omitempty" enum:"active,completed,delayed,idle"`
	Progress      *float64 `json:"progress,omitempty"`
	AssignedUsers []string `json:"assignedUsers,omitempty"`
}

type CreateTaskRequest struct {
	ProjectID       string  `json:"projectId,omitempty"`
	AssignedUserID  string  `json:"assignedUserId,omitempty"`
	Description     string  `json:"description,omitempty"`
	EstimatedEffort float64 `json:"estimatedEffort,omitempty" doc:"Hours"`
	Priority        string  `json:"priority,omitempty" enum:"low,medium,high"`
}

type SetTaskStatusRequest struct {
	Status string `json:"status,omitempty" enum:"pending,in-progress,completed,blocked"`
}

type CreateResourceRequest struct {
	ResourceName string   `json:"resourceName,omitempty"`
	ResourceType string   `json:"resourceType,omitempty" enum:"human,equipment,software,space"`
	Availability *float64 `json:"availability,omitempty"`
	Skills       []string `json:"skills,omitempty"`
}

type AssignResourceRequest struct {
	TaskID string `json:"taskId,omitempty"`
}

type FrameActionRequest struct {
	Action      string `json:"action,omitempty"`
	TaskID      string `json:"taskId,omitempty"`
	FarcasterID string `json:"farcasterId,omitempty"`
}

type DevLoginRequest struct {
	FarcasterID string `json:"farcasterId"`
}

// Response payloads

type DevLoginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt" format:"date-time"`
}

type WhoAmIResponse struct {
	User   domain.User `json:"user"`
	Source string      `json:"source" enum:"jwt,farcaster_header"`
}

type ApiError struct {
	Error apiErrorBody `json:"error"`
}
