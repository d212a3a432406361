package domain

import "time"

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectDelayed   ProjectStatus = "delayed"
	ProjectIdle      ProjectStatus = "idle"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type ResourceType string

const (
	ResourceHuman     ResourceType = "human"
	ResourceEquipment ResourceType = "equipment"
	ResourceSoftware  ResourceType = "software"
	ResourceSpace     ResourceType = "space"
)

// Activity types written to the append-only log.
const (
	ActivityTaskCompleted     = "task_completed"
	ActivityProjectStarted    = "project_started"
	ActivityResourceAllocated = "resource_allocated"
	ActivityAlertGenerated    = "alert_generated"
	ActivityTaskUpdate        = "task_update"
)

type User struct {
	UserID      string   `json:"userId"`
	FarcasterID *string  `json:"farcasterId,omitempty"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Skills      []string `json:"skills"`
	Avatar      *string  `json:"avatar,omitempty"`
}

type Project struct {
	ProjectID     string        `json:"projectId"`
	ProjectName   string        `json:"projectName"`
	DueDate       string        `json:"dueDate"`
	Status        ProjectStatus `json:"status" enum:"active,completed,delayed,idle"`
	Progress      float64       `json:"progress"`
	AssignedUsers []string      `json:"assignedUsers"`
}

// Due parses DueDate as a calendar date (UTC midnight) or an RFC 3339 timestamp.
// ok is false when the project has no usable due date.
func (p Project) Due() (time.Time, bool) {
	if p.DueDate == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, p.DueDate); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, p.DueDate); err == nil {
		return t, true
	}
	return time.Time{}, false
}

type Task struct {
	TaskID          string     `json:"taskId"`
	ProjectID       string     `json:"projectId"`
	AssignedUserID  string     `json:"assignedUserId"`
	Description     string     `json:"description"`
	Status          TaskStatus `json:"status" enum:"pending,in-progress,completed,blocked"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	EstimatedEffort float64    `json:"estimatedEffort"`
	ActualEffort    *float64   `json:"actualEffort,omitempty"`
	Priority        Priority   `json:"priority" enum:"low,medium,high"`
}

type Resource struct {
	ResourceID         string       `json:"resourceId"`
	ResourceName       string       `json:"resourceName"`
	ResourceType       ResourceType `json:"resourceType" enum:"human,equipment,software,space"`
	Availability       float64      `json:"availability"`
	CurrentAssignments []string     `json:"currentAssignments"`
	Skills             []string     `json:"skills,omitempty"`
}

type Activity struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp" format:"date-time"`
	UserID      string    `json:"userId,omitempty"`
	ProjectID   string    `json:"projectId,omitempty"`
	TaskID      string    `json:"taskId,omitempty"`
	// Seq orders the log; it is the store's insertion sequence.
	Seq int64 `json:"-"`
}

func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskBlocked:
		return true
	}
	return false
}

func ValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectDelayed, ProjectIdle:
		return true
	}
	return false
}
