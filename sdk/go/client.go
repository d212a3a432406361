package flowmetricsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal FlowMetric HTTP API client. BaseURL includes the API
// mount point, e.g. http://127.0.0.1:8080/api.
type Client struct {
	BaseURL     string
	BearerToken string
	// FarcasterID is sent as X-Farcaster-Id when no bearer token is set.
	FarcasterID string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// User represents a team member.
type User struct {
	UserID      string   `json:"userId"`
	FarcasterID string   `json:"farcasterId,omitempty"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Skills      []string `json:"skills"`
	Avatar      string   `json:"avatar,omitempty"`
}

// Project represents the API project model.
type Project struct {
	ProjectID     string   `json:"projectId"`
	ProjectName   string   `json:"projectName"`
	DueDate       string   `json:"dueDate"`
	Status        string   `json:"status"`
	Progress      float64  `json:"progress"`
	AssignedUsers []string `json:"assignedUsers"`
}

// Task represents the API task model. Optional fields are nil when unset.
type Task struct {
	TaskID          string     `json:"taskId"`
	ProjectID       string     `json:"projectId"`
	AssignedUserID  string     `json:"assignedUserId"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	EstimatedEffort float64    `json:"estimatedEffort"`
	ActualEffort    *float64   `json:"actualEffort,omitempty"`
	Priority        string     `json:"priority"`
}

// Resource represents a person, machine, license or room.
type Resource struct {
	ResourceID         string   `json:"resourceId"`
	ResourceName       string   `json:"resourceName"`
	ResourceType       string   `json:"resourceType"`
	Availability       float64  `json:"availability"`
	CurrentAssignments []string `json:"currentAssignments"`
	Skills             []string `json:"skills,omitempty"`
}

// Activity represents a log entry.
type Activity struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"userId,omitempty"`
	ProjectID   string    `json:"projectId,omitempty"`
	TaskID      string    `json:"taskId,omitempty"`
}

type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Dashboard is the headline metrics payload.
type Dashboard struct {
	TotalTasks          int        `json:"totalTasks"`
	CompletedTasks      int        `json:"completedTasks"`
	ActiveProjects      int        `json:"activeProjects"`
	TeamEfficiency      float64    `json:"teamEfficiency"`
	EfficiencyTrend     string     `json:"efficiencyTrend"`
	ResourceUtilization float64    `json:"resourceUtilization"`
	Alerts              []Alert    `json:"alerts"`
	RecentActivity      []Activity `json:"recentActivity"`
	GeneratedAt         time.Time  `json:"generatedAt"`
}

type ProjectProgress struct {
	ProjectID   string  `json:"projectId"`
	ProjectName string  `json:"projectName"`
	Progress    float64 `json:"progress"`
}

type ResourceUtilization struct {
	ResourceID   string  `json:"resourceId"`
	ResourceName string  `json:"resourceName"`
	Utilization  float64 `json:"utilization"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// StatusCode returns the HTTP status of an *APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type RegisterUser struct {
	FarcasterID string   `json:"farcasterId"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Skills      []string `json:"skills,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
}

type CreateProject struct {
	ProjectName   string   `json:"projectName"`
	DueDate       string   `json:"dueDate"`
	AssignedUsers []string `json:"assignedUsers"`
	Status        string   `json:"status,omitempty"`
	Progress      *float64 `json:"progress,omitempty"`
}

type UpdateProject struct {
	ProjectName   *string  `json:"projectName,omitempty"`
	DueDate       *string  `json:"dueDate,omitempty"`
	Status        *string  `json:"status,omitempty"`
	Progress      *float64 `json:"progress,omitempty"`
	AssignedUsers []string `json:"assignedUsers,omitempty"`
}

type CreateTask struct {
	ProjectID       string  `json:"projectId"`
	AssignedUserID  string  `json:"assignedUserId"`
	Description     string  `json:"description"`
	EstimatedEffort float64 `json:"estimatedEffort"`
	Priority        string  `json:"priority,omitempty"`
}

type TaskFilter struct {
	ProjectID string
	UserID    string
	Status    string
}

type CreateResource struct {
	ResourceName string   `json:"resourceName"`
	ResourceType string   `json:"resourceType"`
	Availability float64  `json:"availability"`
	Skills       []string `json:"skills,omitempty"`
}

type FrameAction struct {
	Action      string `json:"action"`
	TaskID      string `json:"taskId"`
	FarcasterID string `json:"farcasterId"`
}

// Frame is a social frame: an image, up to four buttons and a post target.
type Frame struct {
	Version string        `json:"version"`
	Image   FrameImage    `json:"image"`
	Buttons []FrameButton `json:"buttons"`
	PostURL string        `json:"postUrl"`
}

type FrameImage struct {
	Src         string `json:"src"`
	AspectRatio string `json:"aspectRatio"`
}

type FrameButton struct {
	Label  string `json:"label"`
	Action string `json:"action"`
	Target string `json:"target"`
}

// FrameResponse is the follow-up frame returned after an action.
type FrameResponse struct {
	Frames []Frame `json:"frames"`
}

type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type WhoAmI struct {
	User   User   `json:"user"`
	Source string `json:"source"`
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "health", nil, nil)
}

func (c *Client) RegisterUser(ctx context.Context, in RegisterUser) (User, error) {
	var resp User
	err := c.do(ctx, http.MethodPost, "users", in, &resp)
	return resp, err
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var resp []User
	err := c.do(ctx, http.MethodGet, "users", nil, &resp)
	return resp, err
}

func (c *Client) UserByFarcasterID(ctx context.Context, farcasterID string) (User, error) {
	var resp User
	err := c.do(ctx, http.MethodGet, withQuery("users", url.Values{"farcasterId": {farcasterID}}), nil, &resp)
	return resp, err
}

// ListProjects returns all projects, or those assigned to userID when set.
func (c *Client) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("userId", userID)
	}
	var resp []Project
	err := c.do(ctx, http.MethodGet, withQuery("projects", q), nil, &resp)
	return resp, err
}

func (c *Client) CreateProject(ctx context.Context, in CreateProject) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPost, "projects", in, &resp)
	return resp, err
}

func (c *Client) GetProject(ctx context.Context, id string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, "projects/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) UpdateProject(ctx context.Context, id string, in UpdateProject) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPut, "projects/"+url.PathEscape(id), in, &resp)
	return resp, err
}

func (c *Client) ListTasks(ctx context.Context, f TaskFilter) ([]Task, error) {
	q := url.Values{}
	if f.ProjectID != "" {
		q.Set("projectId", f.ProjectID)
	}
	if f.UserID != "" {
		q.Set("userId", f.UserID)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, withQuery("tasks", q), nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, in CreateTask) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", in, &resp)
	return resp, err
}

func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) SetTaskStatus(ctx context.Context, id, status string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, "tasks/"+url.PathEscape(id)+"/status", map[string]string{"status": status}, &resp)
	return resp, err
}

func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	var resp []Resource
	err := c.do(ctx, http.MethodGet, "resources", nil, &resp)
	return resp, err
}

func (c *Client) CreateResource(ctx context.Context, in CreateResource) (Resource, error) {
	var resp Resource
	err := c.do(ctx, http.MethodPost, "resources", in, &resp)
	return resp, err
}

func (c *Client) AssignResource(ctx context.Context, resourceID, taskID string) (Resource, error) {
	var resp Resource
	endpoint := "resources/" + url.PathEscape(resourceID) + "/assignments"
	err := c.do(ctx, http.MethodPost, endpoint, map[string]string{"taskId": taskID}, &resp)
	return resp, err
}

// Activities returns the newest limit entries, newest first.
func (c *Client) Activities(ctx context.Context, limit int) ([]Activity, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp []Activity
	err := c.do(ctx, http.MethodGet, withQuery("activities", q), nil, &resp)
	return resp, err
}

func (c *Client) Dashboard(ctx context.Context, recentLimit int) (Dashboard, error) {
	q := url.Values{"type": {"dashboard"}}
	if recentLimit > 0 {
		q.Set("limit", strconv.Itoa(recentLimit))
	}
	var resp Dashboard
	err := c.do(ctx, http.MethodGet, withQuery("analytics", q), nil, &resp)
	return resp, err
}

func (c *Client) TaskStatusBreakdown(ctx context.Context) (map[string]int, error) {
	var resp map[string]int
	err := c.do(ctx, http.MethodGet, withQuery("analytics", url.Values{"type": {"tasks-status"}}), nil, &resp)
	return resp, err
}

func (c *Client) ProjectProgress(ctx context.Context) ([]ProjectProgress, error) {
	var resp []ProjectProgress
	err := c.do(ctx, http.MethodGet, withQuery("analytics", url.Values{"type": {"projects-progress"}}), nil, &resp)
	return resp, err
}

func (c *Client) ResourceUtilization(ctx context.Context) ([]ResourceUtilization, error) {
	var resp []ResourceUtilization
	err := c.do(ctx, http.MethodGet, withQuery("analytics", url.Values{"type": {"resources-utilization"}}), nil, &resp)
	return resp, err
}

func (c *Client) FrameAction(ctx context.Context, in FrameAction) (FrameResponse, error) {
	var resp FrameResponse
	err := c.do(ctx, http.MethodPost, "frames", in, &resp)
	return resp, err
}

// DevLogin exchanges a registered farcaster id for a bearer token and stores
// it on the client.
func (c *Client) DevLogin(ctx context.Context, farcasterID string) (Session, error) {
	var resp Session
	if err := c.do(ctx, http.MethodPost, "auth/dev/login", map[string]string{"farcasterId": farcasterID}, &resp); err != nil {
		return Session{}, err
	}
	c.BearerToken = resp.Token
	return resp, nil
}

func (c *Client) Me(ctx context.Context) (WhoAmI, error) {
	var resp WhoAmI
	err := c.do(ctx, http.MethodGet, "me", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.FarcasterID != "":
		req.Header.Set("X-Farcaster-Id", c.FarcasterID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if json.Unmarshal(b, &envelope) == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Details = envelope.Error.Details
	}
	return apiErr
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
