package frames

import (
	"html/template"
	"io"
	"strconv"
	"strings"

	"flowmetric/internal/domain"
)

const (
	ContentType  = "image/svg+xml"
	CacheControl = "public, max-age=300"
)

// Card is what the social card shows. Empty names render as unknown.
type Card struct {
	Task         domain.Task
	ProjectName  string
	AssigneeName string
	Message      string
}

var statusColors = map[string]string{
	"pending":     "#fbbf24",
	"in-progress": "#3b82f6",
	"in_progress": "#3b82f6",
	"completed":   "#10b981",
	"delayed":     "#ef4444",
	"blocked":     "#ef4444",
}

func statusColor(s domain.TaskStatus) string {
	if c, ok := statusColors[string(s)]; ok {
		return c
	}
	return "#6b7280"
}

type cardView struct {
	ProjectName  string
	Description  string
	AssigneeName string
	StatusColor  string
	StatusLabel  string
	Message      string
	Priority     string
	Estimated    string
	Actual       string
	// Y offsets shift down when a message is shown.
	PriorityY, EstimatedY, ActualY int
}

func newCardView(c Card) cardView {
	v := cardView{
		ProjectName:  c.ProjectName,
		Description:  c.Task.Description,
		AssigneeName: c.AssigneeName,
		StatusColor:  statusColor(c.Task.Status),
		StatusLabel:  strings.ToUpper(strings.NewReplacer("-", " ", "_", " ").Replace(string(c.Task.Status))),
		Message:      c.Message,
		Priority:     string(c.Task.Priority),
		PriorityY:    190,
	}
	if v.ProjectName == "" {
		v.ProjectName = "Unknown Project"
	}
	if v.AssigneeName == "" {
		v.AssigneeName = "Unknown User"
	}
	if v.Priority == "" {
		v.Priority = "Medium"
	}
	if c.Task.EstimatedEffort != 0 {
		v.Estimated = formatHours(c.Task.EstimatedEffort)
	}
	if c.Task.ActualEffort != nil && *c.Task.ActualEffort != 0 {
		v.Actual = formatHours(*c.Task.ActualEffort)
	}
	if v.Message != "" {
		v.PriorityY = 240
	}
	v.EstimatedY = v.PriorityY + 30
	v.ActualY = v.PriorityY + 60
	return v
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// Render writes the 1200x630 SVG card.
func Render(w io.Writer, c Card) error {
	return cardTemplate.Execute(w, newCardView(c))
}

var cardTemplate = template.Must(template.New("card").Parse(`<svg width="1200" height="630" xmlns="http://www.w3.org/2000/svg">
  <defs>
    <linearGradient id="bg" x1="0%" y1="0%" x2="100%" y2="100%">
      <stop offset="0%" stop-color="#f8fafc"/>
      <stop offset="100%" stop-color="#e2e8f0"/>
    </linearGradient>
  </defs>
  <rect width="1200" height="630" fill="url(#bg)"/>
  <rect x="0" y="0" width="1200" height="80" fill="#1e293b"/>
  <text x="40" y="50" font-family="Arial, sans-serif" font-size="28" font-weight="bold" fill="white">FlowMetric - Task Update</text>
  <g transform="translate(40, 120)">
    <text x="0" y="0" font-family="Arial, sans-serif" font-size="24" font-weight="bold" fill="#1e293b">Project: {{.ProjectName}}</text>
    <text x="0" y="50" font-family="Arial, sans-serif" font-size="20" fill="#475569">Task: {{.Description}}</text>
    <text x="0" y="90" font-family="Arial, sans-serif" font-size="18" fill="#64748b">Assigned to: {{.AssigneeName}}</text>
    <rect x="0" y="120" width="120" height="30" rx="15" fill="{{.StatusColor}}"/>
    <text x="60" y="140" font-family="Arial, sans-serif" font-size="14" font-weight="bold" fill="white" text-anchor="middle">{{.StatusLabel}}</text>
{{- if .Message}}
    <text x="0" y="190" font-family="Arial, sans-serif" font-size="22" font-weight="bold" fill="#059669">{{.Message}}</text>
{{- end}}
    <text x="0" y="{{.PriorityY}}" font-family="Arial, sans-serif" font-size="16" fill="#64748b">Priority: {{.Priority}}</text>
{{- if .Estimated}}
    <text x="0" y="{{.EstimatedY}}" font-family="Arial, sans-serif" font-size="16" fill="#64748b">Estimated: {{.Estimated}} hours</text>
{{- end}}
{{- if .Actual}}
    <text x="0" y="{{.ActualY}}" font-family="Arial, sans-serif" font-size="16" fill="#64748b">Actual: {{.Actual}} hours</text>
{{- end}}
  </g>
  <rect x="0" y="550" width="1200" height="80" fill="#f1f5f9"/>
  <text x="40" y="580" font-family="Arial, sans-serif" font-size="16" fill="#64748b">FlowMetric - Real-time SME Productivity Insights</text>
  <text x="40" y="605" font-family="Arial, sans-serif" font-size="14" fill="#94a3b8">Powered by Base &amp; Farcaster</text>
</svg>
`))
