package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"

	"flowmetric/internal/analytics"
	"flowmetric/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle  = lipgloss.NewStyle().Bold(true)
	upStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	stableStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	severityStyles = map[analytics.AlertSeverity]lipgloss.Style{
		analytics.SeverityHigh:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		analytics.SeverityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		analytics.SeverityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(header)
	return tw
}

func trendMark(t analytics.Trend) string {
	switch t {
	case analytics.TrendUp:
		return upStyle.Render("▲ up")
	case analytics.TrendDown:
		return downStyle.Render("▼ down")
	default:
		return stableStyle.Render("■ stable")
	}
}

func metricCard(label, value string) string {
	return cardStyle.Render(labelStyle.Render(label) + "\n" + valueStyle.Render(value))
}

func renderDashboard(w io.Writer, d analytics.Dashboard) {
	fmt.Fprintln(w, titleStyle.Render("FlowMetric dashboard"))
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		metricCard("Tasks", fmt.Sprintf("%d / %d done", d.CompletedTasks, d.TotalTasks)),
		metricCard("Active projects", fmt.Sprintf("%d", d.ActiveProjects)),
		metricCard("Team efficiency", fmt.Sprintf("%.1f%% %s", d.TeamEfficiency, trendMark(d.EfficiencyTrend))),
		metricCard("Resource utilization", fmt.Sprintf("%.1f%%", d.ResourceUtilization)),
	)
	fmt.Fprintln(w, cards)

	if len(d.Alerts) == 0 {
		fmt.Fprintln(w, labelStyle.Render("no alerts"))
	} else {
		fmt.Fprintln(w, titleStyle.Render("Alerts"))
		for _, a := range d.Alerts {
			style, ok := severityStyles[a.Severity]
			if !ok {
				style = labelStyle
			}
			fmt.Fprintf(w, "  %s %s\n", style.Render(fmt.Sprintf("[%s]", strings.ToUpper(string(a.Severity)))), a.Message)
		}
	}

	if len(d.RecentActivity) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Recent activity"))
		writeActivity(w, d.RecentActivity)
	}
}

func renderActivity(items []domain.Activity) {
	writeActivity(os.Stdout, items)
}

func writeActivity(w io.Writer, items []domain.Activity) {
	tw := newTable(w, table.Row{"When", "Type", "Description", "User", "Project", "Task"})
	for _, a := range items {
		tw.AppendRow(table.Row{a.Timestamp.Format("2006-01-02 15:04"), a.Type, a.Description, a.UserID, a.ProjectID, a.TaskID})
	}
	tw.Render()
}

func renderUsers(users []domain.User) {
	tw := newTable(os.Stdout, table.Row{"ID", "Farcaster", "Name", "Role", "Skills"})
	for _, u := range users {
		fid := ""
		if u.FarcasterID != nil {
			fid = *u.FarcasterID
		}
		tw.AppendRow(table.Row{u.UserID, fid, u.Name, u.Role, strings.Join(u.Skills, ", ")})
	}
	tw.Render()
}

func renderProjects(items []domain.Project) {
	tw := newTable(os.Stdout, table.Row{"ID", "Name", "Status", "Due", "Progress", "Assigned"})
	for _, p := range items {
		tw.AppendRow(table.Row{p.ProjectID, p.ProjectName, p.Status, p.DueDate, fmt.Sprintf("%.0f%%", p.Progress), len(p.AssignedUsers)})
	}
	tw.Render()
}

func renderTasks(tasks []domain.Task) {
	tw := newTable(os.Stdout, table.Row{"ID", "Description", "Status", "Priority", "Assignee", "Estimate", "Actual"})
	for _, t := range tasks {
		actual := ""
		if t.ActualEffort != nil {
			actual = fmt.Sprintf("%.1fh", *t.ActualEffort)
		}
		tw.AppendRow(table.Row{t.TaskID, t.Description, t.Status, t.Priority, t.AssignedUserID, fmt.Sprintf("%.1fh", t.EstimatedEffort), actual})
	}
	tw.Render()
}

func renderResources(items []domain.Resource) {
	tw := newTable(os.Stdout, table.Row{"ID", "Name", "Type", "Availability", "Assignments"})
	for _, r := range items {
		tw.AppendRow(table.Row{r.ResourceID, r.ResourceName, r.ResourceType, fmt.Sprintf("%.0f%%", r.Availability), len(r.CurrentAssignments)})
	}
	tw.Render()
}

func renderBreakdown(b map[domain.TaskStatus]int) {
	statuses := make([]string, 0, len(b))
	for s := range b {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	tw := newTable(os.Stdout, table.Row{"Status", "Tasks"})
	for _, s := range statuses {
		tw.AppendRow(table.Row{s, b[domain.TaskStatus(s)]})
	}
	tw.Render()
}

func renderProgress(items []analytics.ProjectProgress) {
	tw := newTable(os.Stdout, table.Row{"Project", "Name", "Progress"})
	for _, p := range items {
		tw.AppendRow(table.Row{p.ProjectID, p.ProjectName, fmt.Sprintf("%.1f%%", p.Progress)})
	}
	tw.Render()
}

func renderUtilization(items []analytics.ResourceUtilization) {
	tw := newTable(os.Stdout, table.Row{"Resource", "Name", "Utilization"})
	for _, u := range items {
		tw.AppendRow(table.Row{u.ResourceID, u.ResourceName, fmt.Sprintf("%.1f%%", u.Utilization)})
	}
	tw.Render()
}
