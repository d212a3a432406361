package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flowmetric/internal/analytics"
	"flowmetric/internal/domain"
)

func TestRenderDashboard(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d := analytics.Dashboard{
		TotalTasks:          4,
		CompletedTasks:      1,
		ActiveProjects:      2,
		TeamEfficiency:      87.5,
		EfficiencyTrend:     analytics.TrendUp,
		ResourceUtilization: 57.5,
		Alerts: []analytics.Alert{{
			ID: analytics.AlertOverdueTasks, Type: analytics.AlertShortage, Severity: analytics.SeverityHigh,
			Message: "2 tasks are overdue", Timestamp: now,
		}},
		RecentActivity: []domain.Activity{{ID: "a1", Type: domain.ActivityTaskCompleted, Description: "Alice completed Login", Timestamp: now}},
		GeneratedAt:    now,
	}
	var buf bytes.Buffer
	renderDashboard(&buf, d)
	out := buf.String()
	require.Contains(t, out, "1 / 4 done")
	require.Contains(t, out, "87.5%")
	require.Contains(t, out, "57.5%")
	require.Contains(t, out, "2 tasks are overdue")
	require.Contains(t, out, "HIGH")
	require.Contains(t, out, "Alice completed Login")
}

func TestRenderDashboardWithoutAlerts(t *testing.T) {
	var buf bytes.Buffer
	renderDashboard(&buf, analytics.Dashboard{EfficiencyTrend: analytics.TrendStable, Alerts: []analytics.Alert{}})
	require.Contains(t, buf.String(), "no alerts")
	require.NotContains(t, buf.String(), "Recent activity")
}
