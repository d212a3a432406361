package analytics

import (
	"fmt"
	"time"

	"flowmetric/internal/domain"
)

type AlertType string

const (
	AlertShortage      AlertType = "shortage"
	AlertUnderutilized AlertType = "underutilized"
	AlertOverallocated AlertType = "overallocated"
)

type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "low"
	SeverityMedium AlertSeverity = "medium"
	SeverityHigh   AlertSeverity = "high"
)

// Alert ids. Each rule emits at most one alert per evaluation.
const (
	AlertOverdueTasks    = "overdue_tasks"
	AlertLowUtilization  = "low_utilization"
	AlertHighUtilization = "high_utilization"
)

type Alert struct {
	ID        string        `json:"id"`
	Type      AlertType     `json:"type" enum:"shortage,underutilized,overallocated"`
	Severity  AlertSeverity `json:"severity" enum:"low,medium,high"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp" format:"date-time"`
}

// Alerts evaluates every alert rule against the snapshot at time now. The
// result is never nil and holds at most one alert per rule.
func Alerts(s Snapshot, now time.Time, th Thresholds) []Alert {
	th = th.withDefaults()
	alerts := []Alert{}
	ts := now.UTC()

	if n := OverdueTaskCount(s.Projects, s.Tasks, now); n > 0 {
		alerts = append(alerts, Alert{
			ID:        AlertOverdueTasks,
			Type:      AlertShortage,
			Severity:  SeverityHigh,
			Message:   fmt.Sprintf("%d tasks are overdue", n),
			Timestamp: ts,
		})
	}

	low, high := 0, 0
	for _, r := range s.Resources {
		if r.Availability < th.LowUtilization {
			low++
		}
		if r.Availability > th.HighUtilization {
			high++
		}
	}
	if low > 0 {
		alerts = append(alerts, Alert{
			ID:        AlertLowUtilization,
			Type:      AlertUnderutilized,
			Severity:  SeverityMedium,
			Message:   fmt.Sprintf("%d resources have low utilization", low),
			Timestamp: ts,
		})
	}
	if high > 0 {
		alerts = append(alerts, Alert{
			ID:        AlertHighUtilization,
			Type:      AlertOverallocated,
			Severity:  SeverityMedium,
			Message:   fmt.Sprintf("%d resources are overutilized", high),
			Timestamp: ts,
		})
	}
	return alerts
}

// OverdueTaskCount counts unfinished tasks whose project was due strictly
// before now. Tasks whose project is unknown or has no parseable due date are
// not counted.
func OverdueTaskCount(projects []domain.Project, tasks []domain.Task, now time.Time) int {
	due := make(map[string]time.Time, len(projects))
	for _, p := range projects {
		if d, ok := p.Due(); ok {
			due[p.ProjectID] = d
		}
	}
	n := 0
	for _, t := range tasks {
		if t.Status == domain.TaskCompleted {
			continue
		}
		d, ok := due[t.ProjectID]
		if !ok {
			continue
		}
		if d.Before(now) {
			n++
		}
	}
	return n
}
