// Package analytics turns a point-in-time snapshot of projects, tasks and
// resources into dashboard metrics and operational alerts.
//
// Every function in this package is pure: it reads the snapshot it is given,
// never mutates it, and takes the evaluation time as a parameter. Callers may
// share a Snapshot between goroutines.
package analytics

import (
	"time"

	"flowmetric/internal/domain"
)

// Snapshot is an immutable copy of the four collections the metrics read.
type Snapshot struct {
	Users     []domain.User
	Projects  []domain.Project
	Tasks     []domain.Task
	Resources []domain.Resource
}

// Thresholds tune alert generation and the efficiency overrun tolerance.
// Zero fields fall back to DefaultThresholds.
type Thresholds struct {
	LowUtilization   float64 `yaml:"low_utilization" json:"lowUtilization"`
	HighUtilization  float64 `yaml:"high_utilization" json:"highUtilization"`
	OverrunTolerance float64 `yaml:"overrun_tolerance" json:"overrunTolerance"`
}

// DefaultThresholds returns the stock thresholds: resources below 30 or above
// 90 raise alerts and a task may overrun its estimate by 20% and stay on time.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowUtilization:   30,
		HighUtilization:  90,
		OverrunTolerance: 1.2,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	def := DefaultThresholds()
	if t.LowUtilization == 0 {
		t.LowUtilization = def.LowUtilization
	}
	if t.HighUtilization == 0 {
		t.HighUtilization = def.HighUtilization
	}
	if t.OverrunTolerance == 0 {
		t.OverrunTolerance = def.OverrunTolerance
	}
	return t
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

// StatusBreakdown counts tasks per status. Statuses with no tasks are absent.
func StatusBreakdown(tasks []domain.Task) map[domain.TaskStatus]int {
	res := make(map[domain.TaskStatus]int)
	for _, t := range tasks {
		res[t.Status]++
	}
	return res
}

// ProjectProgressFor reports the completed share of each project's tasks, in
// project order. Projects without tasks report 0.
func ProjectProgressFor(projects []domain.Project, tasks []domain.Task) []ProjectProgress {
	type counts struct{ total, completed int }
	byProject := make(map[string]*counts, len(projects))
	for _, t := range tasks {
		c, ok := byProject[t.ProjectID]
		if !ok {
			c = &counts{}
			byProject[t.ProjectID] = c
		}
		c.total++
		if t.Status == domain.TaskCompleted {
			c.completed++
		}
	}
	res := make([]ProjectProgress, 0, len(projects))
	for _, p := range projects {
		item := ProjectProgress{ProjectID: p.ProjectID, ProjectName: p.ProjectName}
		if c, ok := byProject[p.ProjectID]; ok && c.total > 0 {
			item.Progress = 100 * float64(c.completed) / float64(c.total)
		}
		res = append(res, item)
	}
	return res
}

// ResourceUtilizationFor relabels each resource's stored availability as its
// utilization. No figure is derived from assignments.
func ResourceUtilizationFor(resources []domain.Resource) []ResourceUtilization {
	res := make([]ResourceUtilization, 0, len(resources))
	for _, r := range resources {
		res = append(res, ResourceUtilization{
			ResourceID:   r.ResourceID,
			ResourceName: r.ResourceName,
			Utilization:  r.Availability,
		})
	}
	return res
}

// FleetUtilization is the mean availability across resources, 0 when empty.
func FleetUtilization(resources []domain.Resource) float64 {
	if len(resources) == 0 {
		return 0
	}
	var sum float64
	for _, r := range resources {
		sum += r.Availability
	}
	return sum / float64(len(resources))
}

// TeamEfficiency is the percentage of completed tasks finished on time.
func TeamEfficiency(tasks []domain.Task, th Thresholds) float64 {
	if len(tasks) == 0 {
		return 0
	}
	th = th.withDefaults()
	completed, onTime := 0, 0
	for _, t := range tasks {
		if t.Status != domain.TaskCompleted {
			continue
		}
		completed++
		if OnTime(t, th.OverrunTolerance) {
			onTime++
		}
	}
	if completed == 0 {
		return 0
	}
	return float64(onTime) / float64(completed) * 100
}

// OnTime reports whether a task's recorded duration stayed within its estimate
// times tolerance. A task without an end time or with a zero estimate is never
// on time; a missing start time counts as a zero-length run.
func OnTime(t domain.Task, tolerance float64) bool {
	if t.EndTime == nil || t.EstimatedEffort == 0 {
		return false
	}
	start := *t.EndTime
	if t.StartTime != nil {
		start = *t.StartTime
	}
	actualMs := float64(t.EndTime.Sub(start).Milliseconds())
	estimatedMs := t.EstimatedEffort * float64(time.Hour.Milliseconds())
	return actualMs <= estimatedMs*tolerance
}

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// EfficiencyTrend buckets an efficiency score: 85 and above is up, 60 and
// below is down.
func EfficiencyTrend(score float64) Trend {
	switch {
	case score >= 85:
		return TrendUp
	case score <= 60:
		return TrendDown
	default:
		return TrendStable
	}
}
