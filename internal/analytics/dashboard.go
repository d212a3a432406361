package analytics

import (
	"time"

	"flowmetric/internal/domain"
)

// DefaultRecentActivity is how many activity entries a dashboard carries when
// the caller does not ask for a specific count.
const DefaultRecentActivity = 10

type Dashboard struct {
	TotalTasks          int               `json:"totalTasks"`
	CompletedTasks      int               `json:"completedTasks"`
	ActiveProjects      int               `json:"activeProjects"`
	TeamEfficiency      float64           `json:"teamEfficiency"`
	EfficiencyTrend     Trend             `json:"efficiencyTrend" enum:"up,down,stable"`
	ResourceUtilization float64           `json:"resourceUtilization"`
	Alerts              []Alert           `json:"alerts"`
	RecentActivity      []domain.Activity `json:"recentActivity"`
	GeneratedAt         time.Time         `json:"generatedAt" format:"date-time"`
}

// BuildDashboard packages the headline metrics for one snapshot. recent is
// passed through as given and is expected newest first.
func BuildDashboard(s Snapshot, recent []domain.Activity, now time.Time, th Thresholds) Dashboard {
	completed := 0
	for _, t := range s.Tasks {
		if t.Status == domain.TaskCompleted {
			completed++
		}
	}
	active := 0
	for _, p := range s.Projects {
		if p.Status == domain.ProjectActive {
			active++
		}
	}
	if recent == nil {
		recent = []domain.Activity{}
	}
	efficiency := TeamEfficiency(s.Tasks, th)
	return Dashboard{
		TotalTasks:          len(s.Tasks),
		CompletedTasks:      completed,
		ActiveProjects:      active,
		TeamEfficiency:      efficiency,
		EfficiencyTrend:     EfficiencyTrend(efficiency),
		ResourceUtilization: FleetUtilization(s.Resources),
		Alerts:              Alerts(s, now, th),
		RecentActivity:      recent,
		GeneratedAt:         now.UTC(),
	}
}
