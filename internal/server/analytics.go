package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"flowmetric/internal/engine"
)

const (
	analyticsDashboard            = "dashboard"
	analyticsTasksStatus          = "tasks-status"
	analyticsProjectsProgress     = "projects-progress"
	analyticsResourcesUtilization = "resources-utilization"
)

func registerAnalytics(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "analytics",
		Method:      http.MethodGet,
		Path:        "/analytics",
		Summary:     "Dashboard and chart data",
		Description: "type selects the payload: dashboard, tasks-status, projects-progress or resources-utilization.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type  string `query:"type"`
		Limit int    `query:"limit" minimum:"0" maximum:"500" doc:"Recent activity entries on the dashboard"`
	}) (*struct {
		Body any `json:"body"`
	}, error) {
		var (
			body any
			err  error
		)
		switch input.Type {
		case analyticsDashboard:
			body, err = e.Dashboard(ctx, input.Limit)
		case analyticsTasksStatus:
			body, err = e.TaskStatusBreakdown(ctx)
		case analyticsProjectsProgress:
			body, err = e.ProjectProgress(ctx)
		case analyticsResourcesUtilization:
			body, err = e.ResourceUtilization(ctx)
		default:
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid type parameter", map[string]any{
				"allowed": []string{analyticsDashboard, analyticsTasksStatus, analyticsProjectsProgress, analyticsResourcesUtilization},
			})
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body any `json:"body"`
		}{Body: body}, nil
	})
}
