package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/time/rate"

	"flowmetric/internal/engine"
	"flowmetric/internal/frames"
)

// maxTrackedFrameUsers bounds the per-user limiter table.
const maxTrackedFrameUsers = 10000

type frameDeps struct {
	basePath      string
	publicBaseURL string
	limiter       *frameLimiter
	metrics       *Metrics
}

func (d frameDeps) builder(ctx context.Context) frames.Builder {
	base := d.publicBaseURL
	if base == "" {
		base = requestBaseURL(ctx)
	}
	return frames.Builder{BaseURL: base, BasePath: d.basePath}
}

// frameLimiter rate limits frame actions per farcaster id. A nil limiter
// allows everything.
type frameLimiter struct {
	mu     sync.Mutex
	limit  rate.Limit
	burst  int
	byUser map[string]*rate.Limiter
}

func newFrameLimiter(perMinute float64, burst int) *frameLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &frameLimiter{
		limit:  rate.Limit(perMinute / 60),
		burst:  burst,
		byUser: make(map[string]*rate.Limiter),
	}
}

func (l *frameLimiter) Allow(farcasterID string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.byUser[farcasterID]
	if !ok {
		if len(l.byUser) >= maxTrackedFrameUsers {
			l.byUser = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.byUser[farcasterID] = lim
	}
	return lim.Allow()
}

func registerFrames(api huma.API, e engine.Engine, deps frameDeps) {
	huma.Register(api, huma.Operation{
		OperationID: "frame-metadata",
		Method:      http.MethodGet,
		Path:        "/frames",
		Summary:     "Frame metadata for a task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `query:"taskId"`
	}) (*struct {
		Body frames.Frame `json:"body"`
	}, error) {
		taskID := strings.TrimSpace(input.TaskID)
		if taskID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "taskId is required", nil)
		}
		t, err := e.GetTask(ctx, taskID)
		if err != nil {
			return nil, handleError(fmt.Errorf("task: %w", err))
		}
		return &struct {
			Body frames.Frame `json:"body"`
		}{Body: deps.builder(ctx).Metadata(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "frame-action",
		Method:      http.MethodPost,
		Path:        "/frames",
		Summary:     "Apply a frame button action",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusTooManyRequests,
		},
	}, func(ctx context.Context, input *struct {
		Body FrameActionRequest `json:"body"`
	}) (*struct {
		Body frames.ActionResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		fid := strings.TrimSpace(input.Body.FarcasterID)
		if fid != "" && !deps.limiter.Allow(fid) {
			deps.metrics.frameAction(input.Body.Action, "rate_limited")
			return nil, newAPIError(http.StatusTooManyRequests, "rate_limited", "too many frame actions; slow down", nil)
		}
		res, err := e.ApplyFrameAction(ctx, engine.FrameActionOptions{
			Action:      engine.FrameAction(input.Body.Action),
			TaskID:      strings.TrimSpace(input.Body.TaskID),
			FarcasterID: fid,
		})
		if err != nil {
			herr := handleError(err)
			deps.metrics.frameAction(input.Body.Action, defaultCodeForStatus(herr.GetStatus()))
			return nil, herr
		}
		deps.metrics.frameAction(input.Body.Action, "ok")
		return &struct {
			Body frames.ActionResponse `json:"body"`
		}{Body: deps.builder(ctx).Action(res.Task.TaskID, res.Message)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "frame-image",
		Method:      http.MethodGet,
		Path:        "/frames/image",
		Summary:     "Social card image for a task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "SVG card",
				Content:     map[string]*huma.MediaType{frames.ContentType: {}},
			},
		},
	}, func(ctx context.Context, input *struct {
		TaskID  string `query:"taskId"`
		Message string `query:"message"`
	}) (*struct {
		ContentType  string `header:"Content-Type"`
		CacheControl string `header:"Cache-Control"`
		Body         []byte
	}, error) {
		taskID := strings.TrimSpace(input.TaskID)
		if taskID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "taskId is required", nil)
		}
		card, err := e.TaskCard(ctx, taskID)
		if err != nil {
			return nil, handleError(fmt.Errorf("task: %w", err))
		}
		var buf bytes.Buffer
		if err := frames.Render(&buf, frames.Card{
			Task:         card.Task,
			ProjectName:  card.ProjectName,
			AssigneeName: card.AssigneeName,
			Message:      input.Message,
		}); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentType  string `header:"Content-Type"`
			CacheControl string `header:"Cache-Control"`
			Body         []byte
		}{ContentType: frames.ContentType, CacheControl: frames.CacheControl, Body: buf.Bytes()}, nil
	})
}
