// Package frames builds Farcaster frame payloads and the social card image a
// frame displays for a task.
package frames

import (
	"net/url"
	"strings"

	"flowmetric/internal/domain"
)

const (
	Version     = "vNext"
	AspectRatio = "1.91:1"

	DefaultBaseURL = "http://localhost:3000"
)

type Image struct {
	Src         string `json:"src"`
	AspectRatio string `json:"aspectRatio"`
}

type Button struct {
	Label  string `json:"label"`
	Action string `json:"action" enum:"post,link"`
	Target string `json:"target"`
}

type Frame struct {
	Version string   `json:"version"`
	Image   Image    `json:"image"`
	Buttons []Button `json:"buttons"`
	PostURL string   `json:"postUrl"`
}

// ActionResponse is returned after a frame action.
type ActionResponse struct {
	Frames []Frame `json:"frames"`
}

// Builder derives frame targets from the public site URL and the API mount
// point.
type Builder struct {
	BaseURL  string
	BasePath string
}

func (b Builder) base() string {
	base := strings.TrimRight(b.BaseURL, "/")
	if base == "" {
		return DefaultBaseURL
	}
	return base
}

func (b Builder) api(p string) string {
	return b.base() + strings.TrimRight(b.BasePath, "/") + p
}

func (b Builder) postURL() string {
	return b.api("/frames")
}

// ImageURL is the card image for a task, optionally captioned with message.
func (b Builder) ImageURL(taskID, message string) string {
	u := b.api("/frames/image") + "?taskId=" + queryEscape(taskID)
	if message != "" {
		u += "&message=" + queryEscape(message)
	}
	return u
}

// Metadata describes the frame shown for a task. The primary button toggles
// between completing and reopening it.
func (b Builder) Metadata(t domain.Task) Frame {
	label := "Mark Complete"
	if t.Status == domain.TaskCompleted {
		label = "Mark Pending"
	}
	return Frame{
		Version: Version,
		Image:   Image{Src: b.ImageURL(t.TaskID, ""), AspectRatio: AspectRatio},
		Buttons: []Button{
			{Label: label, Action: "post", Target: b.postURL()},
			{Label: "View Details", Action: "link", Target: b.base() + "/task/" + url.PathEscape(t.TaskID)},
		},
		PostURL: b.postURL(),
	}
}

// Action builds the response to a completed frame action.
func (b Builder) Action(taskID, message string) ActionResponse {
	return ActionResponse{Frames: []Frame{{
		Version: Version,
		Image:   Image{Src: b.ImageURL(taskID, message), AspectRatio: AspectRatio},
		Buttons: []Button{
			{Label: "View Dashboard", Action: "link", Target: b.base()},
			{Label: "Update Another Task", Action: "post", Target: b.postURL()},
		},
		PostURL: b.postURL(),
	}}}
}

// queryEscape matches encodeURIComponent for spaces.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
