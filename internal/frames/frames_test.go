package frames

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowmetric/internal/domain"
)

func TestMetadataButtonsFollowStatus(t *testing.T) {
	b := Builder{BaseURL: "https://flow.example/", BasePath: "/api"}
	f := b.Metadata(domain.Task{TaskID: "t1", Status: domain.TaskPending})

	assert.Equal(t, "vNext", f.Version)
	assert.Equal(t, "https://flow.example/api/frames/image?taskId=t1", f.Image.Src)
	assert.Equal(t, "1.91:1", f.Image.AspectRatio)
	assert.Equal(t, "https://flow.example/api/frames", f.PostURL)
	require.Len(t, f.Buttons, 2)
	assert.Equal(t, Button{Label: "Mark Complete", Action: "post", Target: "https://flow.example/api/frames"}, f.Buttons[0])
	assert.Equal(t, Button{Label: "View Details", Action: "link", Target: "https://flow.example/task/t1"}, f.Buttons[1])

	done := b.Metadata(domain.Task{TaskID: "t1", Status: domain.TaskCompleted})
	assert.Equal(t, "Mark Pending", done.Buttons[0].Label)
}

func TestActionResponseEncodesMessage(t *testing.T) {
	b := Builder{BasePath: "/api"}
	res := b.Action("t 1", `✅ Task "A&B" marked as completed!`)
	require.Len(t, res.Frames, 1)
	f := res.Frames[0]
	assert.True(t, strings.HasPrefix(f.Image.Src, DefaultBaseURL+"/api/frames/image?taskId=t%201&message="))
	assert.NotContains(t, f.Image.Src, " ")
	assert.NotContains(t, f.Image.Src, "+")
	assert.Contains(t, f.Image.Src, "A%26B")
	assert.Equal(t, "View Dashboard", f.Buttons[0].Label)
	assert.Equal(t, DefaultBaseURL, f.Buttons[0].Target)
	assert.Equal(t, "Update Another Task", f.Buttons[1].Label)
	assert.Equal(t, "post", f.Buttons[1].Action)
}

func renderCard(t *testing.T, c Card) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, c))
	return buf.String()
}

func assertWellFormed(t *testing.T, doc string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		require.NoError(t, err, doc)
	}
}

func TestRenderCardDefaults(t *testing.T) {
	svg := renderCard(t, Card{Task: domain.Task{Description: "Wireframes", Status: domain.TaskInProgress}})
	assertWellFormed(t, svg)
	assert.Contains(t, svg, `width="1200" height="630"`)
	assert.Contains(t, svg, "FlowMetric - Task Update")
	assert.Contains(t, svg, "Project: Unknown Project")
	assert.Contains(t, svg, "Assigned to: Unknown User")
	assert.Contains(t, svg, "IN PROGRESS")
	assert.Contains(t, svg, `fill="#3b82f6"`)
	assert.Contains(t, svg, "Priority: Medium")
	assert.NotContains(t, svg, "Estimated:")
	assert.Contains(t, svg, `y="190"`)
	assert.Contains(t, svg, "Powered by Base &amp; Farcaster")
}

func TestRenderCardWithMessageEscapes(t *testing.T) {
	actual := 6.5
	svg := renderCard(t, Card{
		Task:         domain.Task{Description: `<script>"x"</script>`, Status: domain.TaskCompleted, Priority: domain.PriorityHigh, EstimatedEffort: 8, ActualEffort: &actual},
		ProjectName:  "Mobile & Web",
		AssigneeName: "Carol",
		Message:      "✅ done",
	})
	assertWellFormed(t, svg)
	assert.NotContains(t, svg, "<script>")
	assert.Contains(t, svg, "Mobile &amp; Web")
	assert.Contains(t, svg, "✅ done")
	assert.Contains(t, svg, `fill="#10b981"`)
	assert.Contains(t, svg, "Priority: high")
	assert.Contains(t, svg, "Estimated: 8 hours")
	assert.Contains(t, svg, "Actual: 6.5 hours")
	assert.Contains(t, svg, `y="240"`)
}

func TestStatusColorFallback(t *testing.T) {
	assert.Equal(t, "#fbbf24", statusColor(domain.TaskPending))
	assert.Equal(t, "#6b7280", statusColor("archived"))
}
