package render

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devdash/internal/model"
	"devdash/internal/source"
)

var now = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func TestRenderItemsEmpty(t *testing.T) {
	r := &HTMLRegion{}
	RenderItems(r, nil, now, time.UTC)
	assert.Equal(t, NoItemsMessage, string(r.HTML()))
	assert.NotContains(t, string(r.HTML()), "<a")
	assert.Zero(t, r.Lines())
}

func TestRenderItemsReplacesContent(t *testing.T) {
	r := &HTMLRegion{}
	RenderError(r, errors.New("boom"))
	require.Equal(t, "error", r.Class())

	RenderItems(r, []model.Item{{Title: "one", WebLink: "https://x/1"}}, now, time.UTC)
	assert.Equal(t, "", r.Class())
	assert.Equal(t, `<div class="item"><a href="https://x/1" target="_blank" rel="noopener">one</a></div>`, string(r.HTML()))
}

func TestRenderItemsEscapes(t *testing.T) {
	r := &HTMLRegion{}
	RenderItems(r, []model.Item{{Title: `<script>alert("x")</script>`, WebLink: `javascript:alert(1)`}}, now, time.UTC)
	out := string(r.HTML())
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `href="#"`)
}

func TestLineClasses(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		want       []string
	}{
		{"untimed", "", "", []string{"item"}},
		{"current", "2025-03-10T09:30:00Z", "2025-03-10T10:30:00Z", []string{"item", "event-now"}},
		{"starts now", "2025-03-10T10:00:00Z", "2025-03-10T11:00:00Z", []string{"item", "event-now"}},
		{"ends now", "2025-03-10T09:00:00Z", "2025-03-10T10:00:00Z", []string{"item", "event-now", "event-elapsed"}},
		{"elapsed", "2025-03-10T08:00:00Z", "2025-03-10T09:00:00Z", []string{"item", "event-elapsed"}},
		{"upcoming", "2025-03-10T11:00:00Z", "2025-03-10T12:00:00Z", []string{"item"}},
		{"offset zone", "2025-03-10T11:30:00+02:00", "2025-03-10T12:30:00+02:00", []string{"item", "event-now"}},
		{"all day", "2025-03-10", "2025-03-11", []string{"item", "event-now"}},
		{"yesterday", "2025-03-09", "2025-03-10", []string{"item", "event-elapsed"}},
		{"unparseable", "soon", "later", []string{"item"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			it := model.Item{TimeStart: tc.start, TimeEnd: tc.end}
			assert.Equal(t, tc.want, LineClasses(it, now, time.UTC))
		})
	}
}

func TestRenderErrorReauth(t *testing.T) {
	r := &HTMLRegion{}
	r.AppendText("stale")
	RenderError(r, fmt.Errorf("jira: %w", &source.ReauthError{Origin: "https://h:3000"}))
	assert.Equal(t, `<a href="https://h:3000" target="_blank" rel="noopener">Please authenticate by clicking here.</a>`, string(r.HTML()))
	assert.Equal(t, "", r.Class())
}

func TestRenderErrorMissingConfig(t *testing.T) {
	r := &HTMLRegion{}
	RenderError(r, &source.MissingConfigError{Setting: "githubToken", Message: "Configure a GitHub token"})
	assert.Equal(t, "Configure a GitHub token", string(r.HTML()))
	assert.Equal(t, "", r.Class())
}

func TestRenderErrorProvider(t *testing.T) {
	r := &HTMLRegion{}
	RenderError(r, &source.HTTPStatusError{StatusCode: 500})
	assert.Equal(t, "HTTP error! Status: 500", string(r.HTML()))
	assert.Equal(t, "error", r.Class())
}

func TestBoardOrderAndPaint(t *testing.T) {
	b := NewBoard(false, Spec{ID: "a", Label: "A"}, Spec{ID: "b", Label: "B"}, Spec{ID: "a", Label: "dup"})
	assert.Equal(t, []string{"a", "b"}, b.IDs())

	assert.True(t, b.Paint("b", 1, func(r Region) { r.AppendText("hello") }))
	assert.False(t, b.Paint("missing", 1, func(r Region) {}))

	views := b.Views()
	require.Len(t, views, 2)
	assert.Equal(t, "A", views[0].Label)
	assert.Zero(t, views[0].Generation)
	assert.Equal(t, "hello", string(views[1].HTML))
	assert.Equal(t, uint64(1), views[1].Generation)
}

func TestBoardLastWriteWins(t *testing.T) {
	b := NewBoard(false, Spec{ID: "a"})
	b.Paint("a", 2, func(r Region) { r.AppendText("new") })
	assert.True(t, b.Paint("a", 1, func(r Region) { r.AppendText("old") }))
	v, _ := b.View("a")
	assert.Equal(t, "old", string(v.HTML))
}

func TestBoardStaleGuard(t *testing.T) {
	b := NewBoard(true, Spec{ID: "a"})
	b.Paint("a", 2, func(r Region) { r.AppendText("new") })
	assert.False(t, b.Paint("a", 1, func(r Region) { r.AppendText("old") }))
	v, _ := b.View("a")
	assert.Equal(t, "new", string(v.HTML))
	assert.True(t, b.Paint("a", 2, func(r Region) { r.AppendText("again") }))
}

func TestBoardConcurrentPaint(t *testing.T) {
	b := NewBoard(false, Spec{ID: "a"})
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Paint("a", uint64(i), func(r Region) {
				RenderItems(r, []model.Item{{Title: fmt.Sprint(i)}, {Title: fmt.Sprint(i)}}, now, time.UTC)
			})
			_ = b.Views()
		}()
	}
	wg.Wait()
	v, _ := b.View("a")
	assert.Equal(t, 2, strings.Count(string(v.HTML), `class="item"`))
}

func TestReplayIntoTerm(t *testing.T) {
	b := NewBoard(false, Spec{ID: "a"})
	b.Paint("a", 1, func(r Region) {
		RenderItems(r, []model.Item{
			{Label: "09:00", Title: "Done", TimeStart: "2025-03-10T09:00:00Z", TimeEnd: "2025-03-10T09:30:00Z"},
			{Title: "Plain", WebLink: "https://x"},
		}, now, time.UTC)
	})

	term := &TermRegion{Title: "Events", ShowLinks: true}
	require.True(t, b.Replay("a", term))
	out := term.String()
	assert.Contains(t, out, "Events")
	assert.Contains(t, out, "09:00 - Done")
	assert.Contains(t, out, "Plain")
	assert.Contains(t, out, "https://x")
}
