package redact

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devdash/internal/model"
)

func TestItemsPreservesShape(t *testing.T) {
	in := []model.Item{
		{Label: "09:30", Title: "Quarterly budget with Alice", WebLink: "https://cal/1",
			TimeStart: "2025-03-10T09:30:00Z", TimeEnd: "2025-03-10T10:00:00Z"},
		{Ref: model.Ref{Kind: model.RefGitHub, Owner: "acme", Repo: "secret-project", Number: "42"},
			Title: "Leak fix", WebLink: "https://github.com/acme/secret-project/issues/42"},
		{Ref: model.Ref{Kind: model.RefJira, Key: "ACME-7"}, Title: "Payroll export", WebLink: "https://jira/browse/ACME-7"},
		{Title: "Work - Renew passport", WebLink: "https://tasks/1"},
	}

	out := New(1).Items(in)
	require.Len(t, out, len(in))

	for i := range in {
		assert.Equal(t, in[i].WebLink, out[i].WebLink)
		assert.Equal(t, in[i].TimeStart, out[i].TimeStart)
		assert.Equal(t, in[i].TimeEnd, out[i].TimeEnd)
		assert.Equal(t, in[i].Label, out[i].Label)
		assert.NotContains(t, out[i].Text(), in[i].Title)
		assert.Len(t, strings.Fields(out[i].Title), WordCount)
	}

	assert.True(t, strings.HasPrefix(out[1].Text(), "my-org/my-repo#42 - "))
	assert.NotContains(t, out[1].Text(), "acme")
	assert.Regexp(t, regexp.MustCompile(`^PROJ-[1-9]\d\d - `), out[2].Text())
	assert.NotContains(t, out[2].Text(), "ACME-7")

	// input is untouched
	assert.Equal(t, "Leak fix", in[1].Title)
}

func TestItemsEmpty(t *testing.T) {
	assert.Empty(t, New(1).Items(nil))
}

func TestWordsDrawFromPool(t *testing.T) {
	pool := make(map[string]bool, len(words))
	for _, w := range words {
		pool[w] = true
	}
	r := New(7)
	for range 50 {
		got := strings.Fields(r.Words(WordCount))
		require.Len(t, got, WordCount)
		for _, w := range got {
			assert.True(t, pool[w], w)
		}
	}
}

func TestJiraKeyRange(t *testing.T) {
	r := New(3)
	re := regexp.MustCompile(`^PROJ-\d{3}$`)
	for range 200 {
		assert.Regexp(t, re, r.JiraKey())
	}
}

func TestSeededOutputIsReproducible(t *testing.T) {
	assert.Equal(t, New(9).Words(10), New(9).Words(10))
}
