package modbot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disgoorg/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderQuick(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, RenderQuick(buf, []Summary{
		{Name: "Alpha", Accounts: 2, TotalCount: 1234, UserSubreddits: []string{"u_alpha1"}},
		{Name: "Beta", Accounts: 1, TotalCount: 2},
	}))

	out := buf.String()
	assert.Contains(t, out, "### Quick Summary")
	assert.Contains(t, out, "Moderated Subreddits")
	assert.Contains(t, out, "**u/Alpha**")
	assert.Contains(t, out, "**1,234**")
	assert.Contains(t, out, "**u/Beta**")
}

func TestRenderFinal(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	buf := &bytes.Buffer{}
	require.NoError(t, RenderFinal(buf, []Summary{
		{
			Name:        "Alpha",
			TotalCount:  4,
			NSFWCount:   1,
			Subscribers: 1200000,
			Moderators:  12,
			CreatedUTC:  now.Add(-2 * 365 * 24 * time.Hour).Unix(),
		},
		{Name: "Empty"},
	}, now))

	out := buf.String()
	assert.Contains(t, out, "### Final Data Table")
	assert.Contains(t, out, "u/Alpha")
	assert.Contains(t, out, "2.00")
	assert.Contains(t, out, "25.00%")
	assert.Contains(t, out, "1,200,000")
	assert.Contains(t, out, "300,000")
	assert.Contains(t, out, "u/Empty")
	assert.Contains(t, out, "0.00%")
}

func TestRenderChanges(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, RenderChanges(buf, []Change{{
		Bot:       "Alpha",
		Additions: []string{"e"},
		Removals:  []string{"b"},
		Notes:     []string{"r/b has gone private."},
	}}))

	out := buf.String()
	assert.Contains(t, out, "* Changes for u/Alpha: r/e, r/b")
	assert.Contains(t, out, "* Additions for u/Alpha: r/e")
	assert.Contains(t, out, "* Removals for u/Alpha: r/b")
	assert.Contains(t, out, "* Note: r/b has gone private.")

	buf.Reset()
	require.NoError(t, RenderChanges(buf, nil))
	assert.Empty(t, buf.String())
}

func TestWriteReportQuick(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteReport(buf, &Result{
		Mode:  ModeQuick,
		Quick: []Summary{{Name: "Alpha", TotalCount: 3}},
	}, time.Now()))

	assert.Contains(t, buf.String(), "### Quick Summary")
	assert.NotContains(t, buf.String(), "### Final Data Table")
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.json")
	summaries := []Summary{
		{Name: "Alpha", Subreddits: []string{"a", "b"}, TotalCount: 2, Subscribers: 150},
		{Name: "Beta", Subreddits: []string{"c"}, TotalCount: 1},
	}
	require.NoError(t, WriteJSON(path, summaries))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]Summary
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, summaries[0], got["Alpha"])
	assert.Equal(t, summaries[1], got["Beta"])
}
