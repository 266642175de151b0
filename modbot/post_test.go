package modbot

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name    string
		content string
		limit   int
		want    []string
	}{
		{name: "empty", content: "\n\n", limit: 10, want: nil},
		{name: "fits", content: "hello\nworld", limit: 20, want: []string{"hello\nworld"}},
		{name: "line breaks", content: "aaaa\nbbbb\ncccc", limit: 9, want: []string{"aaaa\nbbbb", "cccc"}},
		{name: "long line", content: "abcdefghij", limit: 4, want: []string{"abcd", "efgh", "ij"}},
		{name: "runes", content: "äöüäöü", limit: 3, want: []string{"äöü", "äöü"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitMessage(tt.content, tt.limit))
		})
	}
}

func TestSplitMessageReport(t *testing.T) {
	var sb strings.Builder
	for range 300 {
		sb.WriteString("| u/SomeBot | 1,234 | 2 | 0 |\n")
	}
	report := strings.TrimSuffix(sb.String(), "\n")

	chunks := SplitMessage(report, MaxMessageLength)
	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), MaxMessageLength)
	}
	assert.Equal(t, report, strings.Join(chunks, "\n"))
}

func TestPostReportInvalidWebhook(t *testing.T) {
	err := PostReport(context.Background(), DiscordConfig{Enabled: true, WebhookID: "not-a-snowflake", WebhookToken: "token"}, "report")
	assert.Error(t, err)
}
