package modbot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotList = `
Zeta:
  - zeta_bot
Alpha:
  - /u/Alpha1
  - u/alpha2
  - alpha3
`

func TestParseBotList(t *testing.T) {
	entries, err := ParseBotList([]byte(testBotList))
	require.NoError(t, err)

	assert.Equal(t, []BotEntry{
		{Name: "Zeta", Accounts: []string{"zeta_bot"}},
		{Name: "Alpha", Accounts: []string{"Alpha1", "alpha2", "alpha3"}},
	}, entries)
}

func TestParseBotListInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "malformed", data: "bot: [a, b"},
		{name: "not a mapping", data: "- a\n- b\n"},
		{name: "scalar accounts", data: "bot: account\n"},
		{name: "empty account list", data: "bot: []\n"},
		{name: "empty account", data: "bot:\n  - \"\"\n"},
		{name: "nested account", data: "bot:\n  - [a]\n"},
		{name: "duplicate bot", data: "Bot: [a]\nbot: [b]\n"},
		{name: "duplicate account", data: "Bot: [a1, a1]\n"},
		{name: "duplicate account after normalizing", data: "Bot: [u/A1, a1]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBotList([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadBotListLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bots.yml")
	require.NoError(t, os.WriteFile(path, []byte(testBotList), 0o644))

	entries, err := LoadBotList(context.Background(), SourceConfig{Type: SourceTypeLocal, Path: path}, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLoadBotListWiki(t *testing.T) {
	api := newFakeReddit(testBotList)

	entries, err := LoadBotList(context.Background(), SourceConfig{
		Type:          SourceTypeWiki,
		WikiSubreddit: "botwatch",
		WikiPage:      DefaultWikiPage,
	}, api)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, api.calls["GetWikiPage"])
}

func TestLoadBotListErrors(t *testing.T) {
	invalid := filepath.Join(t.TempDir(), "bots.yml")
	require.NoError(t, os.WriteFile(invalid, []byte("bot: []\n"), 0o644))

	failing := newFakeReddit("")
	failing.wikiErr = errors.New("wiki unavailable")

	tests := []struct {
		name string
		cfg  SourceConfig
		wiki WikiReader
	}{
		{name: "missing file", cfg: SourceConfig{Type: SourceTypeLocal, Path: filepath.Join(t.TempDir(), "missing.yml")}},
		{name: "schema mismatch", cfg: SourceConfig{Type: SourceTypeLocal, Path: invalid}},
		{name: "wiki failure", cfg: SourceConfig{Type: SourceTypeWiki, WikiSubreddit: "botwatch", WikiPage: DefaultWikiPage}, wiki: failing},
		{name: "empty wiki page", cfg: SourceConfig{Type: SourceTypeWiki, WikiSubreddit: "botwatch", WikiPage: DefaultWikiPage}, wiki: newFakeReddit("")},
		{name: "unknown source", cfg: SourceConfig{Type: "ftp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBotList(context.Background(), tt.cfg, tt.wiki)
			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
