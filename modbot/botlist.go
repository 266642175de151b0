package modbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/file"
	"gopkg.in/yaml.v3"

	"github.com/topi314/modbot-comparator/reddit"
)

const DefaultWikiPage = "moderator_bots"

type WikiReader interface {
	GetWikiPage(ctx context.Context, subreddit string, page string) (reddit.WikiPage, error)
}

// LoadBotList reads the tracked bots from the configured wiki page or local file.
// Every failure is returned as a *ConfigError.
func LoadBotList(ctx context.Context, cfg SourceConfig, wiki WikiReader) ([]BotEntry, error) {
	var (
		source string
		data   []byte
	)
	switch cfg.Type {
	case SourceTypeWiki:
		source = fmt.Sprintf("r/%s/wiki/%s", cfg.WikiSubreddit, cfg.WikiPage)
		page, err := wiki.GetWikiPage(ctx, cfg.WikiSubreddit, cfg.WikiPage)
		if err != nil {
			return nil, &ConfigError{Source: source, Err: err}
		}
		data = []byte(page.ContentMD)
	case SourceTypeLocal:
		source = cfg.Path
		var err error
		if data, err = file.Provider(cfg.Path).ReadBytes(); err != nil {
			return nil, &ConfigError{Source: source, Err: err}
		}
	default:
		return nil, &ConfigError{Source: "source.type", Err: fmt.Errorf("unknown source type: %s", cfg.Type)}
	}

	entries, err := ParseBotList(data)
	if err != nil {
		return nil, &ConfigError{Source: source, Err: err}
	}
	return entries, nil
}

// ParseBotList decodes a `bot name: [account, ...]` mapping, keeping the document order.
func ParseBotList(data []byte) ([]BotEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("bot list is empty")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: bot list must map bot names to account lists", root.Line)
	}

	seen := make(map[string]struct{}, len(root.Content)/2)
	entries := make([]BotEntry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		name := strings.TrimSpace(key.Value)
		if key.Kind != yaml.ScalarNode || name == "" {
			return nil, fmt.Errorf("line %d: bot name must be a non-empty string", key.Line)
		}
		if _, ok := seen[strings.ToLower(name)]; ok {
			return nil, fmt.Errorf("line %d: bot %q is listed twice", key.Line, name)
		}
		seen[strings.ToLower(name)] = struct{}{}

		if value.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("line %d: accounts of bot %q must be a list", value.Line, name)
		}
		if len(value.Content) == 0 {
			return nil, fmt.Errorf("line %d: bot %q has no accounts", value.Line, name)
		}

		accounts := make([]string, 0, len(value.Content))
		seenAccounts := make(map[string]struct{}, len(value.Content))
		for _, item := range value.Content {
			account := normalizeUsername(item.Value)
			if item.Kind != yaml.ScalarNode || account == "" {
				return nil, fmt.Errorf("line %d: account of bot %q must be a non-empty string", item.Line, name)
			}
			if _, ok := seenAccounts[strings.ToLower(account)]; ok {
				return nil, fmt.Errorf("line %d: account %q of bot %q is listed twice", item.Line, account, name)
			}
			seenAccounts[strings.ToLower(account)] = struct{}{}
			accounts = append(accounts, account)
		}
		entries = append(entries, BotEntry{Name: name, Accounts: accounts})
	}
	return entries, nil
}

func normalizeUsername(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(name, "u/")
	return name
}
