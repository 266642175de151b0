package modbot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/topi314/modbot-comparator/reddit"
)

type fakeSubreddit struct {
	fullname    string
	subscribers int
	nsfw        bool
	quarantined bool
	moderators  []string
}

// fakeReddit is an in-memory RedditAPI which counts the calls made against it.
type fakeReddit struct {
	wiki        string
	wikiErr     error
	moderated   map[string][]string
	accountErrs map[string]error
	created     map[string]int64
	subreddits  map[string]fakeSubreddit
	modErrs     map[string]error
	aboutErrs   map[string]error
	calls       map[string]int
}

func newFakeReddit(wiki string) *fakeReddit {
	return &fakeReddit{
		wiki:        wiki,
		moderated:   map[string][]string{},
		accountErrs: map[string]error{},
		created:     map[string]int64{},
		subreddits:  map[string]fakeSubreddit{},
		modErrs:     map[string]error{},
		aboutErrs:   map[string]error{},
		calls:       map[string]int{},
	}
}

func (f *fakeReddit) addSubreddit(name string, subscribers int, moderators ...string) {
	f.subreddits[name] = fakeSubreddit{
		fullname:    "t5_" + name,
		subscribers: subscribers,
		moderators:  moderators,
	}
}

func (f *fakeReddit) GetWikiPage(_ context.Context, _ string, _ string) (reddit.WikiPage, error) {
	f.calls["GetWikiPage"]++
	if f.wikiErr != nil {
		return reddit.WikiPage{}, f.wikiErr
	}
	return reddit.WikiPage{ContentMD: f.wiki}, nil
}

func (f *fakeReddit) GetModeratedSubreddits(_ context.Context, username string) ([]reddit.ModeratedSubreddit, error) {
	f.calls["GetModeratedSubreddits"]++
	if err := f.accountErrs[username]; err != nil {
		return nil, err
	}
	var subs []reddit.ModeratedSubreddit
	for _, name := range f.moderated[username] {
		fullname := "t5_" + strings.ToLower(name)
		if sub, ok := f.subreddits[strings.ToLower(name)]; ok {
			fullname = sub.fullname
		}
		subs = append(subs, reddit.ModeratedSubreddit{SR: name, Name: fullname})
	}
	return subs, nil
}

func (f *fakeReddit) GetAccount(_ context.Context, username string) (reddit.Account, error) {
	f.calls["GetAccount"]++
	if err := f.accountErrs[username]; err != nil {
		return reddit.Account{}, err
	}
	account := reddit.Account{Name: username}
	if created, ok := f.created[username]; ok {
		account.CreatedUTC = reddit.Timestamp{Time: time.Unix(created, 0)}
	}
	return account, nil
}

func (f *fakeReddit) GetSubredditsInfo(_ context.Context, fullnames []string) ([]reddit.Subreddit, error) {
	f.calls["GetSubredditsInfo"]++
	var subs []reddit.Subreddit
	for _, fullname := range fullnames {
		for name, sub := range f.subreddits {
			if sub.fullname != fullname {
				continue
			}
			subscribers := sub.subscribers
			subs = append(subs, reddit.Subreddit{
				Name:        sub.fullname,
				DisplayName: name,
				Subscribers: &subscribers,
				NSFW:        sub.nsfw,
				Quarantine:  sub.quarantined,
			})
		}
	}
	return subs, nil
}

func (f *fakeReddit) GetModerators(_ context.Context, subreddit string) ([]reddit.Moderator, error) {
	f.calls["GetModerators"]++
	f.calls["GetModerators:"+subreddit]++
	if err := f.modErrs[subreddit]; err != nil {
		return nil, err
	}
	sub, ok := f.subreddits[subreddit]
	if !ok {
		return nil, fmt.Errorf("/r/%s/about/moderators: %w", subreddit, reddit.ErrNotFound)
	}
	mods := make([]reddit.Moderator, 0, len(sub.moderators))
	for _, name := range sub.moderators {
		mods = append(mods, reddit.Moderator{Name: name})
	}
	return mods, nil
}

func (f *fakeReddit) GetSubreddit(_ context.Context, subreddit string) (reddit.Subreddit, error) {
	f.calls["GetSubreddit"]++
	if err := f.aboutErrs[subreddit]; err != nil {
		return reddit.Subreddit{}, err
	}
	return reddit.Subreddit{DisplayName: subreddit}, nil
}

func newTestCache(t *testing.T, path string) *Cache {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "cache.db")
	}
	cache, err := NewCache(CacheConfig{
		Type:       CacheTypeSQLite,
		SQLite:     SQLiteConfig{Path: path},
		MemorySize: 128,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = cache.Close()
	})
	return cache
}

func newTestBot(t *testing.T, api *fakeReddit, cache *Cache) *Bot {
	t.Helper()
	if cache == nil {
		cache = newTestCache(t, "")
	}
	cfg := DefaultConfig()
	cfg.Source = SourceConfig{
		Type:          SourceTypeWiki,
		WikiSubreddit: "botwatch",
		WikiPage:      DefaultWikiPage,
	}
	return &Bot{
		Cfg:    cfg,
		Reddit: api,
		Cache:  cache,
	}
}
