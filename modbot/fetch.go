package modbot

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/disgoorg/log"
	"go.opentelemetry.io/otel/metric"

	"github.com/topi314/modbot-comparator/reddit"
)

// RedditAPI is the part of *reddit.Client the comparator needs.
type RedditAPI interface {
	WikiReader
	GetModeratedSubreddits(ctx context.Context, username string) ([]reddit.ModeratedSubreddit, error)
	GetAccount(ctx context.Context, username string) (reddit.Account, error)
	GetSubredditsInfo(ctx context.Context, fullnames []string) ([]reddit.Subreddit, error)
	GetModerators(ctx context.Context, subreddit string) ([]reddit.Moderator, error)
	GetSubreddit(ctx context.Context, subreddit string) (reddit.Subreddit, error)
}

func NewFetcher(api RedditAPI, cache *Cache, opts RunOptions, checked metric.Int64Counter) *Fetcher {
	return &Fetcher{
		api:     api,
		cache:   cache,
		opts:    opts,
		checked: checked,
	}
}

// Fetcher answers the comparator's questions, consulting the cache before reddit.
type Fetcher struct {
	api     RedditAPI
	cache   *Cache
	opts    RunOptions
	checked metric.Int64Counter
}

// FetchModeratedSubreddits returns the subreddits an account moderates.
// Quick runs with cache use enabled answer from the cache when they can.
func (f *Fetcher) FetchModeratedSubreddits(ctx context.Context, username string) (AccountRecord, error) {
	if f.opts.Mode == ModeQuick && f.opts.UseCache {
		record, ok, err := f.cache.Accounts.Get(ctx, username)
		if err != nil {
			log.Errorf("error reading cached subreddits of u/%s: %s", username, err)
		} else if ok {
			log.Debugf(">> u/%s subreddit list loaded from cache", username)
			return record, nil
		}
	}

	moderated, err := f.api.GetModeratedSubreddits(ctx, username)
	if err != nil {
		return AccountRecord{}, err
	}
	account, err := f.api.GetAccount(ctx, username)
	if err != nil {
		return AccountRecord{}, err
	}

	record := AccountRecord{
		Username:   username,
		Subreddits: make(map[string]string, len(moderated)),
	}
	if !account.CreatedUTC.IsZero() {
		record.CreatedUTC = account.CreatedUTC.Unix()
	}
	for _, sub := range moderated {
		name := strings.ToLower(sub.SR)
		if sub.IsUserSubreddit() {
			record.UserSubreddits = append(record.UserSubreddits, name)
			continue
		}
		record.Subreddits[name] = strings.ToLower(sub.Name)
	}
	slices.Sort(record.UserSubreddits)
	record.UserSubreddits = slices.Compact(record.UserSubreddits)

	if err = f.cache.Accounts.Put(ctx, username, record); err != nil {
		log.Errorf("error caching subreddits of u/%s: %s", username, err)
	}
	return record, nil
}

// FetchSubredditStats returns subscriber counts and moderator lists for the given
// subreddits (name -> fullname). Subscriber counts are always fetched fresh, in
// pages of reddit.InfoBatchSize. Moderator lists come from the cache unless the run is fresh.
func (f *Fetcher) FetchSubredditStats(ctx context.Context, bot string, subreddits map[string]string) (map[string]SubredditRecord, error) {
	names := slices.Sorted(maps.Keys(subreddits))
	fullnames := make([]string, 0, len(names))
	for _, name := range names {
		if fullname := subreddits[name]; fullname != "" {
			fullnames = append(fullnames, fullname)
		}
	}

	infos, err := f.api.GetSubredditsInfo(ctx, fullnames)
	if err != nil {
		return nil, fmt.Errorf("error fetching subreddit info: %w", err)
	}
	byName := make(map[string]reddit.Subreddit, len(infos))
	for _, info := range infos {
		byName[strings.ToLower(info.DisplayName)] = info
	}

	stats := make(map[string]SubredditRecord, len(names))
	for i, name := range names {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		log.Infof("> (#%d/%d) Now checking r/%s moderated by u/%s...", i+1, len(names), name, bot)

		record := SubredditRecord{
			Name:     name,
			Fullname: subreddits[name],
		}
		if info, ok := byName[name]; ok {
			if info.Subscribers != nil {
				record.Subscribers = *info.Subscribers
			}
			record.NSFW = info.NSFW
			record.Quarantined = info.Quarantine
		}

		record.Moderators, record.ModeratorsHidden, err = f.moderators(ctx, name)
		if err != nil {
			var netErr *reddit.NetworkError
			if !errors.As(err, &netErr) {
				return nil, fmt.Errorf("error fetching moderators of r/%s: %w", name, err)
			}
			log.Errorf(">> skipping moderators of r/%s: %s", name, err)
			record.ModeratorsHidden = true
		}

		if err = f.cache.Subreddits.Put(ctx, name, record); err != nil {
			log.Errorf("error caching r/%s: %s", name, err)
		}
		if f.checked != nil {
			f.checked.Add(ctx, 1)
		}
		stats[name] = record
	}
	return stats, nil
}

func (f *Fetcher) moderators(ctx context.Context, name string) ([]string, bool, error) {
	if f.opts.UseCache {
		record, ok, err := f.cache.Subreddits.Get(ctx, name)
		if err != nil {
			log.Errorf("error reading cached r/%s: %s", name, err)
		} else if ok && !record.ModeratorsHidden {
			log.Infof(">> r/%s moderator list loaded from previously saved cache.", name)
			return record.Moderators, false, nil
		}
	} else if record, ok := f.cache.Subreddits.Peek(name); ok && !record.ModeratorsHidden {
		log.Infof(">> r/%s moderator list loaded from previously accessed cache.", name)
		return record.Moderators, false, nil
	}

	mods, err := f.api.GetModerators(ctx, name)
	if errors.Is(err, reddit.ErrForbidden) || errors.Is(err, reddit.ErrNotFound) {
		log.Warnf(">> unable to fetch r/%s mod list: %s", name, err)
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	names := make([]string, 0, len(mods))
	for _, mod := range mods {
		names = append(names, mod.Name)
	}
	return names, false, nil
}
