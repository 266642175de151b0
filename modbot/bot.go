package modbot

import (
	"context"
	"errors"
	"slices"

	"github.com/disgoorg/log"

	"github.com/topi314/modbot-comparator/reddit"
)

type Bot struct {
	Cfg     Config
	Reddit  RedditAPI
	Cache   *Cache
	Metrics *Metrics
}

// Result is what a run produced. Quick is always filled; Summaries and Changes only by full runs.
type Result struct {
	Mode      Mode
	Quick     []Summary
	Summaries []Summary
	Changes   []Change
	Errors    []EntryError
}

// Run loads the bot list, collects what every account moderates and, for full runs,
// the subscriber and moderator stats of every entry. Failures of single accounts or entries
// are logged and collected in Result.Errors; only a *ConfigError or a cancelled ctx stop the run.
func (b *Bot) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if opts.Mode == ModeQuick {
		log.Info("Getting quick results...")
	} else {
		log.Info("Getting comprehensive results (will take longer)...")
	}
	if opts.UseCache {
		log.Info("Utilizing cached data for quicker results.")
	} else {
		log.Info("Fetching fresh data for up-to-date results.")
	}

	entries, err := LoadBotList(ctx, b.Cfg.Source, b.Reddit)
	if err != nil {
		return nil, err
	}
	log.Infof("Getting results for %d bots...", len(entries))

	fetcher := NewFetcher(b.Reddit, b.Cache, opts, b.subredditsChecked())
	result := &Result{Mode: opts.Mode}

	records := make([][]AccountRecord, len(entries))
	incomplete := make([]bool, len(entries))
	for i, entry := range entries {
		if records[i], incomplete[i], err = b.collectAccounts(ctx, fetcher, entry, result); err != nil {
			return result, err
		}
		summary := Aggregate(entry, records[i], nil)
		log.Debugf("Bot u/%s moderates %d subreddits across its %d account(s).", entry.Name, summary.TotalCount, summary.Accounts)
		result.Quick = append(result.Quick, summary)
	}

	if opts.Mode != ModeFull {
		return result, nil
	}

	for i, entry := range entries {
		if err = ctx.Err(); err != nil {
			return result, err
		}
		log.Infof("Now assessing u/%s....", entry.Name)

		if len(records[i]) == 0 {
			log.Warnf(">> no account of u/%s could be fetched, skipping", entry.Name)
			continue
		}

		summary, change, err := b.assess(ctx, fetcher, entry, records[i], incomplete[i], opts)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			log.Errorf(">> failed to assess u/%s: %s", entry.Name, err)
			result.Errors = append(result.Errors, EntryError{Bot: entry.Name, Err: err})
			continue
		}
		if !change.Empty() {
			result.Changes = append(result.Changes, change)
		}
		result.Summaries = append(result.Summaries, summary)
	}

	return result, nil
}

// collectAccounts fetches every account of an entry. incomplete reports whether an account
// was skipped for a reason other than being gone, so its subreddits are unknown for this run.
func (b *Bot) collectAccounts(ctx context.Context, fetcher *Fetcher, entry BotEntry, result *Result) (records []AccountRecord, incomplete bool, err error) {
	records = make([]AccountRecord, 0, len(entry.Accounts))
	for _, username := range entry.Accounts {
		record, err := fetcher.FetchModeratedSubreddits(ctx, username)
		if err == nil {
			records = append(records, record)
			continue
		}
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		if !errors.Is(err, reddit.ErrNotFound) && !errors.Is(err, reddit.ErrForbidden) {
			incomplete = true
		}

		var (
			rateErr *reddit.RateLimitError
			netErr  *reddit.NetworkError
		)
		switch {
		case errors.Is(err, reddit.ErrNotFound), errors.Is(err, reddit.ErrForbidden):
			log.Warnf("skipping u/%s of u/%s, account is suspended or deleted: %s", username, entry.Name, err)
		case errors.As(err, &rateErr):
			log.Errorf("skipping u/%s of u/%s, rate limited: %s", username, entry.Name, err)
		case errors.As(err, &netErr):
			log.Errorf("skipping u/%s of u/%s, network failure: %s", username, entry.Name, err)
		default:
			log.Errorf("skipping u/%s of u/%s: %s", username, entry.Name, err)
		}
		result.Errors = append(result.Errors, EntryError{Bot: entry.Name, Account: username, Err: err})
	}
	return records, incomplete, nil
}

// assess builds the full summary of one entry. A cached summary is reused when cache use is
// on and the entry still moderates exactly the same subreddits. An incomplete entry is neither
// diffed against nor stored over the cached summary.
func (b *Bot) assess(ctx context.Context, fetcher *Fetcher, entry BotEntry, records []AccountRecord, incomplete bool, opts RunOptions) (Summary, Change, error) {
	subreddits := UnionSubreddits(records)
	current := Aggregate(entry, records, nil).Subreddits

	cached, found, err := b.Cache.Bots.Get(ctx, entry.Name)
	if err != nil {
		log.Errorf("error reading cached summary of u/%s: %s", entry.Name, err)
		found = false
	}

	if found && opts.UseCache && slices.Equal(cached.Subreddits, current) {
		log.Infof(">> Loaded u/%s data from cache. Total: %d subscribers and %d moderators.", entry.Name, cached.Subscribers, cached.Moderators)
		return cached, Change{Bot: entry.Name}, nil
	}

	change := Change{Bot: entry.Name}
	if found && !incomplete {
		change = DiffSubreddits(entry.Name, current, cached.Subreddits)
		if err = explainRemovals(ctx, b.Reddit, &change); err != nil {
			return Summary{}, change, err
		}
	}

	stats, err := fetcher.FetchSubredditStats(ctx, entry.Name, subreddits)
	if err != nil {
		return Summary{}, change, err
	}

	summary := Aggregate(entry, records, stats)
	log.Infof(">> Finished assessing u/%s. Total: %d subscribers and %d moderators.", entry.Name, summary.Subscribers, summary.Moderators)

	if incomplete {
		log.Warnf(">> u/%s is incomplete, keeping its previous summary", entry.Name)
		return summary, change, nil
	}
	if err = b.Cache.Bots.Put(ctx, entry.Name, summary); err != nil {
		log.Errorf("error caching summary of u/%s: %s", entry.Name, err)
	}
	return summary, change, nil
}
