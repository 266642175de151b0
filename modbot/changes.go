package modbot

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/disgoorg/log"

	"github.com/topi314/modbot-comparator/reddit"
)

// Change lists how an entry's subreddits differ from the cached summary.
type Change struct {
	Bot       string
	Additions []string
	Removals  []string
	Notes     []string
}

func (c Change) Empty() bool {
	return len(c.Additions) == 0 && len(c.Removals) == 0
}

// DiffSubreddits compares two sorted subreddit lists.
func DiffSubreddits(bot string, current []string, previous []string) Change {
	change := Change{Bot: bot}
	for _, name := range current {
		if _, ok := slices.BinarySearch(previous, name); !ok {
			change.Additions = append(change.Additions, name)
		}
	}
	for _, name := range previous {
		if _, ok := slices.BinarySearch(current, name); !ok {
			change.Removals = append(change.Removals, name)
		}
	}
	return change
}

// explainRemovals checks whether removed subreddits went private or were banned.
func explainRemovals(ctx context.Context, api RedditAPI, change *Change) error {
	for _, name := range change.Removals {
		_, err := api.GetSubreddit(ctx, name)
		switch {
		case err == nil:
		case errors.Is(err, reddit.ErrForbidden):
			change.Notes = append(change.Notes, fmt.Sprintf("r/%s has gone private.", name))
		case errors.Is(err, reddit.ErrNotFound):
			change.Notes = append(change.Notes, fmt.Sprintf("r/%s has been banned.", name))
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			log.Warnf("unable to check removed subreddit r/%s: %s", name, err)
		}
	}
	return nil
}
