package modbot

import (
	"maps"
	"slices"
)

// BotEntry is one logical bot which may be spread over several accounts.
type BotEntry struct {
	Name     string
	Accounts []string
}

// AccountRecord is what one account moderates.
type AccountRecord struct {
	Username string `json:"username"`
	// Subreddits maps lower-cased subreddit names to their t5_ fullnames.
	Subreddits     map[string]string `json:"subreddits"`
	UserSubreddits []string          `json:"user_subreddits"`
	CreatedUTC     int64             `json:"created_utc"`
}

func (r AccountRecord) SubredditNames() []string {
	return slices.Sorted(maps.Keys(r.Subreddits))
}

type SubredditRecord struct {
	Name        string   `json:"name"`
	Fullname    string   `json:"fullname"`
	Subscribers int      `json:"subscribers"`
	NSFW        bool     `json:"nsfw"`
	Quarantined bool     `json:"quarantined"`
	Moderators  []string `json:"moderators"`
	// ModeratorsHidden is set when reddit refused to list the moderators.
	ModeratorsHidden bool `json:"moderators_hidden"`
}

// Summary is the aggregate of one BotEntry.
type Summary struct {
	Name             string   `json:"name"`
	Accounts         int      `json:"accounts"`
	Subreddits       []string `json:"subreddits"`
	UserSubreddits   []string `json:"user_subreddits"`
	TotalCount       int      `json:"total_count"`
	QuarantinedCount int      `json:"quarantined_count"`
	NSFWCount        int      `json:"nsfw_count"`
	Subscribers      int      `json:"subscribers"`
	Moderators       int      `json:"moderators"`
	ModeratorNames   []string `json:"moderator_names,omitempty"`
	CreatedUTC       int64    `json:"created_utc"`
}
