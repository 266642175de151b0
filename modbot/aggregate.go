package modbot

import (
	"maps"
	"slices"
	"strings"
)

// AutoModerator is reddit's own rule bot, present on most subreddits.
const AutoModerator = "automoderator"

// Aggregate combines the records of one bot entry. Subreddits moderated by more than one
// of its accounts count once, and so do their subscribers. Moderators exclude the entry's own
// accounts and AutoModerator. stats may be nil (quick runs); then only counts are filled.
func Aggregate(entry BotEntry, accounts []AccountRecord, stats map[string]SubredditRecord) Summary {
	subreddits := UnionSubreddits(accounts)

	summary := Summary{
		Name:       entry.Name,
		Accounts:   len(entry.Accounts),
		Subreddits: slices.Sorted(maps.Keys(subreddits)),
	}

	userSubreddits := make(map[string]struct{})
	for _, account := range accounts {
		for _, name := range account.UserSubreddits {
			userSubreddits[name] = struct{}{}
		}
		if account.CreatedUTC > 0 && (summary.CreatedUTC == 0 || account.CreatedUTC < summary.CreatedUTC) {
			summary.CreatedUTC = account.CreatedUTC
		}
	}
	summary.UserSubreddits = slices.Sorted(maps.Keys(userSubreddits))

	own := make(map[string]struct{}, len(entry.Accounts)+1)
	own[AutoModerator] = struct{}{}
	for _, account := range entry.Accounts {
		own[strings.ToLower(account)] = struct{}{}
	}

	moderators := make(map[string]struct{})
	for _, name := range summary.Subreddits {
		record, ok := stats[name]
		if !ok {
			continue
		}
		summary.Subscribers += record.Subscribers
		if record.NSFW {
			summary.NSFWCount++
		}
		if record.Quarantined {
			summary.QuarantinedCount++
		}
		for _, mod := range record.Moderators {
			if _, ok = own[strings.ToLower(mod)]; ok {
				continue
			}
			moderators[strings.ToLower(mod)] = struct{}{}
		}
	}

	summary.TotalCount = len(summary.Subreddits) - summary.QuarantinedCount
	summary.ModeratorNames = slices.Sorted(maps.Keys(moderators))
	summary.Moderators = len(summary.ModeratorNames)
	return summary
}

// UnionSubreddits merges the subreddits (name -> fullname) of several accounts.
func UnionSubreddits(accounts []AccountRecord) map[string]string {
	union := make(map[string]string)
	for _, account := range accounts {
		for name, fullname := range account.Subreddits {
			if union[name] == "" {
				union[name] = fullname
			}
		}
	}
	return union
}
