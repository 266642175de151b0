package modbot

import (
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func accountRecord(username string, subreddits ...string) AccountRecord {
	record := AccountRecord{
		Username:   username,
		Subreddits: make(map[string]string, len(subreddits)),
	}
	for _, name := range subreddits {
		record.Subreddits[name] = "t5_" + name
	}
	return record
}

func TestAggregateUnion(t *testing.T) {
	tests := []struct {
		name     string
		accounts []AccountRecord
		want     []string
	}{
		{
			name:     "single account",
			accounts: []AccountRecord{accountRecord("bot1", "a", "b")},
			want:     []string{"a", "b"},
		},
		{
			name:     "overlapping accounts",
			accounts: []AccountRecord{accountRecord("bot1", "a", "b"), accountRecord("bot2", "b", "c")},
			want:     []string{"a", "b", "c"},
		},
		{
			name:     "identical accounts",
			accounts: []AccountRecord{accountRecord("bot1", "test"), accountRecord("bot2", "test")},
			want:     []string{"test"},
		},
		{
			name:     "no subreddits",
			accounts: []AccountRecord{accountRecord("bot1")},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := BotEntry{Name: "Bot"}
			for _, account := range tt.accounts {
				entry.Accounts = append(entry.Accounts, account.Username)
			}

			summary := Aggregate(entry, tt.accounts, nil)
			assert.Equal(t, tt.want, summary.Subreddits)
			assert.Equal(t, len(tt.want), summary.TotalCount)
			assert.Equal(t, len(tt.accounts), summary.Accounts)

			// every account's subreddits are part of the union, and nothing else is
			union := UnionSubreddits(tt.accounts)
			for _, account := range tt.accounts {
				for name := range account.Subreddits {
					assert.Contains(t, union, name)
				}
			}
			assert.Equal(t, tt.want, slices.Sorted(maps.Keys(union)))
		})
	}
}

func TestAggregateStats(t *testing.T) {
	entry := BotEntry{Name: "Bot", Accounts: []string{"Bot1", "bot2"}}
	accounts := []AccountRecord{
		accountRecord("Bot1", "a", "b"),
		accountRecord("bot2", "b", "c", "q"),
	}
	accounts[0].CreatedUTC = 2000
	accounts[1].CreatedUTC = 1000
	accounts[1].UserSubreddits = []string{"u_bot2"}

	stats := map[string]SubredditRecord{
		"a": {Name: "a", Subscribers: 100, Moderators: []string{"alice", "bot1", "AutoModerator"}},
		"b": {Name: "b", Subscribers: 50, NSFW: true, Moderators: []string{"Alice", "bob", "bot2"}},
		"c": {Name: "c", Subscribers: 1, ModeratorsHidden: true},
		"q": {Name: "q", Subscribers: 10, Quarantined: true, Moderators: []string{"carol"}},
	}

	summary := Aggregate(entry, accounts, stats)
	assert.Equal(t, []string{"a", "b", "c", "q"}, summary.Subreddits)
	assert.Equal(t, 3, summary.TotalCount, "quarantined subreddits are not counted")
	assert.Equal(t, 1, summary.QuarantinedCount)
	assert.Equal(t, 1, summary.NSFWCount)
	assert.Equal(t, 161, summary.Subscribers, "b is moderated twice but counted once")
	assert.Equal(t, []string{"alice", "bob", "carol"}, summary.ModeratorNames)
	assert.Equal(t, 3, summary.Moderators)
	assert.Equal(t, []string{"u_bot2"}, summary.UserSubreddits)
	assert.Equal(t, int64(1000), summary.CreatedUTC)
}

func TestAggregateSkipsUnknownCreation(t *testing.T) {
	accounts := []AccountRecord{accountRecord("bot1", "a"), accountRecord("bot2", "b")}
	accounts[1].CreatedUTC = 1500

	summary := Aggregate(BotEntry{Name: "Bot", Accounts: []string{"bot1", "bot2"}}, accounts, nil)
	assert.Equal(t, int64(1500), summary.CreatedUTC)
}
