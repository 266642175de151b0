package reddit

import "strings"

type Kind string

const (
	KindUser          Kind = "t2"
	KindSubreddit     Kind = "t5"
	KindListing       Kind = "Listing"
	KindUserList      Kind = "UserList"
	KindModeratedList Kind = "ModeratedList"
	KindWikiPage      Kind = "wikipage"
)

// UserSubredditPrefix marks the profile subreddit every account owns.
const UserSubredditPrefix = "u_"

type Thing[D any] struct {
	Kind Kind `json:"kind"`
	Data D    `json:"data"`
}

type Listing[D any] struct {
	After    string     `json:"after"`
	Before   string     `json:"before"`
	Dist     int        `json:"dist"`
	Children []Thing[D] `json:"children"`
}

type UserList[D any] struct {
	Children []D `json:"children"`
}

type Account struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedUTC  Timestamp `json:"created_utc"`
	IsSuspended bool      `json:"is_suspended"`
}

// ModeratedSubreddit is one entry of /user/{name}/moderated_subreddits.
type ModeratedSubreddit struct {
	SR          string `json:"sr"`
	Name        string `json:"name"`
	Subscribers int    `json:"subscribers"`
	NSFW        bool   `json:"over_18"`
}

func (s ModeratedSubreddit) IsUserSubreddit() bool {
	return strings.HasPrefix(strings.ToLower(s.SR), UserSubredditPrefix)
}

type Subreddit struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	DisplayName         string `json:"display_name"`
	DisplayNamePrefixed string `json:"display_name_prefixed"`
	Title               string `json:"title"`
	SubredditType       string `json:"subreddit_type"`
	Subscribers         *int   `json:"subscribers"`
	NSFW                bool   `json:"over18"`
	Quarantine          bool   `json:"quarantine"`
}

type Moderator struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	ModPermissions []string `json:"mod_permissions"`
}

type WikiPage struct {
	ContentMD    string    `json:"content_md"`
	RevisionDate Timestamp `json:"revision_date"`
	MayRevise    bool      `json:"may_revise"`
}
