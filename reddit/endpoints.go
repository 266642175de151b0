package reddit

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	BaseURL  = "https://oauth.reddit.com"
	TokenURL = "https://www.reddit.com/api/v1/access_token"

	// InfoBatchSize is the most fullnames /api/info accepts at once.
	InfoBatchSize = 100
)

func moderatedSubredditsPath(username string) string {
	return fmt.Sprintf("/user/%s/moderated_subreddits", url.PathEscape(username))
}

func accountAboutPath(username string) string {
	return fmt.Sprintf("/user/%s/about", url.PathEscape(username))
}

func subredditAboutPath(subreddit string) string {
	return fmt.Sprintf("/r/%s/about", url.PathEscape(subreddit))
}

func moderatorsPath(subreddit string) string {
	return fmt.Sprintf("/r/%s/about/moderators", url.PathEscape(subreddit))
}

func wikiPagePath(subreddit string, page string) string {
	return fmt.Sprintf("/r/%s/wiki/%s", url.PathEscape(subreddit), url.PathEscape(page))
}

const infoPath = "/api/info"

func infoQuery(fullnames []string) url.Values {
	return url.Values{"id": {strings.Join(fullnames, ",")}}
}
