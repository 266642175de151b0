package reddit

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/disgoorg/json"
	"github.com/disgoorg/log"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

type Config struct {
	ClientID          string
	ClientSecret      string
	Username          string
	Password          string
	UserAgent         string
	RequestsPerMinute int
	MaxRetries        int
	Timeout           time.Duration
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithTokenURL(tokenURL string) Option {
	return func(c *Client) {
		c.tokenURL = tokenURL
	}
}

// WithRetryWait sets the wait bounds used between retries of failed and rate limited requests.
func WithRetryWait(waitMin time.Duration, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retryWaitMin = waitMin
		c.retryWaitMax = waitMax
	}
}

func WithRequestCounter(counter metric.Int64Counter) Option {
	return func(c *Client) {
		c.counter = counter
	}
}

// New creates a Client and fetches its first bearer token.
func New(ctx context.Context, logger log.Logger, cfg Config, opts ...Option) (*Client, error) {
	c := &Client{
		logger:       logger,
		cfg:          cfg,
		baseURL:      BaseURL,
		tokenURL:     TokenURL,
		retryWaitMin: time.Second,
		retryWaitMax: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	c.limiter = rate.NewLimiter(limit, 1)

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = c.retryWaitMin
	rc.RetryWaitMax = c.retryWaitMax
	rc.Logger = retryablehttp.LeveledLogger(leveledLogger{inner: logger})
	rc.CheckRetry = retryPolicy
	c.client = rc

	c.tokenClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: userAgentTransport{userAgent: cfg.UserAgent, next: http.DefaultTransport},
	}

	if _, err := c.getToken(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

type rateLimit struct {
	known     bool
	used      int
	remaining int
	reset     time.Time
}

type Client struct {
	logger log.Logger
	cfg    Config

	baseURL      string
	tokenURL     string
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	client      *retryablehttp.Client
	tokenClient *http.Client
	limiter     *rate.Limiter
	counter     metric.Int64Counter

	rateLimit rateLimit
	token     *oauth2.Token
	mu        sync.Mutex
}

func (c *Client) getToken(ctx context.Context) (*oauth2.Token, error) {
	if c.token.Valid() {
		return c.token, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.tokenClient)

	var (
		token *oauth2.Token
		err   error
	)
	if c.cfg.Username != "" {
		cfg := &oauth2.Config{
			ClientID:     c.cfg.ClientID,
			ClientSecret: c.cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  c.tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		}
		token, err = cfg.PasswordCredentialsToken(ctx, c.cfg.Username, c.cfg.Password)
	} else {
		cfg := &clientcredentials.Config{
			ClientID:     c.cfg.ClientID,
			ClientSecret: c.cfg.ClientSecret,
			TokenURL:     c.tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		token, err = cfg.Token(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("error exchanging token: %w", err)
	}

	c.token = token
	return token, nil
}

func (c *Client) do(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	now := time.Now()
	var sleep time.Duration
	if c.rateLimit.known && c.rateLimit.remaining <= 1 && now.Before(c.rateLimit.reset) {
		sleep = c.rateLimit.reset.Sub(now)
		c.logger.Debugf("rate limit nearly used up (used: %d, remaining: %d), sleeping %s", c.rateLimit.used, c.rateLimit.remaining, sleep)
		if err := sleepContext(ctx, sleep); err != nil {
			return nil, err
		}
	}

	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("raw_json", "1")

	rq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	rq.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rq.Header.Set("User-Agent", c.cfg.UserAgent)

	rs, err := c.client.Do(rq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Path: path, Err: err}
	}

	c.updateRateLimit(rs.Header, time.Now())

	if c.counter != nil {
		c.counter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("path", path),
			attribute.String("method", http.MethodGet),
			attribute.Int("status", rs.StatusCode),
			attribute.Int64("sleep", int64(sleep)),
			attribute.Int("used", c.rateLimit.used),
			attribute.Int("remaining", c.rateLimit.remaining),
		))
	}

	return rs, nil
}

func (c *Client) updateRateLimit(headers http.Header, now time.Time) {
	rawRemaining := headers.Get("X-Ratelimit-Remaining")
	if rawRemaining == "" {
		return
	}
	remaining, err := strconv.ParseFloat(rawRemaining, 64)
	if err != nil {
		c.logger.Errorf("error parsing x-ratelimit-remaining: %s", err)
		return
	}
	used, err := strconv.ParseFloat(headers.Get("X-Ratelimit-Used"), 64)
	if err != nil {
		c.logger.Errorf("error parsing x-ratelimit-used: %s", err)
	}
	reset, err := strconv.ParseFloat(headers.Get("X-Ratelimit-Reset"), 64)
	if err != nil {
		c.logger.Errorf("error parsing x-ratelimit-reset: %s", err)
	}

	c.rateLimit = rateLimit{
		known:     true,
		used:      int(used),
		remaining: int(remaining),
		reset:     now.Add(time.Second * time.Duration(reset)),
	}
}

// get issues a GET request and decodes the response into rsBody.
// 429 responses are retried with backoff up to Config.MaxRetries times.
func (c *Client) get(ctx context.Context, path string, query url.Values, rsBody any) error {
	for attempt := 1; ; attempt++ {
		rs, err := c.do(ctx, path, query)
		if err != nil {
			return err
		}

		switch {
		case rs.StatusCode == http.StatusTooManyRequests:
			_ = rs.Body.Close()
			delay := c.backoff(attempt, rs.Header)
			if attempt > c.cfg.MaxRetries {
				return &RateLimitError{Path: path, Attempts: attempt, Reset: delay}
			}
			c.logger.Warnf("rate limited on %s, retrying in %s (attempt %d/%d)", path, delay, attempt, c.cfg.MaxRetries)
			if err = sleepContext(ctx, delay); err != nil {
				return err
			}
			continue
		case rs.StatusCode == http.StatusNotFound:
			_ = rs.Body.Close()
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		case rs.StatusCode == http.StatusForbidden:
			_ = rs.Body.Close()
			return fmt.Errorf("%s: %w", path, ErrForbidden)
		case rs.StatusCode < 200 || rs.StatusCode > 299:
			_ = rs.Body.Close()
			return &StatusError{Path: path, StatusCode: rs.StatusCode}
		}

		err = json.NewDecoder(rs.Body).Decode(rsBody)
		_ = rs.Body.Close()
		if err != nil {
			return fmt.Errorf("error decoding %s: %w", path, err)
		}
		return nil
	}
}

func (c *Client) backoff(attempt int, headers http.Header) time.Duration {
	for _, header := range []string{"Retry-After", "X-Ratelimit-Reset"} {
		if seconds, err := strconv.ParseFloat(headers.Get(header), 64); err == nil && seconds >= 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}

	delay := c.retryWaitMin * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > c.retryWaitMax {
		delay = c.retryWaitMax
	}
	return delay
}

// GetModeratedSubreddits returns every subreddit, user subreddits included, the account moderates.
func (c *Client) GetModeratedSubreddits(ctx context.Context, username string) ([]ModeratedSubreddit, error) {
	var list Thing[[]ModeratedSubreddit]
	if err := c.get(ctx, moderatedSubredditsPath(username), nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *Client) GetAccount(ctx context.Context, username string) (Account, error) {
	var about Thing[Account]
	if err := c.get(ctx, accountAboutPath(username), nil, &about); err != nil {
		return Account{}, err
	}
	if about.Data.IsSuspended {
		return about.Data, fmt.Errorf("u/%s is suspended: %w", username, ErrNotFound)
	}
	return about.Data, nil
}

// GetSubredditsInfo resolves subreddit fullnames (t5_*) in pages of InfoBatchSize.
func (c *Client) GetSubredditsInfo(ctx context.Context, fullnames []string) ([]Subreddit, error) {
	subreddits := make([]Subreddit, 0, len(fullnames))
	for start := 0; start < len(fullnames); start += InfoBatchSize {
		end := min(start+InfoBatchSize, len(fullnames))

		var listing Thing[Listing[Subreddit]]
		if err := c.get(ctx, infoPath, infoQuery(fullnames[start:end]), &listing); err != nil {
			return nil, err
		}
		for _, child := range listing.Data.Children {
			if child.Kind != KindSubreddit {
				continue
			}
			subreddits = append(subreddits, child.Data)
		}
	}
	return subreddits, nil
}

func (c *Client) GetModerators(ctx context.Context, subreddit string) ([]Moderator, error) {
	var list Thing[UserList[Moderator]]
	if err := c.get(ctx, moderatorsPath(subreddit), nil, &list); err != nil {
		return nil, err
	}
	return list.Data.Children, nil
}

func (c *Client) GetSubreddit(ctx context.Context, subreddit string) (Subreddit, error) {
	var about Thing[Subreddit]
	if err := c.get(ctx, subredditAboutPath(subreddit), nil, &about); err != nil {
		return Subreddit{}, err
	}
	return about.Data, nil
}

func (c *Client) GetWikiPage(ctx context.Context, subreddit string, page string) (WikiPage, error) {
	var wiki Thing[WikiPage]
	if err := c.get(ctx, wikiPagePath(subreddit, page), nil, &wiki); err != nil {
		return WikiPage{}, err
	}
	return wiki.Data, nil
}

// retryPolicy leaves 429 to Client.get which knows about reddit's reset header.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type userAgentTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (t userAgentTransport) RoundTrip(rq *http.Request) (*http.Response, error) {
	rq = rq.Clone(rq.Context())
	rq.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(rq)
}

// leveledLogger lets retryablehttp report through a disgoorg logger.
// Intermediate failures are retried, so errors are downgraded to warnings.
type leveledLogger struct {
	inner log.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.inner.Warn(append([]any{msg}, keysAndValues...)...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.inner.Warn(append([]any{msg}, keysAndValues...)...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.inner.Debug(append([]any{msg}, keysAndValues...)...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.inner.Trace(append([]any{msg}, keysAndValues...)...)
}
