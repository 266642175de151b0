package modbot

import (
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	RedditRequests    metric.Int64Counter
	CacheLookups      metric.Int64Counter
	SubredditsChecked metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.RedditRequests, err = meter.Int64Counter("modbot_reddit_requests",
		metric.WithDescription("The number of requests made to the Reddit API"),
	); err != nil {
		return nil, err
	}

	if m.CacheLookups, err = meter.Int64Counter("modbot_cache_lookups",
		metric.WithDescription("The number of cache lookups by namespace, tier and outcome"),
	); err != nil {
		return nil, err
	}

	if m.SubredditsChecked, err = meter.Int64Counter("modbot_subreddits_checked",
		metric.WithDescription("The number of subreddits whose stats were fetched"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

func (b *Bot) subredditsChecked() metric.Int64Counter {
	if b.Metrics == nil {
		return nil
	}
	return b.Metrics.SubredditsChecked
}
