package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/log"

	"github.com/topi314/modbot-comparator/modbot"
	"github.com/topi314/modbot-comparator/reddit"
)

const (
	Name      = "modbot-comparator"
	Namespace = "github.com/topi314/modbot-comparator"
)

// Version is set at build time
var Version = "dev"

func main() {
	cfg, err := modbot.ReadConfig(os.Args[1:])
	if err != nil {
		log.Fatal("failed to read config: ", err)
	}

	logger := log.New(cfg.Log.Flags())
	logger.SetLevel(cfg.Log.Level)
	log.SetDefault(logger)

	log.Infof("Starting %s version: %s", Name, Version)
	log.Debug("Config: ", cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tel, err := newTelemetry(cfg.Otel)
	if err != nil {
		log.Fatal("failed to init telemetry: ", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := tel.Close(closeCtx); err != nil {
			log.Error("failed to close telemetry: ", err)
		}
	}()

	metrics, err := modbot.NewMetrics(tel.Meter)
	if err != nil {
		log.Fatal("failed to init metrics: ", err)
	}

	client, err := reddit.New(ctx, logger, cfg.Reddit.ClientConfig(), reddit.WithRequestCounter(metrics.RedditRequests))
	if err != nil {
		log.Fatal("failed to login to reddit: ", err)
	}
	if cfg.Reddit.Username != "" {
		log.Infof("Logged in to reddit as u/%s.", cfg.Reddit.Username)
	}

	cache, err := modbot.NewCache(cfg.Cache, metrics)
	if err != nil {
		log.Fatal("failed to open cache: ", err)
	}
	defer cache.Close()

	b := &modbot.Bot{
		Cfg:     cfg,
		Reddit:  client,
		Cache:   cache,
		Metrics: metrics,
	}

	result, err := b.Run(ctx, cfg.Run)
	if err != nil {
		var cfgErr *modbot.ConfigError
		if errors.As(err, &cfgErr) || result == nil {
			log.Error("run failed: ", err)
			return
		}
		if errors.Is(err, context.Canceled) {
			log.Info("Manual user shutdown, reporting partial results.")
		} else {
			log.Error("run stopped early, reporting partial results: ", err)
		}
	}
	for _, entryErr := range result.Errors {
		log.Warn("incomplete: ", entryErr)
	}

	report := &bytes.Buffer{}
	if err = modbot.WriteReport(report, result, time.Now()); err != nil {
		log.Error("failed to render report: ", err)
		return
	}
	_, _ = os.Stdout.Write(report.Bytes())

	if path := cfg.Output.MarkdownPath; path != "" {
		if err = os.WriteFile(path, report.Bytes(), 0o644); err != nil {
			log.Errorf("failed to write report to %s: %s", path, err)
		}
	}
	if path := cfg.Output.JSONPath; path != "" && result.Mode == modbot.ModeFull {
		if err = modbot.WriteJSON(path, result.Summaries); err != nil {
			log.Errorf("failed to write summaries to %s: %s", path, err)
		}
	}
	if cfg.Output.Discord.Enabled {
		postCtx, postCancel := context.WithTimeout(context.Background(), time.Minute)
		defer postCancel()
		if err = modbot.PostReport(postCtx, cfg.Output.Discord, report.String()); err != nil {
			log.Error("failed to post report: ", err)
		}
	}
}
