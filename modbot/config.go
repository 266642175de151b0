package modbot

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/log"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/topi314/modbot-comparator/reddit"
)

// ReadConfig parses the command line, loads the config file it points at and
// applies MODBOT_ environment overrides (MODBOT_REDDIT__CLIENT_SECRET -> reddit.client_secret).
func ReadConfig(args []string) (Config, error) {
	f := flag.NewFlagSet("config", flag.ContinueOnError)
	path := f.String("config", "./config.yml", "Path to config file (default: ./config.yml)")
	mode := f.String("mode", string(ModeQuick), "Run mode (quick: subreddit membership only, full: subscribers and moderators)")
	fresh := f.Bool("fresh", false, "Ignore cached data and fetch everything again (default: false)")
	source := f.String("source", "", "Bot list source override (wiki, local)")

	if err := f.Parse(args); err != nil {
		return Config{}, &ConfigError{Source: "flags", Err: err}
	}

	k := koanf.New(".")
	log.Info("Loading config from: ", *path)
	if err := k.Load(file.Provider(*path), yaml.Parser()); err != nil {
		return Config{}, &ConfigError{Source: *path, Err: err}
	}

	if err := k.Load(env.Provider("MODBOT_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "MODBOT_")), "__", ".")
	}), nil); err != nil {
		return Config{}, &ConfigError{Source: "environment", Err: err}
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, &ConfigError{Source: *path, Err: err}
	}

	cfg.Run = RunOptions{
		Mode:     Mode(*mode),
		UseCache: !*fresh,
	}
	if *source != "" {
		cfg.Source.Type = SourceType(*source)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, &ConfigError{Source: *path, Err: err}
	}
	return cfg, nil
}

func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level: log.LevelInfo,
		},
		Reddit: RedditConfig{
			RequestsPerMinute: 59,
			MaxRetries:        3,
			Timeout:           10 * time.Second,
		},
		Source: SourceConfig{
			Type:     SourceTypeWiki,
			WikiPage: DefaultWikiPage,
			Path:     "./data/bots.yml",
		},
		Cache: CacheConfig{
			Type: CacheTypeSQLite,
			SQLite: SQLiteConfig{
				Path: "./data/cache.db",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Username: "postgres",
				Database: "modbot",
				SSLMode:  "disable",
			},
			MemorySize: 4096,
		},
		Otel: OtelConfig{
			InstanceID: "01",
			Metrics: MetricsConfig{
				ListenAddr: ":8081",
				Endpoint:   "/metrics",
			},
		},
		Run: RunOptions{
			Mode:     ModeQuick,
			UseCache: true,
		},
	}
}

type Config struct {
	Log    LogConfig    `koanf:"log"`
	Reddit RedditConfig `koanf:"reddit"`
	Source SourceConfig `koanf:"source"`
	Cache  CacheConfig  `koanf:"cache"`
	Output OutputConfig `koanf:"output"`
	Otel   OtelConfig   `koanf:"otel"`
	Run    RunOptions   `koanf:"-"`
}

func (c Config) String() string {
	return fmt.Sprintf("\nLog: %s\nReddit: %s\nSource: %s\nCache: %s\nOutput: %s\nOtel: %s\nRun: %s",
		c.Log,
		c.Reddit,
		c.Source,
		c.Cache,
		c.Output,
		c.Otel,
		c.Run,
	)
}

func (c Config) Validate() error {
	return errors.Join(
		c.Log.Validate(),
		c.Reddit.Validate(),
		c.Source.Validate(),
		c.Cache.Validate(),
		c.Output.Validate(),
		c.Otel.Validate(),
		c.Run.Validate(),
	)
}

type LogConfig struct {
	Level     log.Level `koanf:"level"`
	AddSource bool      `koanf:"add_source"`
}

func (c LogConfig) String() string {
	return fmt.Sprintf("\n  Level: %v\n  AddSource: %v",
		c.Level,
		c.AddSource,
	)
}

func (c LogConfig) Validate() error {
	if c.Level < log.LevelTrace || c.Level > log.LevelPanic {
		return fmt.Errorf("log.level must be one of: 0 (trace), 1 (debug), 2 (info), 3 (warn), 4 (error), 5 (fatal), 6 (panic)")
	}
	return nil
}

func (c LogConfig) Flags() int {
	flags := log.LstdFlags
	if c.AddSource {
		flags |= log.Lshortfile
	}
	return flags
}

type RedditConfig struct {
	ClientID          string        `koanf:"client_id"`
	ClientSecret      string        `koanf:"client_secret"`
	Username          string        `koanf:"username"`
	Password          string        `koanf:"password"`
	UserAgent         string        `koanf:"user_agent"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
	MaxRetries        int           `koanf:"max_retries"`
	Timeout           time.Duration `koanf:"timeout"`
}

func (c RedditConfig) String() string {
	return fmt.Sprintf("\n  ClientID: %s\n  ClientSecret: %s\n  Username: %s\n  Password: %s\n  UserAgent: %s\n  RequestsPerMinute: %d\n  MaxRetries: %d\n  Timeout: %s",
		c.ClientID,
		strings.Repeat("*", len(c.ClientSecret)),
		c.Username,
		strings.Repeat("*", len(c.Password)),
		c.UserAgent,
		c.RequestsPerMinute,
		c.MaxRetries,
		c.Timeout,
	)
}

func (c RedditConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("reddit.client_id must be set")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("reddit.client_secret must be set")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("reddit.user_agent must be set")
	}
	if c.Username != "" && c.Password == "" {
		return fmt.Errorf("reddit.password must be set when reddit.username is set")
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("reddit.requests_per_minute must be greater than 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("reddit.max_retries must not be negative")
	}
	return nil
}

func (c RedditConfig) ClientConfig() reddit.Config {
	return reddit.Config{
		ClientID:          c.ClientID,
		ClientSecret:      c.ClientSecret,
		Username:          c.Username,
		Password:          c.Password,
		UserAgent:         c.UserAgent,
		RequestsPerMinute: c.RequestsPerMinute,
		MaxRetries:        c.MaxRetries,
		Timeout:           c.Timeout,
	}
}

type SourceType string

const (
	SourceTypeWiki  SourceType = "wiki"
	SourceTypeLocal SourceType = "local"
)

type SourceConfig struct {
	Type          SourceType `koanf:"type"`
	WikiSubreddit string     `koanf:"wiki_subreddit"`
	WikiPage      string     `koanf:"wiki_page"`
	Path          string     `koanf:"path"`
}

func (c SourceConfig) String() string {
	return fmt.Sprintf("\n  Type: %s\n  WikiSubreddit: %s\n  WikiPage: %s\n  Path: %s",
		c.Type,
		c.WikiSubreddit,
		c.WikiPage,
		c.Path,
	)
}

func (c SourceConfig) Validate() error {
	switch c.Type {
	case SourceTypeWiki:
		if c.WikiSubreddit == "" {
			return fmt.Errorf("source.wiki_subreddit must be set")
		}
		if c.WikiPage == "" {
			return fmt.Errorf("source.wiki_page must be set")
		}
	case SourceTypeLocal:
		if c.Path == "" {
			return fmt.Errorf("source.path must be set")
		}
	default:
		return fmt.Errorf("unknown source type: %s", c.Type)
	}
	return nil
}

type CacheType string

const (
	CacheTypePostgres CacheType = "postgres"
	CacheTypeSQLite   CacheType = "sqlite"
)

type CacheConfig struct {
	Type       CacheType      `koanf:"type"`
	Postgres   PostgresConfig `koanf:"postgres"`
	SQLite     SQLiteConfig   `koanf:"sqlite"`
	MemorySize int            `koanf:"memory_size"`
}

func (c CacheConfig) String() string {
	return fmt.Sprintf("\n  Type: %v\n  Postgres: %v\n  SQLite: %v\n  MemorySize: %d",
		c.Type,
		c.Postgres,
		c.SQLite,
		c.MemorySize,
	)
}

func (c CacheConfig) Validate() error {
	if c.MemorySize <= 0 {
		return fmt.Errorf("cache.memory_size must be greater than 0")
	}
	switch c.Type {
	case CacheTypePostgres:
		return c.Postgres.Validate()
	case CacheTypeSQLite:
		return c.SQLite.Validate()
	default:
		return fmt.Errorf("unknown cache type: %s", c.Type)
	}
}

type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
	SSLMode  string `koanf:"ssl_mode"`
}

func (c PostgresConfig) String() string {
	return fmt.Sprintf("\n   Host: %v\n   Port: %v\n   Username: %v\n   Password: %v\n   Database: %v\n   SSLMode: %v",
		c.Host,
		c.Port,
		c.Username,
		strings.Repeat("*", len(c.Password)),
		c.Database,
		c.SSLMode,
	)
}

func (c PostgresConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("cache.postgres.host must be set")
	}
	if c.Port == 0 {
		return fmt.Errorf("cache.postgres.port must be set")
	}
	if c.Username == "" {
		return fmt.Errorf("cache.postgres.username must be set")
	}
	if c.Database == "" {
		return fmt.Errorf("cache.postgres.database must be set")
	}
	if c.SSLMode == "" {
		return fmt.Errorf("cache.postgres.ssl_mode must be set")
	}
	return nil
}

func (c PostgresConfig) DataSourceName() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.Username,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

func (c SQLiteConfig) String() string {
	return fmt.Sprintf("\n   Path: %v", c.Path)
}

func (c SQLiteConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("cache.sqlite.path must be set")
	}
	return nil
}

func (c SQLiteConfig) DataSourceName() string {
	return c.Path
}

type OutputConfig struct {
	JSONPath     string        `koanf:"json_path"`
	MarkdownPath string        `koanf:"markdown_path"`
	Discord      DiscordConfig `koanf:"discord"`
}

func (c OutputConfig) String() string {
	return fmt.Sprintf("\n  JSONPath: %s\n  MarkdownPath: %s\n  Discord: %s",
		c.JSONPath,
		c.MarkdownPath,
		c.Discord,
	)
}

func (c OutputConfig) Validate() error {
	return c.Discord.Validate()
}

type DiscordConfig struct {
	Enabled      bool   `koanf:"enabled"`
	WebhookID    string `koanf:"webhook_id"`
	WebhookToken string `koanf:"webhook_token"`
}

func (c DiscordConfig) String() string {
	return fmt.Sprintf("\n   Enabled: %t\n   WebhookID: %s\n   WebhookToken: %s",
		c.Enabled,
		c.WebhookID,
		strings.Repeat("*", len(c.WebhookToken)),
	)
}

func (c DiscordConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.WebhookID == "" {
		return fmt.Errorf("output.discord.webhook_id must be set")
	}
	if c.WebhookToken == "" {
		return fmt.Errorf("output.discord.webhook_token must be set")
	}
	return nil
}

type OtelConfig struct {
	Enabled    bool          `koanf:"enabled"`
	InstanceID string        `koanf:"instance_id"`
	Metrics    MetricsConfig `koanf:"metrics"`
}

func (c OtelConfig) String() string {
	return fmt.Sprintf("\n  Enabled: %t\n  InstanceID: %s\n  Metrics: %s",
		c.Enabled,
		c.InstanceID,
		c.Metrics,
	)
}

func (c OtelConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.InstanceID == "" {
		return fmt.Errorf("otel.instance_id must be set")
	}
	return c.Metrics.Validate()
}

type MetricsConfig struct {
	ListenAddr string `koanf:"listen_addr"`
	Endpoint   string `koanf:"endpoint"`
}

func (c MetricsConfig) String() string {
	return fmt.Sprintf("\n   ListenAddr: %v\n   Endpoint: %v",
		c.ListenAddr,
		c.Endpoint,
	)
}

func (c MetricsConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("otel.metrics.listen_addr must be set")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("otel.metrics.endpoint must be set")
	}
	return nil
}

type Mode string

const (
	// ModeQuick only counts moderated subreddits.
	ModeQuick Mode = "quick"
	// ModeFull also fetches subscriber counts and moderator lists.
	ModeFull Mode = "full"
)

type RunOptions struct {
	Mode     Mode
	UseCache bool
}

func (o RunOptions) String() string {
	return fmt.Sprintf("\n  Mode: %s\n  UseCache: %t", o.Mode, o.UseCache)
}

func (o RunOptions) Validate() error {
	if o.Mode != ModeQuick && o.Mode != ModeFull {
		return fmt.Errorf("mode must be one of: %s, %s", ModeQuick, ModeFull)
	}
	return nil
}
