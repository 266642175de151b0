package modbot

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/json"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// NewCache opens the cache database and applies the schema.
// Entries are never evicted from the database; the memory tier only bounds what is held in process.
func NewCache(cfg CacheConfig, metrics *Metrics) (*Cache, error) {
	var (
		driverName     string
		dataSourceName string
	)
	switch cfg.Type {
	case CacheTypePostgres:
		driverName = "pgx"
		dataSourceName = cfg.Postgres.DataSourceName()
	case CacheTypeSQLite:
		driverName = "sqlite"
		dataSourceName = cfg.SQLite.DataSourceName()
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}

	dbx, err := sqlx.Connect(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}

	// apply schema
	if _, err = dbx.Exec(schema); err != nil {
		_ = dbx.Close()
		return nil, err
	}

	var lookups metric.Int64Counter
	if metrics != nil {
		lookups = metrics.CacheLookups
	}

	accounts, err := newNamespace[AccountRecord](dbx, "accounts", cfg.MemorySize, lookups)
	if err != nil {
		return nil, err
	}
	subreddits, err := newNamespace[SubredditRecord](dbx, "subreddits", cfg.MemorySize, lookups)
	if err != nil {
		return nil, err
	}
	bots, err := newNamespace[Summary](dbx, "bots", cfg.MemorySize, lookups)
	if err != nil {
		return nil, err
	}

	return &Cache{
		dbx:        dbx,
		Accounts:   accounts,
		Subreddits: subreddits,
		Bots:       bots,
	}, nil
}

// Cache keeps what earlier runs fetched: moderated subreddits per account,
// stats per subreddit and the last summary per bot entry.
type Cache struct {
	dbx *sqlx.DB

	Accounts   *Namespace[AccountRecord]
	Subreddits *Namespace[SubredditRecord]
	Bots       *Namespace[Summary]
}

func (c *Cache) Close() error {
	return c.dbx.Close()
}

func newNamespace[R any](dbx *sqlx.DB, table string, size int, lookups metric.Int64Counter) (*Namespace[R], error) {
	memory, err := lru.New[string, R](size)
	if err != nil {
		return nil, err
	}
	return &Namespace[R]{
		dbx:     dbx,
		table:   table,
		memory:  memory,
		lookups: lookups,
	}, nil
}

// Namespace is one key space of the cache. Keys are case-insensitive.
type Namespace[R any] struct {
	dbx     *sqlx.DB
	table   string
	memory  *lru.Cache[string, R]
	lookups metric.Int64Counter
}

// Get looks in memory first and falls back to the database.
func (n *Namespace[R]) Get(ctx context.Context, key string) (R, bool, error) {
	key = strings.ToLower(key)
	if record, ok := n.memory.Get(key); ok {
		n.record(ctx, "memory", true)
		return record, true, nil
	}

	var (
		record R
		data   string
	)
	if err := n.dbx.GetContext(ctx, &data, fmt.Sprintf(`SELECT data FROM %s WHERE name = $1`, n.table), key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			n.record(ctx, "database", false)
			return record, false, nil
		}
		return record, false, err
	}
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return record, false, fmt.Errorf("error decoding cached %s %q: %w", n.table, key, err)
	}

	n.record(ctx, "database", true)
	n.memory.Add(key, record)
	return record, true, nil
}

// Peek only looks at what this process has already put or read.
func (n *Namespace[R]) Peek(key string) (R, bool) {
	return n.memory.Peek(strings.ToLower(key))
}

func (n *Namespace[R]) Put(ctx context.Context, key string, record R) error {
	key = strings.ToLower(key)
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if _, err = n.dbx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (name, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`, n.table),
		key, string(data), time.Now().Unix(),
	); err != nil {
		return err
	}

	n.memory.Add(key, record)
	return nil
}

func (n *Namespace[R]) record(ctx context.Context, tier string, hit bool) {
	if n.lookups == nil {
		return
	}
	n.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("namespace", n.table),
		attribute.String("tier", tier),
		attribute.Bool("hit", hit),
	))
}
