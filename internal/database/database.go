// Package database provides the PostgreSQL-backed document store the bot
// keeps its per-server and per-user state in. Documents are schemaless JSONB
// blobs addressed by collection name and integer ID, and are modified through
// field-path patches so handlers never overwrite each other's fields.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/attendantbot/attendant/internal/setup/config"
	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bunjson"
	"go.uber.org/zap"
)

// sonicProvider is a JSON provider that uses Sonic for encoding and decoding.
type sonicProvider struct{}

func (sonicProvider) Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func (sonicProvider) Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

func (sonicProvider) NewEncoder(w io.Writer) bunjson.Encoder {
	return sonic.ConfigDefault.NewEncoder(w)
}

func (sonicProvider) NewDecoder(r io.Reader) bunjson.Decoder {
	return sonic.ConfigDefault.NewDecoder(r)
}

// Client owns the database connection and the document store built on it.
type Client struct {
	db     *bun.DB
	store  *Store
	logger *zap.Logger
}

// NewConnection establishes the database connection, verifies it with a
// bounded retry and ensures the documents table exists.
func NewConnection(ctx context.Context, cfg *config.PostgreSQL, logger *zap.Logger) (*Client, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithAddr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.DBName),
		pgdriver.WithInsecure(true),
		pgdriver.WithApplicationName("attendant"),
	))

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Minute)

	// Set Sonic as the JSON provider
	bunjson.SetProvider(sonicProvider{})

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(NewHook(logger))

	// The database may still be starting alongside the bot.
	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(500*time.Millisecond),
		backoff.WithMaxInterval(5*time.Second),
		backoff.WithMaxElapsedTime(30*time.Second),
	), ctx)

	if err := backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, policy); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*docRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}

	logger.Info("Database connection established")

	return &Client{
		db:     db,
		store:  NewStore(db, logger),
		logger: logger,
	}, nil
}

// Store returns the document store.
func (c *Client) Store() *Store { return c.store }

// DB returns the underlying bun instance.
func (c *Client) DB() *bun.DB { return c.db }

// Close shuts down the database connection.
func (c *Client) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	c.logger.Info("Database connection closed")
	return nil
}
