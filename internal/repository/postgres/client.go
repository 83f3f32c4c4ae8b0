package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/config"
)

// Client wraps the shared database handle.
type Client struct {
	db  *sql.DB
	log *zap.Logger
}

// NewClient opens the connection pool and verifies it with a ping.
func NewClient(ctx context.Context, cfg config.Postgres, log *zap.Logger) (*Client, error) {
	log.Info("Connecting to Postgres",
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port),
		zap.String("database", cfg.Database))

	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	log.Info("Postgres connection established")

	return &Client{db: db, log: log}, nil
}

// DB returns the underlying handle.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Ping checks connection liveness.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// Close closes the pool.
func (c *Client) Close() error {
	c.log.Info("Closing Postgres connection")
	return c.db.Close()
}
