package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"presence-sync/core/config"
	"presence-sync/core/constants"
	"presence-sync/core/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type IDatabase interface {
	ExecContext(ctx context.Context, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	SQLx() *sqlx.DB
}

type Database struct {
	db   *sql.DB
	sqlx *sqlx.DB
}

func InitDB(cfg config.DatabaseConfig) (*Database, error) {
	logger.Info("Database:Init", "host", cfg.Host, "port", cfg.Port, "database", cfg.DBName)

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	sqlxDB, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		logger.Error("Database:Init:ConnectError", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB := sqlxDB.DB
	sqlDB.SetMaxOpenConns(constants.DatabaseMaxOpenConns)
	sqlDB.SetMaxIdleConns(constants.DatabaseMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(constants.DatabaseConnMaxLifetime) * time.Minute)

	if err = sqlDB.Ping(); err != nil {
		logger.Error("Database:Init:PingError", "error", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &Database{db: sqlDB, sqlx: sqlxDB}

	if err := db.bootstrap(context.Background()); err != nil {
		logger.Error("Database:Init:BootstrapError", "error", err)
		return nil, err
	}

	logger.Info("Database:Init:Success")
	return db, nil
}

// bootstrap creates the tables this service owns. The synced-event ledger is
// keyed exactly as the reconciliation engine expects: one row per
// (user_id, event_id).
func (d *Database) bootstrap(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS linked_accounts (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			link_code TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS calendar_accounts (
			provider TEXT NOT NULL,
			provider_account_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			access_token TEXT,
			refresh_token TEXT,
			token_expires_at TIMESTAMPTZ,
			email TEXT,
			PRIMARY KEY (provider, provider_account_id)
		)`,
		`CREATE TABLE IF NOT EXISTS afk_calendars (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			calendar_id TEXT NOT NULL UNIQUE,
			calendars TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS synced_events (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			event_id TEXT NOT NULL,
			task_id TEXT,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			last_modified TIMESTAMPTZ,
			afk_active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, event_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_synced_events_user ON synced_events (user_id)`,
	}

	for _, stmt := range statements {
		if _, err := d.sqlx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap failed: %w", err)
		}
	}
	return nil
}

func (d *Database) ExecContext(ctx context.Context, query string, args ...any) error {
	_, err := d.sqlx.ExecContext(ctx, query, args...)
	return err
}

func (d *Database) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return d.sqlx.GetContext(ctx, dest, query, args...)
}

func (d *Database) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return d.sqlx.SelectContext(ctx, dest, query, args...)
}

func (d *Database) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, query, args...)
}

func (d *Database) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, query, args...)
}

func (d *Database) SQLx() *sqlx.DB {
	return d.sqlx
}

func (d *Database) Close() error {
	return d.sqlx.Close()
}
