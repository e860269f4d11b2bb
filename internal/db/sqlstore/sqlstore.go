// Package sqlstore implements the repositories on a relational database.
// MySQL is the production target; SQLite backs local runs and tests.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/db"
)

// dialect captures the few statements that differ between MySQL and SQLite.
type dialect struct {
	driver       string
	insertIgnore string
	schema       []string
}

var mysqlDialect = dialect{
	driver:       "mysql",
	insertIgnore: "INSERT IGNORE INTO",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(128) PRIMARY KEY,
			email VARCHAR(320) NOT NULL,
			display_name VARCHAR(255) NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS credits (
			user_id VARCHAR(128) PRIMARY KEY,
			credits BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			CONSTRAINT credits_non_negative CHECK (credits >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id VARCHAR(36) PRIMARY KEY,
			created_by VARCHAR(128) NOT NULL,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			phone VARCHAR(32) NOT NULL,
			email VARCHAR(320) NULL,
			address VARCHAR(500) NULL,
			postal_code VARCHAR(20) NULL,
			latitude DOUBLE NULL,
			longitude DOUBLE NULL,
			note TEXT NULL,
			document_url TEXT NULL,
			document_path TEXT NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_contacts_owner_name (created_by, first_name)
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(128) NOT NULL,
			email VARCHAR(320) NULL,
			credits BIGINT NOT NULL,
			amount_minor BIGINT NOT NULL,
			currency VARCHAR(3) NOT NULL,
			client_secret VARCHAR(255) NULL,
			status VARCHAR(16) NOT NULL,
			failure_reason VARCHAR(255) NULL,
			credited BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_payments_user_status (user_id, status)
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(128) NOT NULL,
			action VARCHAR(64) NOT NULL,
			target_type VARCHAR(32) NULL,
			target_id VARCHAR(255) NULL,
			details TEXT NULL,
			occurred_at DATETIME(6) NOT NULL
		)`,
	},
}

var sqliteDialect = dialect{
	driver:       "sqlite3",
	insertIgnore: "INSERT OR IGNORE INTO",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			display_name TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS credits (
			user_id TEXT PRIMARY KEY,
			credits INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id TEXT PRIMARY KEY,
			created_by TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			phone TEXT NOT NULL,
			email TEXT,
			address TEXT,
			postal_code TEXT,
			latitude REAL,
			longitude REAL,
			note TEXT,
			document_url TEXT,
			document_path TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_owner_name ON contacts (created_by, first_name)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			email TEXT,
			credits INTEGER NOT NULL,
			amount_minor INTEGER NOT NULL,
			currency TEXT NOT NULL,
			client_secret TEXT,
			status TEXT NOT NULL,
			failure_reason TEXT,
			credited BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_user_status ON payments (user_id, status)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			target_type TEXT,
			target_id TEXT,
			details TEXT,
			occurred_at DATETIME NOT NULL
		)`,
	},
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLStore holds the connection pool shared by the SQL repositories.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

// Open connects to driver ("mysql" or "sqlite"), applies the schema and
// returns the store.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*SQLStore, error) {
	var d dialect
	switch driver {
	case "mysql":
		d = mysqlDialect
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql DSN: %w", err)
		}
		// Timestamps scan into time.Time and UPDATE reports matched rows,
		// which the conditional credit updates rely on.
		cfg.ParseTime = true
		cfg.ClientFoundRows = true
		cfg.Loc = time.UTC
		dsn = cfg.FormatDSN()
	case "sqlite":
		d = sqliteDialect
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	conn, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, err
	}
	if d.driver == "sqlite3" {
		// SQLite allows a single writer; one connection also keeps an
		// in-memory database alive across calls.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(25)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	s := &SQLStore{db: conn, dialect: d, logger: logger}
	if err := s.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info("SQL store ready", zap.String("driver", driver))
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Store exposes the SQL repositories through the db.Store bundle.
func (s *SQLStore) Store() *db.Store {
	return &db.Store{
		Users:    &userRepository{s},
		Credits:  &creditRepository{s},
		Contacts: &contactRepository{s},
		Payments: &paymentRepository{s},
		Audit:    &auditRepository{s},
		Close:    s.db.Close,
	}
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("Transaction rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
