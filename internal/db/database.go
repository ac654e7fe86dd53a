// Package db provides database connectivity and persistence of assessment
// result documents. It wraps sqlx over lib/pq, applies embedded migrations
// and sanitizes driver errors before they reach logs.
package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/logging"
)

const (
	// Default database configuration values.
	defaultPostgresPort    = 5432
	defaultMaxOpenConns    = 5
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = stderrors.New("record not found")

// sanitizeDBError converts raw database errors into errors that don't expose
// SQL details or credentials. The original error is kept as the cause.
func sanitizeDBError(operation string, err error) error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return errors.WrapDatabaseError(errors.CodeDatabaseQuery, "Resource already exists", operation, err)
		case "08000", "08003", "08006": // connection errors
			return errors.WrapDatabaseError(errors.CodeDatabaseConnection, "Database connection error", operation, err)
		}
	}

	return errors.WrapDatabaseError(errors.CodeDatabaseQuery,
		fmt.Sprintf("Database operation failed: %s", operation), operation, err)
}

// DB wraps sqlx.DB with additional functionality.
type DB struct {
	*sqlx.DB
}

// Config holds database configuration.
type Config struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Database        string        `yaml:"database" json:"database"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"-"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// DefaultConfig returns the default database configuration.
// Database name, username, and password must be explicitly configured.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            defaultPostgresPort,
		SSLMode:         "disable",
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime * time.Minute,
	}
}

// DSN builds the lib/pq key=value connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode,
	)
}

// Connect establishes a connection to PostgreSQL and applies pending migrations.
// Returns sanitized errors that don't leak credentials or DSN details.
func Connect(ctx context.Context, config *Config) (*DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", config.DSN())
	if err != nil {
		return nil, errors.WrapDatabaseError(errors.CodeDatabaseConnection,
			"Failed to connect to database", "connect", err)
	}

	conn.SetMaxOpenConns(config.MaxOpenConns)
	conn.SetMaxIdleConns(config.MaxIdleConns)
	conn.SetConnMaxLifetime(config.ConnMaxLifetime)

	database := &DB{DB: conn}
	if err := NewMigrator(conn).Up(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.WrapDatabaseError(errors.CodeDatabaseQuery, "Failed to migrate database", "migrate", err)
	}

	logging.Default().WithComponent("database").Info("Connected to database",
		"host", config.Host, "port", config.Port, "database", config.Database)
	return database, nil
}

// ResultRepository stores assessment result documents.
type ResultRepository struct {
	db *DB
}

// NewResultRepository creates a new result repository.
func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Create inserts a result. A zero ID is replaced with a new UUID.
func (r *ResultRepository) Create(ctx context.Context, result *AssessmentResult) error {
	query := `
		INSERT INTO assessment_results (
			id, task_id, report_id, target, total_vulnerabilities,
			severity_distribution, document, created_at
		)
		VALUES (
			:id, :task_id, :report_id, :target, :total_vulnerabilities,
			:severity_distribution, :document, :created_at
		)`

	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return sanitizeDBError("create assessment result", err)
	}
	return nil
}

// GetByID returns a single result.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*AssessmentResult, error) {
	query := `
		SELECT id, task_id, report_id, target, total_vulnerabilities,
		       severity_distribution, document, created_at
		FROM assessment_results
		WHERE id = $1`

	var result AssessmentResult
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, sanitizeDBError("get assessment result", err)
	}
	return &result, nil
}

// ListRecent returns the newest results first.
func (r *ResultRepository) ListRecent(ctx context.Context, limit int) ([]*AssessmentResult, error) {
	query := `
		SELECT id, task_id, report_id, target, total_vulnerabilities,
		       severity_distribution, document, created_at
		FROM assessment_results
		ORDER BY created_at DESC
		LIMIT $1`

	var results []*AssessmentResult
	if err := r.db.SelectContext(ctx, &results, query, limit); err != nil {
		return nil, sanitizeDBError("list assessment results", err)
	}
	return results, nil
}
