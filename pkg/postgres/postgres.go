// Package postgres provides the administrative database connection used for
// catalog queries and target-database lifecycle (terminate, drop, create).
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pkg/errors"

	"github.com/supporttools/GoPGVault/pkg/identifier"
	"github.com/supporttools/GoPGVault/pkg/registry"
)

// Admin abstracts the administrative operations so orchestrators can be
// tested without a live server.
type Admin interface {
	ListDatabases(ctx context.Context) ([]string, error)
	DatabaseExists(ctx context.Context, name string) (bool, error)
	TerminateConnections(ctx context.Context, name string) error
	DropDatabase(ctx context.Context, name string) error
	CreateDatabase(ctx context.Context, name string) error
	Close() error
}

// Client implements Admin over database/sql. It always connects to the
// 'postgres' maintenance database: you cannot drop a database you are
// connected to.
type Client struct {
	db *sql.DB
}

// Open establishes an administrative connection for the given profile. The
// profile type is matched exhaustively; lifecycle operations only exist for
// the postgres engine.
func Open(ctx context.Context, profile registry.Profile) (*Client, error) {
	switch profile.Type {
	case registry.TypePostgres:
		// Fall through to the connection below.
	case registry.TypeSQLite:
		return nil, errors.Errorf("connection type %q does not support server administration", profile.Type)
	default:
		return nil, errors.Errorf("unknown connection type %q", profile.Type)
	}

	sslMode := "disable"
	if profile.SSLEnabled {
		sslMode = "require"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=postgres sslmode=%s",
		profile.Host, profile.Port, profile.User, profile.Password, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open PostgreSQL connection")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping PostgreSQL server")
	}

	return &Client{db: db}, nil
}

// NewClientFromDB wraps an existing handle; used by tests.
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close releases the administrative connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// ListDatabases returns all user databases on the server.
func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	query := `
		SELECT datname FROM pg_database
		WHERE datistemplate = false
		AND datname NOT IN ('postgres', 'template0', 'template1')
		ORDER BY datname
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list databases")
	}
	defer rows.Close()

	var databases []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan database name")
		}
		databases = append(databases, name)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating database rows")
	}

	return databases, nil
}

// DatabaseExists reports whether the named database exists on the server.
func (c *Client) DatabaseExists(ctx context.Context, name string) (bool, error) {
	if err := identifier.Validate(name); err != nil {
		return false, err
	}

	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)"
	if err := c.db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "failed to check database %s", name)
	}

	return exists, nil
}

// TerminateConnections kills every other backend connected to the named
// database so it can be dropped. The caller's own backend is excluded.
func (c *Client) TerminateConnections(ctx context.Context, name string) error {
	if err := identifier.Validate(name); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = '%s' AND pid <> pg_backend_pid()
	`, identifier.EscapeLiteral(name))

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return errors.Wrapf(err, "failed to terminate connections to %s", name)
	}

	return nil
}

// DropDatabase drops the named database if it exists.
func (c *Client) DropDatabase(ctx context.Context, name string) error {
	if err := identifier.Validate(name); err != nil {
		return err
	}

	query := fmt.Sprintf("DROP DATABASE IF EXISTS %s", identifier.QuoteIdentifier(name))
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return errors.Wrapf(err, "failed to drop database %s", name)
	}

	return nil
}

// CreateDatabase creates the named database. Name collisions are reported by
// the server, not pre-checked.
func (c *Client) CreateDatabase(ctx context.Context, name string) error {
	if err := identifier.Validate(name); err != nil {
		return err
	}

	query := fmt.Sprintf("CREATE DATABASE %s", identifier.QuoteIdentifier(name))
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return errors.Wrapf(err, "failed to create database %s", name)
	}

	return nil
}
