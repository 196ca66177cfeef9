package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supporttools/GoPGVault/pkg/identifier"
	"github.com/supporttools/GoPGVault/pkg/registry"
)

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewClientFromDB(db), mock
}

// TestOpenRejectsNonPostgresProfiles tests exhaustive type-tag handling
func TestOpenRejectsNonPostgresProfiles(t *testing.T) {
	_, err := Open(context.Background(), registry.Profile{Type: registry.TypeSQLite, FilePath: "/tmp/x.db"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support server administration")

	_, err = Open(context.Background(), registry.Profile{Type: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown connection type")
}

// TestListDatabases tests the catalog query
func TestListDatabases(t *testing.T) {
	client, mock := newMockClient(t)

	rows := sqlmock.NewRows([]string{"datname"}).AddRow("sales").AddRow("inventory")
	mock.ExpectQuery("SELECT datname FROM pg_database").WillReturnRows(rows)

	databases, err := client.ListDatabases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"sales", "inventory"}, databases)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestDatabaseExists tests the parameterized existence check
func TestDatabaseExists(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM pg_database WHERE datname = \$1\)`).
		WithArgs("sales").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := client.DatabaseExists(context.Background(), "sales")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestLifecycleSQL tests terminate, drop and create statement shapes
func TestLifecycleSQL(t *testing.T) {
	client, mock := newMockClient(t)
	ctx := context.Background()

	mock.ExpectExec(`pg_terminate_backend\(pid\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DROP DATABASE IF EXISTS "sales"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE DATABASE "sales"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, client.TerminateConnections(ctx, "sales"))
	require.NoError(t, client.DropDatabase(ctx, "sales"))
	require.NoError(t, client.CreateDatabase(ctx, "sales"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestLifecycleRejectsInvalidNames tests that bad names never reach SQL
func TestLifecycleRejectsInvalidNames(t *testing.T) {
	client, mock := newMockClient(t)
	ctx := context.Background()

	assert.ErrorIs(t, client.TerminateConnections(ctx, "bad;name"), identifier.ErrInvalidIdentifier)
	assert.ErrorIs(t, client.DropDatabase(ctx, "1drop"), identifier.ErrInvalidIdentifier)
	assert.ErrorIs(t, client.CreateDatabase(ctx, "x y"), identifier.ErrInvalidIdentifier)

	_, err := client.DatabaseExists(ctx, "no--good!")
	assert.ErrorIs(t, err, identifier.ErrInvalidIdentifier)

	// No SQL may have been issued.
	assert.NoError(t, mock.ExpectationsWereMet())
}
