package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestInitSchemaCoversCoreTables(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	var combined strings.Builder
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := os.ReadFile(filepath.Join("migrations", e.Name()))
		require.NoError(t, err)
		combined.Write(b)
	}

	sql := combined.String()
	for _, table := range []string{
		"terminal_sessions",
		"orders",
		"order_items",
		"order_item_options",
		"terminal_alerts",
		"outbox_events",
		"outbox_dlq",
	} {
		assert.Contains(t, sql, "CREATE TABLE "+table, "missing table %s", table)
	}

	// The single-active-session and one-alert-per-order invariants live in the schema.
	assert.Contains(t, sql, "ux_terminal_sessions_active_device")
	assert.Contains(t, sql, "terminal_alerts_session_order_key")
	assert.Contains(t, sql, "ux_orders_payment_ref")
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Alert Index!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_alert_index.sql"))
	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationRejectsEmpty(t *testing.T) {
	_, err := CreateSQLMigration("", "name")
	assert.Error(t, err)
	_, err = CreateSQLMigration(t.TempDir(), "!!!")
	assert.Error(t, err)
}
