package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsValidate(t *testing.T) {
	require.NoError(t, ValidateDir(EmbeddedDir))
	require.NoError(t, ValidateEmbedded())

	entries, err := fs.ReadDir(embedded, EmbeddedDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestTransactionsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_transactions.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS transactions",
		"FOREIGN KEY (vehicle_id) REFERENCES vehicles(id)",
		"version bigint NOT NULL DEFAULT 1",
		"CHECK (offer_amount > 0)",
		"CHECK (NOT deal_archived OR (status = 'completed' AND transport_status = 'delivered'))",
		"transactions_open_vehicle_key",
		"DROP TABLE IF EXISTS transactions",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEnumMigrationMatchesOutboxTypes(t *testing.T) {
	content := readMigration(t, "*_create_enums.sql")
	for _, sub := range []string{
		"'deal_offer_created'",
		"'deal_state_changed'",
		"'deal_rated'",
		"'vehicle_status_reconciled'",
		"'in_transaction'",
		"'documents_pending'",
	} {
		require.Contains(t, content, sub)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Dealer Badges!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_dealer_badges.sql"))
	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationRefusesExistingVersion(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err := createSQLMigration(dir, "add_vehicle_photos", now)
	require.NoError(t, err)
	_, err = createSQLMigration(dir, "add_vehicle_photos", now)
	require.Error(t, err)
}

func TestValidateFSRejectsReversedSections(t *testing.T) {
	fsys := fstest.MapFS{
		"20260301090000_bad_order.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")},
	}
	require.ErrorContains(t, ValidateFS(fsys, "."), "Down before Up")
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(EmbeddedDir, pattern))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no migration matching %s", pattern)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}
