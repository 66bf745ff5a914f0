package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/boxoffice-backend/pkg/migrate"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := migrate.Validate(migrate.Migrations()); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestTicketsMigrationGuardsCounters(t *testing.T) {
	content := readMigration(t, "*_create_tickets.sql")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS tickets",
		"CHECK (sales >= 0)",
		"CHECK (stock IS NULL OR stock >= 0)",
		"last_applied_delta integer NOT NULL DEFAULT 0",
		"DROP TABLE IF EXISTS tickets",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"CREATE TABLE IF NOT EXISTS order_status_history",
		"ux_orders_gateway_order ON orders (gateway_key, gateway_order_id)",
		"status IN ('created', 'pending', 'completed', 'failed', 'refunded')",
		"REFERENCES orders(id) ON DELETE CASCADE",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	path, err := migrate.CreateSQLMigration(dir, "Add Seat Maps!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260302093000_add_seat_maps.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("generated migration must validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add seat maps", now); err == nil {
		t.Fatal("expected existing file to be refused")
	}
}

func TestValidateRejectsMissingDown(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\nCREATE TABLE x (id int);\n"
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_x.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.Validate(os.DirFS(dir)); err == nil {
		t.Fatal("expected missing down section to fail")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	fsys := migrate.Migrations()
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := fs.ReadFile(fsys, matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
