// Package dbtest opens isolated in-memory SQLite databases carrying the
// box office schema, for repository and service tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE tickets (
		id                 TEXT PRIMARY KEY NOT NULL,
		event_id           TEXT NOT NULL,
		name               TEXT NOT NULL,
		description        TEXT,
		price              TEXT NOT NULL,
		capacity           INTEGER,
		stock              INTEGER,
		sales              INTEGER NOT NULL DEFAULT 0,
		last_applied_delta INTEGER NOT NULL DEFAULT 0,
		created_at         DATETIME,
		updated_at         DATETIME,
		CHECK (sales >= 0),
		CHECK (stock IS NULL OR stock >= 0)
	)`,
	`CREATE TABLE order_modifiers (
		id           TEXT PRIMARY KEY NOT NULL,
		kind         TEXT NOT NULL,
		sub_type     TEXT NOT NULL,
		raw_amount   TEXT NOT NULL,
		display_name TEXT NOT NULL,
		code         TEXT UNIQUE,
		priority     INTEGER NOT NULL DEFAULT 0,
		fee_scope    TEXT,
		coupon_base  TEXT,
		event_id     TEXT,
		active       BOOLEAN NOT NULL DEFAULT 1,
		starts_at    DATETIME,
		ends_at      DATETIME,
		created_at   DATETIME,
		updated_at   DATETIME
	)`,
	`CREATE TABLE orders (
		id                   TEXT PRIMARY KEY NOT NULL,
		gateway_key          TEXT NOT NULL,
		gateway_order_id     TEXT,
		status               TEXT NOT NULL DEFAULT 'created',
		currency             TEXT NOT NULL DEFAULT 'USD',
		subtotal             TEXT NOT NULL,
		fees_total           TEXT NOT NULL,
		discount_total       TEXT NOT NULL,
		total                TEXT NOT NULL,
		purchaser_name       TEXT NOT NULL,
		purchaser_email      TEXT NOT NULL,
		purchaser_account_id TEXT,
		cart_session_id      TEXT,
		created_at           DATETIME,
		updated_at           DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_orders_gateway_order ON orders (gateway_key, gateway_order_id)`,
	`CREATE TABLE order_items (
		id          TEXT PRIMARY KEY NOT NULL,
		order_id    TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		item_type   TEXT NOT NULL,
		ticket_id   TEXT,
		modifier_id TEXT,
		name        TEXT NOT NULL,
		quantity    INTEGER NOT NULL DEFAULT 0,
		unit_price  TEXT NOT NULL,
		amount      TEXT NOT NULL,
		created_at  DATETIME
	)`,
	`CREATE TABLE order_status_history (
		id          TEXT PRIMARY KEY NOT NULL,
		order_id    TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		from_status TEXT,
		to_status   TEXT NOT NULL,
		actor       TEXT NOT NULL,
		reason      TEXT,
		created_at  DATETIME
	)`,
	`CREATE TABLE webhook_configs (
		id          TEXT PRIMARY KEY NOT NULL,
		gateway_key TEXT NOT NULL UNIQUE,
		remote_id   TEXT NOT NULL,
		url         TEXT NOT NULL,
		event_types TEXT,
		created_at  DATETIME,
		updated_at  DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id             TEXT PRIMARY KEY NOT NULL,
		event_type     TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		payload        TEXT NOT NULL,
		created_at     DATETIME,
		published_at   DATETIME,
		attempt_count  INTEGER NOT NULL DEFAULT 0,
		last_error     TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id             TEXT PRIMARY KEY NOT NULL,
		event_id       TEXT NOT NULL,
		event_type     TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		payload_json   TEXT NOT NULL,
		error_reason   TEXT NOT NULL,
		error_message  TEXT,
		attempt_count  INTEGER NOT NULL DEFAULT 0,
		failed_at      DATETIME,
		created_at     DATETIME
	)`,
}

// Open returns a fresh database with every table created. The pool is
// pinned to one connection so concurrent callers queue instead of tripping
// SQLite's shared-cache table locks.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:boxoffice_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}
