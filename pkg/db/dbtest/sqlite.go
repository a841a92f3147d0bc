// Package dbtest opens throwaway sqlite databases carrying the deal schema.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS dealers (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  business_name TEXT NOT NULL,
  contact_name TEXT,
  phone TEXT,
  city TEXT,
  rating REAL NOT NULL DEFAULT 0,
  ratings_count INTEGER NOT NULL DEFAULT 0,
  completed_deals INTEGER NOT NULL DEFAULT 0,
  bank_account_name TEXT,
  bank_account_number TEXT,
  bank_ifsc TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS vehicles (
  id TEXT PRIMARY KEY,
  dealer_id TEXT NOT NULL,
  make TEXT NOT NULL,
  model TEXT NOT NULL,
  variant TEXT,
  year INTEGER NOT NULL,
  registration_number TEXT,
  mileage_km INTEGER NOT NULL DEFAULT 0,
  fuel_type TEXT,
  city TEXT,
  price INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'live',
  sold_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS transactions (
  id TEXT PRIMARY KEY,
  vehicle_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  buyer_id TEXT,
  status TEXT NOT NULL DEFAULT 'offer_made',
  offer_amount INTEGER NOT NULL,
  final_amount INTEGER,
  escrow_status TEXT NOT NULL DEFAULT 'unset',
  transport_status TEXT NOT NULL DEFAULT 'unset',
  payment_reference TEXT,
  payment_confirmed_at DATETIME,
  funds_released_at DATETIME,
  delivered_at DATETIME,
  messages TEXT NOT NULL DEFAULT '[]',
  seller_rating TEXT,
  buyer_rating TEXT,
  deal_archived INTEGER NOT NULL DEFAULT 0,
  archived_at DATETIME,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS transactions_open_vehicle_key
  ON transactions (vehicle_id)
  WHERE status IN ('offer_made', 'negotiating', 'accepted', 'in_escrow');`,
	`CREATE TABLE IF NOT EXISTS rto_applications (
  id TEXT PRIMARY KEY,
  transaction_id TEXT NOT NULL UNIQUE,
  vehicle_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'not_started',
  notes TEXT,
  submitted_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  recipient_email TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  transaction_id TEXT,
  read_at DATETIME,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns an isolated in-memory database with every deal table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
