package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createDealTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE deals (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		initiated_by TEXT NOT NULL,
		property_address TEXT NOT NULL,
		amount TEXT NOT NULL,
		buyer_wallet TEXT NOT NULL,
		seller_wallet TEXT NOT NULL,
		buyer_network TEXT NOT NULL,
		seller_network TEXT NOT NULL,
		is_cross_chain BOOLEAN NOT NULL,
		smart_contract_address TEXT,
		status TEXT NOT NULL,
		funds_deposited_by_buyer BOOLEAN NOT NULL DEFAULT 0,
		funds_released_to_seller BOOLEAN NOT NULL DEFAULT 0,
		final_approval_deadline DATETIME,
		dispute_resolution_deadline DATETIME,
		cross_chain_transaction_id TEXT,
		processing_error TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE deal_conditions (
		id TEXT PRIMARY KEY,
		deal_id TEXT NOT NULL,
		condition_id TEXT NOT NULL,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		auto_fulfilled_by TEXT,
		cross_chain_tx_hash TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE(deal_id, condition_id)
	);`)
	mustExec(t, db, `CREATE TABLE deal_timeline_events (
		id TEXT PRIMARY KEY,
		deal_id TEXT NOT NULL,
		event TEXT NOT NULL,
		actor_id TEXT,
		system_triggered BOOLEAN NOT NULL DEFAULT 0,
		tx_hash TEXT,
		created_at DATETIME
	);`)
}

func createCrossChainTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE cross_chain_transactions (
		id TEXT PRIMARY KEY,
		deal_id TEXT NOT NULL UNIQUE,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL,
		amount TEXT NOT NULL,
		source_network TEXT NOT NULL,
		target_network TEXT NOT NULL,
		bridge_info TEXT DEFAULT '{}',
		status TEXT NOT NULL,
		last_status_check DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE cross_chain_steps (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		step_number INTEGER NOT NULL,
		action TEXT NOT NULL,
		status TEXT NOT NULL,
		description TEXT,
		condition_mapping TEXT,
		tx_hash TEXT,
		execution_id TEXT,
		error_message TEXT,
		started_at DATETIME,
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE(transaction_id, step_number)
	);`)
}

func createUserTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE,
		name TEXT,
		wallet_address TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
}
