package storage

import "database/sql"

// migrateV001 creates the initial schema: runs and the three derived row sets
// that hang off them. Every statement uses IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			vcid        TEXT NOT NULL,
			start_date  TEXT NOT NULL,
			end_date    TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'running' CHECK (status IN ('running', 'finished', 'failed')),
			error       TEXT NOT NULL DEFAULT '',
			searches    INTEGER NOT NULL DEFAULT 0,
			sessions    INTEGER NOT NULL DEFAULT 0,
			details     INTEGER NOT NULL DEFAULT 0,
			bookings    INTEGER NOT NULL DEFAULT 0,
			started_at  DATETIME NOT NULL,
			finished_at DATETIME
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id           TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			vcid             TEXT NOT NULL,
			flavour          TEXT,
			check_in         TEXT,
			check_out        TEXT,
			pax              TEXT,
			user_id          TEXT,
			email            TEXT,
			tracking_id      TEXT,
			sort_key         TEXT,
			active_filters   TEXT NOT NULL DEFAULT '',
			raw_filter_input TEXT,
			algorithm_id     TEXT,
			session_id       INTEGER NOT NULL,
			search_time      DATETIME NOT NULL,
			searches         INTEGER NOT NULL,
			hotels           TEXT NOT NULL DEFAULT '[]'
		)`,

		`CREATE TABLE IF NOT EXISTS details (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			detail_time DATETIME NOT NULL,
			vcid        TEXT NOT NULL,
			flavour     TEXT,
			check_in    TEXT,
			check_out   TEXT,
			pax         TEXT,
			user_id     TEXT,
			email       TEXT,
			tracking_id TEXT NOT NULL,
			vhid        TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id                TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			booking_time          DATETIME,
			vcid                  TEXT NOT NULL,
			vhid                  TEXT NOT NULL DEFAULT '',
			flavour               TEXT,
			check_in              DATETIME,
			check_out             DATETIME,
			rooms                 INTEGER NOT NULL DEFAULT 0,
			adults                INTEGER NOT NULL DEFAULT 0,
			children              INTEGER NOT NULL DEFAULT 0,
			user_id               TEXT,
			email                 TEXT,
			tracking_id           TEXT NOT NULL,
			status                TEXT NOT NULL DEFAULT '',
			paymode               INTEGER NOT NULL DEFAULT 0,
			vendor                TEXT NOT NULL DEFAULT '',
			grand_total           REAL NOT NULL DEFAULT 0,
			net_amt               REAL NOT NULL DEFAULT 0,
			booking_charges       REAL NOT NULL DEFAULT 0,
			total_tax_charges_pah REAL,
			total_tax_charges     REAL NOT NULL DEFAULT 0,
			hotel_country         TEXT NOT NULL DEFAULT '',
			vendor_amount         REAL NOT NULL DEFAULT 0,
			is_akb                BOOLEAN NOT NULL DEFAULT 0,
			room_nights           INTEGER NOT NULL DEFAULT 0,
			supply_margin         REAL NOT NULL DEFAULT 0,
			final_amt             REAL NOT NULL DEFAULT 0,
			final_net_amt         REAL NOT NULL DEFAULT 0,
			confirmed_room_nights INTEGER NOT NULL DEFAULT 0,
			cancelled_room_nights INTEGER NOT NULL DEFAULT 0,
			gmv                   REAL NOT NULL DEFAULT 0,
			margin                REAL NOT NULL DEFAULT 0
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_runs_started_at      ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_vcid            ON runs(vcid)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_run         ON sessions(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_run_tracking ON sessions(run_id, tracking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_details_run          ON details(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_run         ON bookings(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_run_vendor  ON bookings(run_id, vendor)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
