package storage

import "database/sql"

// migrateV002 records the log day of each booking and the recency weight it
// was given at the end of its run window. Rows written before this migration
// weigh 1.
func migrateV002(tx *sql.Tx) error {
	stmts := []string{
		`ALTER TABLE bookings ADD COLUMN day TEXT`,
		`ALTER TABLE bookings ADD COLUMN recency_weight REAL NOT NULL DEFAULT 1`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
