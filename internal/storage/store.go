package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/rankprep/internal/records"
)

const dateLayout = "2006-01-02"

// tsLayout is fixed-width so that stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store defines the interface for rankprep data operations.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, id string, counts RunCounts, runErr error) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, q RunQuery) ([]Run, error)
	SaveSessions(ctx context.Context, runID string, sessions []records.Session) error
	SaveDetails(ctx context.Context, runID string, details []records.DetailView) error
	SaveBookings(ctx context.Context, runID string, bookings []records.BookingRecord) error
	ListSessions(ctx context.Context, q SessionQuery) ([]records.Session, error)
	ListBookings(ctx context.Context, q BookingQuery) ([]records.BookingRecord, error)
	GetStats(ctx context.Context) (*Stats, error)
	PruneRuns(ctx context.Context, olderThan time.Time) (int64, error)
	PurgeAll(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	insertRun     *sql.Stmt
	finishRun     *sql.Stmt
	getRun        *sql.Stmt
	insertSession *sql.Stmt
	insertDetail  *sql.Stmt
	insertBooking *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

const runColumns = `id, vcid, start_date, end_date, status, error,
	searches, sessions, details, bookings, started_at, finished_at`

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertRun, err = s.db.Prepare(`
		INSERT INTO runs (id, vcid, start_date, end_date, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.finishRun, err = s.db.Prepare(`
		UPDATE runs
		SET status = ?, error = ?, searches = ?, sessions = ?, details = ?, bookings = ?, finished_at = ?
		WHERE id = ?
	`)
	if err != nil {
		return err
	}

	s.getRun, err = s.db.Prepare(`SELECT ` + runColumns + ` FROM runs WHERE id = ?`)
	if err != nil {
		return err
	}

	s.insertSession, err = s.db.Prepare(`
		INSERT INTO sessions (run_id, vcid, flavour, check_in, check_out, pax, user_id, email,
			tracking_id, sort_key, active_filters, raw_filter_input, algorithm_id,
			session_id, search_time, searches, hotels)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.insertDetail, err = s.db.Prepare(`
		INSERT INTO details (run_id, detail_time, vcid, flavour, check_in, check_out, pax,
			user_id, email, tracking_id, vhid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.insertBooking, err = s.db.Prepare(`
		INSERT INTO bookings (run_id, booking_time, vcid, vhid, flavour, check_in, check_out,
			rooms, adults, children, user_id, email, tracking_id, status, paymode, vendor,
			grand_total, net_amt, booking_charges, total_tax_charges_pah, total_tax_charges,
			hotel_country, vendor_amount, is_akb, room_nights, supply_margin, final_amt,
			final_net_amt, confirmed_room_nights, cancelled_room_nights, gmv, margin,
			day, recency_weight)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	return nil
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		dateLayout,
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// nullTime stores the zero time as NULL.
func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func scanTime(ns sql.NullString) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	t, _ := parseTimestamp(ns.String)
	return t
}

// CreateRun inserts a new running run. The run's ID, Status and StartedAt
// fields are populated automatically.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	run.ID = uuid.NewString()
	run.Status = RunRunning
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := s.insertRun.ExecContext(ctx,
		run.ID, run.Vcid, run.StartDate.Format(dateLayout), run.EndDate.Format(dateLayout),
		run.Status, run.StartedAt.UTC().Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the final counts of a run. A non-nil runErr marks it failed.
func (s *SQLiteStore) FinishRun(ctx context.Context, id string, counts RunCounts, runErr error) error {
	status, msg := RunFinished, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}

	res, err := s.finishRun.ExecContext(ctx,
		status, msg, counts.Searches, counts.Sessions, counts.Details, counts.Bookings,
		time.Now().UTC().Format(tsLayout), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var startDate, endDate, startedAt string
	var finishedAt sql.NullString
	err := row.Scan(
		&r.ID, &r.Vcid, &startDate, &endDate, &r.Status, &r.Error,
		&r.Counts.Searches, &r.Counts.Sessions, &r.Counts.Details, &r.Counts.Bookings,
		&startedAt, &finishedAt,
	)
	if err != nil {
		return Run{}, err
	}
	r.StartDate, _ = parseTimestamp(startDate)
	r.EndDate, _ = parseTimestamp(endDate)
	r.StartedAt, _ = parseTimestamp(startedAt)
	r.FinishedAt = scanTime(finishedAt)
	return r, nil
}

// GetRun retrieves a single run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.getRun.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &r, nil
}

// ListRuns returns runs newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, q RunQuery) ([]Run, error) {
	var clauses []string
	var args []interface{}

	if q.Vcid != "" {
		clauses = append(clauses, "vcid = ?")
		args = append(args, q.Vcid)
	}
	if !q.Before.IsZero() {
		clauses = append(clauses, "started_at < ?")
		args = append(args, q.Before.UTC().Format(tsLayout))
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// inTx runs fn inside a transaction with stmt bound to it.
func (s *SQLiteStore) inTx(ctx context.Context, stmt *sql.Stmt, fn func(st *sql.Stmt) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	st := tx.StmtContext(ctx, stmt)
	defer st.Close()

	if err := fn(st); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveSessions inserts the sessions of a run in a single transaction.
func (s *SQLiteStore) SaveSessions(ctx context.Context, runID string, sessions []records.Session) error {
	return s.inTx(ctx, s.insertSession, func(st *sql.Stmt) error {
		for i := range sessions {
			ss := &sessions[i]
			hotels, err := json.Marshal(ss.Hotels)
			if err != nil {
				return fmt.Errorf("encode hotels: %w", err)
			}
			k := ss.Key
			_, err = st.ExecContext(ctx,
				runID, k.Vcid, k.Flavour, k.CheckIn, k.CheckOut, k.Pax, k.UserID, k.Email,
				k.TrackingID, k.SortKey, k.ActiveFilters, k.RawFilterInput, k.AlgorithmID,
				ss.SessionID, ss.SearchTime.UTC().Format(time.RFC3339), ss.Searches, string(hotels),
			)
			if err != nil {
				return fmt.Errorf("insert session: %w", err)
			}
		}
		return nil
	})
}

// SaveDetails inserts the detail views of a run in a single transaction.
func (s *SQLiteStore) SaveDetails(ctx context.Context, runID string, details []records.DetailView) error {
	return s.inTx(ctx, s.insertDetail, func(st *sql.Stmt) error {
		for i := range details {
			d := &details[i]
			_, err := st.ExecContext(ctx,
				runID, d.DetailTime.UTC().Format(time.RFC3339), d.Vcid, d.Flavour, d.CheckIn,
				d.CheckOut, d.Pax, d.UserID, d.Email, d.TrackingID, d.Vhid,
			)
			if err != nil {
				return fmt.Errorf("insert detail: %w", err)
			}
		}
		return nil
	})
}

// SaveBookings inserts the enriched bookings of a run in a single transaction.
func (s *SQLiteStore) SaveBookings(ctx context.Context, runID string, bookings []records.BookingRecord) error {
	return s.inTx(ctx, s.insertBooking, func(st *sql.Stmt) error {
		for i := range bookings {
			b := &bookings[i]
			m := b.Metrics
			_, err := st.ExecContext(ctx,
				runID, nullTime(b.BookingTime), b.Vcid, b.Vhid, b.Flavour,
				nullTime(b.CheckIn), nullTime(b.CheckOut), b.Rooms, b.Adults, b.Children,
				b.UserID, b.Email, b.TrackingID, b.Status, b.Paymode, b.Vendor,
				b.GrandTotal, b.NetAmt, b.BookingCharges, b.TotalTaxChargesPah, b.TotalTaxCharges,
				b.HotelCountry, b.VendorAmount, b.IsAKB,
				m.RoomNights, m.SupplyMargin, m.FinalAmt, m.FinalNetAmt,
				m.ConfirmedRoomNights, m.CancelledRoomNights, m.GMV, m.Margin,
				nullTime(b.Day), b.RecencyWeight,
			)
			if err != nil {
				return fmt.Errorf("insert booking: %w", err)
			}
		}
		return nil
	})
}

// ListSessions returns the sessions of a run ordered by key insertion and session id.
func (s *SQLiteStore) ListSessions(ctx context.Context, q SessionQuery) ([]records.Session, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	query := `
		SELECT vcid, flavour, check_in, check_out, pax, user_id, email, tracking_id,
		       sort_key, active_filters, raw_filter_input, algorithm_id,
		       session_id, search_time, searches, hotels
		FROM sessions
		WHERE run_id = ?`
	args := []interface{}{q.RunID}
	if q.TrackingID != "" {
		query += " AND tracking_id = ?"
		args = append(args, q.TrackingID)
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := []records.Session{}
	for rows.Next() {
		var ss records.Session
		var searchTime, hotels string
		k := &ss.Key
		if err := rows.Scan(
			&k.Vcid, &k.Flavour, &k.CheckIn, &k.CheckOut, &k.Pax, &k.UserID, &k.Email,
			&k.TrackingID, &k.SortKey, &k.ActiveFilters, &k.RawFilterInput, &k.AlgorithmID,
			&ss.SessionID, &searchTime, &ss.Searches, &hotels,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ss.SearchTime, _ = parseTimestamp(searchTime)
		if err := json.Unmarshal([]byte(hotels), &ss.Hotels); err != nil {
			return nil, fmt.Errorf("decode hotels: %w", err)
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

// ListBookings returns the bookings of a run in insertion order.
func (s *SQLiteStore) ListBookings(ctx context.Context, q BookingQuery) ([]records.BookingRecord, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	query := `
		SELECT booking_time, vcid, vhid, flavour, check_in, check_out, rooms, adults, children,
		       user_id, email, tracking_id, status, paymode, vendor, grand_total, net_amt,
		       booking_charges, total_tax_charges_pah, total_tax_charges, hotel_country,
		       vendor_amount, is_akb, room_nights, supply_margin, final_amt, final_net_amt,
		       confirmed_room_nights, cancelled_room_nights, gmv, margin,
		       day, recency_weight
		FROM bookings
		WHERE run_id = ?`
	args := []interface{}{q.RunID}
	if q.Vendor != "" {
		query += " AND vendor = ?"
		args = append(args, q.Vendor)
	}
	if q.ConfirmedOnly {
		query += " AND confirmed_room_nights > 0"
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	out := []records.BookingRecord{}
	for rows.Next() {
		var b records.BookingRecord
		var bookingTime, checkIn, checkOut, day sql.NullString
		m := &b.Metrics
		if err := rows.Scan(
			&bookingTime, &b.Vcid, &b.Vhid, &b.Flavour, &checkIn, &checkOut,
			&b.Rooms, &b.Adults, &b.Children, &b.UserID, &b.Email, &b.TrackingID,
			&b.Status, &b.Paymode, &b.Vendor, &b.GrandTotal, &b.NetAmt, &b.BookingCharges,
			&b.TotalTaxChargesPah, &b.TotalTaxCharges, &b.HotelCountry, &b.VendorAmount, &b.IsAKB,
			&m.RoomNights, &m.SupplyMargin, &m.FinalAmt, &m.FinalNetAmt,
			&m.ConfirmedRoomNights, &m.CancelledRoomNights, &m.GMV, &m.Margin,
			&day, &b.RecencyWeight,
		); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.Day = scanTime(day)
		b.BookingTime = scanTime(bookingTime)
		b.CheckIn = scanTime(checkIn)
		b.CheckOut = scanTime(checkOut)
		out = append(out, b)
	}
	return out, rows.Err()
}

// PruneRuns deletes runs started before olderThan. Their sessions, details
// and bookings are cascade-deleted by the schema.
func (s *SQLiteStore) PruneRuns(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM runs WHERE started_at < ?", olderThan.UTC().Format(tsLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

// PurgeAll deletes every run and derived row.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM bookings",
		"DELETE FROM details",
		"DELETE FROM sessions",
		"DELETE FROM runs",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	return nil
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		table string
		dst   *int64
	}{
		{"runs", &stats.TotalRuns},
		{"sessions", &stats.TotalSessions},
		{"details", &stats.TotalDetails},
		{"bookings", &stats.TotalBookings},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.table, err)
		}
	}

	if stats.TotalRuns > 0 {
		var oldestStr, newestStr string
		err := s.db.QueryRowContext(ctx, "SELECT MIN(started_at), MAX(started_at) FROM runs").Scan(&oldestStr, &newestStr)
		if err != nil {
			return nil, fmt.Errorf("run time range: %w", err)
		}
		stats.OldestRun, _ = parseTimestamp(oldestStr)
		stats.NewestRun, _ = parseTimestamp(newestStr)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT vendor, COUNT(*) as cnt FROM bookings GROUP BY vendor ORDER BY cnt DESC, vendor LIMIT 10",
	)
	if err != nil {
		return nil, fmt.Errorf("top vendors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var vc VendorCount
		if err := rows.Scan(&vc.Vendor, &vc.Count); err != nil {
			return nil, err
		}
		stats.TopVendors = append(stats.TopVendors, vc)
	}

	return stats, rows.Err()
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.insertRun, s.finishRun, s.getRun,
		s.insertSession, s.insertDetail, s.insertBooking,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
