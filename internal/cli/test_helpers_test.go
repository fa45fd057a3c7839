package cli

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/rankprep/internal/config"
	"github.com/runnerr0/rankprep/internal/decay"
	"github.com/runnerr0/rankprep/internal/finance"
	"github.com/runnerr0/rankprep/internal/records"
	"github.com/runnerr0/rankprep/internal/storage"
)

const testVcid = "8717279093827200968"

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// openTestStore creates a migrated in-memory store for testing.
func openTestStore(t *testing.T) (*storage.SQLiteStore, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db, "").Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, db
}

// testConfig returns defaults with storage under a temp dir and the server
// pointed at a port nothing listens on.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = t.TempDir()
	cfg.Server.Port = 1
	return cfg
}

func ns(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

// seedRun stores a finished run with two sessions and two enriched bookings,
// both weighing 0.95.
func seedRun(t *testing.T, store storage.Store, startedAt time.Time) *storage.Run {
	t.Helper()
	ctx := context.Background()
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	run := &storage.Run{
		Vcid:      testVcid,
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, ist),
		EndDate:   time.Date(2024, 3, 2, 0, 0, 0, 0, ist),
		StartedAt: startedAt,
	}
	require.NoError(t, store.CreateRun(ctx, run))

	sessions := []records.Session{
		{
			Key:        records.SessionKey{Vcid: testVcid, TrackingID: ns("tr-1"), SortKey: ns("price")},
			SessionID:  1,
			SearchTime: time.Date(2024, 3, 1, 13, 30, 0, 0, ist),
			Searches:   2,
			Hotels:     []string{"h1", "h2", "h3", "h4", "h5", "h6", "h7"},
		},
		{
			Key:        records.SessionKey{Vcid: testVcid, TrackingID: ns("tr-2")},
			SessionID:  1,
			SearchTime: time.Date(2024, 3, 1, 14, 0, 0, 0, ist),
			Searches:   1,
			Hotels:     []string{"h9"},
		},
	}
	require.NoError(t, store.SaveSessions(ctx, run.ID, sessions))

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, ist)
	bookings := []records.BookingRecord{
		finance.Enrich(records.BookingRecord{
			Day: day, Vcid: testVcid, Vhid: "464241129666544", TrackingID: "tr-1",
			CheckIn:  time.Date(2024, 3, 10, 0, 0, 0, 0, ist),
			CheckOut: time.Date(2024, 3, 12, 0, 0, 0, 0, ist),
			Rooms:    1, Status: "to deliver", Paymode: 1, Vendor: "trust",
			GrandTotal: 1200, NetAmt: 900, BookingCharges: 20,
			TotalTaxChargesPah: sql.NullFloat64{Float64: 30, Valid: true},
			TotalTaxCharges:    120, HotelCountry: "India", VendorAmount: 1000,
		}),
		finance.Enrich(records.BookingRecord{
			Day: day, Vcid: testVcid, TrackingID: "tr-2",
			CheckIn:  time.Date(2024, 3, 10, 0, 0, 0, 0, ist),
			CheckOut: time.Date(2024, 3, 11, 0, 0, 0, 0, ist),
			Rooms:    2, Status: "cancelled", Vendor: "bkg", GrandTotal: 500,
		}),
	}
	for i := range bookings {
		bookings[i] = finance.Weigh(bookings[i], decay.DefaultPiecewise(), run.EndDate)
	}
	require.NoError(t, store.SaveBookings(ctx, run.ID, bookings))

	counts := storage.RunCounts{Searches: 3, Sessions: 2, Bookings: 2}
	require.NoError(t, store.FinishRun(ctx, run.ID, counts, nil))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	return got
}
