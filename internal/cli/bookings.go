package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/rankprep/internal/config"
	"github.com/runnerr0/rankprep/internal/finance"
	"github.com/runnerr0/rankprep/internal/storage"
	"github.com/runnerr0/rankprep/internal/views"
)

type bookingsJSON struct {
	Run      views.Run       `json:"run"`
	Bookings []views.Booking `json:"bookings"`
	Totals   totalsJSON      `json:"totals"`
}

// Execute implements the go-flags Commander interface for BookingsCommand.
func (c *BookingsCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals, nil)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(context.Background(), cfg, store)
}

// executeWithStore lists bookings from a provided store (for testing).
func (c *BookingsCommand) executeWithStore(ctx context.Context, cfg *config.Config, store storage.Store) error {
	if c.Limit < 1 {
		return fmt.Errorf("--limit must be at least 1, got %d", c.Limit)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	run, err := resolveRun(ctx, store, c.Run)
	if err != nil {
		return err
	}

	list, err := store.ListBookings(ctx, storage.BookingQuery{
		RunID:         run.ID,
		Vendor:        c.Vendor,
		ConfirmedOnly: c.Confirmed,
		Limit:         c.Limit,
		Offset:        c.Offset,
	})
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}

	var totals finance.Totals
	for _, b := range list {
		totals.Add(b)
	}

	out := views.FromBookings(list, loc)
	if c.globals != nil && c.globals.JSON {
		return printJSON(bookingsJSON{Run: views.FromRun(*run, loc), Bookings: out, Totals: toTotalsJSON(totals)})
	}

	fmt.Printf("Run %s (%s): %d bookings\n", shortID(run.ID), run.Vcid, len(out))
	if len(out) == 0 {
		fmt.Println("No bookings found.")
		return nil
	}
	for i, b := range out {
		fmt.Printf("%3d. %s  %-8s %-14s %d RN confirmed, %d cancelled  GMV %s  margin %s  weight %.2f\n",
			c.Offset+i+1, b.TrackingID, b.Vendor, b.Status,
			b.ConfirmedRoomNights, b.CancelledRoomNights,
			formatAmount(b.GMV), formatAmount(b.Margin), b.RecencyWeight)
	}
	fmt.Println()
	fmt.Printf("Total: %d room-nights confirmed, %d cancelled, GMV %s, margin %s, %.2f recency-weighted\n",
		totals.ConfirmedRoomNights, totals.CancelledRoomNights,
		formatAmount(totals.GMV), formatAmount(totals.Margin), totals.WeightedRoomNights)
	return nil
}
