package cli

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookings_HumanOutput(t *testing.T) {
	store, _ := openTestStore(t)
	seedRun(t, store, time.Time{})

	cmd := &BookingsCommand{globals: &GlobalFlags{}, Limit: 20}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), testConfig(t), store))
	})

	assert.Contains(t, output, "2 bookings")
	assert.Contains(t, output, "trust")
	assert.Contains(t, output, "GMV 1,020.00")
	assert.Contains(t, output, "Total: 2 room-nights confirmed, 2 cancelled, GMV 1,020.00, margin 114.41, 1.90 recency-weighted")
	assert.Contains(t, output, "weight 0.95")
}

func TestBookings_ConfirmedOnlyJSON(t *testing.T) {
	store, _ := openTestStore(t)
	run := seedRun(t, store, time.Time{})

	cmd := &BookingsCommand{globals: &GlobalFlags{JSON: true}, Run: run.ID, Confirmed: true, Limit: 20}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), testConfig(t), store))
	})

	var got bookingsJSON
	require.NoError(t, json.Unmarshal([]byte(output), &got), output)
	require.Len(t, got.Bookings, 1)
	b := got.Bookings[0]
	assert.Equal(t, "trust", b.Vendor)
	assert.Equal(t, "2024-03-10", b.CheckIn)
	assert.Equal(t, 2, b.RoomNights)
	assert.Equal(t, 2, b.ConfirmedRoomNights)
	assert.Equal(t, 1, got.Totals.Bookings)
	assert.InDelta(t, 135/1.18, got.Totals.Margin, 1e-9)
	assert.Equal(t, "2024-03-01", b.Day)
	assert.InDelta(t, 0.95, b.RecencyWeight, 1e-9)
	assert.InDelta(t, 1.9, got.Totals.WeightedRoomNights, 1e-9)
}

func TestBookings_VendorFilter(t *testing.T) {
	store, _ := openTestStore(t)
	seedRun(t, store, time.Time{})

	cmd := &BookingsCommand{globals: &GlobalFlags{}, Vendor: "agoda", Limit: 20}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), testConfig(t), store))
	})
	assert.Contains(t, output, "No bookings found.")
}

func TestBookings_RejectsZeroLimit(t *testing.T) {
	store, _ := openTestStore(t)
	seedRun(t, store, time.Time{})
	cmd := &BookingsCommand{globals: &GlobalFlags{}, Limit: 0}

	err := cmd.executeWithStore(context.Background(), testConfig(t), store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--limit")
}
