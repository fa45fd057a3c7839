package storage

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	RunRunning  = "running"
	RunFinished = "finished"
	RunFailed   = "failed"
)

// Run is one pipeline execution over a venue and day window.
type Run struct {
	ID         string
	Vcid       string
	StartDate  time.Time
	EndDate    time.Time
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Counts     RunCounts
}

// RunCounts are the row counts recorded when a run finishes.
type RunCounts struct {
	Searches int64
	Sessions int64
	Details  int64
	Bookings int64
}

// RunQuery filters runs. Zero values mean no filter.
type RunQuery struct {
	Vcid   string
	Before time.Time // started before
	Limit  int
}

// SessionQuery defines filters for listing the sessions of a run.
type SessionQuery struct {
	RunID      string
	TrackingID string
	Limit      int
	Offset     int
}

// BookingQuery defines filters for listing the bookings of a run.
type BookingQuery struct {
	RunID         string
	Vendor        string
	ConfirmedOnly bool
	Limit         int
	Offset        int
}

// Stats holds aggregate statistics about the rankprep database.
type Stats struct {
	TotalRuns     int64
	TotalSessions int64
	TotalDetails  int64
	TotalBookings int64
	OldestRun     time.Time
	NewestRun     time.Time
	TopVendors    []VendorCount
}

// VendorCount pairs a vendor with its booking count across all runs.
type VendorCount struct {
	Vendor string
	Count  int64
}
