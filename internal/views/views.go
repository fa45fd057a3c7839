// Package views converts stored records into the JSON shapes shared by the
// CLI --json output and the HTTP API. Times are rendered in the configured zone.
package views

import (
	"time"

	"github.com/runnerr0/rankprep/internal/records"
	"github.com/runnerr0/rankprep/internal/storage"
)

const dayLayout = "2006-01-02"

type Run struct {
	ID         string    `json:"id"`
	Vcid       string    `json:"vcid"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  string    `json:"started_at"`
	FinishedAt string    `json:"finished_at,omitempty"`
	Counts     RunCounts `json:"counts"`
}

type RunCounts struct {
	Searches int64 `json:"searches"`
	Sessions int64 `json:"sessions"`
	Details  int64 `json:"details"`
	Bookings int64 `json:"bookings"`
}

type Session struct {
	Vcid           string   `json:"vcid"`
	Flavour        *string  `json:"flavour"`
	CheckIn        *string  `json:"check_in"`
	CheckOut       *string  `json:"check_out"`
	Pax            *string  `json:"pax"`
	UserID         *string  `json:"user_id"`
	Email          *string  `json:"email"`
	TrackingID     *string  `json:"tracking_id"`
	SortKey        *string  `json:"sort_key"`
	ActiveFilters  []string `json:"active_filters"`
	RawFilterInput *string  `json:"raw_filter_input"`
	AlgorithmID    *string  `json:"algorithm_id"`
	SessionID      int      `json:"session_id"`
	SearchTime     string   `json:"search_time"`
	Searches       int      `json:"searches"`
	Hotels         []string `json:"hotels"`
}

type Booking struct {
	Day                 string   `json:"day,omitempty"`
	BookingTime         string   `json:"booking_time,omitempty"`
	Vcid                string   `json:"vcid"`
	Vhid                string   `json:"vhid"`
	Flavour             *string  `json:"flavour"`
	CheckIn             string   `json:"check_in,omitempty"`
	CheckOut            string   `json:"check_out,omitempty"`
	Rooms               int      `json:"rooms"`
	Adults              int      `json:"adults"`
	Children            int      `json:"children"`
	UserID              *string  `json:"user_id"`
	Email               *string  `json:"email"`
	TrackingID          string   `json:"tracking_id"`
	Status              string   `json:"status"`
	Paymode             int      `json:"paymode"`
	Vendor              string   `json:"vendor"`
	GrandTotal          float64  `json:"grand_total"`
	NetAmt              float64  `json:"net_amt"`
	BookingCharges      float64  `json:"booking_charges"`
	TotalTaxChargesPah  *float64 `json:"total_tax_charges_pah"`
	TotalTaxCharges     float64  `json:"total_tax_charges"`
	HotelCountry        string   `json:"hotel_country"`
	VendorAmount        float64  `json:"vendor_amount"`
	IsAKB               bool     `json:"is_akb"`
	RoomNights          int      `json:"room_nights"`
	SupplyMargin        float64  `json:"supply_margin"`
	FinalAmt            float64  `json:"final_amt"`
	FinalNetAmt         float64  `json:"final_net_amt"`
	ConfirmedRoomNights int      `json:"confirmed_room_nights"`
	CancelledRoomNights int      `json:"cancelled_room_nights"`
	GMV                 float64  `json:"gmv"`
	Margin              float64  `json:"margin"`
	RecencyWeight       float64  `json:"recency_weight"`
}

type Stats struct {
	TotalRuns     int64         `json:"total_runs"`
	TotalSessions int64         `json:"total_sessions"`
	TotalDetails  int64         `json:"total_details"`
	TotalBookings int64         `json:"total_bookings"`
	OldestRun     string        `json:"oldest_run,omitempty"`
	NewestRun     string        `json:"newest_run,omitempty"`
	TopVendors    []VendorCount `json:"top_vendors"`
}

type VendorCount struct {
	Vendor string `json:"vendor"`
	Count  int64  `json:"count"`
}

// formatTime renders t in loc; the zero time renders as "".
func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(time.RFC3339)
}

func FromRun(r storage.Run, loc *time.Location) Run {
	return Run{
		ID:         r.ID,
		Vcid:       r.Vcid,
		StartDate:  r.StartDate.Format(dayLayout),
		EndDate:    r.EndDate.Format(dayLayout),
		Status:     r.Status,
		Error:      r.Error,
		StartedAt:  formatTime(r.StartedAt, loc),
		FinishedAt: formatTime(r.FinishedAt, loc),
		Counts: RunCounts{
			Searches: r.Counts.Searches,
			Sessions: r.Counts.Sessions,
			Details:  r.Counts.Details,
			Bookings: r.Counts.Bookings,
		},
	}
}

func FromRuns(runs []storage.Run, loc *time.Location) []Run {
	out := make([]Run, len(runs))
	for i, r := range runs {
		out[i] = FromRun(r, loc)
	}
	return out
}

func FromSession(s records.Session, loc *time.Location) Session {
	k := s.Key
	hotels := s.Hotels
	if hotels == nil {
		hotels = []string{}
	}
	return Session{
		Vcid:           k.Vcid,
		Flavour:        records.ToPtr(k.Flavour),
		CheckIn:        records.ToPtr(k.CheckIn),
		CheckOut:       records.ToPtr(k.CheckOut),
		Pax:            records.ToPtr(k.Pax),
		UserID:         records.ToPtr(k.UserID),
		Email:          records.ToPtr(k.Email),
		TrackingID:     records.ToPtr(k.TrackingID),
		SortKey:        records.ToPtr(k.SortKey),
		ActiveFilters:  k.Filters(),
		RawFilterInput: records.ToPtr(k.RawFilterInput),
		AlgorithmID:    records.ToPtr(k.AlgorithmID),
		SessionID:      s.SessionID,
		SearchTime:     formatTime(s.SearchTime, loc),
		Searches:       s.Searches,
		Hotels:         hotels,
	}
}

func FromSessions(sessions []records.Session, loc *time.Location) []Session {
	out := make([]Session, len(sessions))
	for i, s := range sessions {
		out[i] = FromSession(s, loc)
	}
	return out
}

func FromBooking(b records.BookingRecord, loc *time.Location) Booking {
	v := Booking{
		BookingTime:         formatTime(b.BookingTime, loc),
		Vcid:                b.Vcid,
		Vhid:                b.Vhid,
		Flavour:             records.ToPtr(b.Flavour),
		Rooms:               b.Rooms,
		Adults:              b.Adults,
		Children:            b.Children,
		UserID:              records.ToPtr(b.UserID),
		Email:               records.ToPtr(b.Email),
		TrackingID:          b.TrackingID,
		Status:              b.Status,
		Paymode:             b.Paymode,
		Vendor:              b.Vendor,
		GrandTotal:          b.GrandTotal,
		NetAmt:              b.NetAmt,
		BookingCharges:      b.BookingCharges,
		TotalTaxCharges:     b.TotalTaxCharges,
		HotelCountry:        b.HotelCountry,
		VendorAmount:        b.VendorAmount,
		IsAKB:               b.IsAKB,
		RoomNights:          b.Metrics.RoomNights,
		SupplyMargin:        b.Metrics.SupplyMargin,
		FinalAmt:            b.Metrics.FinalAmt,
		FinalNetAmt:         b.Metrics.FinalNetAmt,
		ConfirmedRoomNights: b.Metrics.ConfirmedRoomNights,
		CancelledRoomNights: b.Metrics.CancelledRoomNights,
		GMV:                 b.Metrics.GMV,
		Margin:              b.Metrics.Margin,
		RecencyWeight:       b.RecencyWeight,
	}
	if !b.Day.IsZero() {
		v.Day = b.Day.In(zone(loc)).Format(dayLayout)
	}
	if !b.CheckIn.IsZero() {
		v.CheckIn = b.CheckIn.In(zone(loc)).Format(dayLayout)
	}
	if !b.CheckOut.IsZero() {
		v.CheckOut = b.CheckOut.In(zone(loc)).Format(dayLayout)
	}
	if b.TotalTaxChargesPah.Valid {
		f := b.TotalTaxChargesPah.Float64
		v.TotalTaxChargesPah = &f
	}
	return v
}

func FromBookings(bookings []records.BookingRecord, loc *time.Location) []Booking {
	out := make([]Booking, len(bookings))
	for i, b := range bookings {
		out[i] = FromBooking(b, loc)
	}
	return out
}

func FromStats(s *storage.Stats, loc *time.Location) Stats {
	out := Stats{
		TotalRuns:     s.TotalRuns,
		TotalSessions: s.TotalSessions,
		TotalDetails:  s.TotalDetails,
		TotalBookings: s.TotalBookings,
		OldestRun:     formatTime(s.OldestRun, loc),
		NewestRun:     formatTime(s.NewestRun, loc),
		TopVendors:    make([]VendorCount, len(s.TopVendors)),
	}
	for i, v := range s.TopVendors {
		out.TopVendors[i] = VendorCount{Vendor: v.Vendor, Count: v.Count}
	}
	return out
}

func zone(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
