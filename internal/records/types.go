package records

import (
	"database/sql"
	"encoding/json"
	"time"
)

// SearchEvent is one normalized search request with the hotels it ranked.
// EventTime is for output only; ordering and gaps always use CurrentSearchTime.
type SearchEvent struct {
	Day               time.Time
	EventTime         time.Time
	CurrentSearchTime int64 // epoch ms
	Vcid              string
	Flavour           sql.NullString
	CheckIn           sql.NullString
	CheckOut          sql.NullString
	Pax               sql.NullString
	UserID            sql.NullString
	Email             sql.NullString
	TrackingID        sql.NullString
	SortKey           sql.NullString
	ActiveFilters     []string // sorted
	RawFilterInput    sql.NullString
	AlgorithmID       sql.NullString
	SessionSeed       sql.NullInt64 // pid
	RankedResults     []string
}

// Key returns the session partition key of the event.
func (e SearchEvent) Key() SessionKey {
	return SessionKey{
		Vcid:           e.Vcid,
		Flavour:        e.Flavour,
		CheckIn:        e.CheckIn,
		CheckOut:       e.CheckOut,
		Pax:            e.Pax,
		UserID:         e.UserID,
		Email:          e.Email,
		TrackingID:     e.TrackingID,
		SortKey:        e.SortKey,
		ActiveFilters:  FilterSet(e.ActiveFilters),
		RawFilterInput: e.RawFilterInput,
		AlgorithmID:    e.AlgorithmID,
	}
}

// SessionKey identifies a session-candidate group. It is comparable, so two
// keys are equal only when every field is equal; an absent field never equals
// a present one, not even a present empty string.
type SessionKey struct {
	Vcid           string
	Flavour        sql.NullString
	CheckIn        sql.NullString
	CheckOut       sql.NullString
	Pax            sql.NullString
	UserID         sql.NullString
	Email          sql.NullString
	TrackingID     sql.NullString
	SortKey        sql.NullString
	ActiveFilters  string // FilterSet of the sorted filter names
	RawFilterInput sql.NullString
	AlgorithmID    sql.NullString
}

// FilterSet encodes sorted filter names as a JSON array, so names holding
// commas cannot collide. Nil and empty both encode as "[]".
func FilterSet(filters []string) string {
	if len(filters) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(filters)
	return string(b)
}

// Filters decodes ActiveFilters back into a slice. An empty or undecodable
// value yields no filters.
func (k SessionKey) Filters() []string {
	var out []string
	if k.ActiveFilters == "" || json.Unmarshal([]byte(k.ActiveFilters), &out) != nil || out == nil {
		return []string{}
	}
	return out
}

// Session is a run of searches sharing a key with no gap over the inactivity limit.
type Session struct {
	Key        SessionKey
	SessionID  int
	SearchTime time.Time
	Searches   int
	Hotels     []string
}

// DetailView is one normalized hotel detail-page view.
type DetailView struct {
	DetailTime time.Time
	Vcid       string
	Flavour    sql.NullString
	CheckIn    sql.NullString
	CheckOut   sql.NullString
	Pax        sql.NullString
	UserID     sql.NullString
	Email      sql.NullString
	TrackingID string
	Vhid       string
}

// BookingRecord is one booking row from the ETL log. Metrics is derived and
// is overwritten by every enrichment pass. RecencyWeight is set separately by
// finance.Weigh.
type BookingRecord struct {
	Day                time.Time // log partition day
	BookingTime        time.Time
	Vcid               string
	Vhid               string
	Flavour            sql.NullString
	CheckIn            time.Time
	CheckOut           time.Time
	Rooms              int
	Adults             int
	Children           int
	UserID             sql.NullString
	Email              sql.NullString
	TrackingID         string
	Status             string
	Paymode            int
	Vendor             string
	GrandTotal         float64
	NetAmt             float64
	BookingCharges     float64
	TotalTaxChargesPah sql.NullFloat64
	TotalTaxCharges    float64
	HotelCountry       string
	VendorAmount       float64
	IsAKB              bool

	Metrics       BookingMetrics
	RecencyWeight float64
}

// BookingMetrics holds the financial fields derived from a BookingRecord.
type BookingMetrics struct {
	RoomNights          int
	SupplyMargin        float64
	FinalAmt            float64
	FinalNetAmt         float64
	ConfirmedRoomNights int
	CancelledRoomNights int
	GMV                 float64
	Margin              float64
}

// FromPtr converts a pointer into a sql.NullString. A nil pointer is absent;
// a pointer to "" is present.
func FromPtr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// ToPtr is the inverse of FromPtr, used for JSON output.
func ToPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}
