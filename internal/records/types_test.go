package records

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterSet_RoundTrip(t *testing.T) {
	tests := [][]string{
		{"starRating"},
		{"amenities", "starRating"},
		{"a,b"},
		{"a", "b"},
	}
	for _, filters := range tests {
		k := SearchEvent{ActiveFilters: filters}.Key()
		assert.Equal(t, filters, k.Filters())
	}
}

func TestFilterSet_CommaNamesDoNotCollide(t *testing.T) {
	joined := SearchEvent{Vcid: "1", ActiveFilters: []string{"a,b"}}.Key()
	split := SearchEvent{Vcid: "1", ActiveFilters: []string{"a", "b"}}.Key()
	assert.NotEqual(t, joined, split)
}

func TestFilterSet_Empty(t *testing.T) {
	assert.Equal(t, "[]", FilterSet(nil))
	assert.Equal(t, "[]", FilterSet([]string{}))
	assert.Equal(t, SearchEvent{}.Key(), SearchEvent{ActiveFilters: []string{}}.Key())
	assert.Equal(t, []string{}, SessionKey{}.Filters())
	assert.Equal(t, []string{}, SessionKey{ActiveFilters: "not json"}.Filters())
}

func TestFromPtr_ToPtr(t *testing.T) {
	assert.False(t, FromPtr(nil).Valid)

	empty := ""
	assert.Equal(t, sql.NullString{String: "", Valid: true}, FromPtr(&empty))
	assert.Nil(t, ToPtr(sql.NullString{}))
	assert.Equal(t, "x", *ToPtr(sql.NullString{String: "x", Valid: true}))
}
