// Package extract pulls scalar and list values out of semi-structured search
// event payloads. Every function is total: absent input yields an absent or
// empty result, never an error.
package extract

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// sortParamKey is the request param carrying the user-selected sort order.
const sortParamKey = "s"

// Param is one request parameter as logged by the search service.
type Param struct {
	Key   string   `json:"key"`
	Value []string `json:"value"`
}

// SortKey returns the first value of the first "s" param. It reports false
// when there is no such param or its value list is empty.
func SortKey(params []Param) (string, bool) {
	for _, p := range params {
		if p.Key != sortParamKey {
			continue
		}
		if len(p.Value) == 0 {
			return "", false
		}
		return p.Value[0], true
	}
	return "", false
}

// ActiveFilters returns the sorted names of filter fields that carry a value.
// A field is inactive when it is JSON null or an empty array.
func ActiveFilters(filterInput map[string]json.RawMessage) []string {
	names := make([]string, 0, len(filterInput))
	for name, raw := range filterInput {
		if isEmptyValue(raw) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isEmptyValue(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return true
	}
	if v[0] != '[' {
		return false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return false
	}
	return len(items) == 0
}

// CanonicalFilterInput renders the raw filter input with sorted keys and
// compacted values, so equal inputs always compare equal as strings.
func CanonicalFilterInput(filterInput map[string]json.RawMessage) (string, bool) {
	if filterInput == nil {
		return "", false
	}
	b, err := json.Marshal(filterInput)
	if err != nil {
		// unreachable for values produced by json.Unmarshal
		return "", false
	}
	return string(b), true
}

// AlgorithmID returns the suffix after the last "_" of a ranking config id,
// or the whole id when it has no "_".
//
//	AlgorithmID("dom_base_upr_default") == "default"
func AlgorithmID(configID *string) (string, bool) {
	if configID == nil {
		return "", false
	}
	id := *configID
	return id[strings.LastIndex(id, "_")+1:], true
}

// Flatten concatenates groups in order. Zero groups give an empty slice.
func Flatten[T any](groups [][]T) []T {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make([]T, 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
