package decay

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// between asserts lo < got < hi.
func between(t *testing.T, got, lo, hi float64, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Greater(t, got, lo, msgAndArgs...)
	assert.Less(t, got, hi, msgAndArgs...)
}

func TestCurrent(t *testing.T) {
	var d Current
	assert.Equal(t, 1.0, d.Decay(0))
	assert.InDelta(t, math.Exp(-0.001), d.Decay(1), 1e-12)
	// fractional days are truncated
	assert.Equal(t, d.Decay(1), d.Decay(1.9))
	assert.InDelta(t, math.Exp(-0.365), d.Decay(365), 1e-12)
}

func TestExponential(t *testing.T) {
	d := NewExponentialWithMin(2, 0.5, 0.2)
	between(t, d.Decay(1), 0.70, 0.71)
	assert.InDelta(t, 0.5, d.Decay(2), 1e-12)
	assert.Equal(t, 0.2, d.Decay(100), "floored")
	assert.Equal(t, 1.0, d.Decay(-5), "capped at 1")

	assert.InDelta(t, 0.25, NewExponential(2, 0.5).Decay(4), 1e-12)
}

func TestLogistic(t *testing.T) {
	d := NewLogistic(Anchor{T: 365, Y: 0.9}, Anchor{T: 730, Y: 0.7}, Anchor{T: 1825, Y: 0.25})

	assert.Greater(t, d.Decay(0), 0.9999)

	tests := []struct {
		age    float64
		lo, hi float64
	}{
		{180, 0.9, 0.9999},
		{365, 0.89, 0.91},
		{500, 0.7, 0.9},
		{730, 0.69, 0.71},
		{1000, 0.25, 0.7},
		{1825, 0.24, 0.26},
		{2000, 0, 0.25},
	}
	for _, tt := range tests {
		between(t, d.Decay(tt.age), tt.lo, tt.hi, "age %v", tt.age)
	}
}

func TestLogistic_UnsortedAnchors(t *testing.T) {
	sorted := NewLogistic(Anchor{T: 365, Y: 0.9}, Anchor{T: 730, Y: 0.7})
	shuffled := NewLogistic(Anchor{T: 730, Y: 0.7}, Anchor{T: 365, Y: 0.9})
	for _, age := range []float64{0, 100, 365, 600, 730, 5000} {
		assert.InDelta(t, sorted.Decay(age), shuffled.Decay(age), 1e-12, "age %v", age)
	}
}

func TestLogistic_MaxTimeClamps(t *testing.T) {
	d := NewLogisticWithMaxTime(1000, Anchor{T: 365, Y: 0.9})
	assert.Equal(t, d.Decay(1000), d.Decay(4000))
	assert.Greater(t, d.Decay(4000), NewLogistic(Anchor{T: 365, Y: 0.9}).Decay(4000))

	// past the far end anchor the curve holds its last value
	far := NewLogisticWithMaxTime(20000)
	assert.Equal(t, far.Decay(9999), far.Decay(15000))
}

func TestPiecewiseLinear(t *testing.T) {
	d := NewPiecewiseLinear(
		Anchor{T: 90, Y: 0.99},
		Anchor{T: 180, Y: 0.5},
		Anchor{T: 270, Y: 0.5},
		Anchor{T: 365, Y: 0.75},
		Anchor{T: 366, Y: 0.1},
	)

	assert.Greater(t, d.Decay(0), 0.9999)

	tests := []struct {
		age    float64
		lo, hi float64
	}{
		{45, 0.99, 1},
		{90, 0.98, 0.999},
		{100, 0.5, 0.99},
		{180, 0.49, 0.51},
		{300, 0.5, 0.75},
		{365, 0.749, 0.751},
		{400, 0.09, 0.11},
	}
	for _, tt := range tests {
		between(t, d.Decay(tt.age), tt.lo, tt.hi, "age %v", tt.age)
	}

	assert.Equal(t, 0.1, d.Decay(math.Inf(1)))
	assert.Zero(t, d.Decay(-1))
}

func TestPiecewiseLinear_AnchoredAtZero(t *testing.T) {
	d := NewPiecewiseLinear(Anchor{T: 0, Y: 0.8}, Anchor{T: 10, Y: 0.4})
	assert.InDelta(t, 0.8, d.Decay(0), 1e-12)
	assert.InDelta(t, 0.6, d.Decay(5), 1e-12)
	assert.InDelta(t, 0.4, d.Decay(50), 1e-12)
}

func TestPiecewiseLinear_NoAnchors(t *testing.T) {
	d := NewPiecewiseLinear()
	assert.Equal(t, 1.0, d.Decay(0))
	assert.Equal(t, 1.0, d.Decay(1000))
}

func TestDefaultPiecewise(t *testing.T) {
	d := DefaultPiecewise()
	assert.InDelta(t, 0.95, d.Decay(1), 1e-12)
	assert.InDelta(t, 0.9, d.Decay(2), 1e-12)
	assert.InDelta(t, 0.3, d.Decay(7), 1e-12)
	assert.InDelta(t, 0.01, d.Decay(30), 1e-12)
}

func TestNew(t *testing.T) {
	for _, name := range []string{"", AlgorithmCurrent} {
		d, err := New(name)
		require.NoError(t, err)
		assert.IsType(t, Current{}, d)
	}

	d, err := New(AlgorithmPLD)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, d.Decay(7), 1e-12)

	_, err = New("linear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown decay algorithm "linear"`)
}

func TestAgeDays(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	asOf := time.Date(2024, 3, 10, 0, 0, 0, 0, ist)

	assert.Equal(t, 0.0, AgeDays(asOf, asOf))
	assert.Equal(t, 9.0, AgeDays(time.Date(2024, 3, 1, 0, 0, 0, 0, ist), asOf))
	assert.Equal(t, 1.0, AgeDays(time.Date(2024, 3, 9, 23, 59, 0, 0, ist), asOf), "time of day is ignored")
	assert.Equal(t, 0.0, AgeDays(time.Date(2024, 3, 12, 0, 0, 0, 0, ist), asOf), "future days have no age")
	assert.Equal(t, 0.0, AgeDays(time.Time{}, asOf))

	// 2024-03-09 20:00 UTC is already 2024-03-10 in Kolkata
	assert.Equal(t, 0.0, AgeDays(time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC), asOf))
}
