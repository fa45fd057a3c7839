package cli

import (
	"strings"
	"testing"
	"time"

	goflags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseOnly builds a parser that parses without executing the command.
func parseOnly(t *testing.T, args ...string) (*GlobalFlags, *commands, error) {
	t.Helper()
	parser, globals, cmds := buildParser("test")
	parser.Options &^= goflags.PrintErrors
	parser.CommandHandler = func(goflags.Commander, []string) error { return nil }
	_, err := parser.ParseArgs(args)
	return globals, cmds, err
}

func TestVersionFlag(t *testing.T) {
	output := captureOutput(t, func() {
		err := RunWithArgs("0.1.0-test", []string{"--version"})
		assert.NoError(t, err)
	})
	assert.Contains(t, output, "rankprep 0.1.0-test")
}

func TestVersionOutputFormat(t *testing.T) {
	output := captureOutput(t, func() {
		_ = RunWithArgs("1.2.3", []string{"--version"})
	})
	assert.Equal(t, "rankprep 1.2.3", strings.TrimSpace(output))
}

func TestSubcommandsRecognized(t *testing.T) {
	for _, name := range []string{"run", "sessions", "bookings", "status", "serve", "prune", "purge"} {
		t.Run(name, func(t *testing.T) {
			_, _, err := parseOnly(t, name)
			assert.NoError(t, err)
		})
	}
}

func TestUnknownSubcommand(t *testing.T) {
	_, _, err := parseOnly(t, "ingest")
	assert.Error(t, err)
}

func TestRunFlagsParsed(t *testing.T) {
	globals, cmds, err := parseOnly(t,
		"--json", "--config", "/tmp/rankprep.yaml",
		"run", "--vcid", testVcid, "--start", "2024-03-01", "--end", "2024-03-02",
		"--search-file", "s.jsonl", "--workers", "8")
	require.NoError(t, err)

	assert.True(t, globals.JSON)
	assert.Equal(t, "/tmp/rankprep.yaml", globals.Config)
	assert.Equal(t, ".env", globals.EnvFile)
	assert.Equal(t, testVcid, cmds.Run.Vcid)
	assert.Equal(t, "2024-03-01", cmds.Run.Start)
	assert.Equal(t, "2024-03-02", cmds.Run.End)
	assert.Equal(t, "s.jsonl", cmds.Run.SearchFile)
	assert.Equal(t, 8, cmds.Run.Workers)
}

func TestListDefaults(t *testing.T) {
	_, cmds, err := parseOnly(t, "bookings", "--vendor", "trust", "--confirmed")
	require.NoError(t, err)
	assert.Equal(t, 20, cmds.Bookings.Limit)
	assert.Equal(t, "trust", cmds.Bookings.Vendor)
	assert.True(t, cmds.Bookings.Confirmed)

	_, cmds, err = parseOnly(t, "prune")
	require.NoError(t, err)
	assert.Equal(t, "30d", cmds.Prune.OlderThan)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30d", 30 * 24 * time.Hour},
		{"24h", 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"15m", 15 * time.Minute},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "d", "30", "30y", "-1d", "xd"} {
		_, err := parseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
	assert.Equal(t, "-12,345", formatNumber(-12345))

	assert.Equal(t, "1,020.00", formatAmount(1020))
	assert.Equal(t, "-5.50", formatAmount(-5.5))
	assert.Equal(t, "0.00", formatAmount(-0.001))
	assert.Equal(t, "114.41", formatAmount(114.4067))

	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2<<20))

	assert.Equal(t, "30 days", formatDurationHuman(30*24*time.Hour))
	assert.Equal(t, "1 day", formatDurationHuman(24*time.Hour))
	assert.Equal(t, "12 hours", formatDurationHuman(12*time.Hour))
}

func TestHotelSummary(t *testing.T) {
	assert.Equal(t, "h1, h2", hotelSummary([]string{"h1", "h2"}))
	assert.Equal(t, "a, b, c, d, e (+2 more)", hotelSummary([]string{"a", "b", "c", "d", "e", "f", "g"}))
}
