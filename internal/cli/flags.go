package cli

import (
	"io"

	"github.com/runnerr0/rankprep/internal/storage"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	EnvFile string `long:"env-file" description:"Dotenv file applied before RANKPREP_* overrides" default:".env"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// RunCommand builds sessions and enriched bookings for one venue and window.
type RunCommand struct {
	Vcid        string `long:"vcid" description:"Venue (city) id; overrides run.vcid"`
	Start       string `long:"start" description:"First day, YYYY-MM-DD (default today)"`
	End         string `long:"end" description:"Last day, YYYY-MM-DD (default start)"`
	SearchFile  string `long:"search-file" description:"Search event log (JSON lines)"`
	DetailFile  string `long:"detail-file" description:"Detail view log (JSON lines)"`
	BookingFile string `long:"booking-file" description:"Bookings ETL log (JSON lines)"`
	Workers     int    `long:"workers" description:"Session builder workers; overrides pipeline.workers"`
	Decay       string `long:"decay" description:"Booking recency decay (current or pld); overrides pipeline.decay"`

	globals *GlobalFlags
	version string
}

// SessionsCommand lists the sessions stored by a run.
type SessionsCommand struct {
	Run        string `long:"run" description:"Run id (default latest run)"`
	TrackingID string `long:"tracking-id" description:"Only sessions of this tracking id"`
	Limit      int    `long:"limit" description:"Maximum results" default:"20"`
	Offset     int    `long:"offset" description:"Skip first N results" default:"0"`

	globals *GlobalFlags
	version string
}

// BookingsCommand lists the enriched bookings stored by a run.
type BookingsCommand struct {
	Run       string `long:"run" description:"Run id (default latest run)"`
	Vendor    string `long:"vendor" description:"Only bookings of this vendor"`
	Confirmed bool   `long:"confirmed" description:"Only bookings with confirmed room-nights"`
	Limit     int    `long:"limit" description:"Maximum results" default:"20"`
	Offset    int    `long:"offset" description:"Skip first N results" default:"0"`

	globals *GlobalFlags
	version string
}

// StatusCommand shows database statistics, recent runs and config summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// ServeCommand serves stored runs over HTTP.
type ServeCommand struct {
	Host string `long:"host" description:"Override server.host"`
	Port int    `long:"port" description:"Override server.port"`

	globals *GlobalFlags
	version string
}

// PruneCommand deletes runs older than a retention period.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Retention period (e.g., 30d, 2w, 12h)" default:"30d"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`
	Force     bool   `long:"force" description:"Skip confirmation prompt"`

	globals *GlobalFlags
	version string
	store   storage.Store // injectable for testing; nil means open the configured DB
	stdin   io.Reader     // nil means os.Stdin
}

// PurgeCommand deletes ALL rankprep data with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	store   storage.Store // injectable for testing; nil means open the configured DB
	stdin   io.Reader     // nil means os.Stdin
}
