package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/runnerr0/rankprep/internal/config"
	"github.com/runnerr0/rankprep/internal/storage"
	"github.com/runnerr0/rankprep/internal/views"
)

const recentRuns = 5

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string      `json:"version"`
	DatabasePath      string      `json:"database_path"`
	DatabaseSizeBytes int64       `json:"database_size_bytes"`
	Timezone          string      `json:"timezone"`
	Workers           int         `json:"workers"`
	Stats             views.Stats `json:"stats"`
	RecentRuns        []views.Run `json:"recent_runs"`
	ServerAddr        string      `json:"server_addr"`
	ServerRunning     bool        `json:"server_running"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
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

	return c.executeWithStore(context.Background(), cfg, store, db)
}

// executeWithStore runs status against a provided store and db (for testing).
func (c *StatusCommand) executeWithStore(ctx context.Context, cfg *config.Config, store storage.Store, db *sql.DB) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	runs, err := store.ListRuns(ctx, storage.RunQuery{Limit: recentRuns})
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		return err
	}

	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: getDatabaseSize(db, dbPath),
		Timezone:          loc.String(),
		Workers:           cfg.Pipeline.Workers,
		Stats:             views.FromStats(stats, loc),
		RecentRuns:        views.FromRuns(runs, loc),
		ServerAddr:        net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
	}
	out.ServerRunning = checkServer(out.ServerAddr)

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}
	printStatusHuman(out)
	return nil
}

func printStatusHuman(out statusJSON) {
	fmt.Println("rankprep Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", out.Version)
	fmt.Printf("Database:      %s (%s)\n", out.DatabasePath, formatBytes(out.DatabaseSizeBytes))
	fmt.Printf("Runs:          %s\n", formatNumber(out.Stats.TotalRuns))
	fmt.Printf("Sessions:      %s\n", formatNumber(out.Stats.TotalSessions))
	fmt.Printf("Details:       %s\n", formatNumber(out.Stats.TotalDetails))
	fmt.Printf("Bookings:      %s\n", formatNumber(out.Stats.TotalBookings))

	if out.Stats.TotalRuns > 0 {
		fmt.Printf("Oldest run:    %s\n", out.Stats.OldestRun)
		fmt.Printf("Newest run:    %s\n", out.Stats.NewestRun)
	}
	fmt.Printf("Timezone:      %s\n", out.Timezone)
	fmt.Printf("Workers:       %d\n", out.Workers)

	if len(out.Stats.TopVendors) > 0 {
		fmt.Println()
		fmt.Println("Top Vendors:")
		for _, v := range out.Stats.TopVendors {
			fmt.Printf("  %-20s %s\n", v.Vendor, formatNumber(v.Count))
		}
	}

	if len(out.RecentRuns) > 0 {
		fmt.Println()
		fmt.Println("Recent Runs:")
		for _, r := range out.RecentRuns {
			fmt.Printf("  %s  %s  %s .. %s  %-8s  %d sessions, %d bookings\n",
				shortID(r.ID), r.Vcid, r.StartDate, r.EndDate, r.Status,
				r.Counts.Sessions, r.Counts.Bookings)
		}
	}

	fmt.Println()
	if out.ServerRunning {
		fmt.Printf("Server:        running at http://%s\n", out.ServerAddr)
	} else {
		fmt.Println("Server:        not running")
	}
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}
	if db == nil {
		return 0
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// checkServer reports whether `rankprep serve` answers on addr within 1 second.
func checkServer(addr string) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get("http://" + addr + "/api/status")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
