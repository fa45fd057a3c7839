package cli

import (
	"context"
	"net"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/runnerr0/rankprep/internal/config"
	"github.com/runnerr0/rankprep/internal/server"
	"github.com/runnerr0/rankprep/internal/storage"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals, c.applyFlags)
	if err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg, c.globals)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	ctx, stop := signalContext()
	defer stop()

	return c.executeWithStore(ctx, cfg, store, logger)
}

func (c *ServeCommand) applyFlags(cfg *config.Config) {
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port > 0 {
		cfg.Server.Port = c.Port
	}
}

// executeWithStore serves a provided store until ctx is cancelled (for testing).
func (c *ServeCommand) executeWithStore(ctx context.Context, cfg *config.Config, store storage.Store, logger *logrus.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	return server.New(store, loc, logger).ListenAndServe(ctx, addr)
}
