// Command sharecore runs the sharing core as a standalone process: it loads
// configuration, installs the zerolog-backed slog handler, and wires the
// share manager and remote listing manager together (spec §4.11).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/h0od/airdcpp-webclient/remote"
	"github.com/h0od/airdcpp-webclient/share"
	"github.com/h0od/airdcpp-webclient/share/config"
	"github.com/h0od/airdcpp-webclient/share/fuseview"
	"github.com/h0od/airdcpp-webclient/share/logging"
	"github.com/h0od/airdcpp-webclient/share/profile"

	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "path to sharecore config.yaml")
	flag.Parse()

	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger := slog.New(logging.NewHandler(zl))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	shareMgr, err := share.New(share.Deps{
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to start share manager", "error", err)
		os.Exit(1)
	}
	defer shareMgr.Shutdown()

	remoteMgr := remote.New(remote.Deps{
		ShareMgr: shareMgr,
		Logger:   logger,
	})
	logger.Info("remote listing manager ready", "adlRules", 0)
	_ = remoteMgr

	if cfg.Fuse.Mountpoint != "" {
		fuseServer, err := fuseview.Mount(cfg.Fuse.Mountpoint, shareMgr.Tree(), profile.Default)
		if err != nil {
			logger.Error("failed to mount fuse view", "mountpoint", cfg.Fuse.Mountpoint, "error", err)
			os.Exit(1)
		}
		logger.Info("fuse view mounted", "mountpoint", cfg.Fuse.Mountpoint)
		defer func() {
			if err := fuseServer.Unmount(); err != nil {
				logger.Error("failed to unmount fuse view", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("sharecore started")
	<-ctx.Done()
	logger.Info("sharecore shutting down")
}
