package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/sdfgeoff/ndscore/internal/config"
	"github.com/sdfgeoff/ndscore/internal/httpd"
	"github.com/sdfgeoff/ndscore/internal/logging"
	"github.com/sdfgeoff/ndscore/internal/router"
	"github.com/sdfgeoff/ndscore/internal/routes"
	"github.com/sdfgeoff/ndscore/internal/session"
	"github.com/sdfgeoff/ndscore/internal/storage/sqlite"
)

func main() {
	cfg := config.LoadServerConfig()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logging: %v", err)
	}
	defer logger.Sync()

	store, err := sqlite.NewStore(cfg.Database, logger)
	if err != nil {
		logger.Fatalw("init_storage_failed", "error", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(ctx); err != nil {
		logger.Fatalw("migrate_failed", "error", err)
	}

	sessions := session.NewManager(store, cfg.Session, logger)
	registry := router.NewRegistry(store, sessions, routes.StaticFS, logger,
		routes.Simple(),
		routes.User(),
		routes.Thread(),
		routes.Index(cfg.Index.PageSize),
	)

	server, err := httpd.Listen(cfg.ListenAddr, cfg.HTTP, logger)
	if err != nil {
		logger.Fatalw("listen_failed", "addr", cfg.ListenAddr, "error", err)
	}
	defer server.Close()

	logger.Infow("server_listening", "addr", server.Addr().String())
	if err := server.Run(ctx, registry.Handle); err != nil {
		logger.Fatalw("server_failed", "error", err)
	}
	logger.Infow("server_stopped")
}
