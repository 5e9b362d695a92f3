// Package main is the entry point for the Invexis portfolio optimization and
// forecasting server.
//
// Startup sequence:
//  1. Load configuration from environment variables and the optional
//     engine parameters file
//  2. Initialize structured logging
//  3. Open the three databases (history, users, cache)
//  4. Wire repositories, clients and services
//  5. Register background jobs (price refresh, backups)
//  6. Start the HTTP server and wait for a shutdown signal
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/invexis/invexis/internal/clients/yahoo"
	"github.com/invexis/invexis/internal/config"
	"github.com/invexis/invexis/internal/database"
	"github.com/invexis/invexis/internal/modules/history"
	historyhandlers "github.com/invexis/invexis/internal/modules/history/handlers"
	"github.com/invexis/invexis/internal/modules/optimization"
	"github.com/invexis/invexis/internal/modules/portfolio"
	portfoliohandlers "github.com/invexis/invexis/internal/modules/portfolio/handlers"
	"github.com/invexis/invexis/internal/modules/simulation"
	"github.com/invexis/invexis/internal/modules/users"
	usershandlers "github.com/invexis/invexis/internal/modules/users/handlers"
	"github.com/invexis/invexis/internal/modules/watchlist"
	watchlisthandlers "github.com/invexis/invexis/internal/modules/watchlist/handlers"
	"github.com/invexis/invexis/internal/reliability"
	"github.com/invexis/invexis/internal/scheduler"
	"github.com/invexis/invexis/internal/server"
	"github.com/invexis/invexis/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Invexis")

	// Databases: durable history and users, ephemeral calculation cache.
	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	usersDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "users.db"),
		Profile: database.ProfileStandard,
		Name:    "users",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open users database")
	}
	defer usersDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := historyDB.InitSchema(history.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize history schema")
	}
	if err := usersDB.InitSchema(users.Schema + watchlist.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize users schema")
	}

	// Clients and repositories.
	yahooClient := yahoo.NewClient(cfg.ProviderURL, log)
	historyRepo := history.NewRepository(historyDB.Conn(), log)
	usersRepo := users.NewRepository(usersDB.Conn(), log)
	watchlistRepo := watchlist.NewRepository(usersDB.Conn(), log)

	// Services.
	historyService := history.NewService(historyRepo, yahooClient, log)
	usersService := users.NewService(usersRepo, log)

	optCache, err := optimization.NewCache(cacheDB.Conn(), 24*time.Hour, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize optimization cache")
	}
	optimizer := optimization.NewService(cfg.Engine, optCache, log)
	simulator := simulation.NewSimulator(cfg.Engine.DefaultSeed, log)
	portfolioService := portfolio.NewService(optimizer, simulator, historyService, cfg.Engine, log)

	// Background jobs.
	sched := scheduler.New(log)
	refreshJob := scheduler.NewRefreshPricesJob(historyService, watchlistRepo, log)
	if err := sched.AddJob("0 30 2 * * *", refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register price refresh job")
	}

	if cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup client")
		}
		backupService := reliability.NewBackupService(
			s3Client, cfg.DataDir,
			[]*database.DB{historyDB, usersDB},
			log,
		)
		backupJob := scheduler.NewBackupJob(backupService, 30, log)
		if err := sched.AddJob(cfg.Backup.Schedule, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server.
	srv := server.New(server.Config{
		Log:               log,
		Cfg:               cfg,
		HistoryDB:         historyDB,
		UsersDB:           usersDB,
		PortfolioHandlers: portfoliohandlers.NewHandler(portfolioService, log),
		MarketHandlers:    historyhandlers.NewHandler(historyService, yahooClient, log),
		UsersHandlers:     usershandlers.NewHandler(usersService, log),
		WatchlistHandlers: watchlisthandlers.NewHandler(watchlistRepo, yahooClient, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Invexis stopped")
}
