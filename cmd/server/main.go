package main

import (
	"context"
	"fmt"

	"github.com/vaultkeeper/vaultkeeper/internal/config"
	httpHandler "github.com/vaultkeeper/vaultkeeper/internal/handler/http"
	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/server"
	"github.com/vaultkeeper/vaultkeeper/internal/service"
	"github.com/vaultkeeper/vaultkeeper/internal/store"
	"github.com/vaultkeeper/vaultkeeper/internal/workers"
	"github.com/vaultkeeper/vaultkeeper/migrations"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.New("vaultkeeper-server")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx := context.Background()

	db, err := store.NewConnectPostgres(ctx, cfg.Storage.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to database")
	}

	if err := migrations.Migrate(db.DB); err != nil {
		log.Fatal().Err(err).Msg("error applying migrations")
	}

	storages := store.NewStorages(db, log)
	services := service.NewServices(storages, cfg, log)
	handler := httpHandler.NewHandler(services, log)
	background := workers.NewWorkers(storages, cfg.Workers, log)

	srv, err := server.NewServer(handler, background, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
