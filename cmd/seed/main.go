// Command seed loads the demo catalog into the configured database.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/app/migrations"
	catalogpostgres "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/repository/postgres"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/seed"
	catalogservice "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/service"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/config"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/database"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		MaxConns: 5,
		MinConns: 1,
	}, log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	svc := catalogservice.NewCatalogService(catalogpostgres.NewProductRepository(pool), log)
	if err := seed.Run(ctx, svc, log); err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("catalog seeded")
}
