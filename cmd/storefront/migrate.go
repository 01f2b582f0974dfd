package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/cart"
	"github.com/fjod/go_shop/internal/catalog"
	"github.com/fjod/go_shop/internal/checkout"
	"github.com/fjod/go_shop/internal/config"
	"github.com/fjod/go_shop/internal/mongodb"
	"github.com/fjod/go_shop/internal/orders"
	"github.com/fjod/go_shop/pkg/logger"
	"github.com/spf13/cobra"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply catalog and order migrations and create MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runMigrate(cmd.Context(), cfg)
		},
	}
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Log.Level, "storefront-migrate")
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	products, err := catalog.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		return err
	}
	defer products.Close()
	if err := products.RunMigrations(cfg.Catalog.Migrations); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	log.Info("catalog migrations applied", "db_path", cfg.Catalog.DBPath)

	ledger, err := orders.NewPostgresRepository(ctx, cfg.OrdersCredentials())
	if err != nil {
		return err
	}
	defer ledger.Close()
	if err := ledger.RunMigrations(cfg.Postgres.Migrations); err != nil {
		return fmt.Errorf("orders: %w", err)
	}
	log.Info("order migrations applied", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName)

	db, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return err
	}
	defer db.Client().Disconnect(context.WithoutCancel(ctx))

	if err := cart.NewMongoRepository(db).CreateIndexes(ctx); err != nil {
		return fmt.Errorf("cart indexes: %w", err)
	}
	if err := checkout.NewMongoRepository(db).CreateIndexes(ctx); err != nil {
		return fmt.Errorf("checkout indexes: %w", err)
	}
	log.Info("mongodb indexes created", "database", cfg.Mongo.Database)
	return nil
}
