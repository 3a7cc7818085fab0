package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/rsonetv/motoauto-bidding/internal/config"
	"github.com/rsonetv/motoauto-bidding/internal/db"
	"github.com/rsonetv/motoauto-bidding/internal/engine"
	"github.com/rsonetv/motoauto-bidding/internal/handlers"
	"github.com/rsonetv/motoauto-bidding/internal/notify"
	"github.com/rsonetv/motoauto-bidding/internal/realtime"
	"github.com/rsonetv/motoauto-bidding/internal/repository"
	"github.com/rsonetv/motoauto-bidding/internal/router"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	runDBMigration(cfg.MigrationURL, cfg.PostgresConn)

	dbPool, err := db.InitDb(cfg)
	if err != nil {
		log.Fatalf("error initializing database: %v", err)
	}
	defer dbPool.Close()

	logger := log.New(os.Stdout, "INFO: ", log.LstdFlags)

	auctionRepo := repository.NewPostgresAuctionRepository(dbPool)
	bidRepo := repository.NewPostgresBidRepository(dbPool)

	hub := realtime.NewHub(logger)
	publishers := notify.Multi{hub}
	if cfg.NatsURL != "" {
		natsPub, err := notify.NewNATSPublisher(cfg.NatsURL, logger)
		if err != nil {
			log.Fatalf("cannot connect to nats: %v", err)
		}
		defer natsPub.Close()
		publishers = append(publishers, natsPub)
	}

	eng := engine.New(auctionRepo, bidRepo, publishers, engine.SystemClock{}, logger, engine.Options{
		LockTimeout:     cfg.BidLockTimeout,
		SoftCloseWindow: cfg.SoftCloseWindow,
		AllowSelfOutbid: cfg.AllowSelfOutbid,
	})
	if err := eng.RestoreSchedules(context.Background()); err != nil {
		log.Fatalf("cannot restore close timers: %v", err)
	}

	auctionHandler := handlers.NewAuctionHandler(eng, logger, cfg.HandlerTimeout)
	bidHandler := handlers.NewBidHandler(eng, logger, cfg.HandlerTimeout)

	routes := router.InitRoutes(auctionHandler, bidHandler, hub)

	log.Printf("server is listening on %s...", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, routes); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func runDBMigration(migrationURL string, dbSource string) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		log.Fatal("cannot create a new migrate instance", err)
	}

	if err = migration.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatal("failed to run migrate up:", err)
	}
	log.Println("db migrated successfully")
}
