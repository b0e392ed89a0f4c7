package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-registration/internal/badge"
	"ms-registration/internal/config"
	"ms-registration/internal/database/migrations"
	"ms-registration/internal/kafka"
	"ms-registration/internal/logger"
	"ms-registration/internal/printing"
	"ms-registration/internal/registration"
	regapi "ms-registration/internal/registration/api"
	regdb "ms-registration/internal/registration/db"
	"ms-registration/internal/sequence"
	"ms-registration/internal/visitor"
)

func connectDatabase(cfg *config.Config) *bun.DB {
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("[Database] Failed to open Postgres: %v", err)
	}
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	if err := sqldb.Ping(); err != nil {
		log.Fatalf("[Database] Failed to connect to Postgres: %v", err)
	}
	log.Println("[Database] Postgres connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	appLogger := logger.NewLogger()
	defer appLogger.Close()

	bunDB := connectDatabase(cfg)
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
			MigrationsDir: "./migrations",
			AutoMigrate:   true,
		}, appLogger)
		if err := runner.RunMigrations(); err != nil {
			appLogger.Fatal("DATABASE", "migrations: "+err.Error())
		}
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("REDIS", "connection failed: "+err.Error())
	}
	defer redisClient.Close()

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(
			cfg.Kafka.Brokers,
			cfg.Kafka.Topics.RegistrationEvents,
			cfg.Kafka.Topics.CheckInEvents,
			cfg.Kafka.Topics.BadgeEvents,
			appLogger,
		)
		defer producer.Close()
	}

	store := badge.NewStore(cfg.Badge.Dir, appLogger)
	compositor := badge.NewCompositor(store, &http.Client{Timeout: cfg.Badge.BannerFetchTimeout}, appLogger)

	storage := &regdb.DB{Bun: bunDB}
	resolver := visitor.NewResolver(&visitor.DB{Bun: bunDB}, appLogger)
	allocator := sequence.NewAllocator(bunDB)

	var publisher registration.EventPublisher
	if producer != nil {
		publisher = producer
	}
	service := registration.NewService(storage, resolver, allocator, compositor, publisher, appLogger)

	printer := printing.NewRedisSubmitter(redisClient, cfg.Redis.PrintQueue, appLogger)
	handler := regapi.NewHandler(service, printer, appLogger)

	// Badge files for long-completed exhibitions are reaped in the
	// background; they regenerate lazily if ever requested again.
	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	reaper := badge.NewReaper(storage, store, cfg.Badge.RetentionGrace, cfg.Badge.SweepInterval, appLogger)
	go reaper.Run(reaperCtx)

	r := chi.NewRouter()
	r.Route("/api", handler.Routes)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("SERVER", "Registration service on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	appLogger.Info("SERVER", "Registration service shutdown complete")
}
