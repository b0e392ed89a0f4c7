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

	"ms-registration/internal/checkin"
	checkinapi "ms-registration/internal/checkin/api"
	"ms-registration/internal/config"
	"ms-registration/internal/kafka"
	"ms-registration/internal/logger"
	regdb "ms-registration/internal/registration/db"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	appLogger := logger.NewLogger()
	defer appLogger.Close()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("[Database] Failed to open Postgres: %v", err)
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatalf("[Database] Failed to connect to Postgres: %v", err)
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("REDIS", "connection failed: "+err.Error())
	}
	defer redisClient.Close()

	var publisher checkin.EventPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(
			cfg.Kafka.Brokers,
			cfg.Kafka.Topics.RegistrationEvents,
			cfg.Kafka.Topics.CheckInEvents,
			cfg.Kafka.Topics.BadgeEvents,
			appLogger,
		)
		defer producer.Close()
		publisher = producer
	}

	locker := checkin.NewRedisLocker(redisClient, appLogger)
	service := checkin.NewService(&regdb.DB{Bun: bunDB}, locker, publisher, cfg.CheckIn.LockTTL, appLogger)
	handler := checkinapi.NewHandler(service, appLogger)

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
		appLogger.Info("SERVER", "Check-in service on "+cfg.Server.Port)
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
	appLogger.Info("SERVER", "Check-in service shutdown complete")
}
