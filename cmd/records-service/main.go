package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/worktime/worktime-backend/internal/records/consumers"
	"github.com/worktime/worktime-backend/internal/records/events"
	"github.com/worktime/worktime-backend/internal/records/handler"
	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/internal/records/service"
	"github.com/worktime/worktime-backend/internal/records/workday"
	"github.com/worktime/worktime-backend/pkg/cache"
	"github.com/worktime/worktime-backend/pkg/config"
	"github.com/worktime/worktime-backend/pkg/database"
	apperrors "github.com/worktime/worktime-backend/pkg/errors"
	"github.com/worktime/worktime-backend/pkg/httputil"
	"github.com/worktime/worktime-backend/pkg/i18n"
	"github.com/worktime/worktime-backend/pkg/logger"
	"github.com/worktime/worktime-backend/pkg/messaging"
)

const serviceName = "records-service"

func main() {
	// Fails fast in production if required config is missing
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting Records Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	redisClient, err := cache.New(ctx, &cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Event publisher; without a broker events are dropped
	var rmq *messaging.RabbitMQ
	publisher := events.NewRecordsEventPublisher(messaging.NoopPublisher{}, log)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
			log.Fatal().Err(err).Msg("failed to declare dead letter queue")
		}

		publisher, err = events.NewRabbitPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	}

	// Repositories
	employeeRepo := repository.NewEmployeeRepository(db)
	recordRepo := repository.NewWorkRecordRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	tableStore := repository.NewTableStore(db, cfg.Records.AggregateViewName, log)
	holidays := repository.NewHolidayCache(repository.NewHolidayRepository(db), redisClient, cfg.Redis.HolidayTTL, log)

	// Services
	calculator := workday.NewCalculator(holidays, cfg.Records.WorkdaySearchBound, log)
	lifecycle := service.NewTableLifecycle(db, employeeRepo, tableStore, publisher, log)
	employeeService := service.NewEmployeeService(db, employeeRepo, lifecycle, publisher, log)
	recordService := service.NewRecordService(db, employeeRepo, recordRepo, calculator, publisher, cfg.Records, log)

	// The view may be stale after a crash between DDL and rebuild
	if report, err := lifecycle.Reconcile(ctx); err != nil {
		log.Error().Err(err).Msg("startup reconcile failed")
	} else {
		log.Info().Int("tables", len(report.Tables)).Msg("aggregate view ready")
	}

	if rmq != nil {
		hrConsumer, err := consumers.NewHREventConsumer(rmq, employeeService, lifecycle, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create HR event consumer")
		}
		if err := hrConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start HR event consumer")
		}
	}

	// Handlers
	recordHandler := handler.NewRecordHandler(recordService, log)
	employeeHandler := handler.NewEmployeeHandler(employeeService, log)
	catalogHandler := handler.NewCatalogHandler(catalogRepo, holidays, log)
	adminHandler := handler.NewAdminHandler(lifecycle, log)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "Accept-Language"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(i18n.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, r, apperrors.NotFound("route"))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		broker := map[string]string{"status": "disabled"}
		if rmq != nil {
			broker = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
			"rabbitmq": broker,
			"redis":    cache.Health(r.Context(), redisClient),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			limit, err := httputil.RateLimit(cfg.RateLimit.Rate)
			if err != nil {
				log.Fatal().Err(err).Msg("invalid rate limit")
			}
			r.Use(limit)
		}

		recordHandler.Register(r)
		employeeHandler.Register(r)
		catalogHandler.Register(r)
		adminHandler.Register(r)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stops the HR consumer
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
