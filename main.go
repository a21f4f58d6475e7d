package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"triviaroom/cache"
	"triviaroom/config"
	"triviaroom/handlers"
	"triviaroom/middleware"
	"triviaroom/routes"
	"triviaroom/scoring"
	"triviaroom/services"
	"triviaroom/store"
	"triviaroom/store/memory"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

func main() {
	// Load configuration
	configPath := flag.String("config", "", "path to env file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize logger
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	roomStore, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	// Initialize Redis; the game runs without the snapshot cache if it is down
	opts := []services.Option{services.WithLogger(logger)}
	if cfg.Redis.Enabled {
		client, err := config.InitRedis(ctx, cfg)
		if err != nil {
			logger.Warn("redis unavailable, room snapshots will not be cached", slog.String("error", err.Error()))
		} else {
			defer client.Close()
			opts = append(opts, services.WithCache(cache.NewRoomCache(client, cfg.Redis.SnapshotTTL)))
		}
	}

	// Initialize services, sharing one set of options so they share the cache
	calc := scoring.New(cfg.Game.BaseScore, cfg.Game.TimeBonusMultiplier)
	roomService := services.NewRoomService(roomStore, cfg.Game, opts...)
	answerService := services.NewAnswerService(roomStore, calc, opts...)
	bankService := services.NewBankService(roomStore, opts...)

	// Seed the question bank on first start
	if cfg.SeedQuestions {
		seeded, err := bankService.SeedIfEmpty(ctx)
		if err != nil {
			logger.Error("failed to seed question bank", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if seeded > 0 {
			logger.Info("question bank seeded", slog.Int("questions", seeded))
		}
	}

	// Initialize handlers
	roomHandler := handlers.NewRoomHandler(roomService, answerService, logger)
	questionHandler := handlers.NewQuestionHandler(bankService, logger)

	// Setup router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))
	routes.SetupRoutes(router, roomHandler, questionHandler)

	// Setup CORS
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.HTTP.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Requested-With"},
		MaxAge:         300,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      corsMiddleware.Handler(router),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	// Start server
	go func() {
		logger.Info("server starting", slog.String("addr", srv.Addr), slog.String("store", cfg.DB.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.String("error", err.Error()))
		return
	}
	logger.Info("server shutdown gracefully")
}

// openStore returns the configured Store and a function that releases it.
func openStore(cfg *config.Config) (services.Store, func(), error) {
	if cfg.DB.Driver == config.DriverMemory {
		return memory.New(), func() {}, nil
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(db); err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	if sqlDB, err := db.DB(); err == nil {
		closeFn = func() { sqlDB.Close() }
	}
	return store.New(db), closeFn, nil
}
