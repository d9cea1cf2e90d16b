package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sanyam33/GSC-Verifier/internal/api"
	"github.com/Sanyam33/GSC-Verifier/internal/api/middleware"
	"github.com/Sanyam33/GSC-Verifier/internal/auth/google"
	"github.com/Sanyam33/GSC-Verifier/internal/auth/token"
	"github.com/Sanyam33/GSC-Verifier/internal/config"
	"github.com/Sanyam33/GSC-Verifier/internal/db"
	"github.com/Sanyam33/GSC-Verifier/internal/jobs"
	"github.com/Sanyam33/GSC-Verifier/internal/providers/catalog"
	"github.com/Sanyam33/GSC-Verifier/internal/upstream"
	"github.com/Sanyam33/GSC-Verifier/internal/verification"
	"github.com/Sanyam33/GSC-Verifier/internal/version"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	profile, err := catalog.Load(cfg.ProviderFile)
	if err != nil {
		log.Fatalf("Failed to load provider profile: %v", err)
	}

	// Initialize database
	database, err := db.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	store := db.NewVerificationStore(database)

	// Google clients share one bounded HTTP client
	httpClient := google.NewHTTPClient(profile)
	exchanger := google.NewExchanger(google.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURI:  cfg.Google.RedirectURI,
	}, profile, httpClient)

	svc := verification.NewService(verification.Deps{
		Store:     store,
		OAuth:     exchanger,
		Resolver:  google.NewOwnershipResolver(profile, httpClient),
		Tokens:    token.NewManager(exchanger, store),
		Analytics: upstream.NewClient(profile, httpClient),
		Profile:   profile,
	})

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateBurst)

	scheduler := jobs.NewScheduler()
	if err := scheduler.Add("@every 10m", "rate limiter cleanup", func() { limiter.Cleanup() }); err != nil {
		log.Fatalf("Failed to schedule jobs: %v", err)
	}
	if cfg.SweepSchedule != "" {
		if err := scheduler.Add(cfg.SweepSchedule, "pending verification sweep", jobs.SweepJob(store)); err != nil {
			log.Fatalf("Failed to schedule jobs: %v", err)
		}
	}
	scheduler.Start()

	router := api.NewRouter(api.RouterConfig{
		Verifier:    svc,
		Ping:        func(ctx context.Context) error { return db.Ping(ctx, database) },
		APIKey:      cfg.APIKey,
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     limiter,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("🚀 GSC Verifier %s starting on http://%s", version.Version, cfg.Addr())
		log.Printf("🔌 API: http://%s/api/v1/gsc", cfg.Addr())
		if cfg.APIKey == "" {
			log.Printf("⚠️ GSC_API_KEY is not set, platform routes are unauthenticated")
		}
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	scheduler.Stop(ctx)

	if sqlDB, err := database.DB(); err == nil {
		sqlDB.Close()
	}
	log.Println("Server exited")
}
