package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trailerdeck/trailerdeck/internal/auth"
	"github.com/trailerdeck/trailerdeck/internal/billing"
	"github.com/trailerdeck/trailerdeck/internal/env"
	"github.com/trailerdeck/trailerdeck/internal/handlers"
	"github.com/trailerdeck/trailerdeck/internal/ingest"
	"github.com/trailerdeck/trailerdeck/internal/logger"
	"github.com/trailerdeck/trailerdeck/internal/searches"
	"github.com/trailerdeck/trailerdeck/internal/store"
	"github.com/trailerdeck/trailerdeck/internal/tmdb"
	"github.com/trailerdeck/trailerdeck/internal/web"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultPort      = "8080"
	defaultImageBase = "https://image.tmdb.org/t/p/w342"
)

func main() {
	level := slog.LevelDebug
	if env.Current == env.Production {
		level = slog.LevelInfo
	}
	slog.SetDefault(logger.New(level))
	if err := run(); err != nil {
		fmt.Println("Error:", err.Error())
		os.Exit(1)
	}
}

func run() error {
	dbPath := env.Or("DB_PATH", "/app/data/trailerdeck.db")

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Failed to close DB", logger.Error(err))
		}
	}()

	authManager, err := auth.NewManager(os.Getenv("JWT_SECRET"), 24*time.Hour)
	if err != nil {
		return err
	}

	rdb := searches.NewRedisClient(env.Or("REDIS_ADDR", "localhost:6379"), os.Getenv("REDIS_PASSWORD"))

	var stripeClient *billing.Client
	stripeClient, err = billing.New(billing.Config{
		SecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		WebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PremiumPriceID: os.Getenv("STRIPE_PREMIUM_PRICE_ID"),
		SuccessURL:     env.Or("STRIPE_SUCCESS_URL", "http://localhost:8080/account?upgraded=1"),
		CancelURL:      env.Or("STRIPE_CANCEL_URL", "http://localhost:8080/account"),
	})
	if err != nil {
		if !errors.Is(err, billing.ErrNotConfigured) {
			return err
		}
		slog.Warn("stripe disabled, billing endpoints will return 503")
		stripeClient = nil
	}

	pipeline := ingest.New(ingest.Config{
		Source:    tmdb.New(os.Getenv("TMDB_API_KEY"), os.Getenv("TMDB_API_READ_TOKEN")),
		Store:     st,
		Lock:      ingest.NewLocker(rdb),
		ImageBase: env.Or("TMDB_IMAGE_BASE", defaultImageBase),
	})

	app, err := handlers.New(handlers.Config{
		Store:      st,
		Auth:       authManager,
		Billing:    stripeClient,
		Pipeline:   pipeline,
		Recent:     searches.New(rdb),
		AdminToken: os.Getenv("ADMIN_TOKEN"),
	})
	if err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(slog.Default(), &httplog.Options{
		Level:         slog.LevelInfo,
		RecoverPanics: true,
		Skip: func(req *http.Request, respStatus int) bool {
			return req.URL.Path == "/healthz" || req.URL.Path == "/metrics"
		},
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{env.Or("CORS_ORIGIN", "*")},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Admin-Token"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", app.RegisterRoutes)

	distFS, err := web.Dist()
	if err != nil {
		return fmt.Errorf("failed to load embedded frontend: %w", err)
	}
	spa, err := handlers.SPA(distFS)
	if err != nil {
		return err
	}
	r.NotFound(spa.ServeHTTP)

	addr := ":" + env.Or("PORT", defaultPort)
	log.Printf("listening on %s", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// The admin catalog refresh holds its request open for the whole
		// provider crawl, so the write timeout has to cover it.
		WriteTimeout: 20 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
