package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/examforge/backend/internal/auth"
	"github.com/examforge/backend/internal/database"
	"github.com/examforge/backend/internal/middleware"
	"github.com/examforge/backend/internal/practice"
	"github.com/examforge/backend/internal/verification"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment as-is")
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Session dedup cache: entries idle past the TTL are evicted so an old
	// sitting never bleeds into a new one.
	dedup := practice.NewDedupCache(envDuration("DEDUP_TTL", 2*time.Hour))
	go dedup.StartJanitor(ctx, 10*time.Minute)

	practiceStore := practice.NewStore(db)
	practiceService := practice.NewService(practiceStore, dedup)
	practiceHandler := practice.NewHandler(practiceService)

	verifyStore := verification.NewStore(db)
	verifyClient, model := verification.NewClient()
	log.Printf("Verification model: %s", model)
	worker := verification.NewWorker(
		verifyStore,
		verifyClient,
		envInt("VERIFICATION_BATCH_SIZE", 25),
		envDuration("VERIFICATION_RUN_BUDGET", 5*time.Minute),
		envDuration("VERIFICATION_INTERVAL", time.Minute),
	)
	go worker.Start(ctx)
	verifyHandler := verification.NewHandler(verifyStore)

	authHandler := auth.NewHandler(db)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	practiceHandler.RegisterRoutes(protected)
	verifyHandler.RegisterRoutes(protected)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{Addr: ":" + port, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("WARN: server shutdown: %v", err)
		}
	}()

	log.Printf("Server starting on :%s", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("WARN: invalid %s=%q, using %s", key, v, fallback)
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("WARN: invalid %s=%q, using %d", key, v, fallback)
	}
	return fallback
}
