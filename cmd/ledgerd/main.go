// ==============================================================================
// VALUE LEDGER SERVICE MAIN - cmd/ledgerd/main.go
// ==============================================================================
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"vledger/internal/conversion"
	"vledger/internal/event"
	"vledger/internal/handler"
	"vledger/internal/identity"
	"vledger/internal/ledger"
	"vledger/internal/limits"
	"vledger/internal/middleware"
	"vledger/internal/oracle"
	"vledger/internal/policy"
	"vledger/internal/repository/postgres"
	"vledger/internal/transfer"
	"vledger/internal/usage"
	"vledger/pkg/config"
	"vledger/pkg/logger"
	"vledger/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("ledger-service")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting Value Ledger Service", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	// Database connection
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Database connected", nil)

	// Redis connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Redis connected", nil)

	// Repositories
	identityRepo := postgres.NewIdentityRepository(db)
	usageRepo := postgres.NewUsageRepository(db)
	balanceRepo := postgres.NewBalanceRepository(db)
	eventRepo := postgres.NewEventRepository(db)

	// Policy table from configuration
	table, err := policy.NewTable(cfg.Policy)
	if err != nil {
		log.Fatal("Invalid policy configuration", map[string]interface{}{"error": err.Error()})
	}

	// Services
	events := event.NewRecorder(eventRepo, log)
	identityService := identity.NewService(identityRepo, events, log)
	usageTracker := usage.NewTracker(usageRepo, log)
	enforcer := limits.NewEnforcer(table, identityService, usageTracker, events, log, cfg.Policy.EnforcementEnabled)
	ledgerService := ledger.NewService(balanceRepo, events, log)

	// Oracle providers, outermost first
	var providers []oracle.RateProvider
	if cfg.Oracle.ProviderURL != "" {
		providers = append(providers, oracle.NewHTTPRateProvider(cfg.Oracle.ProviderURL, cfg.Oracle.Timeout))
	}
	providers = append(providers, oracle.NewStaticRateProvider(nil))
	rateCache := oracle.NewRedisRateCache(redisClient)
	oracleService := oracle.NewService(rateCache, providers, cfg.Oracle.CacheTTL, log)

	conversionService := conversion.NewService(ledgerService, oracleService, events, log)
	transferService := transfer.NewService(enforcer, ledgerService, events, log)

	// Handlers
	val := validator.New()
	adminHandler := handler.NewAdminHandler(identityService, enforcer, ledgerService, val, log)
	transferHandler := handler.NewTransferHandler(transferService, val, log)
	convertHandler := handler.NewConvertHandler(conversionService, val, log)
	queryHandler := handler.NewQueryHandler(identityService, enforcer, ledgerService, usageTracker, events, log)

	// Router
	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.NewRateLimiter(redisClient, "edge", 150, time.Minute).Limit)

	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Health check routes (no auth)
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ready", readyCheck(db)).Methods("GET")

	// Protected routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Authenticate)
	api.Use(middleware.NewRateLimiter(redisClient, "api", 60, time.Minute).Limit)

	idemMW := middleware.NewIdempotencyMiddleware(redisClient, 24*time.Hour, log)

	api.Handle("/transfers", idemMW.Require(http.HandlerFunc(transferHandler.Transfer))).Methods("POST")
	api.Handle("/conversions", idemMW.Require(http.HandlerFunc(convertHandler.Convert))).Methods("POST")

	api.HandleFunc("/accounts/{account_id}/identity", queryHandler.GetIdentity).Methods("GET")
	api.HandleFunc("/accounts/{account_id}/valid", queryHandler.GetValidity).Methods("GET")
	api.HandleFunc("/accounts/{account_id}/usage", queryHandler.GetUsage).Methods("GET")
	api.HandleFunc("/accounts/{account_id}/balances", queryHandler.ListBalances).Methods("GET")
	api.HandleFunc("/accounts/{account_id}/balances/{currency}", queryHandler.GetBalance).Methods("GET")
	api.HandleFunc("/currencies", queryHandler.ListCurrencies).Methods("GET")
	api.HandleFunc("/enforcement", queryHandler.GetEnforcement).Methods("GET")
	api.HandleFunc("/events", queryHandler.ListEvents).Methods("GET")

	// Admin routes; privilege is re-checked in the service layer
	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/identities/{account_id}", adminHandler.UpdateIdentity).Methods("PUT")
	admin.HandleFunc("/identities/{account_id}/suspend", adminHandler.SuspendIdentity).Methods("POST")
	admin.HandleFunc("/identities/{account_id}/reinstate", adminHandler.ReinstateIdentity).Methods("POST")
	admin.HandleFunc("/enforcement", adminHandler.SetEnforcement).Methods("PUT")
	admin.HandleFunc("/currencies", adminHandler.RegisterCurrency).Methods("POST")
	admin.HandleFunc("/issue", adminHandler.Issue).Methods("POST")
	admin.HandleFunc("/redeem", adminHandler.Redeem).Methods("POST")

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Server stopped", nil)
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func readyCheck(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}
