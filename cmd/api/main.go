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

	"github.com/craftcode/landing-backend/config"
	"github.com/craftcode/landing-backend/internal/bootstrap"
	"github.com/craftcode/landing-backend/internal/contact/service"
	"github.com/craftcode/landing-backend/internal/logging"
)

const serviceName = "landing-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.SetLevel(logging.ParseLevel(cfg.App.LogLevel))
	bootstrap.SetGinMode(cfg)

	ctx := context.Background()
	backends, err := bootstrap.BuildInserter(ctx, cfg)
	if err != nil {
		log.Fatalf("persistence: %v", err)
	}
	defer backends.Close()

	registry := service.NewRegistry(
		backends.Inserter,
		service.NewMetrics(),
		service.WithControllerResetDelay(cfg.Contact.ResetDelay),
		service.WithSessionTTL(cfg.Contact.SessionTTL),
	)
	if err := registry.StartSweeper(); err != nil {
		log.Fatalf("session sweeper: %v", err)
	}
	defer registry.Close()

	deps := bootstrap.RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		Backend:        backends.Name,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		ContactEmail:   cfg.Contact.Email,
		Registry:       registry,
	}
	if backends.DB != nil {
		deps.DB = backends.DB
	}
	if backends.Redis != nil {
		deps.Redis = bootstrap.RedisPinger{Client: backends.Redis}
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           bootstrap.BuildRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("%s %s listening on :%s (env=%s)", serviceName, cfg.App.Version, cfg.Server.Port, cfg.App.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down server...")

	// Ends open event streams and cancels pending resets.
	registry.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	log.Printf("server stopped")
}
