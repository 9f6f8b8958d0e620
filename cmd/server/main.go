package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/fabian-lindhardt/ableton-ebs/internal/config"
	"github.com/fabian-lindhardt/ableton-ebs/internal/domain"
	"github.com/fabian-lindhardt/ableton-ebs/internal/logging"
	"github.com/fabian-lindhardt/ableton-ebs/internal/relay"
	"github.com/fabian-lindhardt/ableton-ebs/internal/server"
	"github.com/fabian-lindhardt/ableton-ebs/internal/session"
	"github.com/fabian-lindhardt/ableton-ebs/internal/twitch"
)

func setupConfig() *config.Config {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupPublisher(cfg *config.Config, clock clockwork.Clock) domain.Publisher {
	if !cfg.PubSubEnabled() {
		slog.Info("PubSub broadcasting disabled, no credentials configured")
		return domain.NopPublisher{}
	}

	publisher, err := twitch.NewPublisher(cfg.TwitchClientID, cfg.ExtensionSecret, cfg.ExtensionOwnerID, cfg.ChannelID, clock)
	if err != nil {
		slog.Error("Failed to create PubSub publisher", "error", err)
		os.Exit(1)
	}
	return publisher
}

func setupVerifier(cfg *config.Config) server.TokenVerifier {
	if cfg.ExtensionSecret == "" {
		// Only reachable outside production; the dev token is the sole way in.
		slog.Warn("No extension secret configured, only DEV_TOKEN auth will work")
		return rejectAllVerifier{}
	}

	verifier, err := twitch.NewVerifier(cfg.ExtensionSecret)
	if err != nil {
		slog.Error("Failed to create token verifier", "error", err)
		os.Exit(1)
	}
	return verifier
}

type rejectAllVerifier struct{}

func (rejectAllVerifier) Verify(string) (domain.Claims, error) {
	return domain.Claims{}, errors.New("no extension secret configured")
}

func runGracefulShutdown(srv *server.Server, r *relay.Relay, publisher domain.Publisher) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		r.Stop()
		if p, ok := publisher.(*twitch.Publisher); ok {
			p.Stop()
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	publisher := setupPublisher(cfg, clock)

	engine := session.NewEngine(clock, cfg.TrialCooldown)
	gateway := session.NewGateway(engine, cfg.IsProduction(), session.ParseBypassPolicy(cfg.RoleBypassPolicy))

	r := relay.NewRelay(publisher, clock, cfg.ThrottleInterval)

	srv := server.NewServer(cfg, r, engine, gateway, setupVerifier(cfg))

	done := runGracefulShutdown(srv, r, publisher)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
