package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/ember/internal/config"
	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/http"
	"github.com/davidbz/ember/internal/http/middleware"
	"github.com/davidbz/ember/internal/observability"
	"github.com/davidbz/ember/internal/provider/cerebras"
	"github.com/davidbz/ember/internal/provider/echo"
	"github.com/davidbz/ember/internal/provider/registry"
)

// ErrProviderNotConfigured indicates that a provider is not configured and should be skipped.
var ErrProviderNotConfigured = errors.New("provider not configured")

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *http.Server, serverCfg *config.ServerConfig, logger *zap.Logger) error {
		defer func() { _ = logger.Sync() }()
		return run(server, serverCfg)
	})
	if err != nil {
		log.Fatalf("Failed to run application: %v", err)
	}
}

func run(server *http.Server, serverCfg *config.ServerConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(serverCfg.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}

	// Provider Registry
	if err := container.Provide(func() domain.ProviderRegistry {
		return registry.NewRegistry()
	}); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}

	// Cerebras Provider
	if err := container.Provide(cerebras.NewProvider); err != nil {
		log.Fatalf("Failed to provide Cerebras provider: %v", err)
	}

	// Echo Provider (development only)
	if err := container.Provide(func(cfg *domain.RelayConfig) (*echo.Provider, error) {
		if !cfg.EchoProvider {
			return nil, ErrProviderNotConfigured
		}
		return echo.NewProvider(), nil
	}); err != nil {
		log.Fatalf("Failed to provide echo provider: %v", err)
	}

	// Register providers with registry (invoked for side effects).
	// Echo goes first so its model is not claimed by Cerebras' catch-all routing.
	if err := container.Invoke(func(reg domain.ProviderRegistry, echoProvider *echo.Provider) error {
		return reg.Register(context.Background(), echoProvider)
	}); err != nil {
		// The echo provider is optional.
		if !errors.Is(dig.RootCause(err), ErrProviderNotConfigured) {
			log.Fatalf("Failed to register echo provider: %v", err)
		}
	}

	if err := container.Invoke(func(reg domain.ProviderRegistry, cerebrasProvider *cerebras.Provider, _ *zap.Logger) error {
		ctx := context.Background()
		if err := reg.Register(ctx, cerebrasProvider); err != nil {
			return fmt.Errorf("failed to register Cerebras provider: %w", err)
		}

		names, _ := reg.List(ctx)
		observability.FromContext(ctx).Info("providers registered",
			observability.Strings("providers", names),
			observability.Strings("models_with_overrides", domain.ModelsWithOverrides()),
		)
		return nil
	}); err != nil {
		log.Fatalf("Failed to register providers: %v", err)
	}

	// Domain Services
	if err := container.Provide(domain.NewRelayService); err != nil {
		log.Fatalf("Failed to provide relay service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}
