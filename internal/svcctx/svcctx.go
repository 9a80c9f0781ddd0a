// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/slate/internal/config"
	"github.com/jackzampolin/slate/internal/home"
	"github.com/jackzampolin/slate/internal/jobs"
	"github.com/jackzampolin/slate/internal/providers"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store    jobs.Store
	Runner   *jobs.Runner
	Registry *providers.Registry
	Logger   *slog.Logger
	Home     *home.Dir

	// Config returns the current configuration; it changes on reload.
	Config func() *config.Config
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the job store from context.
func StoreFrom(ctx context.Context) jobs.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// RunnerFrom extracts the job runner from context.
func RunnerFrom(ctx context.Context) *jobs.Runner {
	if s := ServicesFrom(ctx); s != nil {
		return s.Runner
	}
	return nil
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// LoggerFrom extracts the logger from context, falling back to slog.Default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// ConfigFrom returns the current configuration, or the defaults when no
// services are attached.
func ConfigFrom(ctx context.Context) *config.Config {
	if s := ServicesFrom(ctx); s != nil && s.Config != nil {
		if c := s.Config(); c != nil {
			return c
		}
	}
	return config.DefaultConfig()
}
