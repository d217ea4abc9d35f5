package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"recraftgen/internal/infra"
	"recraftgen/internal/settings"
)

// ImageGenerator renders a prompt into markdown or an error string.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, s settings.Settings) string
}

// SettingsResolver returns the effective settings for a user.
type SettingsResolver interface {
	Resolve(ctx context.Context, userID string) (settings.Settings, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Generator ImageGenerator
	Settings  SettingsResolver
	Logger    *infra.Logger
	// DB is nil when no settings database is configured.
	DB Pinger
}

func NewApp(gen ImageGenerator, resolver SettingsResolver, logger *infra.Logger) *App {
	if logger == nil {
		l := zerolog.New(io.Discard)
		logger = &l
	}
	return &App{Generator: gen, Settings: resolver, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}
