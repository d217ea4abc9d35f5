package settings

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"recraftgen/internal/infra"
)

// Source looks up stored settings for a user.
type Source interface {
	Lookup(ctx context.Context, userID string) (Settings, bool, error)
}

// Resolver layers stored per-user settings over deployment defaults.
type Resolver struct {
	defaults Settings
	source   Source
	logger   *infra.Logger
}

// NewResolver returns a resolver. A nil source resolves every user to the
// defaults.
func NewResolver(defaults Settings, source Source, logger *infra.Logger) *Resolver {
	if logger == nil {
		l := zerolog.New(io.Discard)
		logger = &l
	}
	return &Resolver{defaults: defaults, source: source, logger: logger}
}

// Resolve returns the effective settings of userID. An empty userID yields
// the defaults.
func (r *Resolver) Resolve(ctx context.Context, userID string) (Settings, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || r.source == nil {
		return r.defaults, nil
	}
	stored, found, err := r.source.Lookup(ctx, userID)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: lookup %s: %w", userID, err)
	}
	if !found {
		r.logger.Debug().Str("user_id", userID).Msg("settings: no stored row, using defaults")
		return r.defaults, nil
	}
	return r.defaults.Merge(stored), nil
}
