package handlers

import (
	"context"
	"net/http"
	"time"
)

const healthPingTimeout = 2 * time.Second

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health answers 200 while the service can generate. A configured settings
// database that stops answering turns it into 503, since authenticated users
// would fail to resolve their settings.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	if a.DB == nil {
		a.json(w, http.StatusOK, healthResponse{Status: "ok", Database: "disabled"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()
	if err := a.DB.Ping(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("health: database ping failed")
		a.json(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "unavailable"})
		return
	}
	a.json(w, http.StatusOK, healthResponse{Status: "ok", Database: "ok"})
}
