package handlers

import (
	"encoding/json"
	"net/http"

	"recraftgen/internal/middleware"
	"recraftgen/internal/settings"
)

const maxRequestBody = 1 << 20

type recraftRequest struct {
	Prompt    string `json:"prompt"`
	ImageSize string `json:"image_size"`
	Style     string `json:"style"`
	Colors    string `json:"colors"`
}

type recraftResponse struct {
	RequestID string `json:"request_id"`
	Markdown  string `json:"markdown"`
}

// RecraftGenerate runs one generation synchronously. Stored settings, including
// a stored API key, are only used for the user authenticated by AuthJWT;
// anonymous callers get the deployment defaults. Generation failures are
// reported inside the markdown field, so any decoded request answers 200.
func (a *App) RecraftGenerate(w http.ResponseWriter, r *http.Request) {
	var req recraftRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	userID := middleware.UserIDFromContext(r.Context())

	base, err := a.Settings.Resolve(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("recraft: resolve settings failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load user settings")
		return
	}
	effective := base.Merge(settings.Settings{
		ImageSize: req.ImageSize,
		Style:     req.Style,
		Colors:    req.Colors,
	})

	markdown := a.Generator.Generate(r.Context(), req.Prompt, effective)
	a.json(w, http.StatusOK, recraftResponse{
		RequestID: middleware.RequestIDFromContext(r.Context()),
		Markdown:  markdown,
	})
}
