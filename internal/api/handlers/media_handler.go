// Package handlers contains HTTP handlers for the API.
package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"norelock.dev/listenify/gateway/internal/bridge"
	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/utils"
)

// MediaHandler handles HTTP requests related to media operations.
type MediaHandler struct {
	caller Caller
	logger *utils.Logger
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(caller Caller, logger *utils.Logger) *MediaHandler {
	return &MediaHandler{
		caller: caller,
		logger: logger.Named("media_handler"),
	}
}

// searchParams are the accepted query parameters of Search.
type searchParams struct {
	Query string `query:"q" validate:"required,max=200"`
}

// Search handles GET /media/search?q=.
func (h *MediaHandler) Search(w http.ResponseWriter, r *http.Request) {
	params := searchParams{Query: utils.SanitizeQuery(r.URL.Query().Get("q"))}
	if err := utils.Validate(params); err != nil {
		utils.RespondWithValidationError(w, err)
		return
	}

	outcome, err := h.caller.Call(r.Context(), bridge.OpSearch, map[string]any{"query": params.Query})
	if !respondOutcome(w, h.logger, bridge.OpSearch, outcome, err) {
		return
	}

	utils.RespondWithData(w, outcome.Value)
}

// Stream handles GET /media/stream/{id}.
func (h *MediaHandler) Stream(w http.ResponseWriter, r *http.Request) {
	location, ok := h.resolve(w, r)
	if !ok {
		return
	}

	utils.RespondWithData(w, models.StreamResolution{URL: location})
}

// Redirect handles GET /media/stream/{id}/redirect by sending the caller
// straight to the resolved stream. Streams that only carry inline content,
// such as a manifest, cannot be redirected to and get a 422.
func (h *MediaHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	location, ok := h.resolve(w, r)
	if !ok {
		return
	}

	if !isAbsoluteURL(location) {
		h.logger.Debug("Resolved stream has no URL to redirect to", "id", chi.URLParam(r, "id"))
		utils.RespondWithAppError(w, utils.NewAppError(nil, "Stream has no URL to redirect to", http.StatusUnprocessableEntity).
			AddDetail("reason", "not_a_url"))
		return
	}

	http.Redirect(w, r, location, http.StatusFound)
}

// isAbsoluteURL reports whether s is an absolute http(s) URL.
func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Channel handles GET /media/channel?url=.
func (h *MediaHandler) Channel(w http.ResponseWriter, r *http.Request) {
	channelURL := utils.SanitizeURL(r.URL.Query().Get("url"))
	if err := utils.ValidateVar(channelURL, "required,channel_url"); err != nil {
		utils.RespondWithAppError(w, utils.BadRequestError("Query parameter 'url' must be an absolute http(s) channel URL", err))
		return
	}

	outcome, err := h.caller.Call(r.Context(), bridge.OpGetChannelVideos, map[string]any{"channelUrl": channelURL})
	if !respondOutcome(w, h.logger, bridge.OpGetChannelVideos, outcome, err) {
		return
	}

	utils.RespondWithData(w, outcome.Value)
}

// resolve validates the {id} path parameter and resolves its stream URL.
func (h *MediaHandler) resolve(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := utils.ValidateVar(id, "required,max=64,video_id"); err != nil {
		utils.RespondWithAppError(w, utils.BadRequestError("Invalid video ID", err).AddDetail("id", id))
		return "", false
	}

	outcome, err := h.caller.Call(r.Context(), bridge.OpGetStreamURL, map[string]any{"id": id})
	if !respondOutcome(w, h.logger, bridge.OpGetStreamURL, outcome, err) {
		return "", false
	}

	return cast.ToString(outcome.Value), true
}
