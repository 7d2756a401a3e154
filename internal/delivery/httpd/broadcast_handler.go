package httpd

import (
	"errors"
	"net/http"

	"crmbot/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetAllBroadcasts(w http.ResponseWriter, r *http.Request) {
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 20)

	broadcasts, total, err := h.broadcastService.GetAllBroadcasts(r.Context(), page, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to get broadcasts")
		writeError(w, http.StatusInternalServerError, "Failed to get broadcasts")
		return
	}

	items := make([]models.BroadcastResponse, 0, len(broadcasts))
	for _, b := range broadcasts {
		items = append(items, toBroadcastResponse(&b))
	}

	writeJSON(w, http.StatusOK, models.BroadcastsResponse{
		Broadcasts: items,
		Total:      total,
		Page:       page,
		Limit:      limit,
	})
}

func (h *Handler) GetBroadcastByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	broadcast, err := h.broadcastService.GetBroadcast(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrBroadcastNotFound) {
			writeError(w, http.StatusNotFound, "Broadcast not found")
			return
		}
		h.logger.Error().Err(err).Str("broadcast_id", id).Msg("Failed to get broadcast")
		writeError(w, http.StatusInternalServerError, "Failed to get broadcast")
		return
	}

	writeJSON(w, http.StatusOK, toBroadcastResponse(broadcast))
}

func (h *Handler) StopBroadcast(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !h.broadcastService.Stop(id) {
		writeError(w, http.StatusConflict, "Broadcast is not running")
		return
	}

	writeSuccess(w, map[string]string{"id": id, "status": "stopping"})
}

func (h *Handler) ResumeBroadcast(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.broadcastService.Resume(r.Context(), id, h.sender)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBroadcastNotFound):
			writeError(w, http.StatusNotFound, "Broadcast not found")
		case errors.Is(err, models.ErrBroadcastNotResumable):
			writeError(w, http.StatusConflict, "Broadcast is not resumable")
		case errors.Is(err, models.ErrBroadcastRunning):
			writeError(w, http.StatusConflict, "Broadcast is already running")
		default:
			h.logger.Error().Err(err).Str("broadcast_id", id).Msg("Failed to resume broadcast")
			writeError(w, http.StatusInternalServerError, "Failed to resume broadcast")
		}
		return
	}

	writeSuccess(w, map[string]string{"id": id, "status": "sending"})
}

func toBroadcastResponse(b *models.Broadcast) models.BroadcastResponse {
	return models.BroadcastResponse{
		ID:         b.ID,
		Body:       b.Body,
		Audience:   b.Audience,
		Status:     b.Status,
		Sent:       b.Sent,
		Failed:     b.Failed,
		Total:      b.Total,
		CreatedAt:  b.CreatedAt,
		StartedAt:  b.StartedAt,
		FinishedAt: b.FinishedAt,
	}
}
