package httpd

import (
	"encoding/json"
	"errors"
	"net/http"

	"crmbot/internal/models"
)

func (h *Handler) GetAllStreams(w http.ResponseWriter, r *http.Request) {
	streams, err := h.scheduleService.GetStreams(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to get streams")
		writeError(w, http.StatusInternalServerError, "Failed to get streams")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"streams": streams,
		"total":   len(streams),
	})
}

func (h *Handler) CreateStream(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	stream, err := h.scheduleService.CreateStream(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, models.ErrStreamNameTaken) {
			writeError(w, http.StatusConflict, "Stream name already taken")
			return
		}
		h.logger.Error().Err(err).Msg("Failed to create stream")
		writeError(w, http.StatusInternalServerError, "Failed to create stream")
		return
	}

	writeJSON(w, http.StatusCreated, stream)
}
