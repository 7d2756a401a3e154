package httpd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"crmbot/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetAttendanceReport(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	marks, err := h.attendanceService.Marks(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Error().Err(err).Int64("session_id", sessionID).Msg("Failed to get attendance report")
		writeError(w, http.StatusInternalServerError, "Failed to get attendance report")
		return
	}

	writeJSON(w, http.StatusOK, models.AttendanceReportResponse{
		SessionID: sessionID,
		Marks:     marks,
	})
}

// SetAttendance ставит отметку напрямую, минуя цикл переключения. Так из
// админки проставляют late и правят ошибочные отметки задним числом.
func (h *Handler) SetAttendance(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	var req models.SetAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if !models.IsValidAttendanceStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "Invalid attendance status")
		return
	}

	status := models.AttendanceStatus(req.Status)
	if err := h.attendanceService.SetStatus(r.Context(), req.UserID, sessionID, status, req.ActorID); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Error().Err(err).Int64("session_id", sessionID).Int64("user_id", req.UserID).Msg("Failed to set attendance")
		writeError(w, http.StatusInternalServerError, "Failed to set attendance")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"session_id": sessionID,
		"user_id":    req.UserID,
		"status":     req.Status,
	})
}
