package httpd

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"crmbot/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler — служебный HTTP API для операторов: состояние рассылок, отчёты по
// посещаемости, потоки. Пользовательский ввод идёт через телеграм, не сюда.
type Handler struct {
	broadcastService  service.BroadcastService
	attendanceService service.AttendanceService
	scheduleService   service.ScheduleService
	sender            service.MessageSender
	logger            zerolog.Logger
}

func NewHandler(
	broadcastService service.BroadcastService,
	attendanceService service.AttendanceService,
	scheduleService service.ScheduleService,
	sender service.MessageSender,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		broadcastService:  broadcastService,
		attendanceService: attendanceService,
		scheduleService:   scheduleService,
		sender:            sender,
		logger:            logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/broadcasts", func(r chi.Router) {
			r.Get("/", h.GetAllBroadcasts)
			r.Get("/{id}", h.GetBroadcastByID)
			r.Post("/{id}/stop", h.StopBroadcast)
			r.Post("/{id}/resume", h.ResumeBroadcast)
		})

		api.Route("/sessions", func(r chi.Router) {
			r.Get("/{id}/attendance", h.GetAttendanceReport)
			r.Post("/{id}/attendance", h.SetAttendance)
		})

		api.Route("/streams", func(r chi.Router) {
			r.Get("/", h.GetAllStreams)
			r.Post("/", h.CreateStream)
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "crm-bot",
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, response)
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, http.StatusOK, response)
}
