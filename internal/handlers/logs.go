package handlers

import (
	"net/http"

	"github.com/AnshRaj112/newsdesk-backend/internal/services"
	"go.uber.org/zap"
)

// LogHandler serves the activity log.
type LogHandler struct {
	activity services.ActivityRecorder
	logger   *zap.Logger
}

func NewLogHandler(activity services.ActivityRecorder, logger *zap.Logger) *LogHandler {
	return &LogHandler{activity: activity, logger: logger}
}

// List handles GET /logs?limit=&page=, newest first.
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.activity.List(r.Context(), queryInt(r, "limit"), queryInt(r, "page"))
	if err != nil {
		logFailure(h.logger, r, "Error listing activity", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Couldn't load logs at this time.")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, page)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("OK"))
}
