package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	logpkg "github.com/AnshRaj112/newsdesk-backend/internal/logger"
	"github.com/AnshRaj112/newsdesk-backend/internal/services"
	"github.com/AnshRaj112/newsdesk-backend/pkg/clientip"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed_to_encode_response", zap.Int("status_code", status), zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, status int, message string) {
	writeJSON(w, logger, status, errorResponse{Error: message})
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

// logFailure logs err with the request metadata. The client only ever sees
// a fixed message.
func logFailure(logger *zap.Logger, r *http.Request, msg string, err error) {
	logger.Error(msg,
		zap.String("method", r.Method),
		zap.String("path", logpkg.RequestPath(r)),
		zap.String("client_ip", clientip.RealClientIP(r)),
		zap.String("kind", services.ErrorKind(err)),
		zap.Error(err),
	)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
