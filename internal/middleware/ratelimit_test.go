package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AnshRaj112/newsdesk-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type brokenCounter struct{}

func (brokenCounter) Hit(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func TestWindowLimit(t *testing.T) {
	t.Parallel()
	h := WindowLimit(services.NewMemoryWindowCounter(), "forgot_password:", 2, time.Hour, zap.NewNop())(okHandler)

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/forgot-password", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do("10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)

	rec = do("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do("10.0.0.2").Code)
}

func TestWindowLimit_FailsOpen(t *testing.T) {
	t.Parallel()
	h := WindowLimit(brokenCounter{}, "forgot_password:", 1, time.Hour, zap.NewNop())(okHandler)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/forgot-password", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
