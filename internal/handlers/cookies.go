package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/AnshRaj112/newsdesk-backend/internal/middleware"
	"github.com/AnshRaj112/newsdesk-backend/internal/services"
)

const (
	userCookie        = "user"
	userExpiresCookie = "userExpires"
	sessionCookie     = middleware.SessionCookie

	// ISO 8601 with milliseconds, as browsers print dates
	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

// CookieConfig controls the cookies set by the auth handlers.
type CookieConfig struct {
	Secure     bool
	SessionTTL time.Duration
}

func (c CookieConfig) setSession(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(c.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// setSocialLogin stores the token and sanitized user where the browser app
// can read them, plus their expiry.
func (c CookieConfig) setSocialLogin(w http.ResponseWriter, login *services.SocialLogin) error {
	raw, err := json.Marshal(login.Payload)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     userCookie,
		Value:    url.QueryEscape(string(raw)),
		Path:     "/",
		Expires:  login.Expires,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     userExpiresCookie,
		Value:    login.Expires.UTC().Format(isoMillis),
		Path:     "/",
		Expires:  login.Expires,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.setSession(w, login.SessionID)
	return nil
}

func (c CookieConfig) clearAll(w http.ResponseWriter) {
	for _, name := range []string{userCookie, userExpiresCookie, sessionCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: name == sessionCookie,
			Secure:   c.Secure,
		})
	}
}
