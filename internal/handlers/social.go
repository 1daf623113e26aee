package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/AnshRaj112/newsdesk-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SocialHandler runs the redirect and callback legs of Google and Facebook
// login.
type SocialHandler struct {
	social  *services.SocialAuth
	auth    *services.AuthService
	cookies CookieConfig
	appURL  string
	logger  *zap.Logger
}

func NewSocialHandler(social *services.SocialAuth, auth *services.AuthService, cookies CookieConfig, appURL string, logger *zap.Logger) *SocialHandler {
	return &SocialHandler{social: social, auth: auth, cookies: cookies, appURL: appURL, logger: logger}
}

// Begin handles GET /auth/{provider}.
func (h *SocialHandler) Begin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if !h.social.Enabled(provider) {
		http.NotFound(w, r)
		return
	}
	target, err := h.social.Begin(r.Context(), provider)
	if err != nil {
		logFailure(h.logger, r, "Error starting social login", err)
		h.fail(w, r, "Couldn't sign in at this time.")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Callback handles GET /auth/{provider}/callback.
func (h *SocialHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if !h.social.Enabled(provider) {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	if q.Get("error") != "" {
		// the user declined on the provider's consent page
		writeText(w, http.StatusUnauthorized, "Access denied")
		return
	}

	principal, err := h.social.Complete(r.Context(), provider, q.Get("state"), q.Get("code"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidOAuthState) {
			writeText(w, http.StatusUnauthorized, "Access denied")
			return
		}
		msg := services.SocialErrorMessage(err)
		logFailure(h.logger, r, msg, err)
		h.fail(w, r, msg)
		return
	}

	login, err := h.auth.SocialSuccess(r.Context(), principal)
	if errors.Is(err, services.ErrAccessDenied) {
		writeText(w, http.StatusUnauthorized, "Access denied")
		return
	}
	if err == nil {
		err = h.cookies.setSocialLogin(w, login)
	}
	if err != nil {
		logFailure(h.logger, r, "Error completing social login", err)
		h.fail(w, r, "Couldn't sign in at this time.")
		return
	}
	http.Redirect(w, r, h.appURL+"/profile", http.StatusFound)
}

func (h *SocialHandler) fail(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, h.appURL+"/signin?error="+url.QueryEscape(msg), http.StatusFound)
}
