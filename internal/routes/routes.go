package routes

import (
	"net/http"

	"github.com/AnshRaj112/newsdesk-backend/internal/handlers"
	"github.com/AnshRaj112/newsdesk-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the route handlers. Social may be nil when no provider is
// configured.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Social  *handlers.SocialHandler
	Uploads *handlers.UploadHandler
	Users   *handlers.UserHandler
	Logs    *handlers.LogHandler
}

// Guards are the per-route middlewares.
type Guards struct {
	// Authenticate attaches the principal of the bearer token or sid
	// cookie session, if any.
	Authenticate func(http.Handler) http.Handler
	// Credentials authenticates the email and password of POST /signin.
	Credentials func(http.Handler) http.Handler
	// ForgotPasswordLimit caps reset mails per client; nil disables it.
	ForgotPasswordLimit func(http.Handler) http.Handler
}

func SetupRoutes(r chi.Router, h Handlers, g Guards) {
	r.Get("/health", handlers.Health)

	// Auth routes
	r.Post("/signup", h.Auth.Signup)
	r.With(g.Credentials).Post("/signin", h.Auth.Signin)
	r.With(g.Authenticate).Get("/signin", h.Auth.Signin)
	r.With(g.Authenticate).Get("/signout", h.Auth.Signout)
	if g.ForgotPasswordLimit != nil {
		r.With(g.ForgotPasswordLimit).Post("/forgot-password", h.Auth.ForgotPassword)
	} else {
		r.Post("/forgot-password", h.Auth.ForgotPassword)
	}
	r.Post("/reset/{token}", h.Auth.ResetPassword)

	// Social login
	if h.Social != nil {
		r.Get("/auth/{provider}", h.Social.Begin)
		r.Get("/auth/{provider}/callback", h.Social.Callback)
	}

	// Uploads
	r.Group(func(r chi.Router) {
		r.Use(g.Authenticate, middleware.RequireAuth)
		r.Post("/uploads", h.Uploads.Upload)
		r.Delete("/uploads", h.Uploads.Delete)
	})

	// Admin
	r.Group(func(r chi.Router) {
		r.Use(g.Authenticate, middleware.RequireAdmin)
		r.Get("/users", h.Users.List)
		r.Post("/users", h.Users.Create)
		r.Get("/users/{id}", h.Users.Get)
		r.Put("/users/{id}", h.Users.Update)
		r.Delete("/users/{id}", h.Users.Delete)
		r.Get("/logs", h.Logs.List)
	})
}
