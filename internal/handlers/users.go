package handlers

import (
	"errors"
	"net/http"

	"github.com/AnshRaj112/newsdesk-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserHandler is the admin user directory.
type UserHandler struct {
	users  *services.UserAdmin
	logger *zap.Logger
}

func NewUserHandler(users *services.UserAdmin, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// List handles GET /users?limit=&page=&q=&sort=.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.users.List(r.Context(), services.UserQuery{
		Search: r.URL.Query().Get("q"),
		Sort:   r.URL.Query().Get("sort"),
		Limit:  queryInt(r, "limit"),
		Page:   queryInt(r, "page"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, page)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, u.ToAdmin())
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.UserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	u, err := h.users.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, u.ToAdmin())
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.UserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	u, err := h.users.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, u.ToAdmin())
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, successResponse{Success: "User deleted"})
}

func (h *UserHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, h.logger, http.StatusUnprocessableEntity, verr.Message)
	case errors.Is(err, services.ErrDuplicateEmail):
		writeError(w, h.logger, http.StatusUnprocessableEntity, "Email already in use")
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrInvalidUserID):
		writeError(w, h.logger, http.StatusNotFound, "User not found")
	default:
		logFailure(h.logger, r, "Error in user directory", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Couldn't process request at this time.")
	}
}
