package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/newsdesk-backend/internal/middleware"
	"github.com/AnshRaj112/newsdesk-backend/internal/models"
	"github.com/AnshRaj112/newsdesk-backend/internal/services"
	"github.com/AnshRaj112/newsdesk-backend/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []services.MailMessage
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg services.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type authEnv struct {
	router   chi.Router
	auth     *services.AuthService
	store    *services.MemoryUserStore
	sessions *services.MemorySessionStore
	tokens   *services.JWTIssuer
	mail     *captureMailer
}

func newAuthEnv(t *testing.T, random *bytes.Reader) *authEnv {
	t.Helper()
	e := &authEnv{
		store:    services.NewMemoryUserStore(),
		sessions: services.NewMemorySessionStore(time.Hour),
		tokens:   services.NewJWTIssuer("test-secret", time.Hour),
		mail:     &captureMailer{},
	}
	deps := services.AuthDeps{
		Store:    e.store,
		Sessions: e.sessions,
		Tokens:   e.tokens,
		Mail:     e.mail,
	}
	if random != nil {
		deps.Random = random
	}
	e.auth = services.NewAuthService(deps, services.AuthConfig{
		ApplicationURL: "http://localhost:8080",
		ResetTokenTTL:  time.Hour,
	})

	h := NewAuthHandler(e.auth, CookieConfig{SessionTTL: time.Hour}, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/signup", h.Signup)
	r.With(middleware.LocalCredentials(e.auth, zap.NewNop())).Post("/signin", h.Signin)
	authenticate := middleware.OptionalAuth(e.tokens, e.auth, zap.NewNop())
	r.With(authenticate).Get("/signin", h.Signin)
	r.With(authenticate).Get("/signout", h.Signout)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset/{token}", h.ResetPassword)
	e.router = r
	return e
}

func (e *authEnv) addUser(t *testing.T, email string, roles ...string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("Secret1")
	require.NoError(t, err)
	u := &models.User{Name: "Jon Jonsson", Email: email, Password: hash, Roles: roles}
	require.NoError(t, e.store.Save(context.Background(), u))
	return u
}

func (e *authEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func bearerRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignupHandler(t *testing.T) {
	t.Parallel()
	e := newAuthEnv(t, nil)

	rec := e.do(jsonRequest(http.MethodPost, "/signup", `{"email":"jon@mbl.is","password":"Abcdef1","name":"Jon Jonsson"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "jon@mbl.is", body["email"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "id")

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "duplicate", body: `{"email":"jon@mbl.is","password":"Abcdef1","name":"Jon Jonsson"}`, want: "Email already in use"},
		{name: "missing name", body: `{"email":"a@mbl.is","password":"Abcdef1"}`, want: "You must provide name, email and password"},
		{name: "bad email", body: `{"email":"bad","password":"x","name":"Jon"}`, want: "bad is not a valid email"},
		{name: "no body", body: ``, want: "No post data found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(jsonRequest(http.MethodPost, "/signup", tt.body))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.JSONEq(t, `{"error":"`+tt.want+`"}`, rec.Body.String())
		})
	}
}

func TestSigninHandler(t *testing.T) {
	t.Parallel()
	e := newAuthEnv(t, nil)
	admin := e.addUser(t, "admin@mbl.is", models.RoleAdmin)
	e.addUser(t, "jon@mbl.is")

	t.Run("no principal is null", func(t *testing.T) {
		rec := e.do(httptest.NewRequest(http.MethodGet, "/signin", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("admin credentials", func(t *testing.T) {
		rec := e.do(jsonRequest(http.MethodPost, "/signin", `{"email":"admin@mbl.is","password":"Secret1"}`))
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "admin", body["role"])
		assert.NotContains(t, body, "password")

		sid := cookieByName(rec, sessionCookie)
		require.NotNil(t, sid)
		assert.True(t, sid.HttpOnly)
		assert.Equal(t, 1, e.sessions.Count(admin.ID.Hex()))
	})

	t.Run("regular user has no role", func(t *testing.T) {
		rec := e.do(jsonRequest(http.MethodPost, "/signin", `{"email":"jon@mbl.is","password":"Secret1"}`))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), `"role"`)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := e.do(jsonRequest(http.MethodPost, "/signin", `{"email":"jon@mbl.is","password":"Wrong1"}`))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer token", func(t *testing.T) {
		sid, err := e.sessions.Create(context.Background(), admin.ID.Hex())
		require.NoError(t, err)
		token, err := e.tokens.Issue(admin, sid)
		require.NoError(t, err)
		rec := e.do(bearerRequest(http.MethodGet, "/signin", token))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"email":"admin@mbl.is"`)
		assert.Nil(t, cookieByName(rec, sessionCookie), "GET does not open a session")
	})
}

func TestSignoutHandler(t *testing.T) {
	t.Parallel()
	e := newAuthEnv(t, nil)
	u := e.addUser(t, "jon@mbl.is")
	sid, err := e.sessions.Create(context.Background(), u.ID.Hex())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/signout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sid})
	rec := e.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User signed out", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Zero(t, e.sessions.Count(u.ID.Hex()))
	for _, name := range []string{userCookie, userExpiresCookie, sessionCookie} {
		c := cookieByName(rec, name)
		require.NotNil(t, c, name)
		assert.Less(t, c.MaxAge, 0, name)
	}
}

// signinFor signs in with credentials and returns the bearer token and the
// sid cookie value.
func (e *authEnv) signinFor(t *testing.T, email string) (string, string) {
	t.Helper()
	rec := e.do(jsonRequest(http.MethodPost, "/signin", `{"email":"`+email+`","password":"Secret1"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	c := cookieByName(rec, sessionCookie)
	require.NotNil(t, c)
	return body.Token, c.Value
}

func (e *authEnv) whoami(req *http.Request) string {
	rec := e.do(req)
	if rec.Code != http.StatusOK {
		return rec.Result().Status
	}
	return strings.TrimSpace(rec.Body.String())
}

func TestSession_Revocation(t *testing.T) {
	t.Parallel()

	withCookie := func(sid string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/signin", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sid})
		return req
	}

	t.Run("signout ends token and cookie", func(t *testing.T) {
		t.Parallel()
		e := newAuthEnv(t, nil)
		e.addUser(t, "jon@mbl.is")
		token, sid := e.signinFor(t, "jon@mbl.is")

		assert.Contains(t, e.whoami(bearerRequest(http.MethodGet, "/signin", token)), `"email":"jon@mbl.is"`)
		rec := e.do(withCookie(sid))
		assert.Contains(t, rec.Body.String(), `"email":"jon@mbl.is"`, "sid cookie authenticates")
		assert.Nil(t, cookieByName(rec, sessionCookie), "existing session is not replaced")

		rec = e.do(bearerRequest(http.MethodGet, "/signout", token))
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, "null", e.whoami(bearerRequest(http.MethodGet, "/signin", token)))
		assert.Equal(t, "null", e.whoami(withCookie(sid)))
	})

	t.Run("reset ends every session of the user", func(t *testing.T) {
		t.Parallel()
		e := newAuthEnv(t, bytes.NewReader(bytes.Repeat([]byte{0xcd}, 20)))
		e.addUser(t, "jon@mbl.is")
		e.addUser(t, "anna@mbl.is")
		first, firstSID := e.signinFor(t, "jon@mbl.is")
		second, _ := e.signinFor(t, "jon@mbl.is")
		other, _ := e.signinFor(t, "anna@mbl.is")

		rec := e.do(jsonRequest(http.MethodPost, "/forgot-password", `{"email":"jon@mbl.is"}`))
		require.Equal(t, http.StatusOK, rec.Code)
		rec = e.do(jsonRequest(http.MethodPost, "/reset/"+strings.Repeat("cd", 20), `{"password":"NewSecret2"}`))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Success!")

		assert.Equal(t, "null", e.whoami(bearerRequest(http.MethodGet, "/signin", first)))
		assert.Equal(t, "null", e.whoami(bearerRequest(http.MethodGet, "/signin", second)))
		assert.Equal(t, "null", e.whoami(withCookie(firstSID)))
		assert.Contains(t, e.whoami(bearerRequest(http.MethodGet, "/signin", other)), `"email":"anna@mbl.is"`)
	})
}

func TestSignoutHandler_DestroyFails(t *testing.T) {
	t.Parallel()
	e := newAuthEnv(t, nil)
	e.sessions.DestroyErr = errors.New("redis: connection refused")

	req := httptest.NewRequest(http.MethodGet, "/signout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "sid-1"})
	rec := e.do(req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Couldn't sign out at this time."}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "redis")
}

func TestForgotAndResetHandlers(t *testing.T) {
	t.Parallel()
	e := newAuthEnv(t, bytes.NewReader(bytes.Repeat([]byte{0xab}, 20)))
	e.addUser(t, "jon@mbl.is")
	token := strings.Repeat("ab", 20)

	rec := e.do(jsonRequest(http.MethodPost, "/forgot-password", `{"email":"jon@mbl.is"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "An e-mail has been sent to jon@mbl.is with further instructions.", rec.Body.String())
	require.Len(t, e.mail.sent, 1)
	assert.Contains(t, e.mail.sent[0].HTML, "http://localhost:8080/reset/"+token)

	rec = e.do(jsonRequest(http.MethodPost, "/reset/"+token, `{"password":"weak"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"error":"Password must be of minimum length 6 characters"}`, rec.Body.String())

	rec = e.do(jsonRequest(http.MethodPost, "/reset/"+token, `{"password":"NewSecret2"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Success! Your password has been changed for jon@mbl.is.", rec.Body.String())

	rec = e.do(jsonRequest(http.MethodPost, "/reset/"+token, `{"password":"NewSecret3"}`))
	assert.Equal(t, http.StatusOK, rec.Code, "error path keeps status 200")
	assert.JSONEq(t, `{"error":"Password is invalid or token has expired."}`, rec.Body.String())

	rec = e.do(jsonRequest(http.MethodPost, "/reset/"+token, `{}`))
	assert.JSONEq(t, `{"error":"Token and password are required"}`, rec.Body.String())
}

func TestForgotPasswordHandler_Failures(t *testing.T) {
	t.Parallel()

	// unknown and known addresses must be indistinguishable
	const want = `{"error":"Couldn't reset password at this time.","err":"ResetFailed"}`

	tests := []struct {
		name    string
		email   string
		mailErr error
	}{
		{name: "unknown email", email: "nobody@mbl.is"},
		{name: "mail down", email: "jon@mbl.is", mailErr: errors.New("postmark: 500 internal secret")},
	}
	bodies := make([]string, len(tests))
	for i, tt := range tests {
		e := newAuthEnv(t, nil)
		e.addUser(t, "jon@mbl.is")
		e.mail.err = tt.mailErr

		rec := e.do(jsonRequest(http.MethodPost, "/forgot-password", `{"email":"`+tt.email+`"}`))
		assert.Equal(t, 550, rec.Code, tt.name)
		assert.JSONEq(t, want, rec.Body.String(), tt.name)
		bodies[i] = rec.Body.String()
	}
	assert.Equal(t, bodies[0], bodies[1])
}
