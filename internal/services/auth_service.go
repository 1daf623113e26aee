package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/AnshRaj112/newsdesk-backend/internal/models"
	"github.com/AnshRaj112/newsdesk-backend/pkg/utils"
	"go.uber.org/zap"
)

// SocialCookieTTL is how long the user cookie set after social login lives.
const SocialCookieTTL = 30 * 24 * time.Hour

var ErrAccessDenied = errors.New("access denied")

// AuthPayload is the signin and signup response: the token plus the
// sanitized user, and role "admin" for administrators. SessionID is the
// session the token is bound to.
type AuthPayload struct {
	Token string `json:"token"`
	models.PublicUser
	Role      string `json:"role,omitempty"`
	SessionID string `json:"-"`
}

// SocialLogin is what the social callback hands to the client.
type SocialLogin struct {
	Payload   AuthPayload
	SessionID string
	Expires   time.Time
}

type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type AuthConfig struct {
	// ApplicationURL is PROTOCOL://HOST:PORT, used for the reset link.
	ApplicationURL string
	ResetTokenTTL  time.Duration
	StoreTimeout   time.Duration
	MailTimeout    time.Duration
}

type AuthDeps struct {
	Store    CredentialStore
	Sessions SessionStore
	Tokens   TokenIssuer
	Mail     MailSender
	Activity ActivityRecorder // optional
	Logger   *zap.Logger
	Random   io.Reader // nil means crypto/rand
}

// AuthService runs the signup, signin, social login, sign-out and password
// reset workflows.
type AuthService struct {
	store    CredentialStore
	sessions SessionStore
	tokens   TokenIssuer
	mail     MailSender
	activity ActivityRecorder
	logger   *zap.Logger
	random   io.Reader
	cfg      AuthConfig
	now      func() time.Time
}

func NewAuthService(deps AuthDeps, cfg AuthConfig) *AuthService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AuthService{
		store:    deps.Store,
		sessions: deps.Sessions,
		tokens:   deps.Tokens,
		mail:     deps.Mail,
		activity: deps.Activity,
		logger:   deps.Logger,
		random:   deps.Random,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *AuthService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// Signup validates in, rejects taken emails and stores the new user.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthPayload, error) {
	payload, err := s.signup(ctx, in)
	s.record(ctx, models.EventSignup, in.Email, err)
	return payload, err
}

func (s *AuthService) signup(ctx context.Context, in SignupInput) (*AuthPayload, error) {
	if err := utils.ValidateSignup(utils.SignupFields{
		Email:    in.Email,
		Password: in.Password,
		Name:     in.Name,
	}); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	_, err := s.store.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, ErrDuplicateEmail
	case !errors.Is(err, ErrUserNotFound):
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{Name: in.Name, Email: in.Email, Password: hash}
	if err := s.store.Save(ctx, u); err != nil {
		return nil, err
	}
	sid, err := s.StartSession(ctx, u)
	if err != nil {
		return nil, err
	}
	return s.payload(u, sid, false)
}

// Authenticate checks email and password and returns the matching user.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		s.record(ctx, models.EventSignin, email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.Password == "" {
		// social only account
		s.record(ctx, models.EventSignin, email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	ok, err := utils.VerifyPassword(password, u.Password)
	if err != nil || !ok {
		s.record(ctx, models.EventSignin, email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// SessionUser loads the owner of the live session sid. Ended or expired
// sessions yield ErrSessionNotFound.
func (s *AuthService) SessionUser(ctx context.Context, sid string) (*models.User, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	userID, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, userID)
}

// Signin builds the payload for an authenticated principal. The token is
// bound to sid, or to a new session when sid is empty. A nil principal
// yields a nil payload and no error.
func (s *AuthService) Signin(ctx context.Context, principal *models.User, sid string) (*AuthPayload, error) {
	if principal == nil {
		return nil, nil
	}
	payload, err := s.signin(ctx, principal, sid)
	s.record(ctx, models.EventSignin, principal.Email, err)
	return payload, err
}

func (s *AuthService) signin(ctx context.Context, principal *models.User, sid string) (*AuthPayload, error) {
	if sid == "" {
		var err error
		if sid, err = s.StartSession(ctx, principal); err != nil {
			return nil, err
		}
	}
	return s.payload(principal, sid, true)
}

// StartSession opens a server side session for u.
func (s *AuthService) StartSession(ctx context.Context, u *models.User) (string, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.sessions.Create(ctx, u.ID.Hex())
}

// SocialSuccess prepares the cookies and session for a principal produced by
// a social provider.
func (s *AuthService) SocialSuccess(ctx context.Context, principal *models.User) (*SocialLogin, error) {
	if principal == nil {
		return nil, ErrAccessDenied
	}
	sid, err := s.StartSession(ctx, principal)
	if err != nil {
		s.record(ctx, models.EventSocialSignin, principal.Email, err)
		return nil, err
	}
	payload, err := s.payload(principal, sid, false)
	if err != nil {
		s.record(ctx, models.EventSocialSignin, principal.Email, err)
		return nil, err
	}
	s.record(ctx, models.EventSocialSignin, principal.Email, nil)
	return &SocialLogin{
		Payload:   *payload,
		SessionID: sid,
		Expires:   s.now().Add(SocialCookieTTL),
	}, nil
}

// SocialErrorMessage is the text shown on the signin page after a failed
// social login.
func SocialErrorMessage(err error) string {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return "Email already in use"
	case errors.Is(err, ErrUnverifiedEmail):
		return "Email not verified"
	case errors.As(err, &verr):
		return verr.Message
	}
	return "Couldn't create user"
}

// SignOut destroys the session sid.
func (s *AuthService) SignOut(ctx context.Context, sid string) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	err := s.sessions.Destroy(ctx, sid)
	if err != nil && !errors.Is(err, ErrSessionDestroyFailed) {
		err = errors.Join(ErrSessionDestroyFailed, err)
	}
	s.record(ctx, models.EventSignout, "", err)
	return err
}

// ForgotPassword attaches a fresh reset token to the user with email and
// mails them the reset link. It returns the address the mail went to.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	sentTo, err := s.forgotPassword(ctx, email)
	s.record(ctx, models.EventForgotPassword, email, err)
	return sentTo, err
}

func (s *AuthService) forgotPassword(ctx context.Context, email string) (string, error) {
	token, err := utils.CreateResetToken(s.random)
	if err != nil {
		return "", errors.Join(ErrRandomnessUnavailable, err)
	}

	storeCtx, cancel := s.storeCtx(ctx)
	u, err := s.store.AttachResetToken(storeCtx, email, token, s.now().Add(s.cfg.ResetTokenTTL))
	cancel()
	if err != nil {
		return "", err
	}

	msg, err := ResetPasswordMessage(u.Email, u.Name, s.ResetURL(token))
	if err != nil {
		return "", errors.Join(ErrMailDispatchFailed, err)
	}

	mailCtx := ctx
	if s.cfg.MailTimeout > 0 {
		var cancelMail context.CancelFunc
		mailCtx, cancelMail = context.WithTimeout(ctx, s.cfg.MailTimeout)
		defer cancelMail()
	}
	if err := s.mail.Send(mailCtx, msg); err != nil {
		if !errors.Is(err, ErrMailDispatchFailed) {
			err = errors.Join(ErrMailDispatchFailed, err)
		}
		return "", err
	}
	return u.Email, nil
}

// ResetURL is the absolute link embedded in the reset email.
func (s *AuthService) ResetURL(token string) string {
	return s.cfg.ApplicationURL + "/reset/" + token
}

// ResetPassword replaces the password of the user holding token and ends all
// of their sessions.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (*models.User, error) {
	u, err := s.resetPassword(ctx, token, password)
	email := ""
	if u != nil {
		email = u.Email
	}
	s.record(ctx, models.EventResetPassword, email, err)
	return u, err
}

func (s *AuthService) resetPassword(ctx context.Context, token, password string) (*models.User, error) {
	if token == "" || password == "" {
		return nil, NewValidationError("Token and password are required")
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.store.UpdatePasswordByToken(ctx, token, hash, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.sessions.DestroyUser(ctx, u.ID.Hex()); err != nil {
		s.logger.Warn("failed to end sessions after password reset",
			zap.String("user_id", u.ID.Hex()),
			zap.Error(err),
		)
	}
	return u, nil
}

func (s *AuthService) payload(u *models.User, sid string, withRole bool) (*AuthPayload, error) {
	token, err := s.tokens.Issue(u, sid)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	p := &AuthPayload{Token: token, PublicUser: u.ToPublic(), SessionID: sid}
	if withRole && u.IsAdmin() {
		p.Role = models.RoleAdmin
	}
	return p, nil
}

// record writes the outcome to the activity log. Failures are only logged.
func (s *AuthService) record(ctx context.Context, event, email string, err error) {
	recordActivity(ctx, s.activity, s.logger, s.cfg.StoreTimeout, event, email, err)
}

func recordActivity(ctx context.Context, rec ActivityRecorder, logger *zap.Logger, timeout time.Duration, event, email string, err error) {
	if rec == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	entry := models.ActivityEntry{
		Event:     event,
		Email:     utils.NormalizeEmail(email),
		IPAddress: ClientIPFrom(ctx),
		Success:   err == nil,
		Detail:    ErrorKind(err),
	}
	if recErr := rec.Record(ctx, entry); recErr != nil {
		logger.Warn("failed to record activity", zap.String("event", event), zap.Error(recErr))
	}
}
