package services

import (
	"context"
	"io"
	"time"

	"github.com/AnshRaj112/newsdesk-backend/internal/models"
)

// SocialIdentity is what a social provider hands back after a successful login.
type SocialIdentity struct {
	Provider   models.SocialProfile
	ProviderID string
	Email      string
	Name       string
	Image      string
}

// CredentialStore persists users for the auth workflow.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// Save inserts u, assigning its id. A uniqueness violation on email
	// returns ErrDuplicateEmail.
	Save(ctx context.Context, u *models.User) error
	// AttachResetToken sets the reset token and expiry on the user with
	// email in one update.
	AttachResetToken(ctx context.Context, email, token string, expires time.Time) (*models.User, error)
	// UpdatePasswordByToken replaces the password hash of the user holding an
	// unexpired token and clears the token in the same update.
	UpdatePasswordByToken(ctx context.Context, token, passwordHash string, now time.Time) (*models.User, error)
	FindOrCreateSocial(ctx context.Context, id SocialIdentity) (*models.User, error)
}

// UserQuery selects a page of the user directory.
type UserQuery struct {
	Search string
	Sort   string // field or -field
	Limit  int
	Page   int
}

// UserDirectory adds the admin operations on top of CredentialStore.
type UserDirectory interface {
	CredentialStore
	List(ctx context.Context, q UserQuery) (models.Page[models.User], error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id string) error
	SetRoles(ctx context.Context, email string, roles []string) (*models.User, error)
}

type MailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
	Tag     string
}

type MailSender interface {
	Send(ctx context.Context, msg MailMessage) error
}

// ImageProcessor writes a resized copy of the image at src to dst.
type ImageProcessor interface {
	Thumbnail(ctx context.Context, src, dst string) error
}

// FileStore places files under a public prefix and removes them again.
type FileStore interface {
	// Put moves the local file at src so it is served under key and returns
	// the public url.
	Put(ctx context.Context, src, key string) (string, error)
	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// SessionStore keeps server side sessions keyed by an opaque id.
type SessionStore interface {
	Create(ctx context.Context, userID string) (string, error)
	Get(ctx context.Context, sid string) (string, error)
	Destroy(ctx context.Context, sid string) error
	DestroyUser(ctx context.Context, userID string) error
}

// StateStore keeps one-time OAuth state values.
type StateStore interface {
	PutState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeState(ctx context.Context, state string) error
}

// Claims is the identity carried by a bearer token.
type Claims struct {
	UserID    string
	SessionID string
	Email     string
	Roles     []string
}

type TokenIssuer interface {
	Issue(u *models.User, sessionID string) (string, error)
	Parse(token string) (*Claims, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, e models.ActivityEntry) error
	List(ctx context.Context, limit, page int) (models.Page[models.ActivityEntry], error)
}

// RandomSource is the entropy used for reset tokens.
type RandomSource = io.Reader
