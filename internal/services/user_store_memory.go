package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/newsdesk-backend/internal/models"
	"github.com/AnshRaj112/newsdesk-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryUserStore is an in-process UserDirectory for tests and local runs.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
	now   func() time.Time
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[primitive.ObjectID]*models.User), now: time.Now}
}

// copies keep callers from mutating stored state
func cloneUser(u *models.User) *models.User {
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	if u.Google != nil {
		g := *u.Google
		c.Google = &g
	}
	if u.Facebook != nil {
		f := *u.Facebook
		c.Facebook = &f
	}
	if u.Twitter != nil {
		tw := *u.Twitter
		c.Twitter = &tw
	}
	return &c
}

func (s *MemoryUserStore) byEmail(email string) *models.User {
	email = utils.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.byEmail(email); u != nil {
		return cloneUser(u), nil
	}
	return nil, ErrUserNotFound
}

func (s *MemoryUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	if err := ctx.Err(); err != nil {
		return nil, storeError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[oid]; ok {
		return cloneUser(u), nil
	}
	return nil, ErrUserNotFound
}

func (s *MemoryUserStore) Save(ctx context.Context, u *models.User) error {
	if err := ctx.Err(); err != nil {
		return storeError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prepareNewUser(u, s.now())
	if s.byEmail(u.Email) != nil {
		return ErrDuplicateEmail
	}
	u.ID = primitive.NewObjectID()
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *MemoryUserStore) AttachResetToken(ctx context.Context, email, token string, expires time.Time) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byEmail(email)
	if u == nil {
		return nil, ErrUserNotFound
	}
	u.ResetPasswordToken = token
	u.ResetPasswordExpires = &expires
	u.UpdatedAt = s.now()
	return cloneUser(u), nil
}

func (s *MemoryUserStore) UpdatePasswordByToken(ctx context.Context, token, passwordHash string, now time.Time) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError(err)
	}
	if token == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ResetPasswordToken != token {
			continue
		}
		if u.ResetPasswordExpires == nil || !u.ResetPasswordExpires.After(now) {
			return nil, ErrInvalidOrExpiredToken
		}
		u.Password = passwordHash
		u.ResetPasswordToken = ""
		u.ResetPasswordExpires = nil
		u.UpdatedAt = now
		return cloneUser(u), nil
	}
	return nil, ErrInvalidOrExpiredToken
}

func (s *MemoryUserStore) FindOrCreateSocial(ctx context.Context, id SocialIdentity) (*models.User, error) {
	if _, err := providerField(id.Provider); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, storeError(err)
	}
	s.mu.Lock()
	for _, u := range s.users {
		if acct := accountFor(u, id.Provider); acct != nil && acct.ID == id.ProviderID {
			acct.Email, acct.Image = id.Email, id.Image
			u.Profile = id.Provider
			u.UpdatedAt = s.now()
			c := cloneUser(u)
			s.mu.Unlock()
			return c, nil
		}
	}
	s.mu.Unlock()

	u, err := newSocialUser(id)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func accountFor(u *models.User, p models.SocialProfile) *models.ProviderAccount {
	switch p {
	case models.ProfileGoogle:
		return u.Google
	case models.ProfileFacebook:
		return u.Facebook
	case models.ProfileTwitter:
		return u.Twitter
	}
	return nil
}

func (s *MemoryUserStore) List(ctx context.Context, q UserQuery) (models.Page[models.User], error) {
	if err := ctx.Err(); err != nil {
		return models.Page[models.User]{}, storeError(err)
	}
	q = q.normalized()
	needle := strings.ToLower(q.Search)

	s.mu.Lock()
	var matched []models.User
	for _, u := range s.users {
		if needle == "" || strings.Contains(strings.ToLower(u.Name), needle) || strings.Contains(u.Email, needle) {
			matched = append(matched, *cloneUser(u))
		}
	}
	s.mu.Unlock()

	field, dir := q.sortSpec()
	sort.SliceStable(matched, func(i, j int) bool {
		c := compareUsers(&matched[i], &matched[j], field)
		if c == 0 {
			c = strings.Compare(matched[i].ID.Hex(), matched[j].ID.Hex())
		}
		return c*dir < 0
	})

	total := int64(len(matched))
	start := (q.Page - 1) * q.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return models.NewPage(matched[start:end], total, q.Limit, q.Page), nil
}

func compareUsers(a, b *models.User, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

func (s *MemoryUserStore) Update(ctx context.Context, u *models.User) error {
	if err := ctx.Err(); err != nil {
		return storeError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	u.Email = utils.NormalizeEmail(u.Email)
	if other := s.byEmail(u.Email); other != nil && other.ID != u.ID {
		return ErrDuplicateEmail
	}
	cur.Name, cur.Email, cur.Phone, cur.Image = u.Name, u.Email, u.Phone, u.Image
	cur.DateOfBirth = u.DateOfBirth
	cur.Roles = rolesOrEmpty(append([]string(nil), u.Roles...))
	if u.Password != "" {
		cur.Password = u.Password
	}
	cur.UpdatedAt = s.now()
	u.UpdatedAt = cur.UpdatedAt
	return nil
}

func (s *MemoryUserStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidUserID
	}
	if err := ctx.Err(); err != nil {
		return storeError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[oid]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, oid)
	return nil
}

func (s *MemoryUserStore) SetRoles(ctx context.Context, email string, roles []string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byEmail(email)
	if u == nil {
		return nil, ErrUserNotFound
	}
	u.Roles = rolesOrEmpty(append([]string(nil), roles...))
	u.UpdatedAt = s.now()
	return cloneUser(u), nil
}

var (
	_ UserDirectory = (*MongoUserStore)(nil)
	_ UserDirectory = (*MemoryUserStore)(nil)
)
