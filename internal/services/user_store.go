package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/AnshRaj112/newsdesk-backend/internal/database"
	"github.com/AnshRaj112/newsdesk-backend/internal/models"
	"github.com/AnshRaj112/newsdesk-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Sortable user fields, by query name.
var userSortFields = map[string]string{
	"name":      "name",
	"email":     "email",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// MongoUserStore is the CredentialStore and UserDirectory backed by the
// users collection.
type MongoUserStore struct {
	coll    *mongo.Collection
	timeout time.Duration
	now     func() time.Time
}

func NewMongoUserStore(db *mongo.Database, timeout time.Duration) *MongoUserStore {
	return &MongoUserStore{
		coll:    db.Collection(database.UsersCollection),
		timeout: timeout,
		now:     time.Now,
	}
}

func (s *MongoUserStore) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	return s.findOne(ctx, bson.M{"email": utils.NormalizeEmail(email)})
}

func (s *MongoUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, storeError(err)
	}
	return &u, nil
}

func (s *MongoUserStore) Save(ctx context.Context, u *models.User) error {
	prepareNewUser(u, s.now())
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return storeError(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (s *MongoUserStore) AttachResetToken(ctx context.Context, email, token string, expires time.Time) (*models.User, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"reset_password_token":   token,
		"reset_password_expires": expires,
		"updated_at":             s.now(),
	}}
	return s.findOneAndUpdate(ctx, bson.M{"email": utils.NormalizeEmail(email)}, update, ErrUserNotFound)
}

func (s *MongoUserStore) UpdatePasswordByToken(ctx context.Context, token, passwordHash string, now time.Time) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	filter := bson.M{
		"reset_password_token":   token,
		"reset_password_expires": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"password": passwordHash, "updated_at": now},
		"$unset": bson.M{"reset_password_token": "", "reset_password_expires": ""},
	}
	return s.findOneAndUpdate(ctx, filter, update, ErrInvalidOrExpiredToken)
}

func (s *MongoUserStore) FindOrCreateSocial(ctx context.Context, id SocialIdentity) (*models.User, error) {
	field, err := providerField(id.Provider)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	acct := &models.ProviderAccount{ID: id.ProviderID, Email: id.Email, Image: id.Image}
	update := bson.M{"$set": bson.M{field: acct, "profile": id.Provider, "updated_at": s.now()}}
	u, err := s.findOneAndUpdate(ctx, bson.M{field + ".id": id.ProviderID}, update, ErrUserNotFound)
	if err == nil || !errors.Is(err, ErrUserNotFound) {
		return u, err
	}

	u, err = newSocialUser(id)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *MongoUserStore) findOneAndUpdate(ctx context.Context, filter, update bson.M, notFound error) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, storeError(err)
	}
	return &u, nil
}

func (s *MongoUserStore) List(ctx context.Context, q UserQuery) (models.Page[models.User], error) {
	q = q.normalized()
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	filter := bson.M{}
	if q.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"email": pattern}}
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return models.Page[models.User]{}, storeError(err)
	}

	field, dir := q.sortSpec()
	opts := options.Find().
		SetSort(bson.D{{Key: userSortFields[field], Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(int64((q.Page - 1) * q.Limit)).
		SetLimit(int64(q.Limit))

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return models.Page[models.User]{}, storeError(err)
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return models.Page[models.User]{}, storeError(err)
	}
	return models.NewPage(users, total, q.Limit, q.Page), nil
}

func (s *MongoUserStore) Update(ctx context.Context, u *models.User) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	u.Email = utils.NormalizeEmail(u.Email)
	u.UpdatedAt = s.now()
	set := bson.M{
		"name":          u.Name,
		"email":         u.Email,
		"phone":         u.Phone,
		"image":         u.Image,
		"date_of_birth": u.DateOfBirth,
		"roles":         rolesOrEmpty(u.Roles),
		"updated_at":    u.UpdatedAt,
	}
	if u.Password != "" {
		set["password"] = u.Password
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return storeError(err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *MongoUserStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidUserID
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return storeError(err)
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *MongoUserStore) SetRoles(ctx context.Context, email string, roles []string) (*models.User, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"roles": rolesOrEmpty(roles), "updated_at": s.now()}}
	return s.findOneAndUpdate(ctx, bson.M{"email": utils.NormalizeEmail(email)}, update, ErrUserNotFound)
}

func storeError(err error) error {
	return errors.Join(ErrStoreUnavailable, err)
}

func prepareNewUser(u *models.User, now time.Time) {
	u.Email = utils.NormalizeEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Profile == "" {
		u.Profile = models.ProfileNone
	}
	u.Roles = rolesOrEmpty(u.Roles)
}

func rolesOrEmpty(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}

func providerField(p models.SocialProfile) (string, error) {
	switch p {
	case models.ProfileGoogle:
		return "google", nil
	case models.ProfileFacebook:
		return "facebook", nil
	case models.ProfileTwitter:
		return "twitter", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownProvider, p)
}

func newSocialUser(id SocialIdentity) (*models.User, error) {
	if strings.TrimSpace(id.Email) == "" {
		return nil, NewValidationError("Your social account did not share an email address")
	}
	u := &models.User{
		Name:    id.Name,
		Email:   id.Email,
		Image:   id.Image,
		Profile: id.Provider,
	}
	acct := &models.ProviderAccount{ID: id.ProviderID, Email: id.Email, Image: id.Image}
	switch id.Provider {
	case models.ProfileGoogle:
		u.Google = acct
	case models.ProfileFacebook:
		u.Facebook = acct
	case models.ProfileTwitter:
		u.Twitter = acct
	}
	return u, nil
}

func (q UserQuery) normalized() UserQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if q.Page < 1 {
		q.Page = 1
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// sortSpec returns the query field name and direction (1 or -1). Unknown
// fields fall back to newest first.
func (q UserQuery) sortSpec() (string, int) {
	field, dir := q.Sort, 1
	if strings.HasPrefix(field, "-") {
		field, dir = field[1:], -1
	}
	if _, ok := userSortFields[field]; !ok {
		return "createdAt", -1
	}
	return field, dir
}
