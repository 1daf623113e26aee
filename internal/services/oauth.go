package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AnshRaj112/newsdesk-backend/internal/models"
	"github.com/AnshRaj112/newsdesk-backend/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"

	googleUserInfoURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
	facebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)"

	DefaultStateTTL = 10 * time.Minute
)

// OAuthProvider exchanges an authorization code for a SocialIdentity.
type OAuthProvider struct {
	name        string
	profile     models.SocialProfile
	config      *oauth2.Config
	userInfoURL string
	decode      func(io.Reader) (SocialIdentity, error)
}

// NewGoogleProvider builds the Google login provider. redirectURL is the
// absolute callback url.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return &OAuthProvider{
		name:    ProviderGoogle,
		profile: models.ProfileGoogle,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		decode:      decodeGoogleUser,
	}
}

func NewFacebookProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return &OAuthProvider{
		name:    ProviderFacebook,
		profile: models.ProfileFacebook,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     facebook.Endpoint,
		},
		userInfoURL: facebookUserInfoURL,
		decode:      decodeFacebookUser,
	}
}

// WithEndpoint points p at other authorization, token and profile urls,
// such as a regional gateway or a local stand-in.
func (p *OAuthProvider) WithEndpoint(endpoint oauth2.Endpoint, userInfoURL string) *OAuthProvider {
	cfg := *p.config
	cfg.Endpoint = endpoint
	c := *p
	c.config = &cfg
	c.userInfoURL = userInfoURL
	return &c
}

func (p *OAuthProvider) Name() string { return p.name }

func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Identify exchanges code and fetches the provider profile.
func (p *OAuthProvider) Identify(ctx context.Context, code string) (SocialIdentity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return SocialIdentity{}, fmt.Errorf("%s: exchange code: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return SocialIdentity{}, err
	}
	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return SocialIdentity{}, fmt.Errorf("%s: fetch profile: %w", p.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return SocialIdentity{}, fmt.Errorf("%s: profile api returned status %d", p.name, resp.StatusCode)
	}

	id, err := p.decode(resp.Body)
	if err != nil {
		return SocialIdentity{}, fmt.Errorf("%s: decode profile: %w", p.name, err)
	}
	if id.ProviderID == "" {
		return SocialIdentity{}, fmt.Errorf("%s: profile has no id", p.name)
	}
	id.Provider = p.profile
	id.Email = utils.NormalizeEmail(id.Email)
	return id, nil
}

// decodeGoogleUser refuses addresses Google has not verified, since the
// email is what links a social login to an account.
func decodeGoogleUser(r io.Reader) (SocialIdentity, error) {
	var u struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(r).Decode(&u); err != nil {
		return SocialIdentity{}, err
	}
	if u.Email != "" && !u.VerifiedEmail {
		return SocialIdentity{}, ErrUnverifiedEmail
	}
	return SocialIdentity{ProviderID: u.ID, Email: u.Email, Name: u.Name, Image: u.Picture}, nil
}

func decodeFacebookUser(r io.Reader) (SocialIdentity, error) {
	var u struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(r).Decode(&u); err != nil {
		return SocialIdentity{}, err
	}
	return SocialIdentity{ProviderID: u.ID, Email: u.Email, Name: u.Name, Image: u.Picture.Data.URL}, nil
}

// SocialAuth runs the redirect and callback legs of social login.
type SocialAuth struct {
	providers map[string]*OAuthProvider
	states    StateStore
	store     CredentialStore
	stateTTL  time.Duration
}

func NewSocialAuth(states StateStore, store CredentialStore, providers ...*OAuthProvider) *SocialAuth {
	s := &SocialAuth{
		providers: make(map[string]*OAuthProvider, len(providers)),
		states:    states,
		store:     store,
		stateTTL:  DefaultStateTTL,
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
	}
	return s
}

// Enabled reports whether provider is configured.
func (s *SocialAuth) Enabled(provider string) bool {
	_, ok := s.providers[provider]
	return ok
}

// Begin stores a fresh state and returns the provider consent url.
func (s *SocialAuth) Begin(ctx context.Context, provider string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	state, err := newOAuthState()
	if err != nil {
		return "", err
	}
	if err := s.states.PutState(ctx, state, s.stateTTL); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return p.AuthCodeURL(state), nil
}

// Complete consumes state, identifies the user and finds or creates it.
func (s *SocialAuth) Complete(ctx context.Context, provider, state, code string) (*models.User, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	if err := s.states.ConsumeState(ctx, state); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, errors.New("authorization code missing")
	}
	id, err := p.Identify(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.store.FindOrCreateSocial(ctx, id)
}

func newOAuthState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrRandomnessUnavailable, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
