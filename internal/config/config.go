package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

var (
	ErrParsingConfig = errors.New("config: parse environment")
	ErrInvalidConfig = errors.New("config: invalid value")
)

// File store backends.
const (
	FileStoreLocal      = "local"
	FileStoreCloudinary = "cloudinary"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`

	// Used to build absolute URLs, e.g. the reset link and social redirects.
	Protocol string `env:"PROTOCOL" envDefault:"http"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"8080"`

	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017/newsdesk"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"newsdesk"`
	PostgresURI   string `env:"POSTGRES_URI" envDefault:"postgres://localhost:5432/newsdesk?sslmode=disable"`
	RedisURI      string `env:"REDIS_URI" envDefault:"redis://localhost:6379/0"`

	JWTSecret     string        `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	JWTTTL        time.Duration `env:"JWT_TTL" envDefault:"720h"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	StoreTimeout   time.Duration `env:"STORE_TIMEOUT" envDefault:"10s"`
	MailTimeout    time.Duration `env:"MAIL_TIMEOUT" envDefault:"15s"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Per-IP limits. Auth limits apply to signin, signup and password reset routes.
	RateLimitRPS       float64       `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	AuthRateLimitEvery time.Duration `env:"AUTH_RATE_LIMIT_EVERY" envDefault:"5s"`
	AuthRateLimitBurst int           `env:"AUTH_RATE_LIMIT_BURST" envDefault:"3"`
	ForgotPasswordMax  int64         `env:"FORGOT_PASSWORD_MAX" envDefault:"5"`
	ForgotPasswordWin  time.Duration `env:"FORGOT_PASSWORD_WINDOW" envDefault:"1h"`

	FileStore        string `env:"FILE_STORE" envDefault:"local"`
	UploadsRoot      string `env:"UPLOADS_ROOT" envDefault:"./public/"`
	UploadsDir       string `env:"UPLOADS_DIR" envDefault:"images/news/"`
	ThumbnailWidth   int    `env:"THUMBNAIL_WIDTH" envDefault:"300"`
	ThumbnailQuality int    `env:"THUMBNAIL_QUALITY" envDefault:"27"`
	MaxUploadBytes   int64  `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`

	CloudinaryName      string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@localhost"`
	SupportEmail         string `env:"SUPPORT_EMAIL"`
	MailDevDir           string `env:"MAIL_DEV_DIR" envDefault:"./tmp/mail"`

	GoogleClientID       string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"FACEBOOK_CLIENT_SECRET"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// the .env file is optional
	_ = godotenv.Load()
	return parse(env.Options{})
}

// LoadFromMap parses cfg from the given variables only, ignoring the process
// environment.
func LoadFromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.AllowedOrigins = cleanOrigins(cfg.AllowedOrigins)
	if !strings.HasSuffix(cfg.UploadsDir, "/") {
		cfg.UploadsDir += "/"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that parse correctly but cannot be served.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) {
		invalid("JWT_SECRET must be set in production")
	}
	if c.JWTSecret == "" {
		invalid("JWT_SECRET is empty")
	}
	if c.ThumbnailQuality < 1 || c.ThumbnailQuality > 100 {
		invalid("THUMBNAIL_QUALITY must be between 1 and 100, got %d", c.ThumbnailQuality)
	}
	if c.ThumbnailWidth <= 0 {
		invalid("THUMBNAIL_WIDTH must be positive, got %d", c.ThumbnailWidth)
	}
	if c.MaxUploadBytes <= 0 {
		invalid("MAX_UPLOAD_BYTES must be positive")
	}
	for name, d := range map[string]time.Duration{
		"JWT_TTL":         c.JWTTTL,
		"SESSION_TTL":     c.SessionTTL,
		"RESET_TOKEN_TTL": c.ResetTokenTTL,
		"REQUEST_TIMEOUT": c.RequestTimeout,
		"STORE_TIMEOUT":   c.StoreTimeout,
		"MAIL_TIMEOUT":    c.MailTimeout,
	} {
		if d <= 0 {
			invalid("%s must be positive", name)
		}
	}
	switch c.FileStore {
	case FileStoreLocal:
	case FileStoreCloudinary:
		if c.CloudinaryName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			invalid("FILE_STORE=cloudinary requires CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET")
		}
	default:
		invalid("FILE_STORE must be %q or %q, got %q", FileStoreLocal, FileStoreCloudinary, c.FileStore)
	}
	return errors.Join(errs...)
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ApplicationURL is the absolute base URL, PROTOCOL://HOST:PORT.
func (c *Config) ApplicationURL() string {
	return fmt.Sprintf("%s://%s", c.Protocol, net.JoinHostPort(c.Host, c.Port))
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// AllowedHost is the bare hostname requests must carry in production, or ""
// when the host check is off.
func (c *Config) AllowedHost() string {
	if !c.IsProduction() {
		return ""
	}
	if u, err := url.Parse(c.ApplicationURL()); err == nil {
		return u.Hostname()
	}
	return ""
}

// MailEnabled reports whether Postmark credentials are configured.
func (c *Config) MailEnabled() bool {
	return c.PostmarkServerToken != ""
}

func cleanOrigins(in []string) []string {
	var out []string
	for _, o := range in {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" && !containsOrigin(out, o) {
			out = append(out, o)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	for _, v := range list {
		if strings.EqualFold(v, o) {
			return true
		}
	}
	return false
}
