package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnshRaj112/newsdesk-backend/internal/config"
	"github.com/AnshRaj112/newsdesk-backend/internal/database"
	"github.com/AnshRaj112/newsdesk-backend/internal/handlers"
	"github.com/AnshRaj112/newsdesk-backend/internal/logger"
	"github.com/AnshRaj112/newsdesk-backend/internal/middleware"
	"github.com/AnshRaj112/newsdesk-backend/internal/routes"
	"github.com/AnshRaj112/newsdesk-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.IsProduction(), cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	mongoClient, mongoDB, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer func() { _ = database.Disconnect(mongoClient) }()

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURI)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	pg, err := database.ConnectPostgres(ctx, cfg.PostgresURI, log)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer func() { _ = pg.Close() }()
	if err := database.Migrate(ctx, pg, log); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}

	users := services.NewMongoUserStore(mongoDB, cfg.StoreTimeout)
	sessions := services.NewRedisSessionStore(redisClient, cfg.SessionTTL)
	tokens := services.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL)
	activity := services.NewPostgresActivityLog(pg)

	mailer, err := newMailer(cfg, log)
	if err != nil {
		return err
	}

	auth := services.NewAuthService(services.AuthDeps{
		Store:    users,
		Sessions: sessions,
		Tokens:   tokens,
		Mail:     mailer,
		Activity: activity,
		Logger:   log,
	}, services.AuthConfig{
		ApplicationURL: cfg.ApplicationURL(),
		ResetTokenTTL:  cfg.ResetTokenTTL,
		StoreTimeout:   cfg.StoreTimeout,
		MailTimeout:    cfg.MailTimeout,
	})

	files, err := newFileStore(cfg)
	if err != nil {
		return err
	}
	uploads := services.NewUploadService(
		services.NewImagingProcessor(cfg.ThumbnailWidth, cfg.ThumbnailQuality),
		files, activity, log,
		services.UploadConfig{UploadsDir: cfg.UploadsDir},
	)

	cookies := handlers.CookieConfig{Secure: cfg.Protocol == "https", SessionTTL: cfg.SessionTTL}
	h := routes.Handlers{
		Auth:    handlers.NewAuthHandler(auth, cookies, log),
		Uploads: handlers.NewUploadHandler(uploads, "", cfg.MaxUploadBytes, log),
		Users:   handlers.NewUserHandler(services.NewUserAdmin(users, cfg.StoreTimeout), log),
		Logs:    handlers.NewLogHandler(activity, log),
	}
	if providers := socialProviders(cfg); len(providers) > 0 {
		social := services.NewSocialAuth(sessions, users, providers...)
		h.Social = handlers.NewSocialHandler(social, auth, cookies, cfg.ApplicationURL(), log)
		log.Info("social login enabled", zap.Int("providers", len(providers)))
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(log),
		middleware.ClientIP,
		middleware.Logging(log),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.Timeout(cfg.RequestTimeout),
		middleware.MaxRequestSize(cfg.MaxUploadBytes),
	)
	if cfg.IsProduction() {
		mws, limiters := middleware.ProductionSecurity(middleware.SecurityConfig{
			AllowedHost: cfg.AllowedHost(),
			GlobalRPS:   cfg.RateLimitRPS,
			GlobalBurst: cfg.RateLimitBurst,
			AuthEvery:   cfg.AuthRateLimitEvery,
			AuthBurst:   cfg.AuthRateLimitBurst,
		})
		r.Use(mws...)
		for _, l := range limiters {
			go l.Run(ctx)
		}
		log.Info("production security enabled")
	}

	routes.SetupRoutes(r, h, routes.Guards{
		Authenticate: middleware.OptionalAuth(tokens, auth, log),
		Credentials:  middleware.LocalCredentials(auth, log),
		ForgotPasswordLimit: middleware.WindowLimit(
			services.NewRedisWindowCounter(redisClient, "ratelimit:"),
			"forgot:", cfg.ForgotPasswordMax, cfg.ForgotPasswordWin, log,
		),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("newsdesk backend listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Environment),
			zap.String("url", cfg.ApplicationURL()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newMailer sends through Postmark when it is configured and writes mail to
// MAIL_DEV_DIR otherwise.
func newMailer(cfg *config.Config, log *zap.Logger) (services.MailSender, error) {
	if !cfg.MailEnabled() {
		log.Warn("postmark not configured, writing mail to disk", zap.String("dir", cfg.MailDevDir))
		return services.NewDevMailer(cfg.MailDevDir), nil
	}
	m, err := services.NewPostmarkMailer(services.PostmarkConfig{
		ServerToken:  cfg.PostmarkServerToken,
		AccountToken: cfg.PostmarkAccountToken,
		SenderEmail:  cfg.SenderEmail,
		SupportEmail: cfg.SupportEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("postmark: %w", err)
	}
	return m, nil
}

func newFileStore(cfg *config.Config) (services.FileStore, error) {
	if cfg.FileStore == config.FileStoreCloudinary {
		s, err := services.NewCloudinaryFileStore(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			return nil, fmt.Errorf("cloudinary: %w", err)
		}
		return s, nil
	}
	s, err := services.NewLocalFileStore(cfg.UploadsRoot)
	if err != nil {
		return nil, fmt.Errorf("uploads root: %w", err)
	}
	return s, nil
}

func socialProviders(cfg *config.Config) []*services.OAuthProvider {
	var out []*services.OAuthProvider
	callback := func(name string) string {
		return cfg.ApplicationURL() + "/auth/" + name + "/callback"
	}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		out = append(out, services.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, callback(services.ProviderGoogle)))
	}
	if cfg.FacebookClientID != "" && cfg.FacebookClientSecret != "" {
		out = append(out, services.NewFacebookProvider(cfg.FacebookClientID, cfg.FacebookClientSecret, callback(services.ProviderFacebook)))
	}
	return out
}
