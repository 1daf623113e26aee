package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		vars        map[string]string
		expectError bool
		validate    func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			vars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "http://localhost:8080", cfg.ApplicationURL())
				assert.Equal(t, "images/news/", cfg.UploadsDir)
				assert.Equal(t, 27, cfg.ThumbnailQuality)
				assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
				assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
				assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
				assert.Equal(t, FileStoreLocal, cfg.FileStore)
				assert.False(t, cfg.IsProduction())
				assert.Empty(t, cfg.AllowedHost())
				assert.False(t, cfg.MailEnabled())
			},
		},
		{
			name: "application url from protocol host port",
			vars: map[string]string{"PROTOCOL": "https", "HOST": "news.example.is", "PORT": "443"},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://news.example.is:443", cfg.ApplicationURL())
				assert.Equal(t, ":443", cfg.Addr())
			},
		},
		{
			name: "origins trimmed and deduplicated",
			vars: map[string]string{"ALLOWED_ORIGINS": " https://a.is/ ,https://b.is,, https://A.is"},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://a.is", "https://b.is"}, cfg.AllowedOrigins)
			},
		},
		{
			name: "uploads dir gets trailing slash",
			vars: map[string]string{"UPLOADS_DIR": "images/profile"},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "images/profile/", cfg.UploadsDir)
			},
		},
		{
			name: "production with real secret",
			vars: map[string]string{"ENV": " Production ", "JWT_SECRET": "s3cret", "HOST": "api.example.is"},
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.Equal(t, "api.example.is", cfg.AllowedHost())
			},
		},
		{
			name:        "production requires secret",
			vars:        map[string]string{"ENV": "production"},
			expectError: true,
		},
		{
			name:        "bad duration",
			vars:        map[string]string{"JWT_TTL": "forever"},
			expectError: true,
		},
		{
			name:        "bad int",
			vars:        map[string]string{"THUMBNAIL_WIDTH": "wide"},
			expectError: true,
		},
		{
			name:        "quality out of range",
			vars:        map[string]string{"THUMBNAIL_QUALITY": "0"},
			expectError: true,
		},
		{
			name:        "unknown file store",
			vars:        map[string]string{"FILE_STORE": "s3"},
			expectError: true,
		},
		{
			name:        "cloudinary without credentials",
			vars:        map[string]string{"FILE_STORE": "cloudinary"},
			expectError: true,
		},
		{
			name: "cloudinary with credentials",
			vars: map[string]string{
				"FILE_STORE":            "cloudinary",
				"CLOUDINARY_CLOUD_NAME": "demo",
				"CLOUDINARY_API_KEY":    "key",
				"CLOUDINARY_API_SECRET": "secret",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, FileStoreCloudinary, cfg.FileStore)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := LoadFromMap(tt.vars)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestValidate_ErrorKinds(t *testing.T) {
	t.Parallel()

	_, err := LoadFromMap(map[string]string{"ENV": "production", "THUMBNAIL_QUALITY": "500"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "THUMBNAIL_QUALITY")

	_, err = LoadFromMap(map[string]string{"MAX_UPLOAD_BYTES": "lots"})
	assert.ErrorIs(t, err, ErrParsingConfig)
}
