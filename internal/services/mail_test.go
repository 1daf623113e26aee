package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostmarkMailer_Config(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     PostmarkConfig
		wantErr bool
	}{
		{name: "valid", cfg: PostmarkConfig{ServerToken: "tok", SenderEmail: "news@example.is"}},
		{name: "valid with support", cfg: PostmarkConfig{ServerToken: "tok", SenderEmail: "news@example.is", SupportEmail: "help@example.is"}},
		{name: "missing token", cfg: PostmarkConfig{SenderEmail: "news@example.is"}, wantErr: true},
		{name: "bad sender", cfg: PostmarkConfig{ServerToken: "tok", SenderEmail: "news"}, wantErr: true},
		{name: "bad support", cfg: PostmarkConfig{ServerToken: "tok", SenderEmail: "news@example.is", SupportEmail: "help"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := NewPostmarkMailer(tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMailInvalidConfig)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, m)
		})
	}
}

func TestPostmarkMailer_RejectsInvalidMessage(t *testing.T) {
	t.Parallel()
	m, err := NewPostmarkMailer(PostmarkConfig{ServerToken: "tok", SenderEmail: "news@example.is"})
	require.NoError(t, err)

	err = m.Send(context.Background(), MailMessage{To: "not-an-email", Subject: "x", Text: "y"})
	assert.ErrorIs(t, err, ErrMailDispatchFailed)
}

func TestDevMailer_Send(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "mail")
	m := NewDevMailer(dir)
	m.now = func() time.Time { return time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC) }

	msg, err := ResetPasswordMessage("anna@example.is", "Anna", "http://localhost:8080/reset/abc")
	require.NoError(t, err)
	require.NoError(t, m.Send(context.Background(), msg))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var html, meta string
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".html"):
			html = e.Name()
		case strings.HasSuffix(e.Name(), ".json"):
			meta = e.Name()
		}
	}
	assert.True(t, strings.HasPrefix(html, "2024_03_04_050607"))
	assert.Contains(t, html, "password-reset")

	raw, err := os.ReadFile(filepath.Join(dir, meta))
	require.NoError(t, err)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "anna@example.is", decoded["to"])
	assert.Equal(t, "Password reset", decoded["subject"])
}

func TestDevMailer_Invalid(t *testing.T) {
	t.Parallel()
	m := NewDevMailer(t.TempDir())

	for _, msg := range []MailMessage{
		{To: "anna@example.is", Text: "body"},
		{To: "anna@example.is", Subject: "Hi"},
		{To: "", Subject: "Hi", Text: "body"},
	} {
		assert.ErrorIs(t, m.Send(context.Background(), msg), ErrMailDispatchFailed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Send(ctx, MailMessage{To: "anna@example.is", Subject: "Hi", Text: "body"})
	assert.ErrorIs(t, err, ErrMailDispatchFailed)
}

func TestResetPasswordMessage(t *testing.T) {
	t.Parallel()
	msg, err := ResetPasswordMessage("anna@example.is", "<b>Anna</b>", "http://localhost:8080/reset/0123abcd")
	require.NoError(t, err)

	assert.Equal(t, "anna@example.is", msg.To)
	assert.Equal(t, "password-reset", msg.Tag)
	assert.Contains(t, msg.HTML, `href="http://localhost:8080/reset/0123abcd"`)
	assert.Contains(t, msg.HTML, "&lt;b&gt;Anna&lt;/b&gt;")
	assert.Contains(t, msg.Text, "http://localhost:8080/reset/0123abcd")
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "password_reset", sanitizeFilename("Password Reset"))
	assert.Equal(t, "etcpasswd", sanitizeFilename("etc/passwd"))
	assert.Equal(t, "email", sanitizeFilename("///"))
	assert.Len(t, sanitizeFilename(strings.Repeat("a", 300)), 100)
}
