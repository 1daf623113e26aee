package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/AnshRaj112/newsdesk-backend/pkg/utils"
	"github.com/mrz1836/postmark"
)

// PostmarkConfig holds the credentials and addresses of the Postmark sender.
type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	SenderEmail  string
	SupportEmail string
}

// PostmarkMailer sends transactional mail through Postmark.
type PostmarkMailer struct {
	client *postmark.Client
	config PostmarkConfig
}

func NewPostmarkMailer(cfg PostmarkConfig) (*PostmarkMailer, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: POSTMARK_SERVER_TOKEN is required", ErrMailInvalidConfig)
	}
	if !utils.IsValidEmail(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SENDER_EMAIL must be a valid email address", ErrMailInvalidConfig)
	}
	if cfg.SupportEmail != "" && !utils.IsValidEmail(cfg.SupportEmail) {
		return nil, fmt.Errorf("%w: SUPPORT_EMAIL must be a valid email address", ErrMailInvalidConfig)
	}
	return &PostmarkMailer{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		config: cfg,
	}, nil
}

func (m *PostmarkMailer) Send(ctx context.Context, msg MailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}

	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:     m.config.SenderEmail,
		ReplyTo:  m.config.SupportEmail,
		To:       msg.To,
		Subject:  msg.Subject,
		Tag:      msg.Tag,
		HTMLBody: msg.HTML,
		TextBody: msg.Text,
	})
	if err != nil {
		return errors.Join(ErrMailDispatchFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrMailDispatchFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}

// DevMailer writes each message as an HTML file plus JSON metadata into dir
// instead of sending it.
type DevMailer struct {
	dir string
	now func() time.Time
}

func NewDevMailer(dir string) *DevMailer {
	return &DevMailer{dir: dir, now: time.Now}
}

type devMailMetadata struct {
	Timestamp string `json:"timestamp"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Tag       string `json:"tag,omitempty"`
	Text      string `json:"text,omitempty"`
}

func (d *DevMailer) Send(ctx context.Context, msg MailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrMailDispatchFailed, err)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return errors.Join(ErrMailDispatchFailed, err)
	}

	now := d.now()
	identifier := msg.Tag
	if identifier == "" {
		identifier = msg.Subject
	}
	base := fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405.000000"), sanitizeFilename(identifier))

	if err := os.WriteFile(filepath.Join(d.dir, base+".html"), []byte(msg.HTML), 0o644); err != nil {
		return errors.Join(ErrMailDispatchFailed, err)
	}

	meta, err := json.MarshalIndent(devMailMetadata{
		Timestamp: now.Format(time.RFC3339),
		To:        msg.To,
		Subject:   msg.Subject,
		Tag:       msg.Tag,
		Text:      msg.Text,
	}, "", "  ")
	if err != nil {
		return errors.Join(ErrMailDispatchFailed, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), meta, 0o644); err != nil {
		return errors.Join(ErrMailDispatchFailed, err)
	}
	return nil
}

func (m MailMessage) validate() error {
	if !utils.IsValidEmail(m.To) {
		return fmt.Errorf("%w: invalid recipient %q", ErrMailDispatchFailed, m.To)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrMailDispatchFailed)
	}
	if m.HTML == "" && m.Text == "" {
		return fmt.Errorf("%w: body is required", ErrMailDispatchFailed)
	}
	return nil
}

var filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = filenameUnsafe.ReplaceAllString(strings.ReplaceAll(s, " ", "_"), "")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}

var resetPasswordTemplate = template.Must(template.New("reset").Parse(`<p>Hi {{.Name}}</p>
<p>We've received a request to reset your password. If you didn't make the request</p>
<p>just ignore this email. Otherwise you can reset your password using this link:</p>
<a href="{{.URL}}">Click here to reset your password</a>
<p>Thank you.</p>
`))

// ResetPasswordMessage builds the password reset email for name at email.
func ResetPasswordMessage(email, name, url string) (MailMessage, error) {
	var buf bytes.Buffer
	if err := resetPasswordTemplate.Execute(&buf, struct{ Name, URL string }{name, url}); err != nil {
		return MailMessage{}, fmt.Errorf("render reset email: %w", err)
	}
	return MailMessage{
		To:      email,
		Subject: "Password reset",
		Text:    "Password reset\n\nReset your password using this link: " + url,
		HTML:    buf.String(),
		Tag:     "password-reset",
	}, nil
}

var (
	_ MailSender = (*PostmarkMailer)(nil)
	_ MailSender = (*DevMailer)(nil)
)
