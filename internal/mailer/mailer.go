package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
)

// Config holds SMTP settings and the public base URL used to build
// links in outgoing mail.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	BaseURL  string

	MaxRetries     int
	RetryInterval  time.Duration
	ConnectTimeout time.Duration
	SendTimeout    time.Duration
}

func (c *Config) applyDefaults() {
	if c.FromName == "" {
		c.FromName = "Terrarium"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = 2 * time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = 30 * time.Second
	}
}

// Mailer sends transactional mail over SMTP
type Mailer struct {
	cfg    Config
	logger *logger.Logger
}

// New creates a mailer
func New(cfg Config, log *logger.Logger) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("from address is required")
	}

	cfg.applyDefaults()

	return &Mailer{
		cfg:    cfg,
		logger: log,
	}, nil
}

var verifyTmpl = template.Must(template.New("verify").Parse(`
<p>Hi {{.Username}},</p>
<p>Welcome to Terrarium! Please confirm your email address by following this link:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>If you did not create an account, you can ignore this message.</p>
`))

var recoveryTmpl = template.Must(template.New("recovery").Parse(`
<p>Hi {{.Username}},</p>
<p>A password reset was requested for your account. Follow this link to choose a new password:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The link expires in {{.TTL}} and can be used once. If you did not request a reset, ignore this message.</p>
`))

// SendVerification mails an address-confirmation link
func (m *Mailer) SendVerification(ctx context.Context, to string, username string, token string) error {
	link := fmt.Sprintf("%s/user/verify?token=%s", m.cfg.BaseURL, token)

	body, err := render(verifyTmpl, map[string]interface{}{
		"Username": username,
		"Link":     link,
	})
	if err != nil {
		return err
	}

	return m.send(ctx, to, "Confirm your email address", body)
}

// SendRecovery mails a single-use password reset link
func (m *Mailer) SendRecovery(ctx context.Context, to string, username string, token string, ttl time.Duration) error {
	link := fmt.Sprintf("%s/user/password/reset?token=%s", m.cfg.BaseURL, token)

	body, err := render(recoveryTmpl, map[string]interface{}{
		"Username": username,
		"Link":     link,
		"TTL":      ttl.String(),
	})
	if err != nil {
		return err
	}

	return m.send(ctx, to, "Reset your password", body)
}

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render mail template: %w", err)
	}
	return buf.String(), nil
}

func (m *Mailer) send(ctx context.Context, to string, subject string, body string) error {
	client, err := m.createClient()
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	defer client.Close()

	msg, err := m.buildMessage(to, subject, body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= m.cfg.MaxRetries; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, m.cfg.SendTimeout)
		err := client.DialAndSendWithContext(sendCtx, msg)
		cancel()

		if err == nil {
			m.logger.Debug("mail sent",
				zap.String("to", to),
				zap.String("subject", subject),
			)
			return nil
		}

		lastErr = err
		m.logger.Warn("mail delivery attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt < m.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.cfg.RetryInterval):
			}
		}
	}

	return fmt.Errorf("failed to send mail after %d attempts: %w", m.cfg.MaxRetries, lastErr)
}

func (m *Mailer) createClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.cfg.ConnectTimeout),
	}

	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	} else {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthNoAuth))
	}

	return mail.NewClient(m.cfg.Host, opts...)
}

func (m *Mailer) buildMessage(to string, subject string, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}

	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("failed to set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("failed to set recipient: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)
	msg.SetDate()
	msg.SetMessageID()

	return msg, nil
}
