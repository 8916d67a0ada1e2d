package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	defaultHost = "https://api.sendgrid.com"
	endpoint    = "/v3/mail/send"
)

// Providers
const (
	ProviderSendgrid = "sendgrid"
	ProviderLog      = "log"
)

// Credentials is what a newly registered student needs to sign in
type Credentials struct {
	ToEmail       string
	ToName        string
	StudentNumber string
	Password      string
}

// EmailService defines the interface for email operations
type EmailService interface {
	SendStudentCredentials(ctx context.Context, creds Credentials) error
}

// Config holds the sender identity and provider settings
type Config struct {
	Provider  string
	APIKey    string
	FromEmail string
	FromName  string
	LoginURL  string
	// Host overrides the SendGrid API host
	Host string
}

// NewEmailService returns the configured provider. Anything other than
// sendgrid only logs the message.
func NewEmailService(cfg Config, logger zerolog.Logger) EmailService {
	if cfg.Provider == ProviderSendgrid && cfg.APIKey != "" {
		if cfg.Host == "" {
			cfg.Host = defaultHost
		}
		return &sendgridService{cfg: cfg, from: sgmail.NewEmail(cfg.FromName, cfg.FromEmail), logger: logger}
	}
	return &logService{cfg: cfg, logger: logger}
}

var credentialsHTML = template.Must(template.New("credentials").Parse(`<html>
<body>
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<h2 style="color: #333;">Welcome, {{.ToName}}!</h2>
		<p>Your enrollment has been registered. Your student number is <strong>{{.StudentNumber}}</strong>.</p>
		<p>You can sign in{{if .LoginURL}} at <a href="{{.LoginURL}}">{{.LoginURL}}</a>{{end}} with:</p>
		<ul>
			<li>Email: {{.ToEmail}}</li>
			<li>Temporary password: <strong>{{.Password}}</strong></li>
		</ul>
		<p>Please change your password after your first login.</p>
	</div>
</body>
</html>`))

type credentialsView struct {
	Credentials
	LoginURL string
}

func renderCredentials(creds Credentials, loginURL string) (subject, text, html string, err error) {
	var buf bytes.Buffer
	if err := credentialsHTML.Execute(&buf, credentialsView{Credentials: creds, LoginURL: loginURL}); err != nil {
		return "", "", "", fmt.Errorf("failed to render credentials email: %w", err)
	}
	subject = "Your enrollment account"
	text = fmt.Sprintf("Welcome, %s!\n\nStudent number: %s\nEmail: %s\nTemporary password: %s\n%s\n",
		creds.ToName, creds.StudentNumber, creds.ToEmail, creds.Password, loginURL)
	return subject, text, buf.String(), nil
}

type sendgridService struct {
	cfg    Config
	from   *sgmail.Email
	logger zerolog.Logger
}

func (s *sendgridService) SendStudentCredentials(ctx context.Context, creds Credentials) error {
	subject, text, html, err := renderCredentials(creds, s.cfg.LoginURL)
	if err != nil {
		return err
	}

	p := sgmail.NewPersonalization()
	p.Subject = subject
	p.AddTos(sgmail.NewEmail(creds.ToName, creds.ToEmail))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", text),
		sgmail.NewContent("text/html", html),
	)

	req := sendgrid.GetRequest(s.cfg.APIKey, endpoint, s.cfg.Host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("toEmail", creds.ToEmail).Msg("Failed to send credentials email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		s.logger.Error().Int("status", res.StatusCode).Str("body", res.Body).Str("toEmail", creds.ToEmail).Msg("SendGrid rejected credentials email")
		return fmt.Errorf("sendgrid returned status %d", res.StatusCode)
	}

	s.logger.Info().Str("toEmail", creds.ToEmail).Msg("Credentials email sent")
	return nil
}

type logService struct {
	cfg    Config
	logger zerolog.Logger
}

func (s *logService) SendStudentCredentials(_ context.Context, creds Credentials) error {
	s.logger.Warn().
		Str("toEmail", creds.ToEmail).
		Str("studentNumber", creds.StudentNumber).
		Str("temporaryPassword", creds.Password).
		Str("loginURL", s.cfg.LoginURL).
		Msg("Email provider not configured - credentials email not sent. Use the values above for testing.")
	return nil
}
