// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// Email is a single outgoing message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Config controls the SES mailer.
type Config struct {
	Enabled  bool
	From     string
	FromName string
	Region   string
	SiteName string
	BaseURL  string
}

// sesAPI is the part of the SES v2 client the mailer uses.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Mailer sends email through Amazon SES v2. A disabled Mailer logs and
// drops every message.
type Mailer struct {
	client  sesAPI
	cfg     Config
	log     *zap.Logger
	enabled bool
}

// New builds a Mailer. Mail stays disabled when cfg.Enabled is false or no
// from-address is configured; that is not an error.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Mailer, error) {
	if !cfg.Enabled || cfg.From == "" {
		logger.Info("mailer disabled", zap.Bool("enabled_flag", cfg.Enabled), zap.Bool("has_from", cfg.From != ""))
		return &Mailer{cfg: cfg, log: logger}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	logger.Info("mailer enabled", zap.String("from", cfg.From), zap.String("region", cfg.Region))
	return &Mailer{
		client:  sesv2.NewFromConfig(awsCfg),
		cfg:     cfg,
		log:     logger,
		enabled: true,
	}, nil
}

// newWithClient is used by tests to inject a fake SES client.
func newWithClient(client sesAPI, cfg Config, logger *zap.Logger) *Mailer {
	return &Mailer{client: client, cfg: cfg, log: logger, enabled: true}
}

// Enabled reports whether messages are actually sent.
func (m *Mailer) Enabled() bool { return m != nil && m.enabled }

// Send delivers one message. On a disabled mailer it is a logged no-op.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if !m.Enabled() {
		if m != nil && m.log != nil {
			m.log.Debug("mail skipped (disabled)", zap.String("to", e.To), zap.String("subject", e.Subject))
		}
		return nil
	}

	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}

	body := &types.Body{
		Text: &types.Content{Data: aws.String(e.TextBody), Charset: aws.String("UTF-8")},
	}
	if e.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(e.HTMLBody), Charset: aws.String("UTF-8")}
	}

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{e.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(e.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send email to %s: %w", e.To, err)
	}
	return nil
}
