package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
)

// EmailConfig configures the SendGrid alert channel
type EmailConfig struct {
	APIKey    string
	FromName  string
	FromEmail string
	To        []string
}

// EmailChannel delivers alerts by email through SendGrid
type EmailChannel struct {
	logger   *zap.Logger
	config   EmailConfig
	strategy RetryStrategy
}

// NewEmailChannel creates an email notification channel
func NewEmailChannel(logger *zap.Logger, config EmailConfig) *EmailChannel {
	return &EmailChannel{
		logger: logger.Named("email"),
		config: config,
		strategy: &ExponentialBackoff{
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Send delivers the alert to every configured recipient
func (c *EmailChannel) Send(alert *model.Alert) error {
	if c.config.APIKey == "" || len(c.config.To) == 0 {
		return fmt.Errorf("email channel not configured")
	}

	subject := fmt.Sprintf("[%s] Campaign alert", strings.ToUpper(string(alert.Severity)))
	body := fmt.Sprintf("%s\n\nCampaign: %s\nRule: %s\nRaised: %s",
		alert.Message, alert.CampaignID, alert.RuleID, alert.CreatedAt.Format(time.RFC3339))

	from := mail.NewEmail(c.config.FromName, c.config.FromEmail)
	client := sendgrid.NewSendClient(c.config.APIKey)

	for _, recipient := range c.config.To {
		to := mail.NewEmail("", recipient)
		message := mail.NewSingleEmail(from, subject, to, body, body)

		err := retry(3, c.strategy, func() error {
			resp, err := client.Send(message)
			if err != nil {
				return err
			}
			if resp.StatusCode >= 400 {
				return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to email %s: %w", recipient, err)
		}
	}

	c.logger.Info("Alert emailed",
		zap.String("alert_id", alert.ID),
		zap.Int("recipients", len(c.config.To)))
	return nil
}
