package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// AWSSESEmailService sends account notifications using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendLockoutNotice tells the account holder their account was temporarily
// locked after repeated failed sign-in attempts.
func (s *AWSSESEmailService) SendLockoutNotice(ctx context.Context, email string, until time.Time) error {
	lockedUntil := until.UTC().Format("15:04 MST, Jan 2 2006")

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Your Account Has Been Temporarily Locked</h1>
        </div>
        <div class="content">
            <p>We detected several failed sign-in attempts on your account, so sign-in has been temporarily disabled.</p>
            <div class="warning">
                <strong>Sign-in will be available again at %s.</strong>
            </div>
            <p><strong>Was this you?</strong><br>
            If you were trying to sign in, simply wait and try again after the time above.</p>
            <p><strong>Wasn't you?</strong><br>
            Someone may be trying to guess your password. We recommend changing your password once you regain access.</p>
        </div>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
            <p>If you have any questions, please contact our support team.</p>
        </div>
    </div>
</body>
</html>
`, lockedUntil)

	textBody := fmt.Sprintf(`Your Account Has Been Temporarily Locked

We detected several failed sign-in attempts on your account, so sign-in has been temporarily disabled.

Sign-in will be available again at %s.

Was this you?
If you were trying to sign in, simply wait and try again after the time above.

Wasn't you?
Someone may be trying to guess your password. We recommend changing your password once you regain access.

This is an automated message. Please do not reply to this email.
If you have any questions, please contact our support team.
`, lockedUntil)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your account has been temporarily locked"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send lockout notice via SES", slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("lockout notice sent", slog.String("message_id", *result.MessageId))
	return nil
}
