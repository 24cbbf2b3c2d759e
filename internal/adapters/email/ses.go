// Package email delivers password reset links through Amazon SES.
package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/middleware"
)

// SendEmailAPI is the subset of the SES v2 client used here.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier implements ResetNotifier. A notifier without a sender address is disabled.
type SESNotifier struct {
	client    SendEmailAPI
	fromEmail string
	fromName  string
}

var _ portssvc.ResetNotifier = (*SESNotifier)(nil)

// NewSESNotifier loads the default AWS credential chain for region.
// It returns a disabled notifier when fromEmail is empty.
func NewSESNotifier(ctx context.Context, region, fromEmail, fromName string) (*SESNotifier, error) {
	if fromEmail == "" {
		return &SESNotifier{}, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESNotifierWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName), nil
}

// NewSESNotifierWithClient wires an existing client.
func NewSESNotifierWithClient(client SendEmailAPI, fromEmail, fromName string) *SESNotifier {
	return &SESNotifier{client: client, fromEmail: fromEmail, fromName: fromName}
}

func (n *SESNotifier) IsEnabled() bool {
	return n != nil && n.client != nil && n.fromEmail != ""
}

// SendPasswordResetEmail sends the reset link. The link itself is never logged.
func (n *SESNotifier) SendPasswordResetEmail(ctx context.Context, toEmail, username, resetLink string) error {
	if !n.IsEnabled() {
		return nil
	}

	from := n.fromEmail
	if n.fromName != "" {
		from = fmt.Sprintf("%s <%s>", n.fromName, n.fromEmail)
	}

	subject := "Reset your Shope Lite password"
	textBody := fmt.Sprintf(`Hi %s,

We received a request to reset your Shope Lite password.
Open the link below to choose a new one:
%s

This link expires in 15 minutes and can be used once.
If you did not request a reset, ignore this email.
`, username, resetLink)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Hi %s,</p>
	<p>We received a request to reset your Shope Lite password.</p>
	<p><a href="%s">Reset password</a></p>
	<p style="font-size: 12px; color: #666;">%s</p>
	<p><strong>This link expires in 15 minutes and can be used once.</strong></p>
	<p>If you did not request a reset, ignore this email.</p>
</body>
</html>
`, html.EscapeString(username), html.EscapeString(resetLink), html.EscapeString(resetLink))

	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	middleware.GetLoggerFromCtx(ctx).Debug("Password reset email handed to SES", slog.String("from", n.fromEmail))
	return nil
}
