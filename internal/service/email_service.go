package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"eduportal/internal/calendar"
	"eduportal/internal/models"
	"eduportal/internal/validation"
)

// SESAPI is the subset of the SES client used to send mail
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client    SESAPI
	fromEmail string
	fromName  string
	enabled   bool
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that skips every send.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName string) (*EmailService, error) {
	if fromEmail == "" {
		slog.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	slog.Info("email service enabled", "from", fromEmail, "region", awsRegion)
	return NewEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName), nil
}

// NewEmailServiceWithClient creates an enabled service over client
func NewEmailServiceWithClient(client SESAPI, fromEmail, fromName string) *EmailService {
	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendDailyDigest emails the agenda of one day. memberNames maps member ids
// to display names; unknown ids are omitted from the agenda lines.
func (s *EmailService) SendDailyDigest(ctx context.Context, toEmail string, date time.Time, summary calendar.DailySummary, memberNames map[string]string) error {
	if !s.enabled {
		slog.Debug("skipping digest email (service disabled)", "to", toEmail)
		return nil
	}
	if err := validation.ValidateEmail(toEmail); err != nil {
		return fmt.Errorf("invalid digest recipient: %w", err)
	}

	day := date.Format("Monday, 2 January 2006")
	subject := fmt.Sprintf("Your family agenda for %s", day)

	var text, rows strings.Builder
	fmt.Fprintf(&text, "Agenda for %s\n\n", day)
	if summary.Count == 0 {
		text.WriteString("Nothing scheduled today.\n")
		rows.WriteString("<p>Nothing scheduled today.</p>")
	} else {
		rows.WriteString("<ul>")
		for _, e := range summary.Events {
			line := agendaLine(e, memberNames)
			fmt.Fprintf(&text, "- %s\n", line)
			fmt.Fprintf(&rows, "<li>%s</li>", html.EscapeString(line))
		}
		rows.WriteString("</ul>")
	}
	text.WriteString("\n---\nThis is an automated email from Edu Portal. Please do not reply.\n")

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h2>Agenda for %s</h2>
	%s
	<p style="font-size: 12px; color: #666;">This is an automated email from Edu Portal. Please do not reply.</p>
</body>
</html>
`, html.EscapeString(day), rows.String())

	return s.sendEmail(ctx, toEmail, subject, htmlBody, text.String())
}

func agendaLine(e models.CalendarEvent, memberNames map[string]string) string {
	when := "All day"
	if !e.IsAllDay() {
		when = e.StartTime
		if e.EndTime != "" {
			when += "-" + e.EndTime
		}
	}
	line := fmt.Sprintf("%s  %s", when, e.Title)
	if name, ok := memberNames[e.FamilyMemberID]; ok && name != "" {
		line += fmt.Sprintf(" (%s)", name)
	}
	if e.Location != "" {
		line += " @ " + e.Location
	}
	return line
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	attrs := []any{"to", toEmail, "subject", subject}
	if result != nil && result.MessageId != nil {
		attrs = append(attrs, "message_id", *result.MessageId)
	}
	slog.Info("email sent", attrs...)
	return nil
}
