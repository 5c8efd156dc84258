package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/resend/resend-go/v2"
)

// Mailer sends the fixed set of transactional emails.
type Mailer interface {
	SendWelcomeEmail(ctx context.Context, user *model.User) error
	SendClaimNotification(ctx context.Context, provider *model.User, shelterName string, post *model.Post) error
	SendDailyDigest(ctx context.Context, user *model.User, stats *model.UserStats) error
}

type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
	loc       *time.Location
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool, loc *time.Location) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}
	if loc == nil {
		loc = time.UTC
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
		loc:       loc,
	}
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, user *model.User) error {
	dashboardURL := fmt.Sprintf("%s/dashboard/%s", s.appURL, user.Role)
	subject, body := welcomeEmailTemplate(user.Name, user.Role, dashboardURL, s.appName)

	return s.send(ctx, "welcome", user.Email, subject, body)
}

func (s *EmailService) SendClaimNotification(ctx context.Context, provider *model.User, shelterName string, post *model.Post) error {
	dashboardURL := fmt.Sprintf("%s/dashboard/restaurant", s.appURL)
	window := fmt.Sprintf("%s - %s",
		post.PickupStart.In(s.loc).Format("Jan 2, 2006 15:04"),
		post.PickupEnd.In(s.loc).Format("Jan 2, 2006 15:04 MST"),
	)
	subject, body := claimNotificationTemplate(provider.Name, shelterName, post.Description, window, dashboardURL, s.appName)

	return s.send(ctx, "claim_notification", provider.Email, subject, body)
}

func (s *EmailService) SendDailyDigest(ctx context.Context, user *model.User, stats *model.UserStats) error {
	dashboardURL := fmt.Sprintf("%s/dashboard/%s", s.appURL, user.Role)
	subject, body := dailyDigestTemplate(user.Name, stats, dashboardURL, s.appName)

	return s.send(ctx, "daily_digest", user.Email, subject, body)
}

func (s *EmailService) send(ctx context.Context, kind, to, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}

	slog.Info("email sent", "type", kind, "to", to)
	return nil
}
