package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/shopspring/decimal"
	"github.com/venus-savings/venus/internal/model"
	"github.com/venus-savings/venus/internal/repository"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.AmericanEnglish)

// formatMoney renders an amount with thousands separators and two decimals.
func formatMoney(d decimal.Decimal) string {
	return moneyPrinter.Sprintf("$%.2f", d.Round(2).InexactFloat64())
}

type EmailService struct {
	client    *resend.Client
	users     repository.UserRepository
	fromEmail string
	isDev     bool
	appName   string
}

func NewEmailService(apiKey, fromEmail, appName string, isDev bool, users repository.UserRepository) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		users:     users,
		fromEmail: fromEmail,
		isDev:     isDev,
		appName:   appName,
	}
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, email string) error {
	subject, body := welcomeEmailTemplate(s.appName)
	return s.send(ctx, "welcome", email, subject, body)
}

// EmergencyWithdrawal implements WithdrawalNotifier.
func (s *EmailService) EmergencyWithdrawal(ctx context.Context, userID string, goal *model.Goal, penalty decimal.Decimal) error {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user for notification: %w", err)
	}

	subject, body := emergencyWithdrawalEmailTemplate(goal, penalty, s.appName)
	return s.send(ctx, "emergency_withdrawal", user.Email, subject, body)
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
	if err == nil {
		slog.Info("email sent", "type", kind, "to", to)
	}
	return err
}
