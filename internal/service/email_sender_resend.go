package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/resendlabs/resend-go"
)

type ResendEmailSender struct {
	Client     *resend.Client
	From       string
	AppBaseURL string
	ResetPath  string
}

// NewResendEmailSender returns nil when the API key or sender is missing so
// callers can treat mail delivery as disabled.
func NewResendEmailSender(apiKey string, from string, appBaseURL string) *ResendEmailSender {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" {
		return nil
	}
	return &ResendEmailSender{
		Client:     resend.NewClient(apiKey),
		From:       from,
		AppBaseURL: strings.TrimRight(appBaseURL, "/"),
		ResetPath:  "/reset-password",
	}
}

func (s *ResendEmailSender) SendPasswordResetEmail(ctx context.Context, email string, token string) error {
	if s == nil || s.Client == nil {
		return errors.New("email sender not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	link := s.buildURL(s.ResetPath, token)
	request := &resend.SendEmailRequest{
		From:    s.From,
		To:      []string{email},
		Subject: "Reset your password",
		Html:    fmt.Sprintf("<p>Click to reset your password:</p><p><a href=\"%s\">Reset Password</a></p><p>The link expires in one hour.</p>", link),
		Text:    fmt.Sprintf("Reset your password: %s\nThe link expires in one hour.", link),
	}
	if _, err := s.Client.Emails.Send(request); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

func (s *ResendEmailSender) buildURL(path string, token string) string {
	base := strings.TrimRight(s.AppBaseURL, "/")
	if base == "" {
		return token
	}
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s%s?token=%s", base, path, url.QueryEscape(token))
}
