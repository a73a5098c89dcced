package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// SessionReport - итог практической сессии для письма пользователю
type SessionReport struct {
	DisplayName   string
	ExamType      string
	Mode          string
	Domain        string
	QuestionCount int
	CorrectCount  int
	Score         int
	PassingScore  int
	Passed        bool
	Status        string
	FinishedAt    time.Time
}

// EmailService sends transactional emails.
type EmailService interface {
	SendSessionReport(ctx context.Context, toEmail string, report SessionReport, idempotencyKey string) error
}

// NoopEmailService is used when email is disabled.
type NoopEmailService struct{}

func (s *NoopEmailService) SendSessionReport(ctx context.Context, toEmail string, report SessionReport, idempotencyKey string) error {
	log.Printf("[EmailService] noop send session report to=%s score=%d", toEmail, report.Score)
	return nil
}

// ResendEmailService sends emails via Resend REST API.
type ResendEmailService struct {
	from   string
	client *resend.Client
}

func NewResendEmailService(apiKey, from string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (s *ResendEmailService) SendSessionReport(ctx context.Context, toEmail string, report SessionReport, idempotencyKey string) error {
	if toEmail == "" {
		return fmt.Errorf("toEmail is required")
	}

	subject, text, htmlBody := formatSessionReport(report)
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: subject,
		Text:    text,
		Html:    htmlBody,
	}

	options := &resend.SendEmailOptions{}
	if strings.TrimSpace(idempotencyKey) != "" {
		options.IdempotencyKey = strings.TrimSpace(idempotencyKey)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

// formatSessionReport формирует тему, текстовую и HTML версии письма
func formatSessionReport(r SessionReport) (subject, text, htmlBody string) {
	verdict := "not passed"
	if r.Passed {
		verdict = "passed"
	}
	subject = fmt.Sprintf("%s practice result: %d/1000 (%s)", r.ExamType, r.Score, verdict)

	scope := "all domains"
	if r.Domain != "" {
		scope = r.Domain
	}
	greeting := "Hello"
	if r.DisplayName != "" {
		greeting = "Hello, " + r.DisplayName
	}
	ending := "You finished the session."
	if r.Status == "expired" {
		ending = "The session time ran out."
	}

	text = fmt.Sprintf("%s!\n%s\nExam: %s (%s, mode %s)\nCorrect: %d of %d\nScore: %d (passing %d) - %s\n",
		greeting, ending, r.ExamType, scope, r.Mode, r.CorrectCount, r.QuestionCount, r.Score, r.PassingScore, verdict)

	htmlBody = fmt.Sprintf(
		"<p>%s!</p><p>%s</p><ul><li>Exam: %s (%s, mode %s)</li><li>Correct: %d of %d</li><li>Score: <strong>%d</strong> (passing %d) - %s</li></ul>",
		html.EscapeString(greeting), ending, html.EscapeString(r.ExamType), html.EscapeString(scope), html.EscapeString(r.Mode),
		r.CorrectCount, r.QuestionCount, r.Score, r.PassingScore, verdict)
	return subject, text, htmlBody
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
