package emails

import (
	"context"
	"errors"

	"go-qms/internal/config"
)

type EmailService interface {
	Send(ctx context.Context, email *Email) error
}

type Service struct {
	repo *Repository
	smtp SMTPConfig
	from string
}

func NewEmailService(repo *Repository, cfg *config.Config) EmailService {
	return &Service{
		repo: repo,
		smtp: SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		},
		from: cfg.SMTPFrom,
	}
}

// Send queues the email and hands delivery to a background goroutine; the
// stored record tracks queued/sent/failed.
func (s *Service) Send(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return errors.New("recipient required")
	}
	if email.From == "" {
		email.From = s.from
	}

	email.Status = EmailQueued
	if err := s.repo.Create(ctx, email); err != nil {
		return err
	}

	go s.process(email)
	return nil
}

func (s *Service) process(email *Email) {
	err := SendSMTP(s.smtp, email)
	if err != nil {
		_ = s.repo.UpdateStatus(
			context.Background(),
			email.ID,
			EmailFailed,
			err.Error(),
		)
		return
	}

	_ = s.repo.UpdateStatus(
		context.Background(),
		email.ID,
		EmailSent,
		"",
	)
}
