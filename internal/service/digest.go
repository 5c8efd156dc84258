package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/foodrescue/foodrescue/internal/repository"
)

type DigestResult struct {
	Sent   int `json:"emails_sent"`
	Failed int `json:"emails_failed"`
}

// DigestService sends every user a summary of their cumulative impact.
// The scheduler, the HTTP trigger and the CLI all call Run.
type DigestService struct {
	userRepository repository.UserRepository
	stats          *StatsService
	mailer         Mailer
}

func NewDigestService(userRepository repository.UserRepository, stats *StatsService, mailer Mailer) *DigestService {
	return &DigestService{
		userRepository: userRepository,
		stats:          stats,
		mailer:         mailer,
	}
}

// Run processes users one by one. A failure for one user is logged and counted,
// and the loop continues. Cancelling ctx does not cut a pass short: once started,
// every user is processed. It returns an error only when the user list cannot be loaded.
func (s *DigestService) Run(ctx context.Context) (DigestResult, error) {
	var result DigestResult
	start := time.Now()
	ctx = context.WithoutCancel(ctx)

	users, err := s.userRepository.All(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list users: %w", err)
	}

	for _, user := range users {
		err := s.sendOne(ctx, user)
		if err != nil {
			result.Failed++
			digestEmailsTotal.WithLabelValues("failure").Inc()
			slog.Error("daily digest failed", "user_id", user.ID, "error", err)
			continue
		}

		result.Sent++
		digestEmailsTotal.WithLabelValues("success").Inc()
	}

	slog.Info("daily digest finished",
		"sent", result.Sent,
		"failed", result.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s *DigestService) sendOne(ctx context.Context, user *model.User) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	stats, err := s.stats.ForUser(ctx, user)
	if err != nil {
		return err
	}

	return s.mailer.SendDailyDigest(ctx, user, stats)
}
