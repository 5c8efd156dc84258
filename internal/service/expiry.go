package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foodrescue/foodrescue/internal/repository"
)

type ExpiryService struct {
	postRepository repository.PostRepository
	now            Clock
}

func NewExpiryService(postRepository repository.PostRepository, now Clock) *ExpiryService {
	return &ExpiryService{
		postRepository: postRepository,
		now:            now.orDefault(),
	}
}

// Sweep expires every open post whose pickup window has ended. Running it again is a no-op.
func (s *ExpiryService) Sweep(ctx context.Context) (int64, error) {
	n, err := s.postRepository.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire posts: %w", err)
	}

	postsExpiredTotal.Add(float64(n))
	if n > 0 {
		slog.Info("expired overdue posts", "count", n)
	}
	return n, nil
}
