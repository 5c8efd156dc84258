package service

import (
	"context"
	"fmt"
	"time"

	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/foodrescue/foodrescue/internal/repository"
)

// StatsService computes a user's cumulative totals for the dashboard and the daily digest.
type StatsService struct {
	postRepository repository.PostRepository
	loc            *time.Location
	now            Clock
}

func NewStatsService(postRepository repository.PostRepository, loc *time.Location, now Clock) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{
		postRepository: postRepository,
		loc:            loc,
		now:            now.orDefault(),
	}
}

// ForUser returns totals for a restaurant (claimed kg donated, open posts)
// or a shelter (claimed kg, claims since local midnight).
func (s *StatsService) ForUser(ctx context.Context, user *model.User) (*model.UserStats, error) {
	stats := &model.UserStats{Role: user.Role}

	var err error
	switch user.Role {
	case model.RoleRestaurant:
		stats.TotalKg, err = s.postRepository.ClaimedKgByProvider(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to sum donated kg: %w", err)
		}
		stats.ActivePosts, err = s.postRepository.CountOpenByProvider(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count open posts: %w", err)
		}

	case model.RoleShelter:
		stats.TotalKg, err = s.postRepository.ClaimedKgByShelter(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to sum claimed kg: %w", err)
		}
		stats.ClaimedToday, err = s.postRepository.CountClaimedByShelterSince(ctx, user.ID, startOfDay(s.now(), s.loc))
		if err != nil {
			return nil, fmt.Errorf("failed to count claims today: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown role %q", user.Role)
	}

	stats.TotalMeals = model.MealsFromKg(stats.TotalKg)
	stats.TotalKg = model.RoundKg(stats.TotalKg)
	return stats, nil
}
