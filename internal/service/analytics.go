package service

import (
	"context"
	"fmt"
	"time"

	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/foodrescue/foodrescue/internal/repository"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	analyticsMonths   = 6
	analyticsTopLimit = 5
)

// AnalyticsService builds the platform overview. Results are cached per range for a short TTL.
type AnalyticsService struct {
	userRepository repository.UserRepository
	postRepository repository.PostRepository
	cache          *expirable.LRU[string, *model.Analytics]
	loc            *time.Location
	now            Clock
}

func NewAnalyticsService(
	userRepository repository.UserRepository,
	postRepository repository.PostRepository,
	cacheSize int,
	cacheTTL time.Duration,
	loc *time.Location,
	now Clock,
) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{
		userRepository: userRepository,
		postRepository: postRepository,
		cache:          expirable.NewLRU[string, *model.Analytics](cacheSize, nil, cacheTTL),
		loc:            loc,
		now:            now.orDefault(),
	}
}

// Overview returns the analytics for rng (7d, 30d, 90d or 1y; anything else means 30d).
func (s *AnalyticsService) Overview(ctx context.Context, rng string) (*model.Analytics, error) {
	rng = model.NormalizeRange(rng)

	cached, ok := s.cache.Get(rng)
	if ok {
		analyticsCacheHits.Inc()
		return cached, nil
	}
	analyticsCacheMisses.Inc()

	a, err := s.compute(ctx, rng)
	if err != nil {
		return nil, err
	}

	s.cache.Add(rng, a)
	return a, nil
}

func (s *AnalyticsService) compute(ctx context.Context, rng string) (*model.Analytics, error) {
	now := s.now().In(s.loc)
	since := model.RangeStart(rng, now)

	a := &model.Analytics{Range: rng, GeneratedAt: now}

	var err error
	a.TotalUsers, err = s.userRepository.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	a.ActiveRestaurants, err = s.userRepository.CountByRole(ctx, model.RoleRestaurant)
	if err != nil {
		return nil, fmt.Errorf("failed to count restaurants: %w", err)
	}
	a.ActiveShelters, err = s.userRepository.CountByRole(ctx, model.RoleShelter)
	if err != nil {
		return nil, fmt.Errorf("failed to count shelters: %w", err)
	}

	totals, err := s.postRepository.Totals(ctx, since, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate posts: %w", err)
	}
	a.TotalPosts = totals.Posts
	a.ClaimedPosts = totals.Claimed
	a.TotalKgSaved = model.RoundKg(totals.KgSaved)
	a.TotalMeals = model.MealsFromKg(totals.KgSaved)
	a.ClaimRate = model.Percent(totals.Claimed, totals.Posts)

	a.Monthly, err = s.monthly(ctx, now)
	if err != nil {
		return nil, err
	}

	a.TopRestaurants, err = s.postRepository.TopRestaurants(ctx, since, analyticsTopLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank restaurants: %w", err)
	}
	for i := range a.TopRestaurants {
		a.TopRestaurants[i].KgDonated = model.RoundKg(a.TopRestaurants[i].KgDonated)
	}

	a.TopShelters, err = s.postRepository.TopShelters(ctx, since, analyticsTopLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank shelters: %w", err)
	}
	for i := range a.TopShelters {
		a.TopShelters[i].KgClaimed = model.RoundKg(a.TopShelters[i].KgClaimed)
	}

	return a, nil
}

// monthly returns one entry per calendar month for the trailing months, oldest first,
// the current month included. Each month is the half-open window [1st, 1st of next).
func (s *AnalyticsService) monthly(ctx context.Context, now time.Time) ([]model.MonthlyStat, error) {
	months := make([]model.MonthlyStat, 0, analyticsMonths)

	for i := analyticsMonths - 1; i >= 0; i-- {
		start := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, s.loc)
		end := start.AddDate(0, 1, 0)

		totals, err := s.postRepository.Totals(ctx, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate %s: %w", start.Format("2006-01"), err)
		}

		months = append(months, model.MonthlyStat{
			Month:   start.Format("Jan"),
			Posts:   totals.Posts,
			Claimed: totals.Claimed,
			KgSaved: model.RoundKg(totals.KgSaved),
		})
	}

	return months, nil
}
