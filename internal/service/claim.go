package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/foodrescue/foodrescue/internal/repository"
)

var (
	ErrUnauthenticated     = errors.New("authentication required")
	ErrUnauthorized        = errors.New("not allowed for this role")
	ErrPostNotFound        = errors.New("post not found")
	ErrPostUnavailable     = errors.New("post is no longer available")
	ErrPickupWindowExpired = errors.New("pickup window has expired")
)

// PostNotifier is told about every successful claim.
type PostNotifier interface {
	PostClaimed(ctx context.Context, shelter *model.User, post *model.Post)
}

type ClaimService struct {
	postRepository repository.PostRepository
	notifier       PostNotifier
	now            Clock
}

func NewClaimService(postRepository repository.PostRepository, notifier PostNotifier, now Clock) *ClaimService {
	return &ClaimService{
		postRepository: postRepository,
		notifier:       notifier,
		now:            now.orDefault(),
	}
}

// Claim moves an open post to claimed for a shelter.
// Checks run in order: caller is a shelter, post exists, post is open, pickup window has not ended.
// The write itself is a compare-and-set, so of two concurrent claims exactly one succeeds.
// Notifications run after the write and never affect the result.
func (s *ClaimService) Claim(ctx context.Context, postID string, actor *model.User) (*model.Post, error) {
	post, err := s.claim(ctx, postID, actor)
	claimsTotal.WithLabelValues(claimResult(err)).Inc()
	if err != nil {
		return nil, err
	}

	slog.Info("post claimed", "post_id", post.ID, "shelter_id", actor.ID, "provider_id", post.ProviderID)
	s.notifier.PostClaimed(ctx, actor, post)
	return post, nil
}

func (s *ClaimService) claim(ctx context.Context, postID string, actor *model.User) (*model.Post, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !actor.IsShelter() {
		return nil, ErrUnauthorized
	}

	post, err := s.postRepository.ByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	if !post.IsOpen() {
		return nil, ErrPostUnavailable
	}

	now := s.now()
	if post.WindowEnded(now) {
		return nil, ErrPickupWindowExpired
	}

	claimed, err := s.postRepository.ClaimOpen(ctx, postID, actor.ID, now)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotOpen) {
			// Claimed or expired by someone else since the read above
			return nil, ErrPostUnavailable
		}
		return nil, fmt.Errorf("failed to claim post: %w", err)
	}

	return claimed, nil
}

func claimResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrPostNotFound):
		return "not_found"
	case errors.Is(err, ErrPostUnavailable):
		return "unavailable"
	case errors.Is(err, ErrPickupWindowExpired):
		return "expired"
	default:
		return "error"
	}
}
