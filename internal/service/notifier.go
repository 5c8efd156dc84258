package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/foodrescue/foodrescue/internal/relay"
	"github.com/foodrescue/foodrescue/internal/repository"
)

// Notifier runs the side effects of a claim after it has been committed.
// Each effect runs in its own goroutine, detached from the request, bounded by timeout,
// and its failure is logged and counted only.
type Notifier struct {
	relay          relay.Relay
	mailer         Mailer
	userRepository repository.UserRepository
	timeout        time.Duration

	wg sync.WaitGroup
}

func NewNotifier(r relay.Relay, mailer Mailer, userRepository repository.UserRepository, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		relay:          r,
		mailer:         mailer,
		userRepository: userRepository,
		timeout:        timeout,
	}
}

// PostClaimed tells the provider that shelter claimed post, over the relay and by email.
func (n *Notifier) PostClaimed(ctx context.Context, shelter *model.User, post *model.Post) {
	event := model.ClaimEvent{
		PostID:      post.ID,
		Description: post.Description,
		ShelterName: shelter.Name,
		QtyEstimate: post.QtyEstimate,
	}
	channel := relay.ChannelName(post.ProviderID)

	n.dispatch(ctx, "relay", post.ID, func(ctx context.Context) error {
		return n.relay.Publish(ctx, channel, relay.EventFoodClaimed, event)
	})

	n.dispatch(ctx, "email", post.ID, func(ctx context.Context) error {
		provider, err := n.userRepository.ByID(ctx, post.ProviderID)
		if err != nil {
			return fmt.Errorf("failed to load provider: %w", err)
		}
		return n.mailer.SendClaimNotification(ctx, provider, shelter.Name, post)
	})
}

func (n *Notifier) dispatch(parent context.Context, channel, postID string, fn func(context.Context) error) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				notificationsTotal.WithLabelValues(channel, "panic").Inc()
				slog.Error("claim notification panicked", "channel", channel, "post_id", postID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), n.timeout)
		defer cancel()

		err := fn(ctx)
		if err != nil {
			notificationsTotal.WithLabelValues(channel, "failure").Inc()
			slog.Error("claim notification failed", "channel", channel, "post_id", postID, "error", err)
			return
		}

		notificationsTotal.WithLabelValues(channel, "success").Inc()
	}()
}

// Wait blocks until in-flight notifications finish or ctx ends.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
