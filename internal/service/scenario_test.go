package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/foodrescue/foodrescue/internal/relay"
	"github.com/foodrescue/foodrescue/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// A restaurant posts food, a shelter claims it, the restaurant hears about it,
// a second shelter is turned away, and everyone's digest reflects the rescue.
func TestScenario_PostClaimNotifyDigest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.mailer.On("SendWelcomeEmail", mock.Anything, mock.Anything).Return(nil)
	env.mailer.On("SendClaimNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	auth := newAuthService(env)
	restaurant, err := auth.Register(ctx, service.RegisterInput{Name: "Corner Cafe", Email: "cafe@example.com", Password: testPassword, Role: model.RoleRestaurant})
	require.NoError(t, err)
	shelter, err := auth.Register(ctx, service.RegisterInput{Name: "Night Shelter", Email: "night@example.com", Password: testPassword, Role: model.RoleShelter})
	require.NoError(t, err)

	sub, err := env.relay.Subscribe(ctx, relay.ChannelName(restaurant.ID))
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	posts := service.NewPostService(env.posts, nil, env.clock)
	post, err := posts.Create(ctx, restaurant, model.PostInput{
		Description: "Soup, 10 litres",
		QtyEstimate: 10,
		PickupStart: env.now.Add(time.Hour),
		PickupEnd:   env.now.Add(2 * time.Hour),
		Location:    "Market Sq 2",
	})
	require.NoError(t, err)

	claims := env.claimService()
	_, err = claims.Claim(ctx, post.ID, shelter)
	require.NoError(t, err)

	_, err = claims.Claim(ctx, post.ID, env.shelterB)
	assert.ErrorIs(t, err, service.ErrPostUnavailable)

	select {
	case msg := <-sub.C:
		var event map[string]any
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, post.ID, event["postId"])
		assert.Equal(t, "Night Shelter", event["shelterName"])
	case <-time.After(2 * time.Second):
		t.Fatal("restaurant was not notified")
	}
	env.waitNotifications(t)

	digested := map[string]*model.UserStats{}
	env.mailer.On("SendDailyDigest", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			digested[args.Get(1).(*model.User).ID] = args.Get(2).(*model.UserStats)
		}).Return(nil)

	stats := service.NewStatsService(env.posts, time.UTC, env.clock)
	res, err := service.NewDigestService(env.users, stats, env.mailer).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Sent)
	assert.Zero(t, res.Failed)

	require.Contains(t, digested, restaurant.ID)
	assert.Equal(t, 10.0, digested[restaurant.ID].TotalKg)
	assert.Equal(t, int64(20), digested[restaurant.ID].TotalMeals)
	require.Contains(t, digested, shelter.ID)
	assert.Equal(t, int64(1), digested[shelter.ID].ClaimedToday)
}
