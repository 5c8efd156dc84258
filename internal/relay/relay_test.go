package relay_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/foodrescue/foodrescue/internal/config"
	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/foodrescue/foodrescue/internal/relay"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *relay.Subscription) relay.Message {
	t.Helper()

	select {
	case msg := <-sub.C:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relay message")
		return relay.Message{}
	}
}

func assertClaimEvent(t *testing.T, msg relay.Message, channel string) {
	t.Helper()

	assert.Equal(t, channel, msg.Channel)
	assert.Equal(t, relay.EventFoodClaimed, msg.Event)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, "p1", got["postId"])
	assert.Equal(t, "soup", got["description"])
	assert.Equal(t, "Harbor Shelter", got["shelterName"])
	assert.EqualValues(t, 4.5, got["qtyEstimate"])
}

var event = model.ClaimEvent{PostID: "p1", Description: "soup", ShelterName: "Harbor Shelter", QtyEstimate: 4.5}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "restaurant-abc", relay.ChannelName("abc"))
}

func TestMemoryRelay_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	r := relay.NewMemoryRelay()
	defer r.Close()

	channel := relay.ChannelName("r1")
	sub, err := r.Subscribe(ctx, channel)
	require.NoError(t, err)
	other, err := r.Subscribe(ctx, relay.ChannelName("r2"))
	require.NoError(t, err)

	require.NoError(t, r.Publish(ctx, channel, relay.EventFoodClaimed, event))
	assertClaimEvent(t, receive(t, sub), channel)

	select {
	case msg := <-other.C:
		t.Fatalf("unexpected message on other channel: %+v", msg)
	default:
	}
}

func TestMemoryRelay_UnsubscribeOnContextCancel(t *testing.T) {
	r := relay.NewMemoryRelay()
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	channel := relay.ChannelName("r1")
	sub, err := r.Subscribe(ctx, channel)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Subscribers(channel))

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}
	assert.Eventually(t, func() bool { return r.Subscribers(channel) == 0 }, time.Second, 10*time.Millisecond)

	// Publishing with no subscribers is not an error
	require.NoError(t, r.Publish(context.Background(), channel, relay.EventFoodClaimed, event))
}

func TestMemoryRelay_Closed(t *testing.T) {
	r := relay.NewMemoryRelay()
	require.NoError(t, r.Close())

	err := r.Publish(context.Background(), "c", "e", event)
	assert.ErrorIs(t, err, relay.ErrClosed)

	_, err = r.Subscribe(context.Background(), "c")
	assert.ErrorIs(t, err, relay.ErrClosed)
}

func TestRedisRelay_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	r, err := relay.NewRedisRelay(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer r.Close()

	channel := relay.ChannelName("r1")
	sub, err := r.Subscribe(ctx, channel)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, r.Publish(ctx, channel, relay.EventFoodClaimed, event))
	assertClaimEvent(t, receive(t, sub), channel)
}

func TestRedisRelay_PublishFailsWhenServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	r := relay.NewRedisRelayFromClient(client)
	defer r.Close()

	mr.Close()

	err := r.Publish(context.Background(), relay.ChannelName("r1"), relay.EventFoodClaimed, event)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	r, err := relay.New(ctx, &config.Config{RelayProvider: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", r.Name())

	r, err = relay.New(ctx, &config.Config{RelayProvider: "redis", RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	assert.Equal(t, "redis", r.Name())
	require.NoError(t, r.Close())

	_, err = relay.New(ctx, &config.Config{RelayProvider: "pigeon"})
	assert.Error(t, err)
}
