package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/foodrescue/foodrescue/internal/db/dbtest"
	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/foodrescue/foodrescue/internal/relay"
	"github.com/foodrescue/foodrescue/internal/repository"
	"github.com/foodrescue/foodrescue/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendWelcomeEmail(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockMailer) SendClaimNotification(ctx context.Context, provider *model.User, shelterName string, post *model.Post) error {
	return m.Called(ctx, provider, shelterName, post).Error(0)
}

func (m *mockMailer) SendDailyDigest(ctx context.Context, user *model.User, stats *model.UserStats) error {
	return m.Called(ctx, user, stats).Error(0)
}

// testEnv wires services over a fresh sqlite database with a fixed clock.
type testEnv struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	mailer   *mockMailer
	relay    *relay.MemoryRelay
	notifier *service.Notifier
	now      time.Time
	clock    service.Clock

	restaurant *model.User
	shelterA   *model.User
	shelterB   *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn := dbtest.New(t)
	users := repository.NewUserRepository(conn)
	mailer := &mockMailer{}
	r := relay.NewMemoryRelay()
	t.Cleanup(func() { _ = r.Close() })

	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	env := &testEnv{
		users:    users,
		posts:    repository.NewPostRepository(conn),
		mailer:   mailer,
		relay:    r,
		notifier: service.NewNotifier(r, mailer, users, time.Second),
		now:      now,
		clock:    func() time.Time { return now },
	}
	env.restaurant = env.user(t, "Green Bistro", model.RoleRestaurant)
	env.shelterA = env.user(t, "Harbor Shelter", model.RoleShelter)
	env.shelterB = env.user(t, "Hilltop Shelter", model.RoleShelter)
	return env
}

func (e *testEnv) user(t *testing.T, name, role string) *model.User {
	t.Helper()

	u := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        uuid.New().String()[:8] + "@example.com",
		PasswordHash: "x",
		Role:         role,
		CreatedAt:    e.now.Add(-24 * time.Hour),
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

// post creates an open post for the restaurant with a window ending at pickupEnd.
func (e *testEnv) post(t *testing.T, qty float64, pickupEnd time.Time) *model.Post {
	t.Helper()

	p := &model.Post{
		ID:          uuid.New().String(),
		ProviderID:  e.restaurant.ID,
		Description: "20 loaves of bread",
		QtyEstimate: qty,
		PickupStart: pickupEnd.Add(-2 * time.Hour),
		PickupEnd:   pickupEnd,
		Location:    "Main St 1",
		Status:      model.PostStatusOpen,
		CreatedAt:   e.now.Add(-time.Hour),
	}
	require.NoError(t, e.posts.Create(context.Background(), p))
	return p
}

func (e *testEnv) claimService() *service.ClaimService {
	return service.NewClaimService(e.posts, e.notifier, e.clock)
}

func (e *testEnv) waitNotifications(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.notifier.Wait(ctx))
}
