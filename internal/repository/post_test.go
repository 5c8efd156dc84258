package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/foodrescue/foodrescue/internal/db/dbtest"
	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/foodrescue/foodrescue/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	users      repository.UserRepository
	posts      repository.PostRepository
	restaurant *model.User
	shelterA   *model.User
	shelterB   *model.User
}

func newFixture(t *testing.T, conn *sqlx.DB) *fixture {
	t.Helper()

	users := repository.NewUserRepository(conn)
	return &fixture{
		users:      users,
		posts:      repository.NewPostRepository(conn),
		restaurant: newUser(t, users, "Green Bistro", model.RoleRestaurant),
		shelterA:   newUser(t, users, "Harbor Shelter", model.RoleShelter),
		shelterB:   newUser(t, users, "Hilltop Shelter", model.RoleShelter),
	}
}

func (f *fixture) post(t *testing.T, qty float64, created, pickupEnd time.Time) *model.Post {
	t.Helper()

	post := &model.Post{
		ID:          uuid.New().String(),
		ProviderID:  f.restaurant.ID,
		Description: "bread",
		QtyEstimate: qty,
		PickupStart: pickupEnd.Add(-2 * time.Hour),
		PickupEnd:   pickupEnd,
		Location:    "Main St 1",
		Status:      model.PostStatusOpen,
		CreatedAt:   created,
	}
	require.NoError(t, f.posts.Create(context.Background(), post))
	return post
}

func TestPostRepository_ClaimOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dbtest.New(t))
	now := time.Now()

	post := f.post(t, 10, now, now.Add(time.Hour))

	claimed, err := f.posts.ClaimOpen(ctx, post.ID, f.shelterA.ID, now)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusClaimed, claimed.Status)
	require.NotNil(t, claimed.ClaimedBy)
	assert.Equal(t, f.shelterA.ID, *claimed.ClaimedBy)
	require.NotNil(t, claimed.ClaimedAt)

	_, err = f.posts.ClaimOpen(ctx, post.ID, f.shelterB.ID, now)
	assert.ErrorIs(t, err, repository.ErrPostNotOpen)

	stored, err := f.posts.ByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, f.shelterA.ID, *stored.ClaimedBy)
}

func TestPostRepository_ClaimOpenRejectsEndedWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dbtest.New(t))
	now := time.Now()

	post := f.post(t, 3, now.Add(-3*time.Hour), now.Add(-time.Minute))

	_, err := f.posts.ClaimOpen(ctx, post.ID, f.shelterA.ID, now)
	assert.ErrorIs(t, err, repository.ErrPostNotOpen)

	stored, err := f.posts.ByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusOpen, stored.Status)
	assert.Nil(t, stored.ClaimedBy)
}

func TestPostRepository_ClaimOpenConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dbtest.New(t))
	now := time.Now()

	post := f.post(t, 5, now, now.Add(time.Hour))

	shelters := []string{f.shelterA.ID, f.shelterB.ID}
	errs := make([]error, len(shelters))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, shelterID := range shelters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = f.posts.ClaimOpen(ctx, post.ID, shelterID, now)
		}()
	}
	close(start)
	wg.Wait()

	var winners []string
	for i, err := range errs {
		if err == nil {
			winners = append(winners, shelters[i])
			continue
		}
		assert.ErrorIs(t, err, repository.ErrPostNotOpen)
	}
	require.Len(t, winners, 1)

	stored, err := f.posts.ByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusClaimed, stored.Status)
	assert.Equal(t, winners[0], *stored.ClaimedBy)
}

func TestPostRepository_ExpireOverdue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dbtest.New(t))
	now := time.Now()

	overdue := f.post(t, 1, now.Add(-5*time.Hour), now.Add(-time.Hour))
	current := f.post(t, 1, now, now.Add(time.Hour))
	claimedLate := f.post(t, 1, now.Add(-5*time.Hour), now.Add(-time.Hour))
	_, err := f.posts.ClaimOpen(ctx, claimedLate.ID, f.shelterA.ID, now.Add(-2*time.Hour))
	require.NoError(t, err)

	n, err := f.posts.ExpireOverdue(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = f.posts.ExpireOverdue(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	for id, want := range map[string]string{
		overdue.ID:     model.PostStatusExpired,
		current.ID:     model.PostStatusOpen,
		claimedLate.ID: model.PostStatusClaimed,
	} {
		p, err := f.posts.ByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, p.Status)
	}
}

func TestPostRepository_Listings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dbtest.New(t))
	now := time.Now()

	open := f.post(t, 2, now.Add(-time.Hour), now.Add(time.Hour))
	claimed := f.post(t, 4, now, now.Add(2*time.Hour))
	f.post(t, 1, now.Add(-5*time.Hour), now.Add(-time.Hour)) // window ended

	_, err := f.posts.ClaimOpen(ctx, claimed.ID, f.shelterA.ID, now)
	require.NoError(t, err)

	available, err := f.posts.OpenAvailable(ctx, now)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, open.ID, available[0].ID)
	assert.Equal(t, "Green Bistro", available[0].ProviderName)

	own, err := f.posts.ByProvider(ctx, f.restaurant.ID)
	require.NoError(t, err)
	require.Len(t, own, 3)
	assert.Equal(t, claimed.ID, own[0].ID)
	require.NotNil(t, own[0].ClaimerName)
	assert.Equal(t, "Harbor Shelter", *own[0].ClaimerName)
	assert.Nil(t, own[1].ClaimerName)

	mine, err := f.posts.ClaimedBy(ctx, f.shelterA.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, claimed.ID, mine[0].ID)

	none, err := f.posts.ClaimedBy(ctx, f.shelterB.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPostRepository_Aggregates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dbtest.New(t))
	now := time.Now()

	a := f.post(t, 10, now, now.Add(time.Hour))
	b := f.post(t, 2.5, now, now.Add(time.Hour))
	f.post(t, 7, now, now.Add(time.Hour))
	old := f.post(t, 100, now.AddDate(0, 0, -60), now.Add(time.Hour))

	for _, id := range []string{a.ID, old.ID} {
		_, err := f.posts.ClaimOpen(ctx, id, f.shelterA.ID, now)
		require.NoError(t, err)
	}
	_, err := f.posts.ClaimOpen(ctx, b.ID, f.shelterB.ID, now)
	require.NoError(t, err)

	kg, err := f.posts.ClaimedKgByProvider(ctx, f.restaurant.ID)
	require.NoError(t, err)
	assert.InDelta(t, 112.5, kg, 0.0001)

	open, err := f.posts.CountOpenByProvider(ctx, f.restaurant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, open)

	kg, err = f.posts.ClaimedKgByShelter(ctx, f.shelterA.ID)
	require.NoError(t, err)
	assert.InDelta(t, 110, kg, 0.0001)

	today, err := f.posts.CountClaimedByShelterSince(ctx, f.shelterA.ID, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, today)

	totals, err := f.posts.Totals(ctx, now.AddDate(0, 0, -30), time.Time{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, totals.Posts)
	assert.EqualValues(t, 2, totals.Claimed)
	assert.InDelta(t, 12.5, totals.KgSaved, 0.0001)

	bounded, err := f.posts.Totals(ctx, now.AddDate(0, 0, -90), now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.EqualValues(t, 1, bounded.Posts)
	assert.InDelta(t, 100, bounded.KgSaved, 0.0001)

	restaurants, err := f.posts.TopRestaurants(ctx, now.AddDate(0, 0, -30), 5)
	require.NoError(t, err)
	require.Len(t, restaurants, 1)
	assert.Equal(t, "Green Bistro", restaurants[0].Name)
	assert.EqualValues(t, 2, restaurants[0].Posts)

	shelters, err := f.posts.TopShelters(ctx, now.AddDate(0, 0, -30), 5)
	require.NoError(t, err)
	require.Len(t, shelters, 2)
	assert.Equal(t, "Harbor Shelter", shelters[0].Name)
	assert.InDelta(t, 10, shelters[0].KgClaimed, 0.0001)
	assert.Equal(t, "Hilltop Shelter", shelters[1].Name)
}
