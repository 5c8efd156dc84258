package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/foodrescue/foodrescue/internal/db/dbtest"
	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/foodrescue/foodrescue/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newPostgres starts a throwaway PostgreSQL container and returns a migrated connection.
// Skipped unless TEST_INTEGRATION is set.
func newPostgres(t *testing.T) *sqlx.DB {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("foodrescue_test"),
		postgres.WithUsername("foodrescue"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		err := container.Terminate(ctx)
		if err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return dbtest.Open(t, "pgx", dsn)
}

func TestPostgres_ClaimOpenSingleWinner(t *testing.T) {
	conn := newPostgres(t)
	ctx := context.Background()
	f := newFixture(t, conn)
	now := time.Now().UTC()

	post := f.post(t, 8, now, now.Add(time.Hour))

	const claimers = 10
	shelters := make([]string, claimers)
	for i := range shelters {
		shelters[i] = newUser(t, f.users, "Shelter", model.RoleShelter).ID
	}

	errs := make([]error, claimers)
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

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrPostNotOpen)
	}
	assert.Equal(t, 1, wins)

	stored, err := f.posts.ByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusClaimed, stored.Status)
}

func TestPostgres_StatsQueries(t *testing.T) {
	conn := newPostgres(t)
	ctx := context.Background()
	f := newFixture(t, conn)
	now := time.Now().UTC()

	first := f.post(t, 2.25, now, now.Add(time.Hour))
	second := f.post(t, 10, now, now.Add(time.Hour))
	f.post(t, 4, now, now.Add(time.Hour))

	for _, p := range []*model.Post{first, second} {
		_, err := f.posts.ClaimOpen(ctx, p.ID, f.shelterA.ID, now)
		require.NoError(t, err)
	}

	kg, err := f.posts.ClaimedKgByProvider(ctx, f.restaurant.ID)
	require.NoError(t, err)
	assert.InDelta(t, 12.25, kg, 0.001)

	open, err := f.posts.CountOpenByProvider(ctx, f.restaurant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), open)

	totals, err := f.posts.Totals(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.Posts)
	assert.Equal(t, int64(2), totals.Claimed)

	top, err := f.posts.TopShelters(ctx, now.Add(-time.Hour), 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Harbor Shelter", top[0].Name)
}
