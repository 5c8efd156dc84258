package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrPostNotOpen  = errors.New("post is not open")
)

// PostTotals aggregates posts created in a window.
type PostTotals struct {
	Posts   int64   `db:"posts"`
	Claimed int64   `db:"claimed"`
	KgSaved float64 `db:"kg_saved"`
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	ByID(ctx context.Context, id string) (*model.Post, error)
	ClaimOpen(ctx context.Context, id, claimedBy string, now time.Time) (*model.Post, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	SetPhoto(ctx context.Context, postID, fileID string) error

	OpenAvailable(ctx context.Context, now time.Time) ([]*model.PostWithProvider, error)
	ByProvider(ctx context.Context, providerID string) ([]*model.PostWithClaimer, error)
	ClaimedBy(ctx context.Context, shelterID string) ([]*model.PostWithProvider, error)

	ClaimedKgByProvider(ctx context.Context, providerID string) (float64, error)
	CountOpenByProvider(ctx context.Context, providerID string) (int64, error)
	ClaimedKgByShelter(ctx context.Context, shelterID string) (float64, error)
	CountClaimedByShelterSince(ctx context.Context, shelterID string, since time.Time) (int64, error)

	Totals(ctx context.Context, from, to time.Time) (*PostTotals, error)
	TopRestaurants(ctx context.Context, since time.Time, limit int) ([]model.TopRestaurant, error)
	TopShelters(ctx context.Context, since time.Time, limit int) ([]model.TopShelter, error)
}

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	query := `
		INSERT INTO posts (id, provider_id, description, qty_estimate, pickup_start, pickup_end, location, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		post.ID,
		post.ProviderID,
		post.Description,
		post.QtyEstimate,
		post.PickupStart.UTC(),
		post.PickupEnd.UTC(),
		post.Location,
		post.Status,
		post.CreatedAt.UTC(),
	)
	return err
}

func (r *postRepository) ByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	query := `SELECT * FROM posts WHERE id = $1`

	err := r.db.GetContext(ctx, post, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}

	return post, nil
}

// ClaimOpen atomically moves an open post whose pickup window has not ended to claimed.
// Only one of several concurrent callers can succeed; the others get ErrPostNotOpen.
func (r *postRepository) ClaimOpen(ctx context.Context, id, claimedBy string, now time.Time) (*model.Post, error) {
	var post model.Post
	now = now.UTC()

	query := `
		UPDATE posts
		SET status = 'claimed', claimed_by = $1, claimed_at = $2
		WHERE id = $3
		AND status = 'open'
		AND pickup_end >= $4
		RETURNING *
	`

	err := r.db.GetContext(ctx, &post, query, claimedBy, now, id, now)
	if err == sql.ErrNoRows {
		return nil, ErrPostNotOpen
	}
	if err != nil {
		return nil, err
	}

	return &post, nil
}

// ExpireOverdue marks every open post whose pickup window ended before now as expired.
func (r *postRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE posts SET status = 'expired' WHERE status = 'open' AND pickup_end < $1`

	result, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *postRepository) SetPhoto(ctx context.Context, postID, fileID string) error {
	query := `UPDATE posts SET photo_file_id = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, fileID, postID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrPostNotFound
	}

	return nil
}

func (r *postRepository) OpenAvailable(ctx context.Context, now time.Time) ([]*model.PostWithProvider, error) {
	posts := []*model.PostWithProvider{}
	query := `
		SELECT p.*, u.name AS provider_name
		FROM posts p
		JOIN users u ON u.id = p.provider_id
		WHERE p.status = 'open' AND p.pickup_end >= $1
		ORDER BY p.created_at DESC
	`

	err := r.db.SelectContext(ctx, &posts, query, now.UTC())
	if err != nil {
		return nil, err
	}

	return posts, nil
}

func (r *postRepository) ByProvider(ctx context.Context, providerID string) ([]*model.PostWithClaimer, error) {
	posts := []*model.PostWithClaimer{}
	query := `
		SELECT p.*, c.name AS claimer_name
		FROM posts p
		LEFT JOIN users c ON c.id = p.claimed_by
		WHERE p.provider_id = $1
		ORDER BY p.created_at DESC
	`

	err := r.db.SelectContext(ctx, &posts, query, providerID)
	if err != nil {
		return nil, err
	}

	return posts, nil
}

func (r *postRepository) ClaimedBy(ctx context.Context, shelterID string) ([]*model.PostWithProvider, error) {
	posts := []*model.PostWithProvider{}
	query := `
		SELECT p.*, u.name AS provider_name
		FROM posts p
		JOIN users u ON u.id = p.provider_id
		WHERE p.claimed_by = $1 AND p.status = 'claimed'
		ORDER BY p.claimed_at DESC
	`

	err := r.db.SelectContext(ctx, &posts, query, shelterID)
	if err != nil {
		return nil, err
	}

	return posts, nil
}

func (r *postRepository) ClaimedKgByProvider(ctx context.Context, providerID string) (float64, error) {
	var kg float64
	query := `SELECT COALESCE(SUM(qty_estimate), 0) FROM posts WHERE provider_id = $1 AND status = 'claimed'`
	err := r.db.GetContext(ctx, &kg, query, providerID)
	return kg, err
}

func (r *postRepository) CountOpenByProvider(ctx context.Context, providerID string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM posts WHERE provider_id = $1 AND status = 'open'`
	err := r.db.GetContext(ctx, &count, query, providerID)
	return count, err
}

func (r *postRepository) ClaimedKgByShelter(ctx context.Context, shelterID string) (float64, error) {
	var kg float64
	query := `SELECT COALESCE(SUM(qty_estimate), 0) FROM posts WHERE claimed_by = $1 AND status = 'claimed'`
	err := r.db.GetContext(ctx, &kg, query, shelterID)
	return kg, err
}

func (r *postRepository) CountClaimedByShelterSince(ctx context.Context, shelterID string, since time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM posts WHERE claimed_by = $1 AND status = 'claimed' AND claimed_at >= $2`
	err := r.db.GetContext(ctx, &count, query, shelterID, since.UTC())
	return count, err
}

// Totals counts posts created in [from, to). A zero to leaves the window open-ended.
func (r *postRepository) Totals(ctx context.Context, from, to time.Time) (*PostTotals, error) {
	query := `
		SELECT
			COUNT(*) AS posts,
			COALESCE(SUM(CASE WHEN status = 'claimed' THEN 1 ELSE 0 END), 0) AS claimed,
			COALESCE(SUM(CASE WHEN status = 'claimed' THEN qty_estimate ELSE 0 END), 0) AS kg_saved
		FROM posts
		WHERE created_at >= $1
	`
	args := []any{from.UTC()}
	if !to.IsZero() {
		query += ` AND created_at < $2`
		args = append(args, to.UTC())
	}

	totals := &PostTotals{}
	err := r.db.GetContext(ctx, totals, query, args...)
	if err != nil {
		return nil, err
	}

	return totals, nil
}

func (r *postRepository) TopRestaurants(ctx context.Context, since time.Time, limit int) ([]model.TopRestaurant, error) {
	top := []model.TopRestaurant{}
	query := `
		SELECT u.name AS name, SUM(p.qty_estimate) AS kg, COUNT(*) AS count
		FROM posts p
		JOIN users u ON u.id = p.provider_id
		WHERE p.status = 'claimed' AND p.created_at >= $1
		GROUP BY p.provider_id, u.name
		ORDER BY kg DESC, u.name ASC
		LIMIT $2
	`

	err := r.db.SelectContext(ctx, &top, query, since.UTC(), limit)
	if err != nil {
		return nil, err
	}

	return top, nil
}

func (r *postRepository) TopShelters(ctx context.Context, since time.Time, limit int) ([]model.TopShelter, error) {
	top := []model.TopShelter{}
	query := `
		SELECT u.name AS name, SUM(p.qty_estimate) AS kg, COUNT(*) AS count
		FROM posts p
		JOIN users u ON u.id = p.claimed_by
		WHERE p.status = 'claimed' AND p.created_at >= $1
		GROUP BY p.claimed_by, u.name
		ORDER BY kg DESC, u.name ASC
		LIMIT $2
	`

	err := r.db.SelectContext(ctx, &top, query, since.UTC(), limit)
	if err != nil {
		return nil, err
	}

	return top, nil
}
