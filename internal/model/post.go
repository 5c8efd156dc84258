package model

import (
	"time"
)

const (
	PostStatusOpen    = "open"
	PostStatusClaimed = "claimed"
	PostStatusExpired = "expired"
)

// Post is a donation listing. Status moves open -> claimed or open -> expired, never back.
type Post struct {
	ID          string     `db:"id" json:"id"`
	ProviderID  string     `db:"provider_id" json:"provider_id"`
	Description string     `db:"description" json:"description"`
	QtyEstimate float64    `db:"qty_estimate" json:"qty_estimate"` // kg
	PickupStart time.Time  `db:"pickup_start" json:"pickup_start"`
	PickupEnd   time.Time  `db:"pickup_end" json:"pickup_end"`
	Location    string     `db:"location" json:"location"`
	Status      string     `db:"status" json:"status"`
	ClaimedBy   *string    `db:"claimed_by" json:"claimed_by,omitempty"`
	ClaimedAt   *time.Time `db:"claimed_at" json:"claimed_at,omitempty"`
	PhotoFileID *string    `db:"photo_file_id" json:"-"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`

	// Computed fields (not in database)
	PhotoURL string `db:"-" json:"photo_url,omitempty"`
}

func (p *Post) IsOpen() bool {
	return p.Status == PostStatusOpen
}

// WindowEnded reports whether the pickup window closed before now.
func (p *Post) WindowEnded(now time.Time) bool {
	return now.After(p.PickupEnd)
}

// PostWithProvider is a post joined with the restaurant's display name.
type PostWithProvider struct {
	Post
	ProviderName string `db:"provider_name" json:"provider_name"`
}

// PostWithClaimer is a post joined with the claiming shelter's display name, if any.
type PostWithClaimer struct {
	Post
	ClaimerName *string `db:"claimer_name" json:"claimer_name,omitempty"`
}

// ClaimEvent is the relay payload published to a restaurant when one of its posts is claimed.
type ClaimEvent struct {
	PostID      string  `json:"postId"`
	Description string  `json:"description"`
	ShelterName string  `json:"shelterName"`
	QtyEstimate float64 `json:"qtyEstimate"`
}

// PostInput is what a restaurant submits to create a post.
type PostInput struct {
	Description string    `json:"description" validate:"required,max=1000"`
	QtyEstimate float64   `json:"qty_estimate" validate:"gt=0,lte=100000"`
	PickupStart time.Time `json:"pickup_start" validate:"required"`
	PickupEnd   time.Time `json:"pickup_end" validate:"required,gtfield=PickupStart"`
	Location    string    `json:"location" validate:"required,max=300"`
}
