package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// KgPerMeal is the food weight counted as one meal.
const KgPerMeal = 0.5

// RoundKg rounds a weight to one decimal place, halves away from zero.
func RoundKg(kg float64) float64 {
	return decimal.NewFromFloat(kg).Round(1).InexactFloat64()
}

// MealsFromKg converts a weight into a whole number of meals.
func MealsFromKg(kg float64) int64 {
	return decimal.NewFromFloat(kg).Div(decimal.NewFromFloat(KgPerMeal)).Round(0).IntPart()
}

// Percent returns round(part/total*100), or 0 when total is 0.
func Percent(part, total int64) int64 {
	if total <= 0 {
		return 0
	}
	return decimal.NewFromInt(part).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(total)).Round(0).IntPart()
}

// UserStats are the cumulative totals shown on a dashboard and in the daily digest.
// ActivePosts is set for restaurants, ClaimedToday for shelters.
type UserStats struct {
	Role         string  `json:"role"`
	TotalKg      float64 `json:"total_kg"`
	TotalMeals   int64   `json:"total_meals"`
	ActivePosts  int64   `json:"active_posts"`
	ClaimedToday int64   `json:"claimed_today"`
}

const (
	Range7Days   = "7d"
	Range30Days  = "30d"
	Range90Days  = "90d"
	Range1Year   = "1y"
	DefaultRange = Range30Days
)

// NormalizeRange maps unknown or empty values to DefaultRange.
func NormalizeRange(r string) string {
	switch r {
	case Range7Days, Range30Days, Range90Days, Range1Year:
		return r
	}
	return DefaultRange
}

// RangeStart returns the start of the analytics window ending at now.
func RangeStart(r string, now time.Time) time.Time {
	switch NormalizeRange(r) {
	case Range7Days:
		return now.AddDate(0, 0, -7)
	case Range90Days:
		return now.AddDate(0, 0, -90)
	case Range1Year:
		return now.AddDate(-1, 0, 0)
	}
	return now.AddDate(0, 0, -30)
}

type MonthlyStat struct {
	Month   string  `json:"month"`
	Posts   int64   `json:"posts"`
	Claimed int64   `json:"claimed"`
	KgSaved float64 `json:"kg_saved"`
}

type TopRestaurant struct {
	Name      string  `db:"name" json:"name"`
	KgDonated float64 `db:"kg" json:"kg_donated"`
	Posts     int64   `db:"count" json:"posts"`
}

type TopShelter struct {
	Name      string  `db:"name" json:"name"`
	KgClaimed float64 `db:"kg" json:"kg_claimed"`
	Claims    int64   `db:"count" json:"claims"`
}

// Analytics is the platform-wide overview for one range.
type Analytics struct {
	Range             string          `json:"range"`
	TotalUsers        int64           `json:"total_users"`
	ActiveRestaurants int64           `json:"active_restaurants"`
	ActiveShelters    int64           `json:"active_shelters"`
	TotalPosts        int64           `json:"total_posts"`
	ClaimedPosts      int64           `json:"claimed_posts"`
	TotalKgSaved      float64         `json:"total_kg_saved"`
	TotalMeals        int64           `json:"total_meals"`
	ClaimRate         int64           `json:"claim_rate"`
	Monthly           []MonthlyStat   `json:"monthly"`
	TopRestaurants    []TopRestaurant `json:"top_restaurants"`
	TopShelters       []TopShelter    `json:"top_shelters"`
	GeneratedAt       time.Time       `json:"generated_at"`
}
