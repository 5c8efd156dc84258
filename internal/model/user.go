package model

import (
	"time"
)

const (
	RoleRestaurant = "restaurant"
	RoleShelter    = "shelter"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"` // immutable after registration
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func (u *User) IsRestaurant() bool {
	return u != nil && u.Role == RoleRestaurant
}

func (u *User) IsShelter() bool {
	return u != nil && u.Role == RoleShelter
}

// ValidRole reports whether role is one a user can register with.
func ValidRole(role string) bool {
	return role == RoleRestaurant || role == RoleShelter
}
