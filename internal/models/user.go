package models

import (
	"time"
)

// User represents an admin panel account
type User struct {
	ID        string     `json:"id" validate:"required"`
	Username  string     `json:"username" validate:"required"`
	Email     string     `json:"email" validate:"required,email"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	Avatar    string     `json:"avatar,omitempty"`
	Role      string     `json:"role" validate:"required"`
	IsActive  bool       `json:"isActive"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// UserInput carries the writable user attributes
type UserInput struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	Role      string `json:"role" validate:"required,oneof=admin editor author viewer"`
	IsActive  *bool  `json:"isActive,omitempty"`
}

// GetID returns the user identity
func (u User) GetID() string { return u.ID }

// Clone returns a deep copy
func (u User) Clone() User {
	out := u
	out.LastLogin = cloneTime(u.LastLogin)
	return out
}
