// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Scope returns the token scope string for the role.
func (r Role) Scope() string {
	return "ROLE_" + string(r)
}

// User represents an account in the identity store.
type User struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Username         string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email            string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password         string    `gorm:"not null" json:"-"`
	Role             Role      `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	DisplayName      string    `gorm:"size:100" json:"display_name"`
	Bio              string    `gorm:"size:500" json:"bio"`
	ProfileImagePath string    `gorm:"size:255" json:"profile_image_path"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserView is the public representation of a user.
type UserView struct {
	ID               uint   `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	Role             Role   `json:"role"`
	DisplayName      string `json:"displayName"`
	Bio              string `json:"bio"`
	ProfileImagePath string `json:"profileImagePath"`
}

// NewUserView builds the view of u.
func NewUserView(u *User) UserView {
	return UserView{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		Role:             u.Role,
		DisplayName:      u.DisplayName,
		Bio:              u.Bio,
		ProfileImagePath: u.ProfileImagePath,
	}
}

// NewUserViews builds views for users, preserving order.
func NewUserViews(users []User) []UserView {
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, NewUserView(&users[i]))
	}
	return views
}

// UserWithPostsView bundles a user with their posts.
type UserWithPostsView struct {
	User  UserView   `json:"user"`
	Posts []PostView `json:"posts"`
}
