// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// UserStatus is the account lifecycle state.
type UserStatus string

const (
	// UserStatusPending is set on registration until the confirmation code is used.
	UserStatusPending UserStatus = "pending"
	// UserStatusActive is a confirmed account.
	UserStatusActive UserStatus = "active"
	// UserStatusVerified is granted out of band.
	UserStatusVerified UserStatus = "verified"
)

// User represents an account in the Chirp application.
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Username         string     `gorm:"uniqueIndex;not null" json:"username"`
	Email            string     `gorm:"uniqueIndex;not null" json:"-"`
	Name             *string    `json:"name,omitempty"`
	Bio              *string    `gorm:"type:text" json:"bio,omitempty"`
	Location         *string    `json:"location,omitempty"`
	Website          *string    `json:"website,omitempty"`
	AvatarURL        *string    `json:"avatar_url,omitempty"`
	CoverURL         *string    `json:"cover_url,omitempty"`
	Status           UserStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ConfirmationCode *string    `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DisplayName returns the user's name, falling back to the username.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Username
}

// Summary returns the public card used when a user is embedded in another record.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Status:    u.Status,
	}
}

// Password stores the bcrypt hash for a user, kept out of the users table.
type Password struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Hash      string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Follow is the directed edge follower -> followed.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false" json:"follower_id"`
	FollowedID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`

	Follower User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followed User `gorm:"foreignKey:FollowedID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}
