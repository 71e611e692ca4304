// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Gender is the optional self-declared gender of a user.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// Valid reports whether g is empty or one of the known values.
func (g Gender) Valid() bool {
	switch g {
	case "", GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Age bounds enforced on registration and profile updates.
const (
	MinUserAge = 18
	MaxUserAge = 99
)

// User represents an account. Email is the login identifier.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password     string `gorm:"not null" json:"-"`
	FirstName    string `gorm:"type:varchar(255)" json:"first_name"`
	LastName     string `gorm:"type:varchar(255)" json:"last_name"`
	Age          *int   `json:"age,omitempty"`
	Gender       Gender `gorm:"type:varchar(1)" json:"gender,omitempty"`
	Country      string `gorm:"type:varchar(255)" json:"country,omitempty"`
	Education    string `gorm:"type:varchar(255)" json:"education,omitempty"`
	Work         string `gorm:"type:varchar(255)" json:"work,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
	IsOnline     bool   `gorm:"not null;default:false" json:"is_online"`
	IsActive     bool   `gorm:"not null" json:"is_active"`
	IsStaff      bool   `gorm:"not null;default:false;index" json:"is_staff"`
	SetInterest  bool   `gorm:"not null;default:false" json:"set_interest"`

	// Computed at query time, never persisted.
	FollowerCount      int64 `gorm:"->;-:migration" json:"follower_count"`
	FollowingCount     int64 `gorm:"->;-:migration" json:"following_count"`
	LikesCount         int64 `gorm:"->;-:migration" json:"likes_count"`
	ReportedPostsCount int64 `gorm:"->;-:migration" json:"reported_posts_count"`

	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// FullName joins first and last name, falling back to the email.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Email
}
