package models

import "strings"

// User is the minimal account record the membership engine relies on.
type User struct {
	BaseModel

	Username     string `gorm:"uniqueIndex;not null;size:64" json:"username"`
	Email        string `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	DisplayName  string `gorm:"size:120" json:"display_name"`
	IsActive     bool   `gorm:"not null" json:"is_active"`
}

// PublicName returns the display name when set, otherwise the username.
func (u *User) PublicName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	return u.Username
}
