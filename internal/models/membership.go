package models

import "time"

// MemberRole is the flat per-community role of a member.
type MemberRole string

const (
	RoleMember    MemberRole = "member"
	RoleModerator MemberRole = "moderator"
	RoleOwner     MemberRole = "owner"
)

// Membership binds a user to a community at most once.
type Membership struct {
	CommunityID string     `gorm:"primaryKey;type:uuid" json:"community_id"`
	UserID      string     `gorm:"primaryKey;type:uuid;index" json:"user_id"`
	Role        MemberRole `gorm:"type:varchar(16);not null" json:"role"`
	JoinedAt    time.Time  `gorm:"autoCreateTime;not null" json:"joined_at"`
}

// TableName overrides the default table name.
func (Membership) TableName() string { return "community_members" }
