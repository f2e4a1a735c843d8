package models

import "gorm.io/datatypes"

// CommunityType enumerates the closed set of community kinds.
type CommunityType string

const (
	CommunityTypeLocation CommunityType = "LOCATION"
	CommunityTypeSub      CommunityType = "SUB"
	CommunityTypePrivate  CommunityType = "PRIVATE"
)

// Valid reports whether t is one of the known community types.
func (t CommunityType) Valid() bool {
	switch t {
	case CommunityTypeLocation, CommunityTypeSub, CommunityTypePrivate:
		return true
	default:
		return false
	}
}

// Community is a node of the community graph. LOCATION rows are roots, SUB rows hang off exactly
// one LOCATION through ParentID, and PRIVATE rows record optional ancestry in community_parents.
type Community struct {
	BaseModel

	Name          string         `gorm:"not null;size:120" json:"name"`
	Slug          string         `gorm:"uniqueIndex;not null;size:120" json:"slug"`
	Type          CommunityType  `gorm:"type:varchar(16);not null;index" json:"type"`
	ParentID      *string        `gorm:"type:uuid;index" json:"parent_id"`
	FounderID     *string        `gorm:"type:uuid;index" json:"founder_id"`
	IsFriendGroup bool           `gorm:"not null;index" json:"is_friend_group"`
	Description   string         `json:"description"`
	ProfileData   datatypes.JSON `json:"profile_data,omitempty"`
	IsActive      bool           `gorm:"not null;index" json:"is_active"`
}

// FoundedBy reports whether userID is the community founder.
func (c *Community) FoundedBy(userID string) bool {
	return c != nil && c.FounderID != nil && *c.FounderID == userID && userID != ""
}

// CommunityParent records that a PRIVATE community was formed from a parent community.
type CommunityParent struct {
	CommunityID string `gorm:"primaryKey;type:uuid" json:"community_id"`
	ParentID    string `gorm:"primaryKey;type:uuid;index" json:"parent_id"`
}

// TableName overrides the default table name.
func (CommunityParent) TableName() string { return "community_parents" }
