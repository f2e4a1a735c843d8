package models

// InviteStatus tracks the lifecycle of a community invite.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusDeclined InviteStatus = "declined"
)

// Invite grants a user entry into a PRIVATE community. One row exists per (community, invitee).
type Invite struct {
	BaseModel

	CommunityID string       `gorm:"type:uuid;not null;uniqueIndex:idx_community_invites_pair" json:"community_id"`
	InviterID   string       `gorm:"type:uuid;not null" json:"inviter_id"`
	InviteeID   string       `gorm:"type:uuid;not null;uniqueIndex:idx_community_invites_pair" json:"invitee_id"`
	Status      InviteStatus `gorm:"type:varchar(16);not null;index" json:"status"`
}

// TableName overrides the default table name.
func (Invite) TableName() string { return "community_invites" }

// Pending reports whether the invite can still be accepted or declined.
func (i *Invite) Pending() bool {
	return i != nil && i.Status == InviteStatusPending
}
