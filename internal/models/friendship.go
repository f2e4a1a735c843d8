package models

// FriendshipStatus tracks a friend request between two users.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipDeclined FriendshipStatus = "declined"
)

// Friendship is a directed request from requester to addressee. The ordered pair is unique.
type Friendship struct {
	BaseModel

	RequesterID string           `gorm:"type:uuid;not null;uniqueIndex:idx_friendships_pair" json:"requester_id"`
	AddresseeID string           `gorm:"type:uuid;not null;uniqueIndex:idx_friendships_pair;index" json:"addressee_id"`
	Status      FriendshipStatus `gorm:"type:varchar(16);not null;index" json:"status"`
}

// OtherParty returns the user on the other side of the friendship from userID.
func (f *Friendship) OtherParty(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}
