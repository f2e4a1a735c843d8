package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/comunitree/internal/models"
)

// FindFriendship loads a friendship by id. Inside a transaction the row is locked for update.
func (s *Store) FindFriendship(ctx context.Context, id string) (*models.Friendship, error) {
	var friendship models.Friendship
	err := s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&friendship).Error
	if err != nil {
		return nil, translate("find friendship", err)
	}
	return &friendship, nil
}

// FindFriendshipPair loads the directed friendship from requesterID to addresseeID, locking it
// inside a transaction.
func (s *Store) FindFriendshipPair(ctx context.Context, requesterID, addresseeID string) (*models.Friendship, error) {
	var friendship models.Friendship
	err := s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("requester_id = ? AND addressee_id = ?", requesterID, addresseeID).
		Take(&friendship).Error
	if err != nil {
		return nil, translate("find friendship pair", err)
	}
	return &friendship, nil
}

// CreateFriendship inserts a friendship row.
func (s *Store) CreateFriendship(ctx context.Context, friendship *models.Friendship) error {
	return translate("create friendship", s.conn(ctx).Create(friendship).Error)
}

// SetFriendshipStatus updates the status of a friendship.
func (s *Store) SetFriendshipStatus(ctx context.Context, id string, status models.FriendshipStatus) error {
	res := s.conn(ctx).Model(&models.Friendship{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translate("set friendship status", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("set friendship status", gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteFriendshipPair removes the friendship between a and b in either direction.
func (s *Store) DeleteFriendshipPair(ctx context.Context, a, b string) (int64, error) {
	res := s.conn(ctx).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)", a, b, b, a).
		Delete(&models.Friendship{})
	if res.Error != nil {
		return 0, translate("delete friendship", res.Error)
	}
	return res.RowsAffected, nil
}

// ListPendingFriendRequests returns pending requests addressed to userID, newest first.
func (s *Store) ListPendingFriendRequests(ctx context.Context, userID string) ([]models.Friendship, error) {
	var rows []models.Friendship
	err := s.conn(ctx).
		Where("addressee_id = ? AND status = ?", userID, models.FriendshipPending).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("list pending friend requests", err)
	}
	return rows, nil
}

// ListAcceptedFriendships returns accepted friendships involving userID in either direction.
func (s *Store) ListAcceptedFriendships(ctx context.Context, userID string) ([]models.Friendship, error) {
	var rows []models.Friendship
	err := s.conn(ctx).
		Where("(requester_id = ? OR addressee_id = ?) AND status = ?", userID, userID, models.FriendshipAccepted).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("list friendships", err)
	}
	return rows, nil
}

// LockUsers takes row locks on the given users in id order, so two transactions touching the same
// pair queue behind each other instead of deadlocking. Dialects without row locks ignore it.
func (s *Store) LockUsers(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	var locked []string
	err := s.conn(ctx).Model(&models.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Pluck("id", &locked).Error
	return translate("lock users", err)
}
