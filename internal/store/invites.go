package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/comunitree/internal/models"
)

// FindInvite loads an invite by id. Inside a transaction the row is locked for update.
func (s *Store) FindInvite(ctx context.Context, id string) (*models.Invite, error) {
	var invite models.Invite
	err := s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&invite).Error
	if err != nil {
		return nil, translate("find invite", err)
	}
	return &invite, nil
}

// FindInviteForPair loads the invite of inviteeID into communityID.
func (s *Store) FindInviteForPair(ctx context.Context, communityID, inviteeID string) (*models.Invite, error) {
	var invite models.Invite
	err := s.conn(ctx).
		Where("community_id = ? AND invitee_id = ?", communityID, inviteeID).
		Take(&invite).Error
	if err != nil {
		return nil, translate("find invite for pair", err)
	}
	return &invite, nil
}

// DeleteInviteForPair removes any invite of inviteeID into communityID.
func (s *Store) DeleteInviteForPair(ctx context.Context, communityID, inviteeID string) error {
	err := s.conn(ctx).
		Where("community_id = ? AND invitee_id = ?", communityID, inviteeID).
		Delete(&models.Invite{}).Error
	return translate("delete invite", err)
}

// CreateInvite inserts an invite row.
func (s *Store) CreateInvite(ctx context.Context, invite *models.Invite) error {
	return translate("create invite", s.conn(ctx).Create(invite).Error)
}

// SetInviteStatus updates the status of an invite.
func (s *Store) SetInviteStatus(ctx context.Context, id string, status models.InviteStatus) error {
	res := s.conn(ctx).Model(&models.Invite{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translate("set invite status", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("set invite status", gorm.ErrRecordNotFound)
	}
	return nil
}

// ListPendingInvites returns the pending invites addressed to userID, newest first.
func (s *Store) ListPendingInvites(ctx context.Context, userID string) ([]models.Invite, error) {
	var invites []models.Invite
	err := s.conn(ctx).
		Where("invitee_id = ? AND status = ?", userID, models.InviteStatusPending).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, translate("list pending invites", err)
	}
	return invites, nil
}
