package store

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/charlesng35/comunitree/internal/models"
)

// MemberRow is a membership joined with its user profile.
type MemberRow struct {
	UserID      string            `json:"user_id"`
	Username    string            `json:"username"`
	DisplayName string            `json:"display_name"`
	Role        models.MemberRole `json:"role"`
	JoinedAt    time.Time         `json:"joined_at"`
}

// UserCommunityRow is an active community together with the caller's membership.
type UserCommunityRow struct {
	Community models.Community
	Role      models.MemberRole
	JoinedAt  time.Time
}

// Membership loads the membership of userID in communityID.
func (s *Store) Membership(ctx context.Context, communityID, userID string) (*models.Membership, error) {
	var membership models.Membership
	err := s.conn(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Take(&membership).Error
	if err != nil {
		return nil, translate("find membership", err)
	}
	return &membership, nil
}

// IsMember reports whether userID holds a membership in communityID.
func (s *Store) IsMember(ctx context.Context, communityID, userID string) (bool, error) {
	if communityID == "" || userID == "" {
		return false, nil
	}
	var count int64
	err := s.conn(ctx).Model(&models.Membership{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error
	if err != nil {
		return false, translate("is member", err)
	}
	return count > 0, nil
}

// MemberOfAny returns the subset of communityIDs in which userID is a member.
func (s *Store) MemberOfAny(ctx context.Context, userID string, communityIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(communityIDs))
	if userID == "" || len(communityIDs) == 0 {
		return out, nil
	}
	var ids []string
	err := s.conn(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND community_id IN ?", userID, communityIDs).
		Pluck("community_id", &ids).Error
	if err != nil {
		return nil, translate("member of any", err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// AddMember inserts a membership, leaving an existing one untouched. It reports whether a row was
// inserted.
func (s *Store) AddMember(ctx context.Context, communityID, userID string, role models.MemberRole) (bool, error) {
	membership := models.Membership{
		CommunityID: communityID,
		UserID:      userID,
		Role:        role,
		JoinedAt:    time.Now().UTC(),
	}
	res := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&membership)
	if res.Error != nil {
		return false, translate("add member", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RemoveMember deletes a membership and reports whether one existed.
func (s *Store) RemoveMember(ctx context.Context, communityID, userID string) (bool, error) {
	res := s.conn(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&models.Membership{})
	if res.Error != nil {
		return false, translate("remove member", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CountMembers counts the memberships of a community.
func (s *Store) CountMembers(ctx context.Context, communityID string) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Membership{}).Where("community_id = ?", communityID).Count(&count).Error
	if err != nil {
		return 0, translate("count members", err)
	}
	return count, nil
}

// CountMembersFor counts memberships for several communities at once.
func (s *Store) CountMembersFor(ctx context.Context, communityIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(communityIDs))
	if len(communityIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		CommunityID string
		Total       int64
	}
	err := s.conn(ctx).Model(&models.Membership{}).
		Select("community_id, COUNT(*) AS total").
		Where("community_id IN ?", communityIDs).
		Group("community_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate("count members", err)
	}
	for _, row := range rows {
		out[row.CommunityID] = row.Total
	}
	return out, nil
}

// ListMembers pages through a community's members ordered by join time.
func (s *Store) ListMembers(ctx context.Context, communityID string, limit, offset int) ([]MemberRow, error) {
	return s.ListMembersExcept(ctx, communityID, "", limit, offset)
}

// ListMembersExcept is ListMembers without the membership of excludedUserID. An empty
// excludedUserID excludes nobody.
func (s *Store) ListMembersExcept(ctx context.Context, communityID, excludedUserID string, limit, offset int) ([]MemberRow, error) {
	var rows []MemberRow
	query := s.conn(ctx).Table("community_members AS m").
		Select("m.user_id, u.username, u.display_name, m.role, m.joined_at").
		Joins("JOIN users AS u ON u.id = m.user_id AND u.is_active = ?", true).
		Where("m.community_id = ?", communityID)
	if excludedUserID != "" {
		query = query.Where("m.user_id <> ?", excludedUserID)
	}
	query = query.Order("m.joined_at ASC").Order("m.user_id ASC")
	if err := paginate(query, limit, offset).Scan(&rows).Error; err != nil {
		return nil, translate("list members", err)
	}
	return rows, nil
}

// ListUserCommunities returns the active communities userID belongs to, ordered by type then name.
func (s *Store) ListUserCommunities(ctx context.Context, userID string) ([]UserCommunityRow, error) {
	var memberships []models.Membership
	if err := s.conn(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, translate("list user memberships", err)
	}
	if len(memberships) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(memberships))
	byCommunity := make(map[string]models.Membership, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.CommunityID)
		byCommunity[m.CommunityID] = m
	}

	var communities []models.Community
	err := s.conn(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Order("type ASC").Order("name ASC").Order("id ASC").
		Find(&communities).Error
	if err != nil {
		return nil, translate("list user communities", err)
	}

	out := make([]UserCommunityRow, 0, len(communities))
	for _, c := range communities {
		m := byCommunity[c.ID]
		out = append(out, UserCommunityRow{Community: c, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	return out, nil
}
