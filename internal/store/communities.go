package store

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/comunitree/internal/models"
)

// CommunityFilter narrows ListCommunities.
type CommunityFilter struct {
	Type            models.CommunityType
	ParentID        string
	IncludeInactive bool
	// ViewerID is the caller; PRIVATE communities are returned only where the viewer holds a
	// membership. An empty ViewerID hides every PRIVATE community.
	ViewerID string
	Limit    int
	Offset   int
}

// FindCommunity loads a community by id. Inactive rows are only returned when includeInactive is set.
func (s *Store) FindCommunity(ctx context.Context, id string, includeInactive bool) (*models.Community, error) {
	var community models.Community
	query := s.conn(ctx).Where("id = ?", id)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Take(&community).Error; err != nil {
		return nil, translate("find community", err)
	}
	return &community, nil
}

// FindCommunityBySlug loads a community by slug.
func (s *Store) FindCommunityBySlug(ctx context.Context, slug string, includeInactive bool) (*models.Community, error) {
	var community models.Community
	query := s.conn(ctx).Where("slug = ?", strings.TrimSpace(slug))
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Take(&community).Error; err != nil {
		return nil, translate("find community by slug", err)
	}
	return &community, nil
}

// FindCommunities loads the given communities keyed by id, including inactive rows.
func (s *Store) FindCommunities(ctx context.Context, ids []string) (map[string]models.Community, error) {
	out := make(map[string]models.Community, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Community
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, translate("find communities", err)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// SlugExists reports whether any community other than excludeID uses slug.
func (s *Store) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var count int64
	query := s.conn(ctx).Model(&models.Community{}).Where("slug = ?", strings.TrimSpace(slug))
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, translate("slug exists", err)
	}
	return count > 0, nil
}

// CreateCommunity inserts a community row.
func (s *Store) CreateCommunity(ctx context.Context, community *models.Community) error {
	return translate("create community", s.conn(ctx).Create(community).Error)
}

// UpdateCommunity applies column updates to a community.
func (s *Store) UpdateCommunity(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.conn(ctx).Model(&models.Community{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate("update community", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("update community", gorm.ErrRecordNotFound)
	}
	return nil
}

// DeactivateCommunity marks a community inactive without removing it.
func (s *Store) DeactivateCommunity(ctx context.Context, id string) error {
	return s.UpdateCommunity(ctx, id, map[string]any{"is_active": false})
}

// DeleteCommunity hard-deletes a community with its invites, memberships and parent edges.
func (s *Store) DeleteCommunity(ctx context.Context, id string) error {
	db := s.conn(ctx)
	if err := db.Where("community_id = ?", id).Delete(&models.Invite{}).Error; err != nil {
		return translate("delete community invites", err)
	}
	if err := db.Where("community_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
		return translate("delete community members", err)
	}
	if err := db.Where("community_id = ?", id).Delete(&models.CommunityParent{}).Error; err != nil {
		return translate("delete community parents", err)
	}
	if err := db.Where("id = ?", id).Delete(&models.Community{}).Error; err != nil {
		return translate("delete community", err)
	}
	return nil
}

// ListCommunities returns communities matching filter ordered by name.
func (s *Store) ListCommunities(ctx context.Context, filter CommunityFilter) ([]models.Community, error) {
	query := s.conn(ctx).Model(&models.Community{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.ParentID != "" {
		query = query.Where("parent_id = ?", filter.ParentID)
	}
	if filter.ViewerID == "" {
		query = query.Where("type <> ?", models.CommunityTypePrivate)
	} else {
		memberOf := s.conn(ctx).Model(&models.Membership{}).Select("community_id").Where("user_id = ?", filter.ViewerID)
		query = query.Where("type <> ? OR id IN (?)", models.CommunityTypePrivate, memberOf)
	}

	var rows []models.Community
	if err := paginate(query.Order("name ASC").Order("id ASC"), filter.Limit, filter.Offset).Find(&rows).Error; err != nil {
		return nil, translate("list communities", err)
	}
	return rows, nil
}

// FriendGroupOf returns the friend group founded by userID.
func (s *Store) FriendGroupOf(ctx context.Context, userID string) (*models.Community, error) {
	var community models.Community
	err := s.conn(ctx).
		Where("founder_id = ? AND is_friend_group = ?", userID, true).
		Take(&community).Error
	if err != nil {
		return nil, translate("find friend group", err)
	}
	return &community, nil
}

// ChildCommunityIDs returns the ids of active SUB communities under parentID.
func (s *Store) ChildCommunityIDs(ctx context.Context, parentID string) ([]string, error) {
	var ids []string
	err := s.conn(ctx).Model(&models.Community{}).
		Where("parent_id = ? AND type = ? AND is_active = ?", parentID, models.CommunityTypeSub, true).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, translate("child communities", err)
	}
	return ids, nil
}

// ParentIDs returns the ParentRelation targets of a PRIVATE community.
func (s *Store) ParentIDs(ctx context.Context, communityID string) ([]string, error) {
	var ids []string
	err := s.conn(ctx).Model(&models.CommunityParent{}).
		Where("community_id = ?", communityID).
		Order("parent_id").
		Pluck("parent_id", &ids).Error
	if err != nil {
		return nil, translate("parent ids", err)
	}
	return ids, nil
}

// AddParents links communityID to each parent, ignoring existing edges.
func (s *Store) AddParents(ctx context.Context, communityID string, parentIDs []string) error {
	if len(parentIDs) == 0 {
		return nil
	}
	rows := make([]models.CommunityParent, 0, len(parentIDs))
	for _, parentID := range parentIDs {
		rows = append(rows, models.CommunityParent{CommunityID: communityID, ParentID: parentID})
	}
	err := s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	return translate("add parents", err)
}

// ReplaceParents swaps the full ParentRelation set of communityID.
func (s *Store) ReplaceParents(ctx context.Context, communityID string, parentIDs []string) error {
	if err := s.conn(ctx).Where("community_id = ?", communityID).Delete(&models.CommunityParent{}).Error; err != nil {
		return translate("clear parents", err)
	}
	return s.AddParents(ctx, communityID, parentIDs)
}
