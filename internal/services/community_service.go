package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/comunitree/internal/models"
	"github.com/charlesng35/comunitree/internal/store"
	apperrors "github.com/charlesng35/comunitree/pkg/errors"
	"github.com/charlesng35/comunitree/pkg/logger"
	"github.com/charlesng35/comunitree/pkg/validator"
)

// CommunityView is a community together with its derived read fields.
type CommunityView struct {
	models.Community
	MemberCount int64    `json:"member_count"`
	ParentIDs   []string `json:"parent_ids,omitempty"`
}

// MyCommunityView adds the caller's membership details to a community.
type MyCommunityView struct {
	CommunityView
	Role     models.MemberRole `json:"role"`
	JoinedAt time.Time         `json:"joined_at"`
}

// LocalStatus reports whether a user belongs to a community and to its location.
type LocalStatus struct {
	IsMember bool `json:"is_member"`
	IsLocal  bool `json:"is_local"`
}

// CreateSubCommunityInput captures a new sub-community under a location.
type CreateSubCommunityInput struct {
	Name        string
	Slug        string
	ParentID    string
	Description string
	ProfileData json.RawMessage
}

// CreatePrivateCommunityInput captures a new private community.
type CreatePrivateCommunityInput struct {
	Name        string
	Slug        string
	Description string
	ProfileData json.RawMessage
	ParentIDs   []string
}

// UpdateCommunityInput describes mutable community fields. Nil fields are left untouched; a JSON
// null profile clears it.
type UpdateCommunityInput struct {
	Name        *string
	Slug        *string
	Description *string
	ProfileData json.RawMessage
	ParentIDs   *[]string
}

// GetOptions tunes single community lookups.
type GetOptions struct {
	IncludeInactive bool
}

// ListCommunitiesFilter narrows ListCommunities. An empty ViewerID hides every private community.
type ListCommunitiesFilter struct {
	Type            models.CommunityType
	ParentID        string
	ViewerID        string
	IncludeInactive bool
	Page            Page
}

// CommunityService manages the community hierarchy.
type CommunityService struct {
	store *store.Store
	audit *AuditService
}

// NewCommunityService constructs a CommunityService instance.
func NewCommunityService(st *store.Store, audit *AuditService) (*CommunityService, error) {
	if st == nil {
		return nil, errors.New("community service: store is required")
	}
	return &CommunityService{store: st, audit: audit}, nil
}

// CreateSubCommunity creates a SUB community under an active location the caller belongs to. The
// caller becomes its moderator.
func (s *CommunityService) CreateSubCommunity(ctx context.Context, userID string, input CreateSubCommunityInput) (view *CommunityView, err error) {
	ctx = ensureContext(ctx)
	defer track("community.create_sub", &err)

	name, slug, err := normaliseIdentity(input.Name, input.Slug)
	if err != nil {
		return nil, err
	}
	profile, err := profileJSON(input.ProfileData)
	if err != nil {
		return nil, err
	}

	parent, err := s.store.FindCommunity(ctx, strings.TrimSpace(input.ParentID), false)
	if isNotFound(err) {
		return nil, ErrParentNotLocation
	}
	if err != nil {
		return nil, fmt.Errorf("community service: load parent: %w", err)
	}
	if parent.Type != models.CommunityTypeLocation {
		return nil, ErrParentNotLocation
	}

	local, err := s.store.IsMember(ctx, parent.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("community service: check locality: %w", err)
	}
	if !local {
		return nil, ErrNotLocal
	}

	if err := s.ensureSlugFree(ctx, slug, ""); err != nil {
		return nil, err
	}

	community := &models.Community{
		Name:        name,
		Slug:        slug,
		Type:        models.CommunityTypeSub,
		ParentID:    stringPtr(parent.ID),
		Description: strings.TrimSpace(input.Description),
		ProfileData: profile,
		IsActive:    true,
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateCommunity(ctx, community); err != nil {
			return err
		}
		_, err := tx.AddMember(ctx, community.ID, userID, models.RoleModerator)
		return err
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("community service: create sub-community: %w", err)
	}

	logger.WithModule("community").Info("sub-community created",
		zap.String("community_id", community.ID),
		zap.String("parent_id", parent.ID),
	)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   actor(userID),
		Action:   "community.create",
		Resource: community.ID,
		Metadata: map[string]any{"type": community.Type, "slug": community.Slug, "parent_id": parent.ID},
	})

	return loadCommunityView(ctx, s.store, community.ID, false)
}

// CreatePrivateCommunity creates a PRIVATE community founded by the caller. Every parent must be an
// active community the caller belongs to; all parents are checked before anything is written.
func (s *CommunityService) CreatePrivateCommunity(ctx context.Context, userID string, input CreatePrivateCommunityInput) (view *CommunityView, err error) {
	ctx = ensureContext(ctx)
	defer track("community.create_private", &err)

	name, slug, err := normaliseIdentity(input.Name, input.Slug)
	if err != nil {
		return nil, err
	}
	profile, err := profileJSON(input.ProfileData)
	if err != nil {
		return nil, err
	}

	if err := s.ensureSlugFree(ctx, slug, ""); err != nil {
		return nil, err
	}

	parentIDs := normaliseIDs(input.ParentIDs)
	if err := s.validateParents(ctx, userID, "", parentIDs); err != nil {
		return nil, err
	}

	community := &models.Community{
		Name:        name,
		Slug:        slug,
		Type:        models.CommunityTypePrivate,
		FounderID:   stringPtr(userID),
		Description: strings.TrimSpace(input.Description),
		ProfileData: profile,
		IsActive:    true,
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateCommunity(ctx, community); err != nil {
			return err
		}
		if err := tx.AddParents(ctx, community.ID, parentIDs); err != nil {
			return err
		}
		_, err := tx.AddMember(ctx, community.ID, userID, models.RoleOwner)
		return err
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("community service: create private community: %w", err)
	}

	logger.WithModule("community").Info("private community created",
		zap.String("community_id", community.ID),
		zap.Int("parents", len(parentIDs)),
	)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   actor(userID),
		Action:   "community.create",
		Resource: community.ID,
		Metadata: map[string]any{"type": community.Type, "slug": community.Slug, "parent_ids": parentIDs},
	})

	return loadCommunityView(ctx, s.store, community.ID, false)
}

// CreateFriendGroupForUser creates the friend group of userID. A second call fails with SLUG_TAKEN.
func (s *CommunityService) CreateFriendGroupForUser(ctx context.Context, userID string) (view *CommunityView, err error) {
	ctx = ensureContext(ctx)
	defer track("community.create_friend_group", &err)

	var community *models.Community
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		created, err := createFriendGroup(ctx, tx, userID)
		community = created
		return err
	})
	if err != nil {
		return nil, serviceError("community service: create friend group", err)
	}

	return loadCommunityView(ctx, s.store, community.ID, false)
}

// FriendGroupForUser returns the active friend group founded by userID.
func (s *CommunityService) FriendGroupForUser(ctx context.Context, userID string) (*CommunityView, error) {
	ctx = ensureContext(ctx)

	community, err := s.store.FriendGroupOf(ctx, userID)
	if isNotFound(err) {
		return nil, ErrFriendGroupMissing
	}
	if err != nil {
		return nil, fmt.Errorf("community service: load friend group: %w", err)
	}
	if !community.IsActive {
		return nil, ErrFriendGroupMissing
	}
	return buildCommunityView(ctx, s.store, community)
}

// UpdateCommunity applies profile changes. Locations are read-only, sub-communities accept
// description and profile changes from moderators, and private founders may also rename, re-slug
// and replace parents.
func (s *CommunityService) UpdateCommunity(ctx context.Context, communityID, userID string, input UpdateCommunityInput) (view *CommunityView, err error) {
	ctx = ensureContext(ctx)
	defer track("community.update", &err)

	community, err := s.store.FindCommunity(ctx, communityID, true)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("community service: load community: %w", err)
	}

	scope, err := kindOf(community).authorizeUpdate(ctx, s.store, community, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.ProfileData != nil {
		profile, err := profileJSON(input.ProfileData)
		if err != nil {
			return nil, err
		}
		updates["profile_data"] = profile
	}

	var (
		parentIDs      []string
		replaceParents bool
	)
	if scope.identity {
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return nil, apperrors.NewBadRequest("community name is required")
			}
			updates["name"] = name
		}
		if input.Slug != nil {
			slug := strings.TrimSpace(*input.Slug)
			if !validator.IsSlug(slug) {
				return nil, apperrors.NewBadRequest("slug must contain lowercase letters, digits and single hyphens")
			}
			if slug != community.Slug {
				if err := s.ensureSlugFree(ctx, slug, community.ID); err != nil {
					return nil, err
				}
			}
			updates["slug"] = slug
		}
		if input.ParentIDs != nil {
			parentIDs = normaliseIDs(*input.ParentIDs)
			if err := s.validateParents(ctx, userID, community.ID, parentIDs); err != nil {
				return nil, err
			}
			replaceParents = true
		}
	}

	if len(updates) > 0 || replaceParents {
		err = s.store.Transaction(ctx, func(tx *store.Store) error {
			if err := tx.UpdateCommunity(ctx, community.ID, updates); err != nil {
				return err
			}
			if replaceParents {
				return tx.ReplaceParents(ctx, community.ID, parentIDs)
			}
			return nil
		})
		if err != nil {
			if isUniqueConstraintError(err) {
				return nil, ErrSlugTaken
			}
			return nil, fmt.Errorf("community service: update community: %w", err)
		}

		changed := make([]string, 0, len(updates)+1)
		for field := range updates {
			changed = append(changed, field)
		}
		if replaceParents {
			changed = append(changed, "parent_ids")
		}
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:   actor(userID),
			Action:   "community.update",
			Resource: community.ID,
			Metadata: map[string]any{"fields": changed},
		})
	}

	return loadCommunityView(ctx, s.store, community.ID, true)
}

// GetByID loads a community. Private communities are only visible to their members.
func (s *CommunityService) GetByID(ctx context.Context, communityID, viewerID string, opts GetOptions) (*CommunityView, error) {
	ctx = ensureContext(ctx)

	community, err := s.store.FindCommunity(ctx, communityID, opts.IncludeInactive)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("community service: load community: %w", err)
	}
	return s.visibleView(ctx, community, viewerID)
}

// GetBySlug loads a community by slug with the same visibility rules as GetByID.
func (s *CommunityService) GetBySlug(ctx context.Context, slug, viewerID string, opts GetOptions) (*CommunityView, error) {
	ctx = ensureContext(ctx)

	community, err := s.store.FindCommunityBySlug(ctx, slug, opts.IncludeInactive)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("community service: load community: %w", err)
	}
	return s.visibleView(ctx, community, viewerID)
}

// ListCommunities returns communities ordered by name. Private communities appear only when the
// viewer is a member.
func (s *CommunityService) ListCommunities(ctx context.Context, filter ListCommunitiesFilter) ([]CommunityView, error) {
	ctx = ensureContext(ctx)

	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperrors.NewBadRequest("type must be one of LOCATION, SUB or PRIVATE")
	}
	if filter.Type == models.CommunityTypePrivate && filter.ViewerID == "" {
		return []CommunityView{}, nil
	}

	query := store.CommunityFilter{
		Type:            filter.Type,
		ParentID:        strings.TrimSpace(filter.ParentID),
		IncludeInactive: filter.IncludeInactive,
		ViewerID:        filter.ViewerID,
	}
	if filter.Page.Limit > 0 || filter.Page.Offset > 0 {
		page := filter.Page.normalise()
		query.Limit, query.Offset = page.Limit, page.Offset
	}

	rows, err := s.store.ListCommunities(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("community service: list communities: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	counts, err := s.store.CountMembersFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("community service: count members: %w", err)
	}

	out := make([]CommunityView, 0, len(rows))
	for _, row := range rows {
		out = append(out, CommunityView{Community: row, MemberCount: counts[row.ID]})
	}
	return out, nil
}

// ListMyCommunities returns the active communities userID belongs to, ordered by type then name.
func (s *CommunityService) ListMyCommunities(ctx context.Context, userID string) ([]MyCommunityView, error) {
	ctx = ensureContext(ctx)

	rows, err := s.store.ListUserCommunities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("community service: list my communities: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.Community.ID)
	}
	counts, err := s.store.CountMembersFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("community service: count members: %w", err)
	}

	out := make([]MyCommunityView, 0, len(rows))
	for _, row := range rows {
		out = append(out, MyCommunityView{
			CommunityView: CommunityView{Community: row.Community, MemberCount: counts[row.Community.ID]},
			Role:          row.Role,
			JoinedAt:      row.JoinedAt,
		})
	}
	return out, nil
}

// LocalLocationIDs returns the active locations userID is a member of.
func (s *CommunityService) LocalLocationIDs(ctx context.Context, userID string) ([]string, error) {
	ctx = ensureContext(ctx)

	rows, err := s.store.ListUserCommunities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("community service: list local locations: %w", err)
	}
	ids := []string{}
	for _, row := range rows {
		if row.Community.Type == models.CommunityTypeLocation {
			ids = append(ids, row.Community.ID)
		}
	}
	return ids, nil
}

// LocalStatus reports membership in communityID and in the location it belongs to. Missing
// communities report false for both.
func (s *CommunityService) LocalStatus(ctx context.Context, userID, communityID string) (LocalStatus, error) {
	ctx = ensureContext(ctx)

	community, err := s.store.FindCommunity(ctx, communityID, false)
	if isNotFound(err) {
		return LocalStatus{}, nil
	}
	if err != nil {
		return LocalStatus{}, fmt.Errorf("community service: load community: %w", err)
	}

	isMember, err := s.store.IsMember(ctx, community.ID, userID)
	if err != nil {
		return LocalStatus{}, fmt.Errorf("community service: check membership: %w", err)
	}
	status := LocalStatus{IsMember: isMember}

	switch {
	case community.Type == models.CommunityTypeLocation:
		status.IsLocal = isMember
	case community.ParentID != nil:
		status.IsLocal, err = s.store.IsMember(ctx, *community.ParentID, userID)
		if err != nil {
			return LocalStatus{}, fmt.Errorf("community service: check locality: %w", err)
		}
	}
	return status, nil
}

// ListMembers pages through the members of an active community. Private member lists are only
// visible to members.
func (s *CommunityService) ListMembers(ctx context.Context, communityID, viewerID string, page Page) ([]store.MemberRow, error) {
	ctx = ensureContext(ctx)
	page = page.normalise()

	community, err := s.store.FindCommunity(ctx, communityID, false)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("community service: load community: %w", err)
	}
	if err := s.ensureVisible(ctx, community, viewerID); err != nil {
		return nil, err
	}

	rows, err := s.store.ListMembers(ctx, community.ID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("community service: list members: %w", err)
	}
	if rows == nil {
		rows = []store.MemberRow{}
	}
	return rows, nil
}

func (s *CommunityService) visibleView(ctx context.Context, community *models.Community, viewerID string) (*CommunityView, error) {
	if err := s.ensureVisible(ctx, community, viewerID); err != nil {
		return nil, err
	}
	return buildCommunityView(ctx, s.store, community)
}

func (s *CommunityService) ensureVisible(ctx context.Context, community *models.Community, viewerID string) error {
	if community.Type != models.CommunityTypePrivate {
		return nil
	}
	member, err := s.store.IsMember(ctx, community.ID, viewerID)
	if err != nil {
		return fmt.Errorf("community service: check membership: %w", err)
	}
	if !member {
		return ErrNotFound
	}
	return nil
}

func (s *CommunityService) ensureSlugFree(ctx context.Context, slug, excludeID string) error {
	taken, err := s.store.SlugExists(ctx, slug, excludeID)
	if err != nil {
		return fmt.Errorf("community service: check slug: %w", err)
	}
	if taken {
		return ErrSlugTaken
	}
	return nil
}

// validateParents checks every parent before any write: each must be an active community the
// caller belongs to.
func (s *CommunityService) validateParents(ctx context.Context, userID, selfID string, parentIDs []string) error {
	for _, parentID := range parentIDs {
		if parentID == selfID {
			return apperrors.NewBadRequest("a community cannot be its own parent")
		}
		if _, err := s.store.FindCommunity(ctx, parentID, false); err != nil {
			if isNotFound(err) {
				return ErrParentNotFound
			}
			return fmt.Errorf("community service: load parent: %w", err)
		}
		member, err := s.store.IsMember(ctx, parentID, userID)
		if err != nil {
			return fmt.Errorf("community service: check parent membership: %w", err)
		}
		if !member {
			return ErrNotMemberOfParent
		}
	}
	return nil
}

// createFriendGroup inserts the friend group of userID and its owner membership through tx.
func createFriendGroup(ctx context.Context, tx *store.Store, userID string) (*models.Community, error) {
	user, err := tx.FindUser(ctx, userID)
	if isNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	slug := friendGroupSlug(user.ID)
	taken, err := tx.SlugExists(ctx, slug, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlugTaken
	}

	community := &models.Community{
		Name:          user.PublicName() + "'s friends",
		Slug:          slug,
		Type:          models.CommunityTypePrivate,
		FounderID:     stringPtr(user.ID),
		IsFriendGroup: true,
		IsActive:      true,
	}
	if err := tx.CreateCommunity(ctx, community); err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	if _, err := tx.AddMember(ctx, community.ID, user.ID, models.RoleOwner); err != nil {
		return nil, err
	}
	return community, nil
}

func friendGroupSlug(userID string) string {
	return "friends-" + strings.ToLower(userID)
}

func normaliseIdentity(name, slug string) (string, string, error) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)
	if name == "" {
		return "", "", apperrors.NewBadRequest("community name is required")
	}
	if !validator.IsSlug(slug) {
		return "", "", apperrors.NewBadRequest("slug must contain lowercase letters, digits and single hyphens")
	}
	return name, slug, nil
}

// loadCommunityView reads a community and its derived fields without visibility checks.
func loadCommunityView(ctx context.Context, st *store.Store, communityID string, includeInactive bool) (*CommunityView, error) {
	community, err := st.FindCommunity(ctx, communityID, includeInactive)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("community service: load community: %w", err)
	}
	return buildCommunityView(ctx, st, community)
}

func buildCommunityView(ctx context.Context, st *store.Store, community *models.Community) (*CommunityView, error) {
	count, err := st.CountMembers(ctx, community.ID)
	if err != nil {
		return nil, fmt.Errorf("community service: count members: %w", err)
	}
	view := &CommunityView{Community: *community, MemberCount: count}
	if community.Type == models.CommunityTypePrivate {
		parents, err := st.ParentIDs(ctx, community.ID)
		if err != nil {
			return nil, fmt.Errorf("community service: load parents: %w", err)
		}
		view.ParentIDs = parents
	}
	return view, nil
}
