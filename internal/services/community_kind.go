package services

import (
	"context"
	"fmt"

	"github.com/charlesng35/comunitree/internal/models"
	"github.com/charlesng35/comunitree/internal/store"
)

// updateScope lists which community fields a caller may change. Description and profile data are
// always in scope once authorization succeeds.
type updateScope struct {
	identity bool // name, slug and parent ids
}

// LeaveEffect describes what happened to a community after a member left.
type LeaveEffect string

const (
	LeaveEffectNone        LeaveEffect = ""
	LeaveEffectDeactivated LeaveEffect = "deactivated"
	LeaveEffectTornDown    LeaveEffect = "torn_down"
)

// communityKind carries the rules that differ between LOCATION, SUB and PRIVATE communities.
type communityKind interface {
	authorizeUpdate(ctx context.Context, st *store.Store, community *models.Community, userID string) (updateScope, error)
	authorizeJoin(community *models.Community) error
	authorizeLeave(community *models.Community, userID string) error
	authorizeManage(community *models.Community, actorID string) error
	afterLeave(ctx context.Context, tx *store.Store, community *models.Community, userID string) (LeaveEffect, error)
}

func kindOf(community *models.Community) communityKind {
	switch community.Type {
	case models.CommunityTypeSub:
		return subKind{}
	case models.CommunityTypePrivate:
		return privateKind{}
	default:
		return locationKind{}
	}
}

type locationKind struct{}

func (locationKind) authorizeUpdate(context.Context, *store.Store, *models.Community, string) (updateScope, error) {
	return updateScope{}, ErrLocationReadonly
}

func (locationKind) authorizeJoin(*models.Community) error { return nil }

func (locationKind) authorizeLeave(*models.Community, string) error { return nil }

func (locationKind) authorizeManage(*models.Community, string) error {
	return ErrNotFound.WithMessage("Community not found or is not private")
}

func (locationKind) afterLeave(context.Context, *store.Store, *models.Community, string) (LeaveEffect, error) {
	return LeaveEffectNone, nil
}

type subKind struct{}

func (subKind) authorizeUpdate(ctx context.Context, st *store.Store, community *models.Community, userID string) (updateScope, error) {
	membership, err := st.Membership(ctx, community.ID, userID)
	if isNotFound(err) {
		return updateScope{}, ErrNotMember
	}
	if err != nil {
		return updateScope{}, fmt.Errorf("community service: load membership: %w", err)
	}
	if membership.Role != models.RoleModerator {
		return updateScope{}, ErrNotModerator
	}
	return updateScope{}, nil
}

func (subKind) authorizeJoin(*models.Community) error { return nil }

func (subKind) authorizeLeave(*models.Community, string) error { return nil }

func (subKind) authorizeManage(*models.Community, string) error {
	return ErrNotFound.WithMessage("Community not found or is not private")
}

// afterLeave deactivates a sub-community once its last member is gone.
func (subKind) afterLeave(ctx context.Context, tx *store.Store, community *models.Community, _ string) (LeaveEffect, error) {
	remaining, err := tx.CountMembers(ctx, community.ID)
	if err != nil {
		return LeaveEffectNone, fmt.Errorf("membership service: count members: %w", err)
	}
	if remaining > 0 || !community.IsActive {
		return LeaveEffectNone, nil
	}
	if err := tx.DeactivateCommunity(ctx, community.ID); err != nil {
		return LeaveEffectNone, fmt.Errorf("membership service: deactivate community: %w", err)
	}
	return LeaveEffectDeactivated, nil
}

type privateKind struct{}

func (privateKind) authorizeUpdate(_ context.Context, _ *store.Store, community *models.Community, userID string) (updateScope, error) {
	if !community.FoundedBy(userID) {
		return updateScope{}, ErrNotFounder
	}
	return updateScope{identity: true}, nil
}

func (privateKind) authorizeJoin(*models.Community) error { return ErrPrivateInviteOnly }

func (privateKind) authorizeLeave(community *models.Community, userID string) error {
	if community.IsFriendGroup && community.FoundedBy(userID) {
		return ErrCannotLeaveFriends
	}
	return nil
}

func (privateKind) authorizeManage(community *models.Community, actorID string) error {
	if !community.FoundedBy(actorID) {
		return ErrNotFounder
	}
	return nil
}

// afterLeave tears the community down when its founder leaves.
func (privateKind) afterLeave(ctx context.Context, tx *store.Store, community *models.Community, userID string) (LeaveEffect, error) {
	if !community.FoundedBy(userID) {
		return LeaveEffectNone, nil
	}
	if err := tx.DeleteCommunity(ctx, community.ID); err != nil {
		return LeaveEffectNone, fmt.Errorf("membership service: tear down community: %w", err)
	}
	return LeaveEffectTornDown, nil
}
