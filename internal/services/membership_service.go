package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/comunitree/internal/models"
	"github.com/charlesng35/comunitree/internal/store"
	apperrors "github.com/charlesng35/comunitree/pkg/errors"
	"github.com/charlesng35/comunitree/pkg/logger"
)

// JoinResult reports the outcome of a join. Joined is false when the caller was already a member.
type JoinResult struct {
	Joined    bool           `json:"joined"`
	Community *CommunityView `json:"community"`
}

// LeaveResult reports the outcome of a leave.
type LeaveResult struct {
	Left   bool        `json:"left"`
	Effect LeaveEffect `json:"effect,omitempty"`
}

// InviteTarget identifies an invitee by id or by email. UserID wins when both are set.
type InviteTarget struct {
	UserID string
	Email  string
}

// PendingInvite is an invite enriched with community and inviter details.
type PendingInvite struct {
	ID                 string              `json:"id"`
	CommunityID        string              `json:"community_id"`
	InviterID          string              `json:"inviter_id"`
	InviteeID          string              `json:"invitee_id"`
	Status             models.InviteStatus `json:"status"`
	CreatedAt          time.Time           `json:"created_at"`
	CommunityName      string              `json:"community_name"`
	CommunitySlug      string              `json:"community_slug"`
	InviterUsername    string              `json:"inviter_username"`
	InviterDisplayName string              `json:"inviter_display_name"`
}

// DeclineResult is returned by DeclineInvite.
type DeclineResult struct {
	Declined bool `json:"declined"`
}

// RemoveResult is returned by member and friend removal.
type RemoveResult struct {
	Removed bool `json:"removed"`
}

// MembershipService implements joining, leaving and the private community invite workflow.
type MembershipService struct {
	store *store.Store
	audit *AuditService
}

// NewMembershipService constructs a MembershipService instance.
func NewMembershipService(st *store.Store, audit *AuditService) (*MembershipService, error) {
	if st == nil {
		return nil, errors.New("membership service: store is required")
	}
	return &MembershipService{store: st, audit: audit}, nil
}

// Join adds userID to an active LOCATION or SUB community. Joining twice is a no-op.
func (s *MembershipService) Join(ctx context.Context, userID, communityID string) (result *JoinResult, err error) {
	ctx = ensureContext(ctx)
	defer track("membership.join", &err)

	community, err := s.store.FindCommunity(ctx, communityID, false)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: load community: %w", err)
	}
	if err := kindOf(community).authorizeJoin(community); err != nil {
		return nil, err
	}

	joined, err := s.store.AddMember(ctx, community.ID, userID, models.RoleMember)
	if err != nil {
		return nil, fmt.Errorf("membership service: add member: %w", err)
	}

	view, err := buildCommunityView(ctx, s.store, community)
	if err != nil {
		return nil, err
	}

	if joined {
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:   actor(userID),
			Action:   "community.join",
			Resource: community.ID,
		})
	}
	return &JoinResult{Joined: joined, Community: view}, nil
}

// Leave removes userID from a community. A founder leaving a private community tears it down and
// the last member leaving a sub-community deactivates it. The founder of a friend group can never
// leave it.
func (s *MembershipService) Leave(ctx context.Context, userID, communityID string) (result *LeaveResult, err error) {
	ctx = ensureContext(ctx)
	defer track("membership.leave", &err)

	community, err := s.store.FindCommunity(ctx, communityID, true)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: load community: %w", err)
	}

	kind := kindOf(community)
	if err := kind.authorizeLeave(community, userID); err != nil {
		return nil, err
	}

	result = &LeaveResult{}
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		removed, err := tx.RemoveMember(ctx, community.ID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}
		result.Left = true
		result.Effect, err = kind.afterLeave(ctx, tx, community, userID)
		return err
	})
	if err != nil {
		return nil, serviceError("membership service: leave", err)
	}

	if result.Effect != LeaveEffectNone {
		logger.WithModule("membership").Info("community closed after leave",
			zap.String("community_id", community.ID),
			zap.String("effect", string(result.Effect)),
		)
	}
	if result.Left {
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:   actor(userID),
			Action:   "community.leave",
			Resource: community.ID,
			Metadata: map[string]any{"effect": result.Effect},
		})
	}
	return result, nil
}

// Invite creates a pending invite into a private community. Only the founder may invite. A
// previously accepted or declined invite for the same user is replaced.
func (s *MembershipService) Invite(ctx context.Context, communityID, inviterID string, target InviteTarget) (invite *models.Invite, err error) {
	ctx = ensureContext(ctx)
	defer track("membership.invite", &err)

	community, err := s.store.FindCommunity(ctx, communityID, true)
	if isNotFound(err) {
		return nil, ErrNotFound.WithMessage("Community not found or is not private")
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: load community: %w", err)
	}
	if err := kindOf(community).authorizeManage(community, inviterID); err != nil {
		return nil, err
	}

	inviteeID, err := s.resolveInvitee(ctx, target)
	if err != nil {
		return nil, err
	}

	member, err := s.store.IsMember(ctx, community.ID, inviteeID)
	if err != nil {
		return nil, fmt.Errorf("membership service: check membership: %w", err)
	}
	if member {
		return nil, ErrAlreadyMember
	}

	existing, err := s.store.FindInviteForPair(ctx, community.ID, inviteeID)
	switch {
	case err == nil && existing.Pending():
		return nil, ErrInvitePending
	case err != nil && !isNotFound(err):
		return nil, fmt.Errorf("membership service: load invite: %w", err)
	}

	invite = &models.Invite{
		CommunityID: community.ID,
		InviterID:   inviterID,
		InviteeID:   inviteeID,
		Status:      models.InviteStatusPending,
	}
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.DeleteInviteForPair(ctx, community.ID, inviteeID); err != nil {
			return err
		}
		return tx.CreateInvite(ctx, invite)
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrInvitePending
		}
		return nil, fmt.Errorf("membership service: create invite: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   actor(inviterID),
		Action:   "community.invite",
		Resource: community.ID,
		Metadata: map[string]any{"invite_id": invite.ID, "invitee_id": inviteeID},
	})
	return invite, nil
}

// AcceptInvite turns a pending invite addressed to userID into a membership.
func (s *MembershipService) AcceptInvite(ctx context.Context, inviteID, userID string) (view *CommunityView, err error) {
	ctx = ensureContext(ctx)
	defer track("membership.accept_invite", &err)

	var communityID string
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		invite, err := loadInviteFor(ctx, tx, inviteID, userID, "accept")
		if err != nil {
			return err
		}
		if _, err := tx.AddMember(ctx, invite.CommunityID, userID, models.RoleMember); err != nil {
			return err
		}
		communityID = invite.CommunityID
		return tx.SetInviteStatus(ctx, invite.ID, models.InviteStatusAccepted)
	})
	if err != nil {
		return nil, serviceError("membership service: accept invite", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   actor(userID),
		Action:   "community.invite.accept",
		Resource: communityID,
		Metadata: map[string]any{"invite_id": inviteID},
	})
	return loadCommunityView(ctx, s.store, communityID, true)
}

// DeclineInvite marks a pending invite addressed to userID as declined.
func (s *MembershipService) DeclineInvite(ctx context.Context, inviteID, userID string) (result *DeclineResult, err error) {
	ctx = ensureContext(ctx)
	defer track("membership.decline_invite", &err)

	var communityID string
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		invite, err := loadInviteFor(ctx, tx, inviteID, userID, "decline")
		if err != nil {
			return err
		}
		communityID = invite.CommunityID
		return tx.SetInviteStatus(ctx, invite.ID, models.InviteStatusDeclined)
	})
	if err != nil {
		return nil, serviceError("membership service: decline invite", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   actor(userID),
		Action:   "community.invite.decline",
		Resource: communityID,
		Metadata: map[string]any{"invite_id": inviteID},
	})
	return &DeclineResult{Declined: true}, nil
}

// PendingInvites lists pending invites addressed to userID, newest first. Invites into inactive
// communities or from inactive inviters are omitted.
func (s *MembershipService) PendingInvites(ctx context.Context, userID string) ([]PendingInvite, error) {
	ctx = ensureContext(ctx)

	invites, err := s.store.ListPendingInvites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("membership service: list invites: %w", err)
	}

	communityIDs := make([]string, 0, len(invites))
	inviterIDs := make([]string, 0, len(invites))
	for _, invite := range invites {
		communityIDs = append(communityIDs, invite.CommunityID)
		inviterIDs = append(inviterIDs, invite.InviterID)
	}
	communities, err := s.store.FindCommunities(ctx, normaliseIDs(communityIDs))
	if err != nil {
		return nil, fmt.Errorf("membership service: load invite communities: %w", err)
	}
	inviters, err := s.store.FindUsers(ctx, normaliseIDs(inviterIDs))
	if err != nil {
		return nil, fmt.Errorf("membership service: load inviters: %w", err)
	}

	out := make([]PendingInvite, 0, len(invites))
	for _, invite := range invites {
		community, ok := communities[invite.CommunityID]
		if !ok || !community.IsActive {
			continue
		}
		inviter, ok := inviters[invite.InviterID]
		if !ok || !inviter.IsActive {
			continue
		}
		out = append(out, PendingInvite{
			ID:                 invite.ID,
			CommunityID:        invite.CommunityID,
			InviterID:          invite.InviterID,
			InviteeID:          invite.InviteeID,
			Status:             invite.Status,
			CreatedAt:          invite.CreatedAt,
			CommunityName:      community.Name,
			CommunitySlug:      community.Slug,
			InviterUsername:    inviter.Username,
			InviterDisplayName: inviter.DisplayName,
		})
	}
	return out, nil
}

// RemoveMember removes memberUserID from a private community. Only the founder may remove members
// and the founder cannot be removed.
func (s *MembershipService) RemoveMember(ctx context.Context, communityID, actorID, memberUserID string) (result *RemoveResult, err error) {
	ctx = ensureContext(ctx)
	defer track("membership.remove_member", &err)

	community, err := s.store.FindCommunity(ctx, communityID, true)
	if isNotFound(err) {
		return nil, ErrNotFound.WithMessage("Community not found or is not private")
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: load community: %w", err)
	}
	if err := kindOf(community).authorizeManage(community, actorID); err != nil {
		return nil, err
	}
	if community.FoundedBy(memberUserID) {
		return nil, ErrCannotRemoveFounder
	}

	removed, err := s.store.RemoveMember(ctx, community.ID, memberUserID)
	if err != nil {
		return nil, fmt.Errorf("membership service: remove member: %w", err)
	}
	if removed {
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:   actor(actorID),
			Action:   "community.member.remove",
			Resource: community.ID,
			Metadata: map[string]any{"member_id": memberUserID},
		})
	}
	return &RemoveResult{Removed: true}, nil
}

// IsMember reports whether userID belongs to communityID.
func (s *MembershipService) IsMember(ctx context.Context, userID, communityID string) (bool, error) {
	ctx = ensureContext(ctx)

	member, err := s.store.IsMember(ctx, communityID, userID)
	if err != nil {
		return false, fmt.Errorf("membership service: check membership: %w", err)
	}
	return member, nil
}

// addMember inserts a plain membership through tx, ignoring an existing one.
func (s *MembershipService) addMember(ctx context.Context, tx *store.Store, communityID, userID string) error {
	_, err := tx.AddMember(ctx, communityID, userID, models.RoleMember)
	return err
}

// removeMemberFrom deletes a membership through tx without any permission check.
func (s *MembershipService) removeMemberFrom(ctx context.Context, tx *store.Store, communityID, userID string) error {
	_, err := tx.RemoveMember(ctx, communityID, userID)
	return err
}

func (s *MembershipService) resolveInvitee(ctx context.Context, target InviteTarget) (string, error) {
	if userID := strings.TrimSpace(target.UserID); userID != "" {
		user, err := s.store.FindUser(ctx, userID)
		if isNotFound(err) || (err == nil && !user.IsActive) {
			return "", ErrUserNotFound
		}
		if err != nil {
			return "", fmt.Errorf("membership service: load invitee: %w", err)
		}
		return user.ID, nil
	}

	if email := strings.TrimSpace(target.Email); email != "" {
		user, err := s.store.FindActiveUserByEmail(ctx, email)
		if isNotFound(err) {
			return "", ErrUserNotFound
		}
		if err != nil {
			return "", fmt.Errorf("membership service: load invitee: %w", err)
		}
		return user.ID, nil
	}

	return "", apperrors.NewBadRequest("user_id or email required")
}

// loadInviteFor locks the invite and checks it is pending and addressed to userID.
func loadInviteFor(ctx context.Context, tx *store.Store, inviteID, userID, verb string) (*models.Invite, error) {
	invite, err := tx.FindInvite(ctx, inviteID)
	if isNotFound(err) {
		return nil, ErrNotFound.WithMessage("Invite not found")
	}
	if err != nil {
		return nil, err
	}
	if invite.InviteeID != userID {
		return nil, ErrForbidden.WithMessage("You can only " + verb + " invites sent to you")
	}
	if !invite.Pending() {
		return nil, ErrInviteInvalid
	}
	return invite, nil
}
