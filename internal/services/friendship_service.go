package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/comunitree/internal/models"
	"github.com/charlesng35/comunitree/internal/store"
	"github.com/charlesng35/comunitree/pkg/logger"
)

// FriendRequest is a pending request enriched with the requester profile.
type FriendRequest struct {
	ID                   string                  `json:"id"`
	RequesterID          string                  `json:"requester_id"`
	AddresseeID          string                  `json:"addressee_id"`
	Status               models.FriendshipStatus `json:"status"`
	CreatedAt            time.Time               `json:"created_at"`
	RequesterUsername    string                  `json:"requester_username"`
	RequesterDisplayName string                  `json:"requester_display_name"`
}

// FriendshipService drives friend requests and keeps friend groups in sync with accepted
// friendships.
type FriendshipService struct {
	store      *store.Store
	membership *MembershipService
	audit      *AuditService
}

// NewFriendshipService constructs a FriendshipService instance.
func NewFriendshipService(st *store.Store, membership *MembershipService, audit *AuditService) (*FriendshipService, error) {
	if st == nil {
		return nil, errors.New("friendship service: store is required")
	}
	if membership == nil {
		return nil, errors.New("friendship service: membership service is required")
	}
	return &FriendshipService{store: st, membership: membership, audit: audit}, nil
}

// SendRequest creates a pending request from requesterID to addresseeID. A mirror request that is
// still pending is reported as REVERSE_PENDING rather than accepted implicitly. Declined rows in
// either direction are replaced.
func (s *FriendshipService) SendRequest(ctx context.Context, requesterID, addresseeID string) (friendship *models.Friendship, err error) {
	ctx = ensureContext(ctx)
	defer track("friendship.request", &err)

	if requesterID == addresseeID {
		return nil, ErrSelfRequest
	}

	addressee, err := s.store.FindUser(ctx, addresseeID)
	if isNotFound(err) || (err == nil && !addressee.IsActive) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("friendship service: load addressee: %w", err)
	}

	friendship = &models.Friendship{
		RequesterID: requesterID,
		AddresseeID: addressee.ID,
		Status:      models.FriendshipPending,
	}
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.LockUsers(ctx, requesterID, addressee.ID); err != nil {
			return err
		}
		if err := checkDirection(ctx, tx, requesterID, addressee.ID, ErrRequestPending); err != nil {
			return err
		}
		if err := checkDirection(ctx, tx, addressee.ID, requesterID, ErrReversePending); err != nil {
			return err
		}
		if _, err := tx.DeleteFriendshipPair(ctx, requesterID, addressee.ID); err != nil {
			return err
		}
		return tx.CreateFriendship(ctx, friendship)
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrRequestPending
		}
		return nil, serviceError("friendship service: create request", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   actor(requesterID),
		Action:   "friendship.request",
		Resource: friendship.ID,
		Metadata: map[string]any{"addressee_id": addressee.ID},
	})
	return friendship, nil
}

// AcceptRequest accepts a pending request addressed to userID and adds each party to the other's
// friend group.
func (s *FriendshipService) AcceptRequest(ctx context.Context, requestID, userID string) (friendship *models.Friendship, err error) {
	ctx = ensureContext(ctx)
	defer track("friendship.accept", &err)

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		loaded, err := loadRequestFor(ctx, tx, requestID, userID, "accept")
		if err != nil {
			return err
		}

		requesterGroup, err := activeFriendGroup(ctx, tx, loaded.RequesterID)
		if err != nil {
			return err
		}
		addresseeGroup, err := activeFriendGroup(ctx, tx, loaded.AddresseeID)
		if err != nil {
			return err
		}

		if err := tx.SetFriendshipStatus(ctx, loaded.ID, models.FriendshipAccepted); err != nil {
			return err
		}
		if err := s.membership.addMember(ctx, tx, requesterGroup.ID, loaded.AddresseeID); err != nil {
			return err
		}
		if err := s.membership.addMember(ctx, tx, addresseeGroup.ID, loaded.RequesterID); err != nil {
			return err
		}

		loaded.Status = models.FriendshipAccepted
		friendship = loaded
		return nil
	})
	if err != nil {
		return nil, serviceError("friendship service: accept request", err)
	}

	logger.WithModule("friendship").Info("friendship accepted",
		zap.String("friendship_id", friendship.ID),
		zap.String("requester_id", friendship.RequesterID),
		zap.String("addressee_id", friendship.AddresseeID),
	)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   actor(userID),
		Action:   "friendship.accept",
		Resource: friendship.ID,
	})
	return friendship, nil
}

// DeclineRequest declines a pending request addressed to userID.
func (s *FriendshipService) DeclineRequest(ctx context.Context, requestID, userID string) (result *DeclineResult, err error) {
	ctx = ensureContext(ctx)
	defer track("friendship.decline", &err)

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		loaded, err := loadRequestFor(ctx, tx, requestID, userID, "decline")
		if err != nil {
			return err
		}
		return tx.SetFriendshipStatus(ctx, loaded.ID, models.FriendshipDeclined)
	})
	if err != nil {
		return nil, serviceError("friendship service: decline request", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   actor(userID),
		Action:   "friendship.decline",
		Resource: requestID,
	})
	return &DeclineResult{Declined: true}, nil
}

// ListPendingRequests returns pending requests addressed to userID from active users, newest
// first.
func (s *FriendshipService) ListPendingRequests(ctx context.Context, userID string) ([]FriendRequest, error) {
	ctx = ensureContext(ctx)

	rows, err := s.store.ListPendingFriendRequests(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("friendship service: list requests: %w", err)
	}

	requesterIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		requesterIDs = append(requesterIDs, row.RequesterID)
	}
	requesters, err := s.store.FindUsers(ctx, normaliseIDs(requesterIDs))
	if err != nil {
		return nil, fmt.Errorf("friendship service: load requesters: %w", err)
	}

	out := make([]FriendRequest, 0, len(rows))
	for _, row := range rows {
		requester, ok := requesters[row.RequesterID]
		if !ok || !requester.IsActive {
			continue
		}
		out = append(out, FriendRequest{
			ID:                   row.ID,
			RequesterID:          row.RequesterID,
			AddresseeID:          row.AddresseeID,
			Status:               row.Status,
			CreatedAt:            row.CreatedAt,
			RequesterUsername:    requester.Username,
			RequesterDisplayName: requester.DisplayName,
		})
	}
	return out, nil
}

// ListFriends returns a page of the members of userID's friend group other than userID, in join
// order.
func (s *FriendshipService) ListFriends(ctx context.Context, userID string, page Page) ([]store.MemberRow, error) {
	ctx = ensureContext(ctx)
	page = page.normalise()

	group, err := s.store.FriendGroupOf(ctx, userID)
	if isNotFound(err) {
		return []store.MemberRow{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("friendship service: load friend group: %w", err)
	}

	friends, err := s.store.ListMembersExcept(ctx, group.ID, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("friendship service: list friends: %w", err)
	}
	if friends == nil {
		friends = []store.MemberRow{}
	}
	return friends, nil
}

// RemoveFriend removes each user from the other's friend group and deletes the friendship in
// either direction. It succeeds even when the two were never friends. A user cannot remove
// themselves.
func (s *FriendshipService) RemoveFriend(ctx context.Context, userID, friendID string) (result *RemoveResult, err error) {
	ctx = ensureContext(ctx)
	defer track("friendship.remove", &err)

	if userID == friendID {
		return nil, ErrSelfRequest.WithMessage("You cannot remove yourself as a friend")
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := s.leaveFriendGroup(ctx, tx, userID, friendID); err != nil {
			return err
		}
		if err := s.leaveFriendGroup(ctx, tx, friendID, userID); err != nil {
			return err
		}
		_, err := tx.DeleteFriendshipPair(ctx, userID, friendID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("friendship service: remove friend: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   actor(userID),
		Action:   "friendship.remove",
		Resource: friendID,
	})
	return &RemoveResult{Removed: true}, nil
}

// leaveFriendGroup drops memberID from the friend group owned by ownerID, if there is one. The
// group's founder is never removed.
func (s *FriendshipService) leaveFriendGroup(ctx context.Context, tx *store.Store, ownerID, memberID string) error {
	group, err := tx.FriendGroupOf(ctx, ownerID)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if group.FoundedBy(memberID) {
		return nil
	}
	return s.membership.removeMemberFrom(ctx, tx, group.ID, memberID)
}

// checkDirection rejects a new request when the directed pair from -> to is pending or accepted.
func checkDirection(ctx context.Context, tx *store.Store, from, to string, pendingErr error) error {
	existing, err := tx.FindFriendshipPair(ctx, from, to)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	switch existing.Status {
	case models.FriendshipPending:
		return pendingErr
	case models.FriendshipAccepted:
		return ErrAlreadyFriends
	default:
		return nil
	}
}

func loadRequestFor(ctx context.Context, tx *store.Store, requestID, userID, verb string) (*models.Friendship, error) {
	friendship, err := tx.FindFriendship(ctx, requestID)
	if isNotFound(err) {
		return nil, ErrNotFound.WithMessage("Friend request not found")
	}
	if err != nil {
		return nil, err
	}
	if friendship.AddresseeID != userID {
		return nil, ErrForbidden.WithMessage("You can only " + verb + " requests sent to you")
	}
	if friendship.Status != models.FriendshipPending {
		return nil, ErrNotPending
	}
	return friendship, nil
}

func activeFriendGroup(ctx context.Context, tx *store.Store, userID string) (*models.Community, error) {
	group, err := tx.FriendGroupOf(ctx, userID)
	if isNotFound(err) {
		return nil, ErrFriendGroupMissing
	}
	if err != nil {
		return nil, err
	}
	if !group.IsActive {
		return nil, ErrFriendGroupMissing
	}
	return group, nil
}
