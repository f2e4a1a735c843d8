package services

import (
	"errors"
	"net/http"

	"github.com/charlesng35/comunitree/internal/store"
	apperrors "github.com/charlesng35/comunitree/pkg/errors"
)

// Domain failures surfaced by the community engine. Each carries its transport status.
var (
	ErrNotFound  = apperrors.ErrNotFound
	ErrForbidden = apperrors.ErrForbidden

	ErrNotFounder          = apperrors.New("NOT_FOUNDER", "Only the founder can perform this action", http.StatusForbidden)
	ErrNotModerator        = apperrors.New("NOT_MODERATOR", "Only moderators can update the community profile", http.StatusForbidden)
	ErrNotMember           = apperrors.New("NOT_MEMBER", "You are not a member of this community", http.StatusForbidden)
	ErrSlugTaken           = apperrors.New("SLUG_TAKEN", "Slug already in use", http.StatusConflict)
	ErrParentNotFound      = apperrors.New("PARENT_NOT_FOUND", "Parent community not found", http.StatusBadRequest)
	ErrNotMemberOfParent   = apperrors.New("NOT_MEMBER_OF_PARENT", "You must be a member of every parent community", http.StatusForbidden)
	ErrParentNotLocation   = apperrors.New("PARENT_NOT_LOCATION", "Parent must be an active location", http.StatusBadRequest)
	ErrNotLocal            = apperrors.New("NOT_LOCAL", "You must be a member of the parent location", http.StatusForbidden)
	ErrAlreadyMember       = apperrors.New("ALREADY_MEMBER", "User is already a member", http.StatusBadRequest)
	ErrInvitePending       = apperrors.New("INVITE_PENDING", "An invite for this user is already pending", http.StatusBadRequest)
	ErrInviteInvalid       = apperrors.New("INVITE_INVALID", "Invite is no longer pending", http.StatusBadRequest)
	ErrCannotRemoveFounder = apperrors.New("CANNOT_REMOVE_FOUNDER", "The founder cannot be removed", http.StatusBadRequest)
	ErrCannotLeaveFriends  = apperrors.New("CANNOT_LEAVE_FRIEND_GROUP", "You cannot leave your own friend group", http.StatusForbidden)
	ErrPrivateInviteOnly   = apperrors.New("PRIVATE_INVITE_ONLY", "Private communities are invite only", http.StatusBadRequest)
	ErrSelfRequest         = apperrors.New("SELF_REQUEST", "You cannot send a friend request to yourself", http.StatusBadRequest)
	ErrRequestPending      = apperrors.New("PENDING", "A friend request is already pending", http.StatusBadRequest)
	ErrReversePending      = apperrors.New("REVERSE_PENDING", "This user has already sent you a friend request", http.StatusBadRequest)
	ErrAlreadyFriends      = apperrors.New("ALREADY_FRIENDS", "You are already friends", http.StatusBadRequest)
	ErrNotPending          = apperrors.New("NOT_PENDING", "Friend request is no longer pending", http.StatusBadRequest)
	ErrFriendGroupMissing  = apperrors.New("FRIEND_GROUP_MISSING", "Friend group not found", http.StatusBadRequest)
	ErrInvalidRating       = apperrors.New("INVALID_RATING", "Rating must be between 1 and 5", http.StatusBadRequest)
	ErrNoFriendCommunity   = apperrors.New("NO_FRIEND_COMMUNITY", "No friend community found for user", http.StatusBadRequest)
	ErrLocationReadonly    = apperrors.New("LOCATION_READONLY", "Locations can only be updated by developers", http.StatusForbidden)
	ErrUserNotFound        = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	ErrUsernameTaken       = apperrors.New("USERNAME_TAKEN", "Username or email already registered", http.StatusConflict)
)

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	return store.IsUniqueViolation(err)
}
