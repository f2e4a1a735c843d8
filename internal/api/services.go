package api

import (
	"gorm.io/gorm"

	"github.com/charlesng35/comunitree/internal/services"
	"github.com/charlesng35/comunitree/internal/store"
)

// serviceSet holds the domain services shared by every handler of one router.
type serviceSet struct {
	audit       *services.AuditService
	accounts    *services.AccountService
	communities *services.CommunityService
	membership  *services.MembershipService
	friendships *services.FriendshipService
	events      *services.EventService
}

func newServiceSet(db *gorm.DB) (*serviceSet, error) {
	st, err := store.New(db)
	if err != nil {
		return nil, err
	}

	set := &serviceSet{}
	if set.audit, err = services.NewAuditService(db); err != nil {
		return nil, err
	}
	if set.accounts, err = services.NewAccountService(st, set.audit); err != nil {
		return nil, err
	}
	if set.communities, err = services.NewCommunityService(st, set.audit); err != nil {
		return nil, err
	}
	if set.membership, err = services.NewMembershipService(st, set.audit); err != nil {
		return nil, err
	}
	if set.friendships, err = services.NewFriendshipService(st, set.membership, set.audit); err != nil {
		return nil, err
	}
	if set.events, err = services.NewEventService(st, set.communities, set.membership, set.audit); err != nil {
		return nil, err
	}
	return set, nil
}
