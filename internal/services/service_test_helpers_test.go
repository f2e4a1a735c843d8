package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/charlesng35/comunitree/internal/database/testutil"
	"github.com/charlesng35/comunitree/internal/models"
	"github.com/charlesng35/comunitree/internal/store"
)

type testEnv struct {
	store       *store.Store
	audit       *AuditService
	accounts    *AccountService
	communities *CommunityService
	membership  *MembershipService
	friendships *FriendshipService
	events      *EventService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	st, err := store.New(db)
	require.NoError(t, err)

	audit, err := NewAuditService(db)
	require.NoError(t, err)
	accounts, err := NewAccountService(st, audit, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	communities, err := NewCommunityService(st, audit)
	require.NoError(t, err)
	membership, err := NewMembershipService(st, audit)
	require.NoError(t, err)
	friendships, err := NewFriendshipService(st, membership, audit)
	require.NoError(t, err)
	events, err := NewEventService(st, communities, membership, audit)
	require.NoError(t, err)

	return &testEnv{
		store:       st,
		audit:       audit,
		accounts:    accounts,
		communities: communities,
		membership:  membership,
		friendships: friendships,
		events:      events,
	}
}

func (e *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := e.accounts.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) location(t *testing.T, slug string) *models.Community {
	t.Helper()
	community, err := e.store.FindCommunityBySlug(context.Background(), slug, false)
	require.NoError(t, err)
	require.Equal(t, models.CommunityTypeLocation, community.Type)
	return community
}

func (e *testEnv) join(t *testing.T, userID, communityID string) {
	t.Helper()
	_, err := e.membership.Join(context.Background(), userID, communityID)
	require.NoError(t, err)
}

func (e *testEnv) isMember(t *testing.T, userID, communityID string) bool {
	t.Helper()
	member, err := e.membership.IsMember(context.Background(), userID, communityID)
	require.NoError(t, err)
	return member
}

func (e *testEnv) sub(t *testing.T, founderID, locationID, slug string) *CommunityView {
	t.Helper()
	view, err := e.communities.CreateSubCommunity(context.Background(), founderID, CreateSubCommunityInput{
		Name:     slug,
		Slug:     slug,
		ParentID: locationID,
	})
	require.NoError(t, err)
	return view
}

func (e *testEnv) private(t *testing.T, founderID, slug string, parentIDs ...string) *CommunityView {
	t.Helper()
	view, err := e.communities.CreatePrivateCommunity(context.Background(), founderID, CreatePrivateCommunityInput{
		Name:      slug,
		Slug:      slug,
		ParentIDs: parentIDs,
	})
	require.NoError(t, err)
	return view
}

func (e *testEnv) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	request, err := e.friendships.SendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = e.friendships.AcceptRequest(ctx, request.ID, b)
	require.NoError(t, err)
}
