package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/comunitree/internal/models"
	apperrors "github.com/charlesng35/comunitree/pkg/errors"
)

func TestNewCommunityServiceRequiresStore(t *testing.T) {
	_, err := NewCommunityService(nil, nil)
	require.Error(t, err)
}

func TestRegisterCreatesFriendGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	group, err := env.communities.FriendGroupForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, group.IsFriendGroup)
	require.Equal(t, models.CommunityTypePrivate, group.Type)
	require.Equal(t, "alice's friends", group.Name)
	require.Equal(t, "friends-"+alice.ID, group.Slug)
	require.True(t, group.FoundedBy(alice.ID))
	require.EqualValues(t, 1, group.MemberCount)

	membership, err := env.store.Membership(ctx, group.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleOwner, membership.Role)

	_, err = env.communities.CreateFriendGroupForUser(ctx, alice.ID)
	require.ErrorIs(t, err, ErrSlugTaken)
}

func TestFriendGroupUsesDisplayName(t *testing.T) {
	env := newTestEnv(t)
	user, err := env.accounts.Register(context.Background(), RegisterInput{
		Username:    "bob",
		Email:       "bob@example.com",
		Password:    "correct-horse",
		DisplayName: "Bobby",
	})
	require.NoError(t, err)

	group, err := env.communities.FriendGroupForUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "Bobby's friends", group.Name)
}

func TestCreateSubCommunity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	austin := env.location(t, "austin")

	input := CreateSubCommunityInput{
		Name:        "Austin Runners",
		Slug:        "austin-runners",
		ParentID:    austin.ID,
		Description: "  morning runs  ",
		ProfileData: json.RawMessage(`{"pace":"easy"}`),
	}

	_, err := env.communities.CreateSubCommunity(ctx, alice.ID, input)
	require.ErrorIs(t, err, ErrNotLocal)

	env.join(t, alice.ID, austin.ID)
	view, err := env.communities.CreateSubCommunity(ctx, alice.ID, input)
	require.NoError(t, err)
	require.Equal(t, models.CommunityTypeSub, view.Type)
	require.NotNil(t, view.ParentID)
	require.Equal(t, austin.ID, *view.ParentID)
	require.Equal(t, "morning runs", view.Description)
	require.JSONEq(t, `{"pace":"easy"}`, string(view.ProfileData))
	require.EqualValues(t, 1, view.MemberCount)

	membership, err := env.store.Membership(ctx, view.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleModerator, membership.Role)

	_, err = env.communities.CreateSubCommunity(ctx, alice.ID, input)
	require.ErrorIs(t, err, ErrSlugTaken)
}

func TestCreateSubCommunityRequiresLocationParent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	austin := env.location(t, "austin")
	env.join(t, alice.ID, austin.ID)
	runners := env.sub(t, alice.ID, austin.ID, "runners")
	club := env.private(t, alice.ID, "club")

	for _, parentID := range []string{runners.ID, club.ID, "missing"} {
		_, err := env.communities.CreateSubCommunity(ctx, alice.ID, CreateSubCommunityInput{
			Name:     "Nested",
			Slug:     "nested",
			ParentID: parentID,
		})
		require.ErrorIs(t, err, ErrParentNotLocation)
	}
}

func TestCreateSubCommunityValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	austin := env.location(t, "austin")

	_, err := env.communities.CreateSubCommunity(context.Background(), alice.ID, CreateSubCommunityInput{
		Name:     "Bad",
		Slug:     "Not A Slug",
		ParentID: austin.ID,
	})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = env.communities.CreateSubCommunity(context.Background(), alice.ID, CreateSubCommunityInput{
		Name:        "Bad profile",
		Slug:        "bad-profile",
		ParentID:    austin.ID,
		ProfileData: json.RawMessage(`{not json`),
	})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestCreatePrivateCommunityParents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	austin := env.location(t, "austin")
	newYork := env.location(t, "new-york")
	env.join(t, alice.ID, austin.ID)

	_, err := env.communities.CreatePrivateCommunity(ctx, alice.ID, CreatePrivateCommunityInput{
		Name:      "Book Club",
		Slug:      "book-club",
		ParentIDs: []string{austin.ID, newYork.ID},
	})
	require.ErrorIs(t, err, ErrNotMemberOfParent)

	_, err = env.store.FindCommunityBySlug(ctx, "book-club", true)
	require.True(t, isNotFound(err), "no community row may be written when a parent fails")

	_, err = env.communities.CreatePrivateCommunity(ctx, alice.ID, CreatePrivateCommunityInput{
		Name:      "Book Club",
		Slug:      "book-club",
		ParentIDs: []string{"missing"},
	})
	require.ErrorIs(t, err, ErrParentNotFound)

	view, err := env.communities.CreatePrivateCommunity(ctx, alice.ID, CreatePrivateCommunityInput{
		Name:      "Book Club",
		Slug:      "book-club",
		ParentIDs: []string{austin.ID, austin.ID},
	})
	require.NoError(t, err)
	require.Equal(t, []string{austin.ID}, view.ParentIDs)
	require.True(t, view.FoundedBy(alice.ID))
	require.False(t, view.IsFriendGroup)

	_, err = env.communities.CreatePrivateCommunity(ctx, alice.ID, CreatePrivateCommunityInput{Name: "Again", Slug: "book-club"})
	require.ErrorIs(t, err, ErrSlugTaken)
}

func TestUpdateCommunityRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	austin := env.location(t, "austin")
	env.join(t, alice.ID, austin.ID)
	env.join(t, bob.ID, austin.ID)
	runners := env.sub(t, alice.ID, austin.ID, "runners")

	description := "updated"
	name := "Renamed"

	_, err := env.communities.UpdateCommunity(ctx, "missing", alice.ID, UpdateCommunityInput{Description: &description})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = env.communities.UpdateCommunity(ctx, austin.ID, alice.ID, UpdateCommunityInput{Description: &description})
	require.ErrorIs(t, err, ErrLocationReadonly)

	_, err = env.communities.UpdateCommunity(ctx, runners.ID, bob.ID, UpdateCommunityInput{Description: &description})
	require.ErrorIs(t, err, ErrNotMember)

	env.join(t, bob.ID, runners.ID)
	_, err = env.communities.UpdateCommunity(ctx, runners.ID, bob.ID, UpdateCommunityInput{Description: &description})
	require.ErrorIs(t, err, ErrNotModerator)

	view, err := env.communities.UpdateCommunity(ctx, runners.ID, alice.ID, UpdateCommunityInput{
		Description: &description,
		Name:        &name,
		ProfileData: json.RawMessage(`{"k":1}`),
	})
	require.NoError(t, err)
	require.Equal(t, "updated", view.Description)
	require.Equal(t, "runners", view.Name, "sub-community moderators cannot rename")
	require.JSONEq(t, `{"k":1}`, string(view.ProfileData))

	view, err = env.communities.UpdateCommunity(ctx, runners.ID, alice.ID, UpdateCommunityInput{ProfileData: json.RawMessage(`null`)})
	require.NoError(t, err)
	require.Empty(t, view.ProfileData)
}

func TestUpdatePrivateCommunityByFounder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	austin := env.location(t, "austin")
	newYork := env.location(t, "new-york")
	env.join(t, alice.ID, austin.ID)
	club := env.private(t, alice.ID, "club", austin.ID)
	env.private(t, alice.ID, "taken")

	name := "The Club"
	slug := "the-club"
	taken := "taken"

	_, err := env.communities.UpdateCommunity(ctx, club.ID, bob.ID, UpdateCommunityInput{Name: &name})
	require.ErrorIs(t, err, ErrNotFounder)

	_, err = env.communities.UpdateCommunity(ctx, club.ID, alice.ID, UpdateCommunityInput{Slug: &taken})
	require.ErrorIs(t, err, ErrSlugTaken)

	bad := []string{newYork.ID}
	_, err = env.communities.UpdateCommunity(ctx, club.ID, alice.ID, UpdateCommunityInput{Name: &name, ParentIDs: &bad})
	require.ErrorIs(t, err, ErrNotMemberOfParent)

	unchanged, err := env.communities.GetByID(ctx, club.ID, alice.ID, GetOptions{})
	require.NoError(t, err)
	require.Equal(t, "club", unchanged.Name)
	require.Equal(t, []string{austin.ID}, unchanged.ParentIDs)

	none := []string{}
	view, err := env.communities.UpdateCommunity(ctx, club.ID, alice.ID, UpdateCommunityInput{
		Name:      &name,
		Slug:      &slug,
		ParentIDs: &none,
	})
	require.NoError(t, err)
	require.Equal(t, "The Club", view.Name)
	require.Equal(t, "the-club", view.Slug)
	require.Empty(t, view.ParentIDs)
}

func TestPrivateCommunityVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	club := env.private(t, alice.ID, "club")

	_, err := env.communities.GetByID(ctx, club.ID, "", GetOptions{})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = env.communities.GetBySlug(ctx, "club", bob.ID, GetOptions{})
	require.ErrorIs(t, err, ErrNotFound)

	view, err := env.communities.GetBySlug(ctx, "club", alice.ID, GetOptions{})
	require.NoError(t, err)
	require.Equal(t, club.ID, view.ID)

	anonymous, err := env.communities.ListCommunities(ctx, ListCommunitiesFilter{})
	require.NoError(t, err)
	for _, c := range anonymous {
		require.NotEqual(t, models.CommunityTypePrivate, c.Type)
	}
	require.Len(t, anonymous, 3)

	onlyPrivate, err := env.communities.ListCommunities(ctx, ListCommunitiesFilter{Type: models.CommunityTypePrivate})
	require.NoError(t, err)
	require.Empty(t, onlyPrivate)

	mine, err := env.communities.ListCommunities(ctx, ListCommunitiesFilter{Type: models.CommunityTypePrivate, ViewerID: alice.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2, "club and the friend group")

	_, err = env.communities.ListMembers(ctx, club.ID, bob.ID, Page{})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = env.communities.ListCommunities(ctx, ListCommunitiesFilter{Type: "GALAXY"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestListCommunitiesOrderAndCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	austin := env.location(t, "austin")
	env.join(t, alice.ID, austin.ID)

	locations, err := env.communities.ListCommunities(ctx, ListCommunitiesFilter{Type: models.CommunityTypeLocation})
	require.NoError(t, err)
	require.Len(t, locations, 3)
	names := []string{locations[0].Name, locations[1].Name, locations[2].Name}
	require.IsIncreasing(t, names)
	for _, c := range locations {
		if c.ID == austin.ID {
			require.EqualValues(t, 1, c.MemberCount)
		}
	}

	env.sub(t, alice.ID, austin.ID, "runners")
	children, err := env.communities.ListCommunities(ctx, ListCommunitiesFilter{ParentID: austin.ID})
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, "runners", children[0].Slug)
}

func TestListMyCommunitiesAndLocality(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	austin := env.location(t, "austin")
	env.join(t, alice.ID, austin.ID)
	runners := env.sub(t, alice.ID, austin.ID, "runners")

	mine, err := env.communities.ListMyCommunities(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	require.Equal(t, models.CommunityTypeLocation, mine[0].Type)
	require.Equal(t, models.CommunityTypePrivate, mine[1].Type)
	require.Equal(t, models.CommunityTypeSub, mine[2].Type)
	require.Equal(t, models.RoleModerator, mine[2].Role)

	ids, err := env.communities.LocalLocationIDs(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, []string{austin.ID}, ids)

	status, err := env.communities.LocalStatus(ctx, alice.ID, runners.ID)
	require.NoError(t, err)
	require.Equal(t, LocalStatus{IsMember: true, IsLocal: true}, status)

	status, err = env.communities.LocalStatus(ctx, bob.ID, runners.ID)
	require.NoError(t, err)
	require.Equal(t, LocalStatus{}, status)

	env.join(t, bob.ID, runners.ID)
	status, err = env.communities.LocalStatus(ctx, bob.ID, runners.ID)
	require.NoError(t, err)
	require.Equal(t, LocalStatus{IsMember: true, IsLocal: false}, status)

	status, err = env.communities.LocalStatus(ctx, alice.ID, "missing")
	require.NoError(t, err)
	require.Equal(t, LocalStatus{}, status)

	members, err := env.communities.ListMembers(ctx, runners.ID, "", Page{Limit: 1})
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, alice.ID, members[0].UserID)
}
