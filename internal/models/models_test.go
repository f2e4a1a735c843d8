package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	require.NoError(t, base.BeforeCreate(nil))
	require.NotEmpty(t, base.ID)

	parsed, err := uuid.Parse(base.ID)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), parsed.Version())

	preset := BaseModel{ID: "fixed"}
	require.NoError(t, preset.BeforeCreate(nil))
	require.Equal(t, "fixed", preset.ID)
}

func TestNewIDIsTimeOrdered(t *testing.T) {
	first := NewID()
	time.Sleep(2 * time.Millisecond)
	second := NewID()
	require.Less(t, first, second)
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"user", func() *BaseModel {
			u := &User{}
			return &u.BaseModel
		}},
		{"community", func() *BaseModel {
			c := &Community{}
			return &c.BaseModel
		}},
		{"invite", func() *BaseModel {
			i := &Invite{}
			return &i.BaseModel
		}},
		{"friendship", func() *BaseModel {
			f := &Friendship{}
			return &f.BaseModel
		}},
		{"event", func() *BaseModel {
			e := &Event{}
			return &e.BaseModel
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := tc.model()
			require.NoError(t, model.BeforeCreate(nil))
			require.NotEmpty(t, model.ID)
		})
	}
}

func TestAuditLogBeforeCreate(t *testing.T) {
	entry := &AuditLog{}
	require.NoError(t, entry.BeforeCreate(nil))
	require.NotEmpty(t, entry.ID)
}

func TestCommunityTypeValid(t *testing.T) {
	require.True(t, CommunityTypeLocation.Valid())
	require.True(t, CommunityTypeSub.Valid())
	require.True(t, CommunityTypePrivate.Valid())
	require.False(t, CommunityType("location").Valid())
	require.False(t, CommunityType("").Valid())
}

func TestCommunityFoundedBy(t *testing.T) {
	founder := "user-1"
	c := &Community{FounderID: &founder}
	require.True(t, c.FoundedBy("user-1"))
	require.False(t, c.FoundedBy("user-2"))
	require.False(t, (&Community{}).FoundedBy("user-1"))
	require.False(t, c.FoundedBy(""))
}

func TestUserPublicName(t *testing.T) {
	require.Equal(t, "Ada", (&User{Username: "ada", DisplayName: " Ada "}).PublicName())
	require.Equal(t, "ada", (&User{Username: "ada"}).PublicName())
	var nilUser *User
	require.Equal(t, "", nilUser.PublicName())
}

func TestFriendshipOtherParty(t *testing.T) {
	f := &Friendship{RequesterID: "a", AddresseeID: "b"}
	require.Equal(t, "b", f.OtherParty("a"))
	require.Equal(t, "a", f.OtherParty("b"))
}

func TestEventVisibilityRoundTrip(t *testing.T) {
	var event Event
	settings, ok := event.Visibility()
	require.False(t, ok)
	require.Equal(t, VisibilitySettings{}, settings)

	require.NoError(t, event.SetVisibility(&VisibilitySettings{ShowDate: true, ShowRSVPCount: true}))
	settings, ok = event.Visibility()
	require.True(t, ok)
	require.True(t, settings.ShowDate)
	require.True(t, settings.ShowRSVPCount)
	require.False(t, settings.ShowCreator)

	var raw map[string]bool
	require.NoError(t, json.Unmarshal(event.VisibilitySettings, &raw))
	require.Len(t, raw, 8)

	require.NoError(t, event.SetVisibility(nil))
	require.Nil(t, event.VisibilitySettings)
}

func TestEventVisibilityIgnoresGarbage(t *testing.T) {
	event := Event{VisibilitySettings: []byte("not json")}
	settings, ok := event.Visibility()
	require.False(t, ok)
	require.Equal(t, VisibilitySettings{}, settings)
}

func TestTableNames(t *testing.T) {
	require.Equal(t, "community_parents", CommunityParent{}.TableName())
	require.Equal(t, "community_members", Membership{}.TableName())
	require.Equal(t, "community_invites", Invite{}.TableName())
	require.Equal(t, "event_rsvps", RSVP{}.TableName())
	require.Equal(t, "event_ratings", Rating{}.TableName())
}
