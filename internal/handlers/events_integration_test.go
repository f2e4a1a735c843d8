package handlers_test

import (
	"net/http"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/comunitree/internal/handlers/testutil"
)

func createEvent(t *testing.T, env *testutil.Env, token string, body map[string]any) map[string]any {
	t.Helper()
	resp := env.Request(http.MethodPost, "/api/events", body, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var event map[string]any
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &event)
	return event
}

func getEvent(t *testing.T, env *testutil.Env, id, token string) map[string]any {
	t.Helper()
	resp := env.Request(http.MethodGet, "/api/events/"+id, nil, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var event map[string]any
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &event)
	return event
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func TestEventHandler_VisibilityMask(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Register("alice")
	bob := env.Register("bob")

	public := createEvent(t, env, alice.AccessToken, map[string]any{
		"title":             "Picnic",
		"event_date":        "2026-05-01",
		"specific_location": "Zilker Park",
	})
	require.Equal(t, "2026-05-01", public["event_date"])
	require.Equal(t, true, public["is_public"])

	anonymous := getEvent(t, env, public["id"].(string), "")
	require.Equal(t, "Zilker Park", anonymous["specific_location"])

	private := createEvent(t, env, alice.AccessToken, map[string]any{
		"title":             "Surprise party",
		"event_date":        "2026-06-01",
		"specific_location": "Alice's flat",
		"is_public":         false,
		"visibility_settings": map[string]bool{
			"show_date":       true,
			"show_rsvp_count": true,
		},
	})
	require.Equal(t, "Alice's flat", private["specific_location"], "the creator sees the full event")

	masked := getEvent(t, env, private["id"].(string), bob.AccessToken)
	require.Equal(t, []string{"community_id", "event_date", "id", "is_public", "rsvp_count", "title"}, sortedKeys(masked))

	resp := env.Request(http.MethodGet, "/api/events/"+private["id"].(string)+"/ratings", nil, bob.AccessToken)
	testutil.RequireError(t, resp, http.StatusForbidden, "FORBIDDEN")

	resp = env.Request(http.MethodGet, "/api/events/"+private["id"].(string)+"/rsvps", nil, bob.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.JSONEq(t, `{"count":0}`, string(testutil.DecodeResponse(t, resp).Data))

	resp = env.Request(http.MethodGet, "/api/events/missing", nil, "")
	testutil.RequireError(t, resp, http.StatusNotFound, "NOT_FOUND")
}

func TestEventHandler_CreateValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Register("alice")

	resp := env.Request(http.MethodPost, "/api/events", map[string]any{"title": "No auth"}, "")
	testutil.RequireError(t, resp, http.StatusUnauthorized, "UNAUTHORIZED")

	resp = env.Request(http.MethodPost, "/api/events", map[string]any{}, alice.AccessToken)
	testutil.RequireError(t, resp, http.StatusBadRequest, "BAD_REQUEST")

	resp = env.Request(http.MethodPost, "/api/events", map[string]any{"title": "Bad date", "event_date": "tomorrow"}, alice.AccessToken)
	testutil.RequireError(t, resp, http.StatusBadRequest, "BAD_REQUEST")

	resp = env.Request(http.MethodPost, "/api/events", map[string]any{
		"title":        "Not mine",
		"community_id": env.LocationID("austin"),
	}, alice.AccessToken)
	testutil.RequireError(t, resp, http.StatusForbidden, "NOT_MEMBER")
}

func TestEventHandler_RSVPAndRatings(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Register("alice")
	bob := env.Register("bob")
	carol := env.Register("carol")

	event := createEvent(t, env, alice.AccessToken, map[string]any{"title": "Game night", "event_date": "2026-03-14"})
	id := event["id"].(string)

	resp := env.Request(http.MethodPost, "/api/events/"+id+"/rsvp", nil, bob.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	resp = env.Request(http.MethodGet, "/api/events/"+id+"/my-rsvp", nil, bob.AccessToken)
	require.JSONEq(t, `{"rsvped":true}`, string(testutil.DecodeResponse(t, resp).Data))

	resp = env.Request(http.MethodGet, "/api/events/"+id+"/rsvps", nil, alice.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code)
	var attendees []struct {
		Username string `json:"username"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &attendees)
	require.Len(t, attendees, 1)
	require.Equal(t, "bob", attendees[0].Username)

	resp = env.Request(http.MethodPost, "/api/events/"+id+"/rate", map[string]int{"rating": 6}, bob.AccessToken)
	testutil.RequireError(t, resp, http.StatusBadRequest, "INVALID_RATING")

	for _, rate := range []struct {
		token  string
		rating int
	}{{bob.AccessToken, 4}, {carol.AccessToken, 5}, {bob.AccessToken, 3}} {
		resp = env.Request(http.MethodPost, "/api/events/"+id+"/rate", map[string]int{"rating": rate.rating}, rate.token)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}

	resp = env.Request(http.MethodGet, "/api/events/"+id+"/ratings", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.JSONEq(t, `{"aggregate":4,"count":2}`, string(testutil.DecodeResponse(t, resp).Data))

	resp = env.Request(http.MethodGet, "/api/events/"+id+"/my-rating", nil, bob.AccessToken)
	require.JSONEq(t, `{"rating":3}`, string(testutil.DecodeResponse(t, resp).Data))

	resp = env.Request(http.MethodGet, "/api/me/events", nil, bob.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var attended []map[string]any
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &attended)
	require.Len(t, attended, 1)
	require.EqualValues(t, 3, attended[0]["my_rating"])

	resp = env.Request(http.MethodGet, "/api/me/ratings", nil, carol.AccessToken)
	var ratings []struct {
		EventTitle string `json:"event_title"`
		Rating     int    `json:"rating"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &ratings)
	require.Len(t, ratings, 1)
	require.Equal(t, "Game night", ratings[0].EventTitle)

	resp = env.Request(http.MethodDelete, "/api/events/"+id+"/rsvp", nil, bob.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = env.Request(http.MethodGet, "/api/events/"+id+"/my-rsvp", nil, bob.AccessToken)
	require.JSONEq(t, `{"rsvped":false}`, string(testutil.DecodeResponse(t, resp).Data))
}

func TestEventHandler_UpdateDeleteAndBoard(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Register("alice")
	bob := env.Register("bob")
	austinID := env.LocationID("austin")

	resp := env.Request(http.MethodPost, "/api/communities/"+austinID+"/join", nil, alice.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code)

	first := createEvent(t, env, alice.AccessToken, map[string]any{"community_id": austinID, "title": "Market", "event_date": "2026-04-10"})
	second := createEvent(t, env, alice.AccessToken, map[string]any{"community_id": austinID, "title": "Concert", "event_date": "2026-04-02"})
	createEvent(t, env, alice.AccessToken, map[string]any{"community_id": austinID, "title": "Secret", "event_date": "2026-04-05", "is_public": false})

	resp = env.Request(http.MethodGet, "/api/communities/"+austinID+"/events", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var board []map[string]any
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &board)
	require.Len(t, board, 2, "events with a hidden date stay off the board")
	require.Equal(t, "Concert", board[0]["title"])
	require.Equal(t, "Market", board[1]["title"])

	resp = env.Request(http.MethodGet, "/api/communities/"+austinID+"/events?from=2026-04-03", nil, "")
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &board)
	require.Len(t, board, 1)
	require.Equal(t, "Market", board[0]["title"])

	resp = env.Request(http.MethodGet, "/api/communities/"+austinID+"/events?from=soon", nil, "")
	testutil.RequireError(t, resp, http.StatusBadRequest, "BAD_REQUEST")

	resp = env.Request(http.MethodPatch, "/api/events/"+first["id"].(string), map[string]any{"title": "Hijacked"}, bob.AccessToken)
	testutil.RequireError(t, resp, http.StatusForbidden, "FORBIDDEN")

	resp = env.Request(http.MethodPatch, "/api/events/"+first["id"].(string), map[string]any{"title": "Farmers market"}, alice.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var updated map[string]any
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &updated)
	require.Equal(t, "Farmers market", updated["title"])

	resp = env.Request(http.MethodDelete, "/api/events/"+second["id"].(string), nil, alice.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	resp = env.Request(http.MethodGet, "/api/events/"+second["id"].(string), nil, alice.AccessToken)
	testutil.RequireError(t, resp, http.StatusNotFound, "NOT_FOUND")
}

func TestActivityHandler_ListsOwnAuditTrail(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Register("alice")
	env.Register("bob")

	resp := env.Request(http.MethodPost, "/api/communities/"+env.LocationID("austin")+"/join", nil, alice.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.Request(http.MethodGet, "/api/me/activity", nil, alice.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	payload := testutil.DecodeResponse(t, resp)
	var entries []struct {
		UserID    *string `json:"user_id"`
		Action    string  `json:"action"`
		IPAddress string  `json:"ip_address"`
	}
	testutil.DecodeInto(t, payload.Data, &entries)
	require.Len(t, entries, 2)
	require.EqualValues(t, 2, payload.Meta.Total)
	actions := []string{entries[0].Action, entries[1].Action}
	require.ElementsMatch(t, []string{"account.register", "community.join"}, actions)
	for _, entry := range entries {
		require.Equal(t, alice.User.ID, *entry.UserID)
		require.Equal(t, "192.0.2.1", entry.IPAddress)
	}

	resp = env.Request(http.MethodGet, "/api/me/activity?action=community.join", nil, alice.AccessToken)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &entries)
	require.Len(t, entries, 1)

	resp = env.Request(http.MethodGet, "/api/me/activity?since=yesterday", nil, alice.AccessToken)
	testutil.RequireError(t, resp, http.StatusBadRequest, "BAD_REQUEST")
}
