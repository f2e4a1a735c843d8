package services

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/charlesng35/comunitree/internal/models"
)

var baselineKeys = []string{"community_id", "id", "is_public", "title"}

func sampleEvent(t *testing.T, public bool, settings *models.VisibilitySettings) models.Event {
	t.Helper()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	description := "details"
	eventTime := "19:00"
	broad := "East Austin"
	specific := "123 Main St"
	event := models.Event{
		BaseModel:        models.BaseModel{ID: "evt-1"},
		CommunityID:      "com-1",
		CreatorID:        "usr-creator",
		Title:            "Board games",
		Description:      &description,
		EventDate:        &date,
		EventTime:        &eventTime,
		BroadLocation:    &broad,
		SpecificLocation: &specific,
		IsPublic:         public,
		IsActive:         true,
	}
	require.NoError(t, event.SetVisibility(settings))
	return event
}

func TestApplyVisibilityPublicEventIsFull(t *testing.T) {
	event := sampleEvent(t, true, nil)
	creator := &CreatorProfile{ID: "usr-creator", Username: "host"}

	view := ApplyVisibility(EventDetails{Event: event, RSVPCount: 3}, "someone", creator)
	require.True(t, view.Full)
	require.Equal(t, []string{
		"broad_location", "community_id", "created_at", "creator", "creator_id", "description",
		"event_date", "event_time", "id", "is_active", "is_public", "rating_aggregate", "rating_count",
		"rsvp_count", "specific_location", "title", "updated_at", "visibility_settings",
	}, view.Keys())

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "2026-03-14", decoded["event_date"])
	require.Nil(t, decoded["rating_aggregate"])
	require.EqualValues(t, 3, decoded["rsvp_count"])
}

func TestApplyVisibilityCreatorSeesEverything(t *testing.T) {
	event := sampleEvent(t, false, &models.VisibilitySettings{})
	view := ApplyVisibility(EventDetails{Event: event}, "usr-creator", nil)
	require.True(t, view.Full)
	require.NotNil(t, view.SpecificLocation)
	require.NotNil(t, view.VisibilitySettings)
}

func TestApplyVisibilityMissingSettingsHideEverything(t *testing.T) {
	event := sampleEvent(t, false, nil)
	view := ApplyVisibility(EventDetails{Event: event, RSVPCount: 9}, "", &CreatorProfile{ID: "usr-creator"})
	require.False(t, view.Full)
	require.Equal(t, baselineKeys, view.Keys())
}

func TestApplyVisibilityDateAndCount(t *testing.T) {
	event := sampleEvent(t, false, &models.VisibilitySettings{ShowDate: true, ShowRSVPCount: true})
	view := ApplyVisibility(EventDetails{Event: event, RSVPCount: 2}, "viewer", nil)
	require.Equal(t, []string{"community_id", "event_date", "id", "is_public", "rsvp_count", "title"}, view.Keys())
}

func TestApplyVisibilityOmitsAbsentValues(t *testing.T) {
	event := sampleEvent(t, false, &models.VisibilitySettings{ShowTime: true, ShowCreator: true})
	event.EventTime = nil
	view := ApplyVisibility(EventDetails{Event: event}, "viewer", nil)
	require.Equal(t, baselineKeys, view.Keys(), "toggles without a value or creator add nothing")
}

func TestOnBoard(t *testing.T) {
	require.True(t, onBoard(sampleEvent(t, true, nil)))
	require.False(t, onBoard(sampleEvent(t, false, nil)))
	require.True(t, onBoard(sampleEvent(t, false, &models.VisibilitySettings{ShowDate: true})))

	undated := sampleEvent(t, false, &models.VisibilitySettings{ShowDate: true})
	undated.EventDate = nil
	require.False(t, onBoard(undated))
}

func TestSummariseRatings(t *testing.T) {
	empty := summariseRatings(nil, 0)
	require.Nil(t, empty.Aggregate)
	require.Zero(t, empty.Count)

	avg := 10.0 / 3.0
	summary := summariseRatings(&avg, 3)
	require.NotNil(t, summary.Aggregate)
	require.Equal(t, 3.33, *summary.Aggregate)
}

func TestProperty_MaskedViewsExposeOnlyAllowedKeys(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		settings := models.VisibilitySettings{
			ShowDate:             rapid.Bool().Draw(rt, "show_date"),
			ShowTime:             rapid.Bool().Draw(rt, "show_time"),
			ShowBroadLocation:    rapid.Bool().Draw(rt, "show_broad_location"),
			ShowSpecificLocation: rapid.Bool().Draw(rt, "show_specific_location"),
			ShowRSVPCount:        rapid.Bool().Draw(rt, "show_rsvp_count"),
			ShowRatings:          rapid.Bool().Draw(rt, "show_ratings"),
			ShowDescription:      rapid.Bool().Draw(rt, "show_description"),
			ShowCreator:          rapid.Bool().Draw(rt, "show_creator"),
		}
		event := sampleEvent(t, false, &settings)
		if !rapid.Bool().Draw(rt, "has_time") {
			event.EventTime = nil
		}
		if !rapid.Bool().Draw(rt, "has_date") {
			event.EventDate = nil
		}
		var creator *CreatorProfile
		if rapid.Bool().Draw(rt, "creator_active") {
			creator = &CreatorProfile{ID: event.CreatorID, Username: "host"}
		}
		viewer := rapid.SampledFrom([]string{"", "usr-other"}).Draw(rt, "viewer")

		view := ApplyVisibility(EventDetails{Event: event, RSVPCount: 4}, viewer, creator)
		keys := map[string]bool{}
		for _, key := range view.Keys() {
			keys[key] = true
		}

		for _, key := range baselineKeys {
			if !keys[key] {
				rt.Fatalf("baseline key %q missing", key)
			}
		}
		expect := map[string]bool{
			"event_date":        settings.ShowDate && event.EventDate != nil,
			"event_time":        settings.ShowTime && event.EventTime != nil,
			"broad_location":    settings.ShowBroadLocation,
			"specific_location": settings.ShowSpecificLocation,
			"description":       settings.ShowDescription,
			"rsvp_count":        settings.ShowRSVPCount,
			"rating_aggregate":  settings.ShowRatings,
			"rating_count":      settings.ShowRatings,
			"creator":           settings.ShowCreator && creator != nil,
		}
		for key, want := range expect {
			if keys[key] != want {
				rt.Fatalf("key %q present=%v, want %v", key, keys[key], want)
			}
		}
		if len(keys) != len(baselineKeys)+countTrue(expect) {
			rt.Fatalf("unexpected keys %v", view.Keys())
		}
	})
}

func TestProperty_RoundRatingKeepsTwoDecimals(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		value := rapid.Float64Range(minRating, maxRating).Draw(rt, "average")
		rounded := roundRating(value)
		if math.Abs(rounded-value) > 0.005+1e-9 {
			rt.Fatalf("roundRating(%v) = %v drifted too far", value, rounded)
		}
		if scaled := rounded * 100; math.Abs(scaled-math.Round(scaled)) > 1e-6 {
			rt.Fatalf("roundRating(%v) = %v has more than two decimals", value, rounded)
		}
	})
}

func countTrue(values map[string]bool) int {
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return n
}
