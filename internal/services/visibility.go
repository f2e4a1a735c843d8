package services

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/charlesng35/comunitree/internal/models"
)

// CreatorProfile is the public profile of an event creator.
type CreatorProfile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func creatorProfileOf(user models.User) *CreatorProfile {
	return &CreatorProfile{ID: user.ID, Username: user.Username, DisplayName: user.DisplayName}
}

// RatingSummary is the anonymous rating aggregate of an event. Aggregate is nil when the event
// has no ratings.
type RatingSummary struct {
	Aggregate *float64 `json:"aggregate"`
	Count     int64    `json:"count"`
}

// EventDetails is an event together with its RSVP and rating aggregates.
type EventDetails struct {
	Event     models.Event
	RSVPCount int64
	Ratings   RatingSummary
}

// EventView is an event as presented to a single viewer. Full views carry every column; masked
// views carry the baseline plus whatever the visibility toggles allow. Nil optional fields are
// omitted from masked views.
type EventView struct {
	ID          string
	CommunityID string
	Title       string
	IsPublic    bool
	Full        bool

	CreatorID          string
	VisibilitySettings *models.VisibilitySettings
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Description      *string
	EventDate        *string
	EventTime        *string
	BroadLocation    *string
	SpecificLocation *string
	RSVPCount        *int64
	Ratings          *RatingSummary
	Creator          *CreatorProfile
}

// ApplyVisibility masks an event for viewerID. Public events and the creator's own events are
// returned whole; every other viewer sees {id, community_id, title, is_public} plus each optional
// field whose toggle is on and whose value is present. RSVPs and ratings only ever appear as
// aggregates. Missing settings behave as all toggles off.
func ApplyVisibility(details EventDetails, viewerID string, creator *CreatorProfile) EventView {
	event := details.Event
	view := EventView{
		ID:          event.ID,
		CommunityID: event.CommunityID,
		Title:       event.Title,
		IsPublic:    event.IsPublic,
	}

	isCreator := viewerID != "" && event.CreatorID == viewerID
	if event.IsPublic || isCreator {
		view.Full = true
		view.CreatorID = event.CreatorID
		view.IsActive = event.IsActive
		view.CreatedAt = event.CreatedAt
		view.UpdatedAt = event.UpdatedAt
		if settings, ok := event.Visibility(); ok {
			view.VisibilitySettings = &settings
		}
		view.Description = event.Description
		view.EventDate = formatEventDate(event.EventDate)
		view.EventTime = event.EventTime
		view.BroadLocation = event.BroadLocation
		view.SpecificLocation = event.SpecificLocation
		count := details.RSVPCount
		view.RSVPCount = &count
		ratings := details.Ratings
		view.Ratings = &ratings
		view.Creator = creator
		return view
	}

	settings, _ := event.Visibility()
	if settings.ShowDate {
		view.EventDate = formatEventDate(event.EventDate)
	}
	if settings.ShowTime {
		view.EventTime = event.EventTime
	}
	if settings.ShowBroadLocation {
		view.BroadLocation = event.BroadLocation
	}
	if settings.ShowSpecificLocation {
		view.SpecificLocation = event.SpecificLocation
	}
	if settings.ShowDescription {
		view.Description = event.Description
	}
	if settings.ShowRSVPCount {
		count := details.RSVPCount
		view.RSVPCount = &count
	}
	if settings.ShowRatings {
		ratings := details.Ratings
		view.Ratings = &ratings
	}
	if settings.ShowCreator {
		view.Creator = creator
	}
	return view
}

// onBoard reports whether an event may be listed on a community board: public events always, other
// events only when their date is both visible and set.
func onBoard(event models.Event) bool {
	if event.IsPublic {
		return true
	}
	settings, _ := event.Visibility()
	return settings.ShowDate && event.EventDate != nil
}

// creatorShown reports whether a view for viewerID would include the creator profile.
func creatorShown(event models.Event, viewerID string) bool {
	if event.IsPublic || (viewerID != "" && event.CreatorID == viewerID) {
		return true
	}
	settings, _ := event.Visibility()
	return settings.ShowCreator
}

// Keys returns the sorted JSON keys the view renders.
func (v EventView) Keys() []string {
	fields := v.fields()
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON renders the view with flat rating_aggregate and rating_count keys.
func (v EventView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.fields())
}

func (v EventView) fields() map[string]any {
	out := map[string]any{
		"id":           v.ID,
		"community_id": v.CommunityID,
		"title":        v.Title,
		"is_public":    v.IsPublic,
	}

	if v.Full {
		out["creator_id"] = v.CreatorID
		out["visibility_settings"] = v.VisibilitySettings
		out["is_active"] = v.IsActive
		out["created_at"] = v.CreatedAt
		out["updated_at"] = v.UpdatedAt
		out["description"] = v.Description
		out["event_date"] = v.EventDate
		out["event_time"] = v.EventTime
		out["broad_location"] = v.BroadLocation
		out["specific_location"] = v.SpecificLocation
	} else {
		setIfPresent(out, "description", v.Description)
		setIfPresent(out, "event_date", v.EventDate)
		setIfPresent(out, "event_time", v.EventTime)
		setIfPresent(out, "broad_location", v.BroadLocation)
		setIfPresent(out, "specific_location", v.SpecificLocation)
	}

	if v.RSVPCount != nil {
		out["rsvp_count"] = *v.RSVPCount
	}
	if v.Ratings != nil {
		out["rating_aggregate"] = v.Ratings.Aggregate
		out["rating_count"] = v.Ratings.Count
	}
	if v.Creator != nil {
		out["creator"] = v.Creator
	}
	return out
}

func setIfPresent(out map[string]any, key string, value *string) {
	if value != nil {
		out[key] = *value
	}
}

func formatEventDate(date *time.Time) *string {
	if date == nil {
		return nil
	}
	formatted := date.UTC().Format(models.DateLayout)
	return &formatted
}

// summariseRatings rounds the raw average to two decimals.
func summariseRatings(average *float64, count int64) RatingSummary {
	if average == nil || count == 0 {
		return RatingSummary{Count: count}
	}
	rounded := roundRating(*average)
	return RatingSummary{Aggregate: &rounded, Count: count}
}

func roundRating(value float64) float64 {
	return math.Round(value*100) / 100
}
