package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DateLayout is the wire and storage layout of event dates.
const DateLayout = "2006-01-02"

// VisibilitySettings holds the eight per-field toggles applied to non-public events.
type VisibilitySettings struct {
	ShowDate             bool `json:"show_date"`
	ShowTime             bool `json:"show_time"`
	ShowBroadLocation    bool `json:"show_broad_location"`
	ShowSpecificLocation bool `json:"show_specific_location"`
	ShowRSVPCount        bool `json:"show_rsvp_count"`
	ShowRatings          bool `json:"show_ratings"`
	ShowDescription      bool `json:"show_description"`
	ShowCreator          bool `json:"show_creator"`
}

// Event is an occurrence hosted by a community.
type Event struct {
	BaseModel

	CommunityID        string         `gorm:"type:uuid;not null;index" json:"community_id"`
	CreatorID          string         `gorm:"type:uuid;not null;index" json:"creator_id"`
	Title              string         `gorm:"not null;size:500" json:"title"`
	Description        *string        `json:"description"`
	EventDate          *time.Time     `gorm:"type:date;index" json:"event_date"`
	EventTime          *string        `gorm:"size:16" json:"event_time"`
	BroadLocation      *string        `gorm:"size:200" json:"broad_location"`
	SpecificLocation   *string        `gorm:"size:300" json:"specific_location"`
	IsPublic           bool           `gorm:"not null" json:"is_public"`
	VisibilitySettings datatypes.JSON `json:"visibility_settings"`
	IsActive           bool           `gorm:"not null;index" json:"is_active"`
}

// Visibility decodes the stored toggles. A NULL or unreadable column yields all-false settings and
// ok=false.
func (e *Event) Visibility() (settings VisibilitySettings, ok bool) {
	if e == nil || len(e.VisibilitySettings) == 0 {
		return VisibilitySettings{}, false
	}
	if err := json.Unmarshal(e.VisibilitySettings, &settings); err != nil {
		return VisibilitySettings{}, false
	}
	return settings, true
}

// SetVisibility encodes settings into the JSON column; nil clears it.
func (e *Event) SetVisibility(settings *VisibilitySettings) error {
	if settings == nil {
		e.VisibilitySettings = nil
		return nil
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	e.VisibilitySettings = datatypes.JSON(raw)
	return nil
}

// RSVP records that a user plans to attend an event.
type RSVP struct {
	EventID   string    `gorm:"primaryKey;type:uuid" json:"event_id"`
	UserID    string    `gorm:"primaryKey;type:uuid;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the default table name.
func (RSVP) TableName() string { return "event_rsvps" }

// Rating is a single user's 1..5 score for an event.
type Rating struct {
	EventID   string    `gorm:"primaryKey;type:uuid" json:"event_id"`
	UserID    string    `gorm:"primaryKey;type:uuid;index" json:"user_id"`
	Rating    int       `gorm:"not null;check:chk_event_ratings_rating,rating >= 1 AND rating <= 5" json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the default table name.
func (Rating) TableName() string { return "event_ratings" }
