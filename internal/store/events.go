package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/comunitree/internal/models"
)

// EventFilter narrows ListEvents. Only active events are returned.
type EventFilter struct {
	CommunityIDs []string
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// RatingStats is the raw rating aggregate of one event.
type RatingStats struct {
	Average *float64
	Count   int64
}

// RSVPUserRow is an RSVP joined with its user profile.
type RSVPUserRow struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"rsvp_at"`
}

// UserRatingRow is a rating joined with its event title.
type UserRatingRow struct {
	EventID    string    `json:"event_id"`
	EventTitle string    `json:"event_title"`
	Rating     int       `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AttendedEventRow is an event together with the time the user RSVP'd to it.
type AttendedEventRow struct {
	models.Event
	RSVPAt time.Time `json:"rsvp_at"`
}

// CreateEvent inserts an event row.
func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	return translate("create event", s.conn(ctx).Create(event).Error)
}

// FindEvent loads an event by id. Inactive events are only returned when includeInactive is set.
func (s *Store) FindEvent(ctx context.Context, id string, includeInactive bool) (*models.Event, error) {
	var event models.Event
	query := s.conn(ctx).Where("id = ?", id)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Take(&event).Error; err != nil {
		return nil, translate("find event", err)
	}
	return &event, nil
}

// UpdateEvent applies column updates to an event.
func (s *Store) UpdateEvent(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.conn(ctx).Model(&models.Event{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate("update event", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("update event", gorm.ErrRecordNotFound)
	}
	return nil
}

// ListEvents returns active events of the filtered communities ordered by date then creation.
func (s *Store) ListEvents(ctx context.Context, filter EventFilter) ([]models.Event, error) {
	if len(filter.CommunityIDs) == 0 {
		return nil, nil
	}
	query := s.conn(ctx).
		Where("community_id IN ? AND is_active = ?", filter.CommunityIDs, true)
	if filter.From != nil {
		query = query.Where("event_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("event_date <= ?", *filter.To)
	}

	var events []models.Event
	query = query.Order("event_date ASC").Order("created_at ASC").Order("id ASC")
	if err := paginate(query, filter.Limit, filter.Offset).Find(&events).Error; err != nil {
		return nil, translate("list events", err)
	}
	return events, nil
}

// RSVPCount counts the RSVPs of an event.
func (s *Store) RSVPCount(ctx context.Context, eventID string) (int64, error) {
	counts, err := s.RSVPCounts(ctx, []string{eventID})
	if err != nil {
		return 0, err
	}
	return counts[eventID], nil
}

// RSVPCounts counts RSVPs for several events at once.
func (s *Store) RSVPCounts(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		EventID string
		Total   int64
	}
	err := s.conn(ctx).Model(&models.RSVP{}).
		Select("event_id, COUNT(*) AS total").
		Where("event_id IN ?", eventIDs).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate("count rsvps", err)
	}
	for _, row := range rows {
		out[row.EventID] = row.Total
	}
	return out, nil
}

// RatingAggregate returns the raw average and count of an event's ratings.
func (s *Store) RatingAggregate(ctx context.Context, eventID string) (RatingStats, error) {
	stats, err := s.RatingAggregates(ctx, []string{eventID})
	if err != nil {
		return RatingStats{}, err
	}
	return stats[eventID], nil
}

// RatingAggregates returns raw rating aggregates for several events. Events without ratings are
// absent from the map.
func (s *Store) RatingAggregates(ctx context.Context, eventIDs []string) (map[string]RatingStats, error) {
	out := make(map[string]RatingStats, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		EventID string
		Average *float64
		Total   int64
	}
	err := s.conn(ctx).Model(&models.Rating{}).
		Select("event_id, AVG(rating) AS average, COUNT(*) AS total").
		Where("event_id IN ?", eventIDs).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate("aggregate ratings", err)
	}
	for _, row := range rows {
		out[row.EventID] = RatingStats{Average: row.Average, Count: row.Total}
	}
	return out, nil
}

// AddRSVP records an RSVP, leaving an existing one untouched. It reports whether a row was inserted.
func (s *Store) AddRSVP(ctx context.Context, eventID, userID string) (bool, error) {
	res := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&models.RSVP{EventID: eventID, UserID: userID})
	if res.Error != nil {
		return false, translate("add rsvp", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RemoveRSVP deletes an RSVP and reports whether one existed.
func (s *Store) RemoveRSVP(ctx context.Context, eventID, userID string) (bool, error) {
	res := s.conn(ctx).Where("event_id = ? AND user_id = ?", eventID, userID).Delete(&models.RSVP{})
	if res.Error != nil {
		return false, translate("remove rsvp", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// HasRSVP reports whether userID has RSVP'd to eventID.
func (s *Store) HasRSVP(ctx context.Context, eventID, userID string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.RSVP{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	if err != nil {
		return false, translate("has rsvp", err)
	}
	return count > 0, nil
}

// ListRSVPUsers returns the users who RSVP'd to eventID in RSVP order.
func (s *Store) ListRSVPUsers(ctx context.Context, eventID string) ([]RSVPUserRow, error) {
	var rows []RSVPUserRow
	err := s.conn(ctx).Table("event_rsvps AS r").
		Select("r.user_id, u.username, u.display_name, r.created_at").
		Joins("JOIN users AS u ON u.id = r.user_id AND u.is_active = ?", true).
		Where("r.event_id = ?", eventID).
		Order("r.created_at ASC").Order("r.user_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, translate("list rsvp users", err)
	}
	return rows, nil
}

// UpsertRating inserts or replaces userID's rating of eventID.
func (s *Store) UpsertRating(ctx context.Context, eventID, userID string, rating int) error {
	now := time.Now().UTC()
	row := models.Rating{EventID: eventID, UserID: userID, Rating: rating, CreatedAt: now, UpdatedAt: now}
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(&row).Error
	return translate("upsert rating", err)
}

// FindRating loads userID's rating of eventID.
func (s *Store) FindRating(ctx context.Context, eventID, userID string) (*models.Rating, error) {
	var rating models.Rating
	err := s.conn(ctx).Where("event_id = ? AND user_id = ?", eventID, userID).Take(&rating).Error
	if err != nil {
		return nil, translate("find rating", err)
	}
	return &rating, nil
}

// ListAttendedEvents returns the active events userID has RSVP'd to, most recent RSVP first.
func (s *Store) ListAttendedEvents(ctx context.Context, userID string, limit, offset int) ([]AttendedEventRow, error) {
	var rows []AttendedEventRow
	query := s.conn(ctx).Table("event_rsvps AS r").
		Select("e.*, r.created_at AS rsvp_at").
		Joins("JOIN events AS e ON e.id = r.event_id AND e.is_active = ?", true).
		Where("r.user_id = ?", userID).
		Order("r.created_at DESC").Order("e.id ASC")
	if err := paginate(query, limit, offset).Scan(&rows).Error; err != nil {
		return nil, translate("list attended events", err)
	}
	return rows, nil
}

// UserRatings returns userID's ratings keyed by event id, limited to eventIDs.
func (s *Store) UserRatings(ctx context.Context, userID string, eventIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	var rows []models.Rating
	if err := s.conn(ctx).Where("user_id = ? AND event_id IN ?", userID, eventIDs).Find(&rows).Error; err != nil {
		return nil, translate("user ratings", err)
	}
	for _, row := range rows {
		out[row.EventID] = row.Rating
	}
	return out, nil
}

// ListUserRatings returns the ratings userID has given to active events, most recent first.
func (s *Store) ListUserRatings(ctx context.Context, userID string, limit, offset int) ([]UserRatingRow, error) {
	var rows []UserRatingRow
	query := s.conn(ctx).Table("event_ratings AS r").
		Select("r.event_id, e.title AS event_title, r.rating, r.created_at, r.updated_at").
		Joins("JOIN events AS e ON e.id = r.event_id AND e.is_active = ?", true).
		Where("r.user_id = ?", userID).
		Order("r.updated_at DESC").Order("r.event_id ASC")
	if err := paginate(query, limit, offset).Scan(&rows).Error; err != nil {
		return nil, translate("list user ratings", err)
	}
	return rows, nil
}
