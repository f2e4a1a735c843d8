package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/comunitree/internal/models"
	"github.com/charlesng35/comunitree/internal/store"
	apperrors "github.com/charlesng35/comunitree/pkg/errors"
)

const (
	maxEventTitleLength = 500
	minRating           = 1
	maxRating           = 5
)

// CreateEventInput captures a new event. An empty CommunityID hosts the event in the creator's
// friend group. A nil IsPublic means public.
type CreateEventInput struct {
	CommunityID        string
	Title              string
	Description        *string
	EventDate          string
	EventTime          *string
	BroadLocation      *string
	SpecificLocation   *string
	IsPublic           *bool
	VisibilitySettings *models.VisibilitySettings
}

// UpdateEventInput describes mutable event fields. Nil fields are left untouched; an empty string
// clears an optional text field or the date.
type UpdateEventInput struct {
	Title              *string
	Description        *string
	EventDate          *string
	EventTime          *string
	BroadLocation      *string
	SpecificLocation   *string
	IsPublic           *bool
	VisibilitySettings *models.VisibilitySettings
	IsActive           *bool
}

// EventListOptions narrows a community board listing. From and To bound the event date inclusively.
type EventListOptions struct {
	Page Page
	From *time.Time
	To   *time.Time
}

// DeleteResult is returned by DeleteEvent.
type DeleteResult struct {
	Deleted bool `json:"deleted"`
}

// RSVPStatus reports whether a user has RSVP'd.
type RSVPStatus struct {
	RSVPed bool `json:"rsvped"`
}

// RSVPListing is the RSVP view of an event. Users is only populated for the creator; everyone else
// receives the count.
type RSVPListing struct {
	Count int64
	Users []store.RSVPUserRow
}

// MarshalJSON renders the user list for creators and {"count": n} for everyone else.
func (l RSVPListing) MarshalJSON() ([]byte, error) {
	if l.Users != nil {
		return json.Marshal(l.Users)
	}
	return json.Marshal(map[string]int64{"count": l.Count})
}

// RatingResult echoes a stored rating.
type RatingResult struct {
	Rating int `json:"rating"`
}

// MyRatingResult reports the caller's rating, nil when they have not rated.
type MyRatingResult struct {
	Rating *int `json:"rating"`
}

// AttendedEvent is an event the user RSVP'd to, with their own rating.
type AttendedEvent struct {
	Event    EventView
	RSVPAt   time.Time
	MyRating *int
}

// MarshalJSON flattens the event view alongside rsvp_at and my_rating.
func (a AttendedEvent) MarshalJSON() ([]byte, error) {
	fields := a.Event.fields()
	fields["rsvp_at"] = a.RSVPAt
	fields["my_rating"] = a.MyRating
	return json.Marshal(fields)
}

// EventService hosts events inside communities and presents them through the visibility mask.
type EventService struct {
	store       *store.Store
	communities *CommunityService
	membership  *MembershipService
	audit       *AuditService
}

// NewEventService constructs an EventService instance.
func NewEventService(st *store.Store, communities *CommunityService, membership *MembershipService, audit *AuditService) (*EventService, error) {
	if st == nil {
		return nil, errors.New("event service: store is required")
	}
	if communities == nil || membership == nil {
		return nil, errors.New("event service: community and membership services are required")
	}
	return &EventService{store: st, communities: communities, membership: membership, audit: audit}, nil
}

// CreateEvent hosts a new event in a community the creator belongs to and returns the creator's
// full view of it.
func (s *EventService) CreateEvent(ctx context.Context, creatorID string, input CreateEventInput) (view *EventView, err error) {
	ctx = ensureContext(ctx)
	defer track("event.create", &err)

	title, err := normaliseTitle(input.Title)
	if err != nil {
		return nil, err
	}
	eventDate, err := parseEventDate(input.EventDate)
	if err != nil {
		return nil, err
	}

	communityID := strings.TrimSpace(input.CommunityID)
	if communityID == "" {
		group, err := s.communities.FriendGroupForUser(ctx, creatorID)
		if errors.Is(err, ErrFriendGroupMissing) {
			return nil, ErrNoFriendCommunity
		}
		if err != nil {
			return nil, err
		}
		communityID = group.ID
	}

	community, err := s.store.FindCommunity(ctx, communityID, false)
	if isNotFound(err) {
		return nil, ErrNotFound.WithMessage("Community not found")
	}
	if err != nil {
		return nil, fmt.Errorf("event service: load community: %w", err)
	}
	member, err := s.membership.IsMember(ctx, creatorID, community.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotMember.WithMessage("You must be a member of the community to create an event")
	}

	isPublic := input.IsPublic == nil || *input.IsPublic
	settings := input.VisibilitySettings
	if !isPublic && settings == nil {
		settings = &models.VisibilitySettings{}
	}

	event := &models.Event{
		CommunityID:      community.ID,
		CreatorID:        creatorID,
		Title:            title,
		Description:      trimOptional(input.Description),
		EventDate:        eventDate,
		EventTime:        trimOptional(input.EventTime),
		BroadLocation:    trimOptional(input.BroadLocation),
		SpecificLocation: trimOptional(input.SpecificLocation),
		IsPublic:         isPublic,
		IsActive:         true,
	}
	if err := event.SetVisibility(settings); err != nil {
		return nil, fmt.Errorf("event service: encode visibility: %w", err)
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("event service: create event: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   actor(creatorID),
		Action:   "event.create",
		Resource: event.ID,
		Metadata: map[string]any{"community_id": community.ID, "is_public": isPublic},
	})

	return s.present(ctx, event, creatorID)
}

// GetEvent returns the active event masked for viewerID.
func (s *EventService) GetEvent(ctx context.Context, eventID, viewerID string) (*EventView, error) {
	ctx = ensureContext(ctx)

	event, err := s.loadEvent(ctx, eventID, false)
	if err != nil {
		return nil, err
	}
	return s.present(ctx, event, viewerID)
}

// ListEventsForCommunity returns the board of an active community masked for viewerID. A location
// board includes the events of its active sub-communities; a private board is empty for
// non-members. Events whose date the viewer may not see are left off the board.
func (s *EventService) ListEventsForCommunity(ctx context.Context, communityID, viewerID string, opts EventListOptions) ([]EventView, error) {
	ctx = ensureContext(ctx)
	page := opts.Page.normalise()

	community, err := s.store.FindCommunity(ctx, communityID, false)
	if isNotFound(err) {
		return []EventView{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("event service: load community: %w", err)
	}

	communityIDs := []string{community.ID}
	switch community.Type {
	case models.CommunityTypeLocation:
		children, err := s.store.ChildCommunityIDs(ctx, community.ID)
		if err != nil {
			return nil, fmt.Errorf("event service: load sub-communities: %w", err)
		}
		communityIDs = append(communityIDs, children...)
	case models.CommunityTypePrivate:
		if viewerID == "" {
			return []EventView{}, nil
		}
		member, err := s.membership.IsMember(ctx, viewerID, community.ID)
		if err != nil {
			return nil, err
		}
		if !member {
			return []EventView{}, nil
		}
	}

	events, err := s.store.ListEvents(ctx, store.EventFilter{
		CommunityIDs: communityIDs,
		From:         normaliseDate(opts.From),
		To:           normaliseDate(opts.To),
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("event service: list events: %w", err)
	}

	board := make([]models.Event, 0, len(events))
	for _, event := range events {
		if onBoard(event) {
			board = append(board, event)
		}
	}
	return s.presentMany(ctx, board, viewerID)
}

// UpdateEvent applies changes to an event. Only the creator may update it, including inactive
// events.
func (s *EventService) UpdateEvent(ctx context.Context, eventID, userID string, input UpdateEventInput) (view *EventView, err error) {
	ctx = ensureContext(ctx)
	defer track("event.update", &err)

	event, err := s.loadOwnedEvent(ctx, eventID, userID, "update")
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title, err := normaliseTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = trimOptional(input.Description)
	}
	if input.EventDate != nil {
		date, err := parseEventDate(*input.EventDate)
		if err != nil {
			return nil, err
		}
		updates["event_date"] = date
	}
	if input.EventTime != nil {
		updates["event_time"] = trimOptional(input.EventTime)
	}
	if input.BroadLocation != nil {
		updates["broad_location"] = trimOptional(input.BroadLocation)
	}
	if input.SpecificLocation != nil {
		updates["specific_location"] = trimOptional(input.SpecificLocation)
	}
	if input.IsPublic != nil {
		updates["is_public"] = *input.IsPublic
	}
	if input.VisibilitySettings != nil {
		var encoded models.Event
		if err := encoded.SetVisibility(input.VisibilitySettings); err != nil {
			return nil, fmt.Errorf("event service: encode visibility: %w", err)
		}
		updates["visibility_settings"] = encoded.VisibilitySettings
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) > 0 {
		if err := s.store.UpdateEvent(ctx, event.ID, updates); err != nil {
			return nil, fmt.Errorf("event service: update event: %w", err)
		}
		fields := make([]string, 0, len(updates))
		for field := range updates {
			fields = append(fields, field)
		}
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:   actor(userID),
			Action:   "event.update",
			Resource: event.ID,
			Metadata: map[string]any{"fields": fields},
		})
	}

	updated, err := s.loadEvent(ctx, event.ID, true)
	if err != nil {
		return nil, err
	}
	return s.present(ctx, updated, userID)
}

// DeleteEvent deactivates an event. Only the creator may delete it.
func (s *EventService) DeleteEvent(ctx context.Context, eventID, userID string) (result *DeleteResult, err error) {
	ctx = ensureContext(ctx)
	defer track("event.delete", &err)

	event, err := s.loadOwnedEvent(ctx, eventID, userID, "delete")
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateEvent(ctx, event.ID, map[string]any{"is_active": false}); err != nil {
		return nil, fmt.Errorf("event service: delete event: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   actor(userID),
		Action:   "event.delete",
		Resource: event.ID,
	})
	return &DeleteResult{Deleted: true}, nil
}

// RSVP records that userID plans to attend an active event. Repeating it is a no-op.
func (s *EventService) RSVP(ctx context.Context, eventID, userID string) (status *RSVPStatus, err error) {
	ctx = ensureContext(ctx)
	defer track("event.rsvp", &err)

	event, err := s.loadEvent(ctx, eventID, false)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.AddRSVP(ctx, event.ID, userID); err != nil {
		return nil, fmt.Errorf("event service: add rsvp: %w", err)
	}
	return &RSVPStatus{RSVPed: true}, nil
}

// RemoveRSVP withdraws userID's RSVP. It succeeds whether or not one existed.
func (s *EventService) RemoveRSVP(ctx context.Context, eventID, userID string) (status *RSVPStatus, err error) {
	ctx = ensureContext(ctx)
	defer track("event.rsvp_remove", &err)

	if _, err := s.store.RemoveRSVP(ctx, eventID, userID); err != nil {
		return nil, fmt.Errorf("event service: remove rsvp: %w", err)
	}
	return &RSVPStatus{RSVPed: false}, nil
}

// ListRSVPs returns who RSVP'd to the creator and the RSVP count to everyone else. For a non-public
// event the count is only available when the event shows it.
func (s *EventService) ListRSVPs(ctx context.Context, eventID, requesterID string) (*RSVPListing, error) {
	ctx = ensureContext(ctx)

	event, err := s.loadEvent(ctx, eventID, false)
	if err != nil {
		return nil, err
	}

	if event.CreatorID == requesterID && requesterID != "" {
		users, err := s.store.ListRSVPUsers(ctx, event.ID)
		if err != nil {
			return nil, fmt.Errorf("event service: list rsvps: %w", err)
		}
		if users == nil {
			users = []store.RSVPUserRow{}
		}
		return &RSVPListing{Count: int64(len(users)), Users: users}, nil
	}

	settings, _ := event.Visibility()
	if !event.IsPublic && !settings.ShowRSVPCount {
		return nil, ErrForbidden.WithMessage("RSVPs are hidden for this event")
	}
	count, err := s.store.RSVPCount(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("event service: count rsvps: %w", err)
	}
	return &RSVPListing{Count: count}, nil
}

// MyRSVP reports whether userID has RSVP'd to eventID.
func (s *EventService) MyRSVP(ctx context.Context, eventID, userID string) (*RSVPStatus, error) {
	ctx = ensureContext(ctx)

	rsvped, err := s.store.HasRSVP(ctx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("event service: load rsvp: %w", err)
	}
	return &RSVPStatus{RSVPed: rsvped}, nil
}

// RateEvent stores or replaces userID's 1..5 rating of an active event.
func (s *EventService) RateEvent(ctx context.Context, eventID, userID string, rating int) (result *RatingResult, err error) {
	ctx = ensureContext(ctx)
	defer track("event.rate", &err)

	if rating < minRating || rating > maxRating {
		return nil, ErrInvalidRating
	}
	event, err := s.loadEvent(ctx, eventID, false)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertRating(ctx, event.ID, userID, rating); err != nil {
		return nil, fmt.Errorf("event service: rate event: %w", err)
	}
	return &RatingResult{Rating: rating}, nil
}

// RatingAggregate returns the anonymous rating summary of an active event. For a non-public event
// only the creator sees it unless the event shows ratings.
func (s *EventService) RatingAggregate(ctx context.Context, eventID, viewerID string) (*RatingSummary, error) {
	ctx = ensureContext(ctx)

	event, err := s.loadEvent(ctx, eventID, false)
	if err != nil {
		return nil, err
	}
	settings, _ := event.Visibility()
	isCreator := viewerID != "" && event.CreatorID == viewerID
	if !event.IsPublic && !isCreator && !settings.ShowRatings {
		return nil, ErrForbidden.WithMessage("Ratings are hidden for this event")
	}

	stats, err := s.store.RatingAggregate(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("event service: aggregate ratings: %w", err)
	}
	summary := summariseRatings(stats.Average, stats.Count)
	return &summary, nil
}

// MyRating returns userID's rating of eventID, if any.
func (s *EventService) MyRating(ctx context.Context, eventID, userID string) (*MyRatingResult, error) {
	ctx = ensureContext(ctx)

	rating, err := s.store.FindRating(ctx, eventID, userID)
	if isNotFound(err) {
		return &MyRatingResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("event service: load rating: %w", err)
	}
	value := rating.Rating
	return &MyRatingResult{Rating: &value}, nil
}

// ListAttendedEvents returns the active events userID RSVP'd to, most recent RSVP first, masked
// for userID and annotated with their rating.
func (s *EventService) ListAttendedEvents(ctx context.Context, userID string, page Page) ([]AttendedEvent, error) {
	ctx = ensureContext(ctx)
	page = page.normalise()

	rows, err := s.store.ListAttendedEvents(ctx, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("event service: list attended events: %w", err)
	}

	events := make([]models.Event, 0, len(rows))
	eventIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.Event)
		eventIDs = append(eventIDs, row.Event.ID)
	}
	views, err := s.presentMany(ctx, events, userID)
	if err != nil {
		return nil, err
	}
	ratings, err := s.store.UserRatings(ctx, userID, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("event service: load my ratings: %w", err)
	}

	out := make([]AttendedEvent, 0, len(rows))
	for i, row := range rows {
		attended := AttendedEvent{Event: views[i], RSVPAt: row.RSVPAt}
		if rating, ok := ratings[row.Event.ID]; ok {
			attended.MyRating = &rating
		}
		out = append(out, attended)
	}
	return out, nil
}

// ListMyRatings returns the ratings userID gave to active events, most recent first.
func (s *EventService) ListMyRatings(ctx context.Context, userID string, page Page) ([]store.UserRatingRow, error) {
	ctx = ensureContext(ctx)
	page = page.normalise()

	rows, err := s.store.ListUserRatings(ctx, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("event service: list my ratings: %w", err)
	}
	if rows == nil {
		rows = []store.UserRatingRow{}
	}
	return rows, nil
}

func (s *EventService) loadEvent(ctx context.Context, eventID string, includeInactive bool) (*models.Event, error) {
	event, err := s.store.FindEvent(ctx, eventID, includeInactive)
	if isNotFound(err) {
		return nil, ErrNotFound.WithMessage("Event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("event service: load event: %w", err)
	}
	return event, nil
}

func (s *EventService) loadOwnedEvent(ctx context.Context, eventID, userID, verb string) (*models.Event, error) {
	event, err := s.loadEvent(ctx, eventID, true)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != userID {
		return nil, ErrForbidden.WithMessage("Only the creator can " + verb + " this event")
	}
	return event, nil
}

// present builds the masked view of a single event, loading the creator profile only when the
// view would include it.
func (s *EventService) present(ctx context.Context, event *models.Event, viewerID string) (*EventView, error) {
	rsvps, err := s.store.RSVPCount(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("event service: count rsvps: %w", err)
	}
	stats, err := s.store.RatingAggregate(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("event service: aggregate ratings: %w", err)
	}

	var creator *CreatorProfile
	if creatorShown(*event, viewerID) {
		user, err := s.store.FindUser(ctx, event.CreatorID)
		switch {
		case err == nil && user.IsActive:
			creator = creatorProfileOf(*user)
		case err != nil && !isNotFound(err):
			return nil, fmt.Errorf("event service: load creator: %w", err)
		}
	}

	view := ApplyVisibility(EventDetails{
		Event:     *event,
		RSVPCount: rsvps,
		Ratings:   summariseRatings(stats.Average, stats.Count),
	}, viewerID, creator)
	return &view, nil
}

// presentMany masks several events with batched aggregate and creator lookups, preserving order.
func (s *EventService) presentMany(ctx context.Context, events []models.Event, viewerID string) ([]EventView, error) {
	if len(events) == 0 {
		return []EventView{}, nil
	}

	eventIDs := make([]string, 0, len(events))
	var creatorIDs []string
	for _, event := range events {
		eventIDs = append(eventIDs, event.ID)
		if creatorShown(event, viewerID) {
			creatorIDs = append(creatorIDs, event.CreatorID)
		}
	}

	rsvps, err := s.store.RSVPCounts(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("event service: count rsvps: %w", err)
	}
	ratings, err := s.store.RatingAggregates(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("event service: aggregate ratings: %w", err)
	}
	creators, err := s.store.FindUsers(ctx, normaliseIDs(creatorIDs))
	if err != nil {
		return nil, fmt.Errorf("event service: load creators: %w", err)
	}

	views := make([]EventView, 0, len(events))
	for _, event := range events {
		var creator *CreatorProfile
		if user, ok := creators[event.CreatorID]; ok && user.IsActive && creatorShown(event, viewerID) {
			creator = creatorProfileOf(user)
		}
		stats := ratings[event.ID]
		views = append(views, ApplyVisibility(EventDetails{
			Event:     event,
			RSVPCount: rsvps[event.ID],
			Ratings:   summariseRatings(stats.Average, stats.Count),
		}, viewerID, creator))
	}
	return views, nil
}

func normaliseTitle(value string) (string, error) {
	title := strings.TrimSpace(value)
	if title == "" {
		return "", apperrors.NewBadRequest("title is required")
	}
	if len([]rune(title)) > maxEventTitleLength {
		return "", apperrors.NewBadRequest("title must be at most 500 characters")
	}
	return title, nil
}

// parseEventDate accepts YYYY-MM-DD or an RFC 3339 timestamp and keeps the calendar date at UTC
// midnight. An empty value means no date.
func parseEventDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(models.DateLayout, value); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, apperrors.NewBadRequest("event_date must be an ISO 8601 date")
	}
	return normaliseDate(&parsed), nil
}

func normaliseDate(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	y, m, d := value.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &date
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
