package calendar

import (
	"context"
	"fmt"
	"strings"

	"volunteerhub.org/internal/activity"
)

// Store describes event persistence. Every operation is organization-scoped.
type Store interface {
	Create(ctx context.Context, evt *Event) error
	Find(ctx context.Context, orgID, id string) (*Event, error)
	List(ctx context.Context, orgID string, window Range) ([]*Event, error)
	Update(ctx context.Context, orgID, id string, upd Update) (*Event, error)
	Delete(ctx context.Context, orgID, id string) error
}

// Service validates input and publishes scheduling events to the activity
// feed.
type Service struct {
	store Store
	feed  *activity.Feed
}

func NewService(store Store, feed *activity.Feed) *Service {
	return &Service{store: store, feed: feed}
}

// Create adds an event to the organization's calendar.
func (s *Service) Create(ctx context.Context, orgID, createdBy string, in CreateInput) (*Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.StartsAt.IsZero() {
		return nil, fmt.Errorf("%w: starts_at is required", ErrInvalidInput)
	}
	if in.EndsAt.IsZero() {
		in.EndsAt = in.StartsAt
	}
	if in.EndsAt.Before(in.StartsAt) {
		return nil, fmt.Errorf("%w: ends_at precedes starts_at", ErrInvalidInput)
	}

	evt := &Event{
		OrganizationID: orgID,
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Location:       strings.TrimSpace(in.Location),
		StartsAt:       in.StartsAt.UTC(),
		EndsAt:         in.EndsAt.UTC(),
		AllDay:         in.AllDay,
		CreatedBy:      createdBy,
	}
	if err := s.store.Create(ctx, evt); err != nil {
		return nil, err
	}
	if s.feed != nil {
		s.feed.Publish(activity.Event{
			Kind:           activity.KindEventScheduled,
			OrganizationID: orgID,
			Actor:          createdBy,
			Subject:        evt.ID,
			Title:          evt.Title,
		})
	}
	return evt, nil
}

// Get fetches one event within the organization scope.
func (s *Service) Get(ctx context.Context, orgID, id string) (*Event, error) {
	return s.store.Find(ctx, orgID, id)
}

// List returns events overlapping the window, ordered by start time.
func (s *Service) List(ctx context.Context, orgID string, window Range) ([]*Event, error) {
	if !window.From.IsZero() && !window.To.IsZero() && window.To.Before(window.From) {
		return nil, fmt.Errorf("%w: window end precedes start", ErrInvalidInput)
	}
	return s.store.List(ctx, orgID, window)
}

// Apply updates an event.
func (s *Service) Apply(ctx context.Context, orgID, id string, upd Update) (*Event, error) {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if upd.StartsAt != nil && upd.EndsAt != nil && upd.EndsAt.Before(*upd.StartsAt) {
		return nil, fmt.Errorf("%w: ends_at precedes starts_at", ErrInvalidInput)
	}
	return s.store.Update(ctx, orgID, id, upd)
}

// Delete removes an event.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	return s.store.Delete(ctx, orgID, id)
}
