package tasks

import (
	"context"
	"fmt"
	"strings"

	"volunteerhub.org/internal/activity"
)

// Store describes task persistence. Every operation is organization-scoped.
type Store interface {
	Create(ctx context.Context, task *Task) error
	Find(ctx context.Context, orgID, id string) (*Task, error)
	List(ctx context.Context, orgID string, filter Filter) ([]*Task, error)
	Update(ctx context.Context, orgID, id string, upd Update) (*Task, error)
	Delete(ctx context.Context, orgID, id string) error
}

// Service validates input, delegates to the store and publishes activity
// events.
type Service struct {
	store Store
	feed  *activity.Feed
}

// NewService constructs the task service. feed may be nil in tests.
func NewService(store Store, feed *activity.Feed) *Service {
	return &Service{store: store, feed: feed}
}

// Create adds a task to the organization.
func (s *Service) Create(ctx context.Context, orgID, createdBy string, in CreateInput) (*Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !validPriority(priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, in.Priority)
	}

	task := &Task{
		OrganizationID: orgID,
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Status:         StatusOpen,
		Priority:       priority,
		AssignedTo:     in.AssignedTo,
		DueDate:        in.DueDate,
		CreatedBy:      createdBy,
	}
	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}
	s.publish(activity.Event{
		Kind:           activity.KindTaskCreated,
		OrganizationID: orgID,
		Actor:          createdBy,
		Subject:        task.ID,
		Title:          task.Title,
	})
	return task, nil
}

// Get fetches one task within the organization scope.
func (s *Service) Get(ctx context.Context, orgID, id string) (*Task, error) {
	return s.store.Find(ctx, orgID, id)
}

// List returns the organization's tasks narrowed by filter.
func (s *Service) List(ctx context.Context, orgID string, filter Filter) ([]*Task, error) {
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	return s.store.List(ctx, orgID, filter)
}

// Apply updates a task. Status transitions to done publish a completion
// event.
func (s *Service) Apply(ctx context.Context, orgID, id, actor string, upd Update) (*Task, error) {
	if upd.Status != nil && !validStatus(*upd.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *upd.Status)
	}
	if upd.Priority != nil && !validPriority(*upd.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *upd.Priority)
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}

	before, err := s.store.Find(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	task, err := s.store.Update(ctx, orgID, id, upd)
	if err != nil {
		return nil, err
	}
	if before.Status != StatusDone && task.Status == StatusDone {
		s.publish(activity.Event{
			Kind:           activity.KindTaskCompleted,
			OrganizationID: orgID,
			Actor:          actor,
			Subject:        task.ID,
			Title:          task.Title,
		})
	}
	return task, nil
}

// Assign sets the assignee.
func (s *Service) Assign(ctx context.Context, orgID, id, userID string) (*Task, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Update(ctx, orgID, id, Update{AssignedTo: &userID})
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	return s.store.Delete(ctx, orgID, id)
}

func (s *Service) publish(evt activity.Event) {
	if s.feed != nil {
		s.feed.Publish(evt)
	}
}
