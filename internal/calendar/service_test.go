package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	events map[string]*Event
	nextID int
}

func newMemStore() *memStore {
	return &memStore{events: make(map[string]*Event)}
}

func (m *memStore) Create(_ context.Context, evt *Event) error {
	m.nextID++
	evt.ID = "evt-" + string(rune('a'+m.nextID))
	cp := *evt
	m.events[evt.ID] = &cp
	return nil
}

func (m *memStore) Find(_ context.Context, orgID, id string) (*Event, error) {
	e, ok := m.events[id]
	if !ok || e.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) List(_ context.Context, orgID string, window Range) ([]*Event, error) {
	var res []*Event
	for _, e := range m.events {
		if e.OrganizationID != orgID {
			continue
		}
		if !window.From.IsZero() && e.EndsAt.Before(window.From) {
			continue
		}
		if !window.To.IsZero() && e.StartsAt.After(window.To) {
			continue
		}
		cp := *e
		res = append(res, &cp)
	}
	return res, nil
}

func (m *memStore) Update(_ context.Context, orgID, id string, upd Update) (*Event, error) {
	e, ok := m.events[id]
	if !ok || e.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	if upd.Title != nil {
		e.Title = *upd.Title
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, orgID, id string) error {
	e, ok := m.events[id]
	if !ok || e.OrganizationID != orgID {
		return ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	start := time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC)

	evt, err := svc.Create(context.Background(), "org-1", "user-1", CreateInput{
		Title:    "Beach cleanup",
		StartsAt: start,
	})
	require.NoError(t, err)
	assert.Equal(t, start, evt.EndsAt, "missing end defaults to start")

	_, err = svc.Create(context.Background(), "org-1", "user-1", CreateInput{StartsAt: start})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(context.Background(), "org-1", "user-1", CreateInput{Title: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(context.Background(), "org-1", "user-1", CreateInput{
		Title:    "x",
		StartsAt: start,
		EndsAt:   start.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListWindowValidation(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.List(context.Background(), "org-1", Range{From: from, To: from.Add(-time.Hour)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEventsAreTenantScoped(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	start := time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC)

	evt, err := svc.Create(context.Background(), "org-1", "user-1", CreateInput{
		Title:    "Fundraiser",
		StartsAt: start,
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "org-2", evt.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	listed, err := svc.List(context.Background(), "org-2", Range{})
	require.NoError(t, err)
	assert.Empty(t, listed)
}
