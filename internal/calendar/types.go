package calendar

import (
	"errors"
	"time"
)

// Event is one calendar entry within an organization.
type Event struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	AllDay         bool      `json:"all_day"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateInput carries the fields a caller may set on creation.
type CreateInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	AllDay      bool      `json:"all_day"`
}

// Update carries optional field changes; nil means unchanged.
type Update struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	AllDay      *bool      `json:"all_day"`
}

// Range narrows event listings to a time window. Zero bounds are open.
type Range struct {
	From time.Time
	To   time.Time
}

var (
	ErrNotFound     = errors.New("calendar: not found")
	ErrInvalidInput = errors.New("calendar: invalid input")
)
