package tasks

import (
	"errors"
	"time"
)

// Task statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is one volunteer assignment within an organization.
type Task struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	AssignedTo     string     `json:"assigned_to,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CreatedBy      string     `json:"created_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CreateInput carries the fields a caller may set on creation.
type CreateInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	AssignedTo  string     `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
}

// Update carries optional field changes; nil means unchanged.
type Update struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	AssignedTo  *string    `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
}

// Filter narrows task listings.
type Filter struct {
	Status     string
	AssignedTo string
	DueBefore  *time.Time
}

var (
	ErrNotFound     = errors.New("tasks: not found")
	ErrInvalidInput = errors.New("tasks: invalid input")
)

func validStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func validPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
