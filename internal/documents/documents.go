// Package documents manages titled document links per organization. Upload
// and blob storage are a separate concern; the service only records where a
// document lives.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"volunteerhub.org/internal/activity"
	"volunteerhub.org/internal/ids"
)

// Document is one titled link within an organization.
type Document struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Title          string    `json:"title"`
	Category       string    `json:"category,omitempty"`
	URL            string    `json:"url"`
	UploadedBy     string    `json:"uploaded_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateInput carries the fields a caller may set on creation.
type CreateInput struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

var (
	ErrNotFound     = errors.New("documents: not found")
	ErrInvalidInput = errors.New("documents: invalid input")
)

// Store describes document persistence.
type Store interface {
	Create(ctx context.Context, doc *Document) error
	List(ctx context.Context, orgID, category string) ([]*Document, error)
	Delete(ctx context.Context, orgID, id string) error
}

// Service validates and persists document links.
type Service struct {
	store Store
	feed  *activity.Feed
}

func NewService(store Store, feed *activity.Feed) *Service {
	return &Service{store: store, feed: feed}
}

// Create records a document link for the organization.
func (s *Service) Create(ctx context.Context, orgID, uploadedBy string, in CreateInput) (*Document, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	raw := strings.TrimSpace(in.URL)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: url must be absolute", ErrInvalidInput)
	}

	doc := &Document{
		OrganizationID: orgID,
		Title:          title,
		Category:       strings.TrimSpace(in.Category),
		URL:            raw,
		UploadedBy:     uploadedBy,
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, err
	}
	if s.feed != nil {
		s.feed.Publish(activity.Event{
			Kind:           activity.KindDocumentAdded,
			OrganizationID: orgID,
			Actor:          uploadedBy,
			Subject:        doc.ID,
			Title:          doc.Title,
		})
	}
	return doc, nil
}

// List returns the organization's documents, optionally filtered by category.
func (s *Service) List(ctx context.Context, orgID, category string) ([]*Document, error) {
	return s.store.List(ctx, orgID, strings.TrimSpace(category))
}

// Delete removes a document link.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	return s.store.Delete(ctx, orgID, id)
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const docColumns = `id, organization_id, title, category, url, uploaded_by, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*Document, error) {
	var d Document
	var category, uploadedBy sql.NullString
	if err := row.Scan(&d.ID, &d.OrganizationID, &d.Title, &category, &d.URL,
		&uploadedBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d.Category = category.String
	d.UploadedBy = uploadedBy.String
	return &d, nil
}

func (s *PGStore) Create(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into documents(id, organization_id, title, category, url, uploaded_by)
		 values($1,$2,$3,nullif($4,''),$5,nullif($6,''))
		 returning `+docColumns,
		doc.ID, doc.OrganizationID, doc.Title, doc.Category, doc.URL, doc.UploadedBy)
	created, err := scanDocument(row)
	if err != nil {
		return err
	}
	*doc = *created
	return nil
}

func (s *PGStore) List(ctx context.Context, orgID, category string) ([]*Document, error) {
	query := `select ` + docColumns + ` from documents where organization_id=$1`
	args := []any{orgID}
	if category != "" {
		query += ` and category=$2`
		args = append(args, category)
	}
	query += ` order by created_at desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (s *PGStore) Delete(ctx context.Context, orgID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from documents where organization_id=$1 and id=$2`, orgID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
