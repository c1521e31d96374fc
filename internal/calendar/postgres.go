package calendar

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"volunteerhub.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const eventColumns = `id, organization_id, title, description, location, starts_at, ends_at, all_day, created_by, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*Event, error) {
	var e Event
	var description, location, createdBy sql.NullString
	if err := row.Scan(&e.ID, &e.OrganizationID, &e.Title, &description, &location,
		&e.StartsAt, &e.EndsAt, &e.AllDay, &createdBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e.Description = description.String
	e.Location = location.String
	e.CreatedBy = createdBy.String
	return &e, nil
}

func (s *PGStore) Create(ctx context.Context, evt *Event) error {
	if evt.ID == "" {
		evt.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into calendar_events(id, organization_id, title, description, location, starts_at, ends_at, all_day, created_by)
		 values($1,$2,$3,$4,$5,$6,$7,$8,nullif($9,''))
		 returning `+eventColumns,
		evt.ID, evt.OrganizationID, evt.Title, evt.Description, evt.Location,
		evt.StartsAt, evt.EndsAt, evt.AllDay, evt.CreatedBy)
	created, err := scanEvent(row)
	if err != nil {
		return err
	}
	*evt = *created
	return nil
}

func (s *PGStore) Find(ctx context.Context, orgID, id string) (*Event, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+eventColumns+` from calendar_events where organization_id=$1 and id=$2`, orgID, id)
	return scanEvent(row)
}

func (s *PGStore) List(ctx context.Context, orgID string, window Range) ([]*Event, error) {
	where := []string{"organization_id=$1"}
	args := []any{orgID}

	// Overlap semantics: an event is in the window when it ends after the
	// lower bound and starts before the upper one.
	if !window.From.IsZero() {
		args = append(args, window.From)
		where = append(where, fmt.Sprintf("ends_at >= $%d", len(args)))
	}
	if !window.To.IsZero() {
		args = append(args, window.To)
		where = append(where, fmt.Sprintf("starts_at <= $%d", len(args)))
	}

	query := `select ` + eventColumns + ` from calendar_events where ` +
		strings.Join(where, " and ") + ` order by starts_at`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, orgID, id string, upd Update) (*Event, error) {
	row := s.db.QueryRowContext(ctx,
		`update calendar_events set
			title       = coalesce($3, title),
			description = coalesce($4, description),
			location    = coalesce($5, location),
			starts_at   = coalesce($6, starts_at),
			ends_at     = coalesce($7, ends_at),
			all_day     = coalesce($8, all_day),
			updated_at  = now()
		 where organization_id=$1 and id=$2
		 returning `+eventColumns,
		orgID, id, upd.Title, upd.Description, upd.Location,
		upd.StartsAt, upd.EndsAt, upd.AllDay)
	return scanEvent(row)
}

func (s *PGStore) Delete(ctx context.Context, orgID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from calendar_events where organization_id=$1 and id=$2`, orgID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
