package tasks

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

const taskColumns = `id, organization_id, title, description, status, priority, assigned_to, due_date, created_by, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (*Task, error) {
	var t Task
	var description, assignedTo, createdBy sql.NullString
	var dueDate sql.NullTime
	if err := row.Scan(&t.ID, &t.OrganizationID, &t.Title, &description, &t.Status,
		&t.Priority, &assignedTo, &dueDate, &createdBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Description = description.String
	t.AssignedTo = assignedTo.String
	t.CreatedBy = createdBy.String
	if dueDate.Valid {
		d := dueDate.Time
		t.DueDate = &d
	}
	return &t, nil
}

func (s *PGStore) Create(ctx context.Context, task *Task) error {
	if task.ID == "" {
		task.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into tasks(id, organization_id, title, description, status, priority, assigned_to, due_date, created_by)
		 values($1,$2,$3,$4,$5,$6,nullif($7,''),$8,nullif($9,''))
		 returning `+taskColumns,
		task.ID, task.OrganizationID, task.Title, task.Description, task.Status,
		task.Priority, task.AssignedTo, task.DueDate, task.CreatedBy)
	created, err := scanTask(row)
	if err != nil {
		return err
	}
	*task = *created
	return nil
}

func (s *PGStore) Find(ctx context.Context, orgID, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+taskColumns+` from tasks where organization_id=$1 and id=$2`, orgID, id)
	return scanTask(row)
}

// List composes the WHERE clause from the filter; the organization scope is
// always the first predicate.
func (s *PGStore) List(ctx context.Context, orgID string, filter Filter) ([]*Task, error) {
	where := []string{"organization_id=$1"}
	args := []any{orgID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		where = append(where, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.DueBefore != nil {
		args = append(args, *filter.DueBefore)
		where = append(where, fmt.Sprintf("due_date < $%d", len(args)))
	}

	query := `select ` + taskColumns + ` from tasks where ` +
		strings.Join(where, " and ") + ` order by created_at desc`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, orgID, id string, upd Update) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`update tasks set
			title       = coalesce($3, title),
			description = coalesce($4, description),
			status      = coalesce($5, status),
			priority    = coalesce($6, priority),
			assigned_to = coalesce(nullif($7,''), assigned_to),
			due_date    = coalesce($8, due_date),
			updated_at  = now()
		 where organization_id=$1 and id=$2
		 returning `+taskColumns,
		orgID, id, upd.Title, upd.Description, upd.Status, upd.Priority,
		deref(upd.AssignedTo), upd.DueDate)
	return scanTask(row)
}

func (s *PGStore) Delete(ctx context.Context, orgID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from tasks where organization_id=$1 and id=$2`, orgID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
