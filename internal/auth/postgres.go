package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"volunteerhub.org/internal/ids"
)

const pgErrUniqueViolation = "23505"

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapInsertError turns a unique violation into ErrConflict so handlers can
// answer 409 instead of 500.
func mapInsertError(err error) error {
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return ErrConflict
	}
	return err
}

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) SuperAdmins(context.Context) SuperAdminStore { return &superAdminStore{db: s.db} }
func (s *PGStore) Organizations(context.Context) OrganizationStore {
	return &organizationStore{db: s.db}
}
func (s *PGStore) Whitelist(context.Context) WhitelistStore { return &whitelistStore{db: s.db} }
func (s *PGStore) Users(context.Context) UserStore          { return &userStore{db: s.db} }

// Super admin store --------------------------------------------------------

type superAdminStore struct{ db *sql.DB }

const superAdminColumns = `id, email, password_hash, first_name, last_name, is_active, last_login, created_at, updated_at`

func scanSuperAdmin(row interface{ Scan(...any) error }) (*SuperAdmin, error) {
	var sa SuperAdmin
	var lastLogin sql.NullTime
	if err := row.Scan(&sa.ID, &sa.Email, &sa.PasswordHash, &sa.FirstName, &sa.LastName,
		&sa.IsActive, &lastLogin, &sa.CreatedAt, &sa.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		sa.LastLogin = &t
	}
	return &sa, nil
}

func (s *superAdminStore) Create(ctx context.Context, sa *SuperAdmin) error {
	if sa.ID == "" {
		sa.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into super_admins(id, email, password_hash, first_name, last_name, is_active)
		 values($1, lower($2), $3, $4, $5, $6)`,
		sa.ID, sa.Email, sa.PasswordHash, sa.FirstName, sa.LastName, sa.IsActive,
	)
	return mapInsertError(err)
}

func (s *superAdminStore) Find(ctx context.Context, id string) (*SuperAdmin, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+superAdminColumns+` from super_admins where id=$1`, id)
	return scanSuperAdmin(row)
}

func (s *superAdminStore) FindActiveByEmail(ctx context.Context, email string) (*SuperAdmin, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+superAdminColumns+` from super_admins where lower(email)=lower($1) and is_active`, email)
	return scanSuperAdmin(row)
}

func (s *superAdminStore) List(ctx context.Context) ([]*SuperAdmin, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+superAdminColumns+` from super_admins order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*SuperAdmin
	for rows.Next() {
		sa, err := scanSuperAdmin(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, sa)
	}
	return res, rows.Err()
}

func (s *superAdminStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update super_admins set last_login=$2, updated_at=now() where id=$1`, id, at)
	return err
}

// Organization store -------------------------------------------------------

type organizationStore struct{ db *sql.DB }

const orgColumns = `id, name, shared_password_hash, description, contact_email, is_active, created_at, updated_at`

func scanOrganization(row interface{ Scan(...any) error }) (*Organization, error) {
	var org Organization
	var description, contactEmail sql.NullString
	if err := row.Scan(&org.ID, &org.Name, &org.SharedPasswordHash, &description,
		&contactEmail, &org.IsActive, &org.CreatedAt, &org.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	org.Description = description.String
	org.ContactEmail = contactEmail.String
	return &org, nil
}

func (s *organizationStore) Create(ctx context.Context, org *Organization) error {
	if org.ID == "" {
		org.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into organizations(id, name, shared_password_hash, description, contact_email, is_active)
		 values($1,$2,$3,$4,$5,$6)`,
		org.ID, org.Name, org.SharedPasswordHash, org.Description, org.ContactEmail, org.IsActive,
	)
	return mapInsertError(err)
}

func (s *organizationStore) Find(ctx context.Context, id string) (*Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where id=$1`, id)
	return scanOrganization(row)
}

func (s *organizationStore) List(ctx context.Context) ([]*Organization, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+orgColumns+` from organizations order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, org)
	}
	return res, rows.Err()
}

func (s *organizationStore) Update(ctx context.Context, id string, upd OrganizationUpdate) (*Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`update organizations set
			name          = coalesce($2, name),
			description   = coalesce($3, description),
			contact_email = coalesce($4, contact_email),
			is_active     = coalesce($5, is_active),
			updated_at    = now()
		 where id=$1
		 returning `+orgColumns,
		id, upd.Name, upd.Description, upd.ContactEmail, upd.IsActive)
	return scanOrganization(row)
}

func (s *organizationStore) UpdateSharedPassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update organizations set shared_password_hash=$2, updated_at=now() where id=$1`,
		id, passwordHash)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *organizationStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from organizations where id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Whitelist store ----------------------------------------------------------

type whitelistStore struct{ db *sql.DB }

const whitelistColumns = `id, organization_id, email, role, is_active, notes, added_by, created_at, updated_at`

func scanWhitelistEntry(row interface{ Scan(...any) error }) (*WhitelistEntry, error) {
	var entry WhitelistEntry
	var notes []byte
	var addedBy sql.NullString
	if err := row.Scan(&entry.ID, &entry.OrganizationID, &entry.Email, &entry.Role,
		&entry.IsActive, &notes, &addedBy, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	entry.AddedBy = addedBy.String
	if len(notes) > 0 {
		var n WhitelistNotes
		if err := json.Unmarshal(notes, &n); err == nil {
			entry.Notes = &n
		}
	}
	return &entry, nil
}

func (s *whitelistStore) Create(ctx context.Context, entry *WhitelistEntry) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	var notes any
	if entry.Notes != nil {
		data, err := json.Marshal(entry.Notes)
		if err != nil {
			return err
		}
		notes = data
	}
	_, err := s.db.ExecContext(ctx,
		`insert into whitelist_entries(id, organization_id, email, role, is_active, notes, added_by)
		 values($1,$2,lower($3),$4,$5,$6,$7)`,
		entry.ID, entry.OrganizationID, entry.Email, entry.Role, entry.IsActive, notes, nullIfEmpty(entry.AddedBy),
	)
	return mapInsertError(err)
}

func (s *whitelistStore) Find(ctx context.Context, id string) (*WhitelistEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+whitelistColumns+` from whitelist_entries where id=$1`, id)
	return scanWhitelistEntry(row)
}

func (s *whitelistStore) FindActiveByEmail(ctx context.Context, email string) (*WhitelistEntry, *Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`select w.id, w.organization_id, w.email, w.role, w.is_active, w.notes, w.added_by, w.created_at, w.updated_at,
		        o.id, o.name, o.shared_password_hash, o.description, o.contact_email, o.is_active, o.created_at, o.updated_at
		 from whitelist_entries w
		 join organizations o on o.id = w.organization_id
		 where lower(w.email)=lower($1) and w.is_active and o.is_active`, email)

	var (
		entry                   WhitelistEntry
		org                     Organization
		notes                   []byte
		addedBy                 sql.NullString
		description, contactEml sql.NullString
	)
	if err := row.Scan(&entry.ID, &entry.OrganizationID, &entry.Email, &entry.Role,
		&entry.IsActive, &notes, &addedBy, &entry.CreatedAt, &entry.UpdatedAt,
		&org.ID, &org.Name, &org.SharedPasswordHash, &description, &contactEml,
		&org.IsActive, &org.CreatedAt, &org.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	entry.AddedBy = addedBy.String
	if len(notes) > 0 {
		var n WhitelistNotes
		if err := json.Unmarshal(notes, &n); err == nil {
			entry.Notes = &n
		}
	}
	org.Description = description.String
	org.ContactEmail = contactEml.String
	return &entry, &org, nil
}

func (s *whitelistStore) FindActiveByOrgEmail(ctx context.Context, orgID, email string) (*WhitelistEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+whitelistColumns+` from whitelist_entries
		 where organization_id=$1 and lower(email)=lower($2) and is_active`, orgID, email)
	return scanWhitelistEntry(row)
}

func (s *whitelistStore) ListByOrganization(ctx context.Context, orgID string) ([]*WhitelistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+whitelistColumns+` from whitelist_entries where organization_id=$1 order by created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*WhitelistEntry
	for rows.Next() {
		entry, err := scanWhitelistEntry(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, entry)
	}
	return res, rows.Err()
}

func (s *whitelistStore) Update(ctx context.Context, id string, upd WhitelistUpdate) (*WhitelistEntry, error) {
	var notes any
	if upd.Notes != nil {
		data, err := json.Marshal(upd.Notes)
		if err != nil {
			return nil, err
		}
		notes = data
	}
	row := s.db.QueryRowContext(ctx,
		`update whitelist_entries set
			role       = coalesce($2, role),
			is_active  = coalesce($3, is_active),
			notes      = coalesce($4, notes),
			updated_at = now()
		 where id=$1
		 returning `+whitelistColumns,
		id, upd.Role, upd.IsActive, notes)
	return scanWhitelistEntry(row)
}

func (s *whitelistStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from whitelist_entries where id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// User store ---------------------------------------------------------------

type userStore struct{ db *sql.DB }

const userColumns = `id, email, organization_id, role, first_name, last_name, phone, profile_completed, login_count, last_login, created_at, updated_at`

func scanUserRecord(row interface{ Scan(...any) error }) (*UserRecord, error) {
	var u UserRecord
	var firstName, lastName, phone sql.NullString
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.OrganizationID, &u.Role, &firstName, &lastName,
		&phone, &u.ProfileCompleted, &u.LoginCount, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.FirstName = firstName.String
	u.LastName = lastName.String
	u.Phone = phone.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (s *userStore) Find(ctx context.Context, id string) (*UserRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUserRecord(row)
}

func (s *userStore) FindByOrgEmail(ctx context.Context, orgID, email string) (*UserRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where organization_id=$1 and lower(email)=lower($2)`,
		orgID, email)
	return scanUserRecord(row)
}

func (s *userStore) ListByOrganization(ctx context.Context, orgID string) ([]*UserRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users where organization_id=$1 order by created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*UserRecord
	for rows.Next() {
		u, err := scanUserRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// RecordLogin creates or updates the member record inside a single
// transaction so login counters and the whitelist role sync cannot drift
// apart.
func (s *userStore) RecordLogin(ctx context.Context, entry *WhitelistEntry, at time.Time) (*UserRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`select `+userColumns+` from users
		 where organization_id=$1 and lower(email)=lower($2) for update`,
		entry.OrganizationID, entry.Email)
	user, err := scanUserRecord(row)
	switch err {
	case nil:
		row = tx.QueryRowContext(ctx,
			`update users set
				role        = $2,
				login_count = login_count + 1,
				last_login  = $3,
				updated_at  = now()
			 where id=$1
			 returning `+userColumns,
			user.ID, entry.Role, at)
		user, err = scanUserRecord(row)
		if err != nil {
			return nil, err
		}
	case ErrNotFound:
		// First successful login: lazily create the record with role and
		// profile seeded from the whitelist entry.
		var firstName, lastName string
		if entry.Notes != nil {
			firstName = entry.Notes.FirstName
			lastName = entry.Notes.LastName
		}
		row = tx.QueryRowContext(ctx,
			`insert into users(id, email, organization_id, role, first_name, last_name, login_count, last_login)
			 values($1, lower($2), $3, $4, $5, $6, 1, $7)
			 returning `+userColumns,
			ids.New(), entry.Email, entry.OrganizationID, entry.Role, firstName, lastName, at)
		user, err = scanUserRecord(row)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userStore) UpdateProfile(ctx context.Context, id string, firstName, lastName, phone string) (*UserRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`update users set
			first_name        = $2,
			last_name         = $3,
			phone             = $4,
			profile_completed = true,
			updated_at        = now()
		 where id=$1
		 returning `+userColumns,
		id, firstName, lastName, phone)
	return scanUserRecord(row)
}

func (s *userStore) SyncRole(ctx context.Context, orgID, email, role string) error {
	_, err := s.db.ExecContext(ctx,
		`update users set role=$3, updated_at=now()
		 where organization_id=$1 and lower(email)=lower($2)`,
		orgID, email, role)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
