package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "organization_id", "role", "first_name", "last_name",
		"phone", "profile_completed", "login_count", "last_login", "created_at", "updated_at",
	})
}

func TestRecordLoginCreatesRecordOnFirstLogin(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	entry := &WhitelistEntry{
		ID:             "wl-1",
		OrganizationID: "org-1",
		Email:          "a@x.org",
		Role:           RoleVolunteer,
		IsActive:       true,
		Notes:          &WhitelistNotes{FirstName: "Ada", LastName: "Lovelace"},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("select .* from users").
		WithArgs("org-1", "a@x.org").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("insert into users").
		WithArgs(sqlmock.AnyArg(), "a@x.org", "org-1", RoleVolunteer, "Ada", "Lovelace", now).
		WillReturnRows(userRows().AddRow(
			"u-1", "a@x.org", "org-1", RoleVolunteer, "Ada", "Lovelace",
			nil, false, 1, now, now, now,
		))
	mock.ExpectCommit()

	store := NewPGStore(db)
	user, err := store.Users(context.Background()).RecordLogin(context.Background(), entry, now)
	if err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}
	if user.LoginCount != 1 {
		t.Fatalf("expected login_count=1, got %d", user.LoginCount)
	}
	if user.Role != RoleVolunteer {
		t.Fatalf("expected role copied from whitelist, got %q", user.Role)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordLoginIncrementsExistingRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	entry := &WhitelistEntry{
		ID:             "wl-2",
		OrganizationID: "org-1",
		Email:          "b@x.org",
		Role:           RoleNonprofitAdmin,
		IsActive:       true,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("select .* from users").
		WithArgs("org-1", "b@x.org").
		WillReturnRows(userRows().AddRow(
			"u-2", "b@x.org", "org-1", RoleVolunteer, nil, nil,
			nil, false, 3, now, now, now,
		))
	// The whitelist role is pushed onto the record in the same statement.
	mock.ExpectQuery("update users").
		WithArgs("u-2", RoleNonprofitAdmin, now).
		WillReturnRows(userRows().AddRow(
			"u-2", "b@x.org", "org-1", RoleNonprofitAdmin, nil, nil,
			nil, false, 4, now, now, now,
		))
	mock.ExpectCommit()

	store := NewPGStore(db)
	user, err := store.Users(context.Background()).RecordLogin(context.Background(), entry, now)
	if err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}
	if user.LoginCount != 4 {
		t.Fatalf("expected login_count=4, got %d", user.LoginCount)
	}
	if user.Role != RoleNonprofitAdmin {
		t.Fatalf("expected whitelist role sync, got %q", user.Role)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindActiveByEmailJoinsActiveOrganization(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("select .* from whitelist_entries w").
		WithArgs("a@x.org").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "organization_id", "email", "role", "is_active", "notes", "added_by", "created_at", "updated_at",
			"id", "name", "shared_password_hash", "description", "contact_email", "is_active", "created_at", "updated_at",
		}).AddRow(
			"wl-1", "org-1", "a@x.org", RoleVolunteer, true, []byte(`{"firstName":"Ada"}`), nil, now, now,
			"org-1", "Helping Hands", "hash", nil, nil, true, now, now,
		))

	store := NewPGStore(db)
	entry, org, err := store.Whitelist(context.Background()).FindActiveByEmail(context.Background(), "a@x.org")
	if err != nil {
		t.Fatalf("FindActiveByEmail: %v", err)
	}
	if entry.Notes == nil || entry.Notes.FirstName != "Ada" {
		t.Fatalf("expected typed notes, got %+v", entry.Notes)
	}
	if org.Name != "Helping Hands" {
		t.Fatalf("unexpected org: %+v", org)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateSharedPasswordMissingOrg(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update organizations set shared_password_hash").
		WithArgs("missing", "newhash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPGStore(db)
	err = store.Organizations(context.Background()).UpdateSharedPassword(context.Background(), "missing", "newhash")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateMapsUniqueViolationToConflict(t *testing.T) {
	uniqueErr := &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "whitelist_org_email_idx"}

	tests := []struct {
		name   string
		insert string
		run    func(store *PGStore, ctx context.Context) error
	}{
		{
			name:   "super admin email",
			insert: "insert into super_admins",
			run: func(store *PGStore, ctx context.Context) error {
				return store.SuperAdmins(ctx).Create(ctx, &SuperAdmin{Email: "root@volunteerhub.org"})
			},
		},
		{
			name:   "organization name",
			insert: "insert into organizations",
			run: func(store *PGStore, ctx context.Context) error {
				return store.Organizations(ctx).Create(ctx, &Organization{Name: "Helping Hands"})
			},
		},
		{
			name:   "whitelist email",
			insert: "insert into whitelist_entries",
			run: func(store *PGStore, ctx context.Context) error {
				return store.Whitelist(ctx).Create(ctx, &WhitelistEntry{
					OrganizationID: "org-1", Email: "a@x.org", Role: RoleVolunteer,
				})
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New: %v", err)
			}
			defer db.Close()

			mock.ExpectExec(tc.insert).WillReturnError(uniqueErr)

			if err := tc.run(NewPGStore(db), context.Background()); !errors.Is(err, ErrConflict) {
				t.Fatalf("expected ErrConflict, got %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestFindActiveByOrgEmailSkipsInactiveEntries(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select .* from whitelist_entries").
		WithArgs("org-1", "a@x.org").
		WillReturnError(sql.ErrNoRows)

	store := NewPGStore(db)
	if _, err := store.Whitelist(context.Background()).FindActiveByOrgEmail(context.Background(), "org-1", "a@x.org"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
