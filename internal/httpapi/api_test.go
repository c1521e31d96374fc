package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/mail"
	"volunteerhub.org/internal/tasks"
)

// stubStore is an in-memory auth.Store for handler tests.
type stubStore struct {
	mu          sync.Mutex
	superAdmins map[string]*auth.SuperAdmin
	orgs        map[string]*auth.Organization
	entries     map[string]*auth.WhitelistEntry
	users       map[string]*auth.UserRecord
}

func newStubStore() *stubStore {
	return &stubStore{
		superAdmins: make(map[string]*auth.SuperAdmin),
		orgs:        make(map[string]*auth.Organization),
		entries:     make(map[string]*auth.WhitelistEntry),
		users:       make(map[string]*auth.UserRecord),
	}
}

func (s *stubStore) SuperAdmins(context.Context) auth.SuperAdminStore   { return stubSuperAdmins{s} }
func (s *stubStore) Organizations(context.Context) auth.OrganizationStore { return stubOrgs{s} }
func (s *stubStore) Whitelist(context.Context) auth.WhitelistStore      { return stubWhitelist{s} }
func (s *stubStore) Users(context.Context) auth.UserStore               { return stubUsers{s} }

type stubSuperAdmins struct{ s *stubStore }

func (st stubSuperAdmins) Create(_ context.Context, sa *auth.SuperAdmin) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, existing := range st.s.superAdmins {
		if strings.EqualFold(existing.Email, sa.Email) {
			return auth.ErrConflict
		}
	}
	st.s.superAdmins[sa.ID] = sa
	return nil
}

func (st stubSuperAdmins) Find(_ context.Context, id string) (*auth.SuperAdmin, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	sa, ok := st.s.superAdmins[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return sa, nil
}

func (st stubSuperAdmins) FindActiveByEmail(_ context.Context, email string) (*auth.SuperAdmin, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, sa := range st.s.superAdmins {
		if strings.EqualFold(sa.Email, email) && sa.IsActive {
			return sa, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (st stubSuperAdmins) List(context.Context) ([]*auth.SuperAdmin, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var out []*auth.SuperAdmin
	for _, sa := range st.s.superAdmins {
		out = append(out, sa)
	}
	return out, nil
}

func (st stubSuperAdmins) TouchLogin(_ context.Context, id string, at time.Time) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if sa, ok := st.s.superAdmins[id]; ok {
		sa.LastLogin = &at
	}
	return nil
}

type stubOrgs struct{ s *stubStore }

func (st stubOrgs) Create(_ context.Context, org *auth.Organization) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, existing := range st.s.orgs {
		if strings.EqualFold(existing.Name, org.Name) {
			return auth.ErrConflict
		}
	}
	st.s.orgs[org.ID] = org
	return nil
}

func (st stubOrgs) Find(_ context.Context, id string) (*auth.Organization, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	org, ok := st.s.orgs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return org, nil
}

func (st stubOrgs) List(context.Context) ([]*auth.Organization, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var out []*auth.Organization
	for _, org := range st.s.orgs {
		out = append(out, org)
	}
	return out, nil
}

func (st stubOrgs) Update(_ context.Context, id string, upd auth.OrganizationUpdate) (*auth.Organization, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	org, ok := st.s.orgs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Name != nil {
		org.Name = *upd.Name
	}
	if upd.Description != nil {
		org.Description = *upd.Description
	}
	if upd.ContactEmail != nil {
		org.ContactEmail = *upd.ContactEmail
	}
	if upd.IsActive != nil {
		org.IsActive = *upd.IsActive
	}
	return org, nil
}

func (st stubOrgs) UpdateSharedPassword(_ context.Context, id, hash string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	org, ok := st.s.orgs[id]
	if !ok {
		return auth.ErrNotFound
	}
	org.SharedPasswordHash = hash
	return nil
}

func (st stubOrgs) Delete(_ context.Context, id string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if _, ok := st.s.orgs[id]; !ok {
		return auth.ErrNotFound
	}
	delete(st.s.orgs, id)
	return nil
}

type stubWhitelist struct{ s *stubStore }

func (st stubWhitelist) Create(_ context.Context, entry *auth.WhitelistEntry) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, existing := range st.s.entries {
		if existing.OrganizationID == entry.OrganizationID && strings.EqualFold(existing.Email, entry.Email) {
			return auth.ErrConflict
		}
	}
	st.s.entries[entry.ID] = entry
	return nil
}

func (st stubWhitelist) Find(_ context.Context, id string) (*auth.WhitelistEntry, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	entry, ok := st.s.entries[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return entry, nil
}

func (st stubWhitelist) FindActiveByEmail(_ context.Context, email string) (*auth.WhitelistEntry, *auth.Organization, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, entry := range st.s.entries {
		if !strings.EqualFold(entry.Email, email) || !entry.IsActive {
			continue
		}
		org, ok := st.s.orgs[entry.OrganizationID]
		if !ok || !org.IsActive {
			continue
		}
		return entry, org, nil
	}
	return nil, nil, auth.ErrNotFound
}

func (st stubWhitelist) FindActiveByOrgEmail(_ context.Context, orgID, email string) (*auth.WhitelistEntry, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, entry := range st.s.entries {
		if entry.OrganizationID == orgID && strings.EqualFold(entry.Email, email) && entry.IsActive {
			return entry, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (st stubWhitelist) ListByOrganization(_ context.Context, orgID string) ([]*auth.WhitelistEntry, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var out []*auth.WhitelistEntry
	for _, entry := range st.s.entries {
		if entry.OrganizationID == orgID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (st stubWhitelist) Update(_ context.Context, id string, upd auth.WhitelistUpdate) (*auth.WhitelistEntry, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	entry, ok := st.s.entries[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Role != nil {
		entry.Role = *upd.Role
	}
	if upd.IsActive != nil {
		entry.IsActive = *upd.IsActive
	}
	if upd.Notes != nil {
		entry.Notes = upd.Notes
	}
	return entry, nil
}

func (st stubWhitelist) Delete(_ context.Context, id string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if _, ok := st.s.entries[id]; !ok {
		return auth.ErrNotFound
	}
	delete(st.s.entries, id)
	return nil
}

type stubUsers struct{ s *stubStore }

func (st stubUsers) Find(_ context.Context, id string) (*auth.UserRecord, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	user, ok := st.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return user, nil
}

func (st stubUsers) FindByOrgEmail(_ context.Context, orgID, email string) (*auth.UserRecord, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, user := range st.s.users {
		if user.OrganizationID == orgID && strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (st stubUsers) ListByOrganization(_ context.Context, orgID string) ([]*auth.UserRecord, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var out []*auth.UserRecord
	for _, user := range st.s.users {
		if user.OrganizationID == orgID {
			out = append(out, user)
		}
	}
	return out, nil
}

func (st stubUsers) RecordLogin(_ context.Context, entry *auth.WhitelistEntry, at time.Time) (*auth.UserRecord, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, user := range st.s.users {
		if user.OrganizationID == entry.OrganizationID && strings.EqualFold(user.Email, entry.Email) {
			user.Role = entry.Role
			user.LoginCount++
			user.LastLogin = &at
			return user, nil
		}
	}
	user := &auth.UserRecord{
		ID:             "user-" + entry.ID,
		Email:          entry.Email,
		OrganizationID: entry.OrganizationID,
		Role:           entry.Role,
		LoginCount:     1,
		LastLogin:      &at,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	st.s.users[user.ID] = user
	return user, nil
}

func (st stubUsers) UpdateProfile(_ context.Context, id string, firstName, lastName, phone string) (*auth.UserRecord, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	user, ok := st.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	user.FirstName = firstName
	user.LastName = lastName
	user.Phone = phone
	user.ProfileCompleted = true
	return user, nil
}

func (st stubUsers) SyncRole(_ context.Context, orgID, email, role string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, user := range st.s.users {
		if user.OrganizationID == orgID && strings.EqualFold(user.Email, email) {
			user.Role = role
		}
	}
	return nil
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

type testEnv struct {
	api    *API
	h      http.Handler
	store  *stubStore
	mailer *captureMailer
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newStubStore()
	store.superAdmins["sa-1"] = &auth.SuperAdmin{
		ID:           "sa-1",
		Email:        "root@volunteerhub.org",
		PasswordHash: mustHash(t, "rootpass123"),
		IsActive:     true,
	}
	store.orgs["org-1"] = &auth.Organization{
		ID:                 "org-1",
		Name:               "Helping Hands",
		SharedPasswordHash: mustHash(t, "orgpass123"),
		IsActive:           true,
	}
	store.orgs["org-2"] = &auth.Organization{
		ID:                 "org-2",
		Name:               "River Cleanup",
		SharedPasswordHash: mustHash(t, "riverpass123"),
		IsActive:           true,
	}
	store.entries["wl-1"] = &auth.WhitelistEntry{
		ID:             "wl-1",
		OrganizationID: "org-1",
		Email:          "vol@helpinghands.org",
		Role:           auth.RoleVolunteer,
		IsActive:       true,
	}
	store.entries["wl-2"] = &auth.WhitelistEntry{
		ID:             "wl-2",
		OrganizationID: "org-1",
		Email:          "admin@helpinghands.org",
		Role:           auth.RoleNonprofitAdmin,
		IsActive:       true,
	}

	svc, err := auth.NewService(store, "test-secret", auth.WithBcryptCost(4))
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	mailer := &captureMailer{}
	api := New(Deps{
		Auth:    svc,
		Store:   store,
		Tasks:   tasks.NewService(newStubTaskStore(), nil),
		Mailer:  mailer,
		Version: "test",
	})
	return &testEnv{api: api, h: api.Handler(), store: store, mailer: mailer}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.h.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) login(t *testing.T, email, password string) loginResponse {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: email, Password: password})
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", email, rr.Code, rr.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	code, _ := body["error"].(string)
	return code
}

// stubTaskStore is a minimal in-memory tasks.Store.
type stubTaskStore struct {
	mu    sync.Mutex
	seq   int
	tasks map[string]*tasks.Task
}

func newStubTaskStore() *stubTaskStore {
	return &stubTaskStore{tasks: make(map[string]*tasks.Task)}
}

func (m *stubTaskStore) Create(_ context.Context, task *tasks.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.ID == "" {
		m.seq++
		task.ID = fmt.Sprintf("task-%d", m.seq)
	}
	task.CreatedAt = time.Now().UTC()
	task.UpdatedAt = task.CreatedAt
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *stubTaskStore) Find(_ context.Context, orgID, id string) (*tasks.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return nil, tasks.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *stubTaskStore) List(_ context.Context, orgID string, filter tasks.Filter) ([]*tasks.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []*tasks.Task
	for _, t := range m.tasks {
		if t.OrganizationID != orgID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != "" && t.AssignedTo != filter.AssignedTo {
			continue
		}
		cp := *t
		res = append(res, &cp)
	}
	return res, nil
}

func (m *stubTaskStore) Update(_ context.Context, orgID, id string, upd tasks.Update) (*tasks.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return nil, tasks.ErrNotFound
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.AssignedTo != nil {
		t.AssignedTo = *upd.AssignedTo
	}
	cp := *t
	return &cp, nil
}

func (m *stubTaskStore) Delete(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return tasks.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}
