package httpapi

import (
	"net/http"
	"testing"
)

func TestAuthenticateMissingToken(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/auth/me", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != codeNoToken {
		t.Fatalf("expected %s, got %s", codeNoToken, code)
	}
}

func TestAuthenticateMalformedToken(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/auth/me", "not-a-jwt", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != codeInvalidToken {
		t.Fatalf("expected %s, got %s", codeInvalidToken, code)
	}
}

func TestAuthenticateDeactivatedAccount(t *testing.T) {
	env := newTestEnv(t)
	resp := env.login(t, "root@volunteerhub.org", "rootpass123")

	env.store.mu.Lock()
	env.store.superAdmins["sa-1"].IsActive = false
	env.store.mu.Unlock()

	rr := env.do(t, http.MethodGet, "/api/auth/me", resp.Tokens.AccessToken, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != codeUserNotFound {
		t.Fatalf("expected %s, got %s", codeUserNotFound, code)
	}
}

func TestRequireSuperAdminRejectsVolunteer(t *testing.T) {
	env := newTestEnv(t)
	resp := env.login(t, "vol@helpinghands.org", "orgpass123")

	rr := env.do(t, http.MethodGet, "/api/super-admin/organizations", resp.Tokens.AccessToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != codeForbidden {
		t.Fatalf("expected %s, got %s", codeForbidden, code)
	}
}

func TestRequireNonprofitAdminRejectsVolunteer(t *testing.T) {
	env := newTestEnv(t)
	resp := env.login(t, "vol@helpinghands.org", "orgpass123")

	rr := env.do(t, http.MethodGet, "/api/admin/whitelist", resp.Tokens.AccessToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestOrganizationMismatchRejected(t *testing.T) {
	env := newTestEnv(t)
	resp := env.login(t, "admin@helpinghands.org", "orgpass123")

	rr := env.do(t, http.MethodGet, "/api/admin/whitelist?organizationId=org-2", resp.Tokens.AccessToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != codeForbidden {
		t.Fatalf("expected %s, got %s", codeForbidden, code)
	}
}

func TestSuperAdminMayTargetAnyOrganization(t *testing.T) {
	env := newTestEnv(t)
	resp := env.login(t, "root@volunteerhub.org", "rootpass123")

	rr := env.do(t, http.MethodGet, "/api/admin/whitelist?organizationId=org-1", resp.Tokens.AccessToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
}

func TestSuperAdminWithoutTargetOrganization(t *testing.T) {
	env := newTestEnv(t)
	resp := env.login(t, "root@volunteerhub.org", "rootpass123")

	rr := env.do(t, http.MethodGet, "/api/admin/whitelist", resp.Tokens.AccessToken, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer abc", "abc", false},
		{"Bearer   abc  ", "abc", false},
		{"", "", true},
		{"Basic abc", "", true},
		{"Bearer ", "", true},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("header %q: expected error", tc.header)
			}
			continue
		}
		if err != nil {
			t.Fatalf("header %q: %v", tc.header, err)
		}
		if got != tc.want {
			t.Fatalf("header %q: expected %q, got %q", tc.header, tc.want, got)
		}
	}
}
