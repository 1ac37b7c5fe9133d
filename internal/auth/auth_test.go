// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zitadel/oidc/v3/pkg/oidc"
)

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", ""},
		{"bearer token", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"lowercase scheme", "bearer abc", "abc"},
		{"basic auth ignored", "Basic dXNlcjpwYXNz", ""},
		{"scheme only", "Bearer", ""},
		{"extra whitespace", "Bearer   abc  ", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := extractBearer(r); got != tt.want {
				t.Errorf("extractBearer() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRealmRoles(t *testing.T) {
	tests := []struct {
		name   string
		claims map[string]any
		want   []string
	}{
		{
			"keycloak shape",
			map[string]any{"realm_access": map[string]any{"roles": []any{"admin", "offline_access"}}},
			[]string{"admin", "offline_access"},
		},
		{"no realm_access", map[string]any{"sub": "x"}, nil},
		{"roles wrong type", map[string]any{"realm_access": map[string]any{"roles": "admin"}}, nil},
		{
			"non-string entries skipped",
			map[string]any{"realm_access": map[string]any{"roles": []any{"admin", 42}}},
			[]string{"admin"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := realmRoles(tt.claims)
			if len(got) != len(tt.want) {
				t.Fatalf("realmRoles() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("realmRoles() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSubjectRoles(t *testing.T) {
	s := &Subject{Username: "alice", Roles: []string{"viewer", "admin"}}
	if !s.HasRole("viewer") || !s.IsAdmin() {
		t.Errorf("roles not recognized: %+v", s)
	}
	if (&Subject{}).IsAdmin() {
		t.Error("empty subject must not be admin")
	}
}

func TestNoneAuthenticator(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	s, err := NoneAuthenticator{}.Authenticate(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if !s.IsAdmin() {
		t.Error("none mode must grant admin")
	}
}

type fakeVerifier struct {
	claims *oidc.IDTokenClaims
	err    error
	calls  int
}

func (f *fakeVerifier) Verify(context.Context, string) (*oidc.IDTokenClaims, error) {
	f.calls++
	return f.claims, f.err
}

func bearerRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestOIDCAuthenticateAudiences(t *testing.T) {
	adminClaims := &oidc.IDTokenClaims{
		TokenClaims:     oidc.TokenClaims{Subject: "u-1"},
		UserInfoProfile: oidc.UserInfoProfile{PreferredUsername: "alice"},
		Claims: map[string]any{
			"realm_access": map[string]any{"roles": []any{"admin"}},
		},
	}
	audienceErr := errors.New("audience is not valid")

	t.Run("backend audience accepted first", func(t *testing.T) {
		backend := &fakeVerifier{claims: adminClaims}
		frontend := &fakeVerifier{err: audienceErr}
		a := &OIDCAuthenticator{verifiers: []tokenVerifier{backend, frontend}}

		s, err := a.Authenticate(context.Background(), bearerRequest("tok"))
		if err != nil {
			t.Fatal(err)
		}
		if s.Username != "alice" || !s.IsAdmin() {
			t.Errorf("subject = %+v", s)
		}
		if frontend.calls != 0 {
			t.Error("frontend verifier consulted despite backend success")
		}
	})

	t.Run("frontend audience accepted on fallback", func(t *testing.T) {
		backend := &fakeVerifier{err: audienceErr}
		frontend := &fakeVerifier{claims: adminClaims}
		a := &OIDCAuthenticator{verifiers: []tokenVerifier{backend, frontend}}

		s, err := a.Authenticate(context.Background(), bearerRequest("tok"))
		if err != nil {
			t.Fatalf("frontend-audience token rejected: %v", err)
		}
		if s.Username != "alice" || !s.IsAdmin() {
			t.Errorf("subject = %+v", s)
		}
		if backend.calls != 1 || frontend.calls != 1 {
			t.Errorf("calls = %d/%d, want 1/1", backend.calls, frontend.calls)
		}
	})

	t.Run("rejected by every audience", func(t *testing.T) {
		a := &OIDCAuthenticator{verifiers: []tokenVerifier{
			&fakeVerifier{err: audienceErr},
			&fakeVerifier{err: audienceErr},
		}}
		if _, err := a.Authenticate(context.Background(), bearerRequest("tok")); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("missing bearer token", func(t *testing.T) {
		a := &OIDCAuthenticator{verifiers: []tokenVerifier{&fakeVerifier{claims: adminClaims}}}
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if _, err := a.Authenticate(context.Background(), r); !errors.Is(err, ErrNoCredentials) {
			t.Errorf("err = %v, want ErrNoCredentials", err)
		}
	})
}

type stubAuthenticator struct {
	subject *Subject
	err     error
}

func (s stubAuthenticator) Authenticate(context.Context, *http.Request) (*Subject, error) {
	return s.subject, s.err
}

func (stubAuthenticator) Name() string { return "stub" }

func TestMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("rejects missing credentials", func(t *testing.T) {
		m := NewMiddleware(stubAuthenticator{err: ErrNoCredentials}, "")
		rec := httptest.NewRecorder()
		m.RequireAuth(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "UNAUTHORIZED") {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("passes subject through", func(t *testing.T) {
		m := NewMiddleware(stubAuthenticator{subject: &Subject{Username: "alice", Roles: []string{"admin"}}}, "")
		var seen *Subject
		h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = SubjectFromContext(r.Context())
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if seen == nil || seen.Username != "alice" {
			t.Errorf("subject = %+v", seen)
		}
	})

	t.Run("admin gate", func(t *testing.T) {
		m := NewMiddleware(stubAuthenticator{subject: &Subject{Username: "bob", Roles: []string{"viewer"}}}, "")
		rec := httptest.NewRecorder()
		m.RequireAuth(m.RequireAdmin(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("custom admin role", func(t *testing.T) {
		m := NewMiddleware(stubAuthenticator{subject: &Subject{Username: "carol", Roles: []string{"netadmin"}}}, "netadmin")
		rec := httptest.NewRecorder()
		m.RequireAuth(m.RequireAdmin(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		m := NewMiddleware(stubAuthenticator{err: ErrExpiredCredentials}, "")
		rec := httptest.NewRecorder()
		m.RequireAuth(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "expired") {
			t.Errorf("status = %d body = %s", rec.Code, rec.Body.String())
		}
	})
}
