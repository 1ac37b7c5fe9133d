// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/inethi/manage-backend/internal/models"
)

type contextKey string

const subjectKey contextKey = "auth_subject"

// SubjectFromContext returns the authenticated subject, if any.
func SubjectFromContext(ctx context.Context) (*Subject, bool) {
	s, ok := ctx.Value(subjectKey).(*Subject)
	return s, ok
}

// Middleware enforces authentication and role checks on API routes.
type Middleware struct {
	authenticator Authenticator
	adminRole     string
}

// NewMiddleware builds the auth middleware. adminRole defaults to "admin".
func NewMiddleware(authenticator Authenticator, adminRole string) *Middleware {
	if adminRole == "" {
		adminRole = RoleAdmin
	}
	return &Middleware{authenticator: authenticator, adminRole: adminRole}
}

// RequireAuth rejects unauthenticated requests and stores the subject in
// the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.authenticator.Authenticate(r.Context(), r)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), subjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects authenticated subjects without the admin realm
// role. Must run after RequireAuth.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := SubjectFromContext(r.Context())
		if !ok {
			writeAuthError(w, ErrNoCredentials)
			return
		}
		if !subject.HasRole(m.adminRole) {
			writeJSONError(w, http.StatusForbidden, models.ErrCodeForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoCredentials):
		writeJSONError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "authentication required")
	case errors.Is(err, ErrExpiredCredentials):
		writeJSONError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "token expired")
	default:
		writeJSONError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "invalid token")
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Status: "error",
		Error:  &models.APIError{Code: code, Message: message},
	})
}
