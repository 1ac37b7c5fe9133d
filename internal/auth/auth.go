// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

// Package auth validates Keycloak-issued bearer tokens with the certified
// Zitadel OIDC verifier and maps realm roles onto request subjects. The
// backend is a pure resource server: login flows live in the frontend and
// Keycloak, only token verification happens here.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Auth modes. "none" disables authentication entirely and is rejected by
// config validation outside development.
const (
	ModeOIDC = "oidc"
	ModeNone = "none"
)

// RoleAdmin is the Keycloak realm role granting write access to the
// management API.
const RoleAdmin = "admin"

var (
	ErrNoCredentials      = errors.New("no credentials provided")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrExpiredCredentials = errors.New("expired credentials")
)

// Subject is an authenticated principal.
type Subject struct {
	Subject  string
	Username string
	Email    string
	Roles    []string
}

// HasRole reports whether the subject carries a realm role.
func (s *Subject) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the subject may mutate the registry.
func (s *Subject) IsAdmin() bool {
	return s.HasRole(RoleAdmin)
}

// Authenticator validates a request's credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (*Subject, error)
	Name() string
}

// NoneAuthenticator grants every request an anonymous admin subject.
// Development only; config validation forbids it in production.
type NoneAuthenticator struct{}

func (NoneAuthenticator) Authenticate(context.Context, *http.Request) (*Subject, error) {
	return &Subject{Subject: "anonymous", Username: "anonymous", Roles: []string{RoleAdmin}}, nil
}

func (NoneAuthenticator) Name() string { return ModeNone }

// extractBearer pulls the bearer token out of the Authorization header.
func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
