// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/inethi/manage-backend/internal/config"
	"github.com/inethi/manage-backend/internal/logging"
)

// OIDCAuthenticator validates bearer tokens against the Keycloak realm.
// Discovery, JWKS fetching and signature checks are handled by the
// certified Zitadel verifier; this type adds Keycloak's realm_access role
// mapping on top. A token is accepted when any configured verifier
// accepts it: one is keyed on the backend client, one on the public
// frontend client, so SPA-issued tokens pass the audience check without
// a Keycloak audience mapper.
type OIDCAuthenticator struct {
	verifiers []tokenVerifier
	issuer    string
}

// tokenVerifier verifies a raw bearer token for one accepted audience.
type tokenVerifier interface {
	Verify(ctx context.Context, token string) (*oidc.IDTokenClaims, error)
}

// rpVerifier verifies against one relying party's client id.
type rpVerifier struct {
	relyingParty rp.RelyingParty
}

func (v rpVerifier) Verify(ctx context.Context, token string) (*oidc.IDTokenClaims, error) {
	return rp.VerifyIDToken[*oidc.IDTokenClaims](ctx, token, v.relyingParty.IDTokenVerifier())
}

// NewOIDCAuthenticator performs OIDC discovery against the Keycloak realm
// and prepares the token verifiers: the backend confidential client, and
// the public frontend client when one is configured.
func NewOIDCAuthenticator(ctx context.Context, cfg *config.KeycloakConfig) (*OIDCAuthenticator, error) {
	issuer := cfg.IssuerURL()

	httpClient := &http.Client{Timeout: 10 * time.Second}
	backend, err := rp.NewRelyingPartyOIDC(ctx,
		issuer,
		cfg.ClientID,
		cfg.ClientSecret,
		"", // resource server, no redirect flow
		[]string{oidc.ScopeOpenID},
		rp.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery against %s: %w", issuer, err)
	}
	verifiers := []tokenVerifier{rpVerifier{relyingParty: backend}}

	if cfg.FrontendClientID != "" && cfg.FrontendClientID != cfg.ClientID {
		frontend, err := rp.NewRelyingPartyOIDC(ctx,
			issuer,
			cfg.FrontendClientID,
			"", // public client
			"",
			[]string{oidc.ScopeOpenID},
			rp.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("oidc discovery against %s: %w", issuer, err)
		}
		verifiers = append(verifiers, rpVerifier{relyingParty: frontend})
	}

	logging.Info().
		Str("issuer", issuer).
		Str("client_id", cfg.ClientID).
		Str("frontend_client_id", cfg.FrontendClientID).
		Msg("Keycloak verifiers ready")
	return &OIDCAuthenticator{verifiers: verifiers, issuer: issuer}, nil
}

// Authenticate verifies the request's bearer token and maps its claims.
// Verifiers are tried in order; the backend audience wins when both
// would accept.
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*Subject, error) {
	token := extractBearer(r)
	if token == "" {
		return nil, ErrNoCredentials
	}

	var claims *oidc.IDTokenClaims
	var verifyErr error
	for _, verifier := range a.verifiers {
		c, err := verifier.Verify(ctx, token)
		if err == nil {
			claims = c
			break
		}
		if verifyErr == nil {
			verifyErr = err
		}
	}
	if claims == nil {
		return nil, mapVerificationError(verifyErr)
	}

	subject := &Subject{
		Subject:  claims.Subject,
		Username: claims.PreferredUsername,
		Email:    claims.Email,
		Roles:    realmRoles(claims.Claims),
	}
	if subject.Username == "" {
		subject.Username = claims.Subject
	}

	logging.Debug().
		Str("user", subject.Username).
		Int("roles", len(subject.Roles)).
		Msg("OIDC authentication successful")
	return subject, nil
}

// Name implements Authenticator.
func (a *OIDCAuthenticator) Name() string { return ModeOIDC }

// realmRoles digs Keycloak's realm roles out of the token claims:
//
//	"realm_access": {"roles": ["admin", "offline_access", ...]}
func realmRoles(claims map[string]any) []string {
	access, ok := claims["realm_access"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := access["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

func mapVerificationError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "expired") {
		return ErrExpiredCredentials
	}
	logging.Debug().Err(err).Msg("Token verification failed")
	return fmt.Errorf("%w: %s", ErrInvalidCredentials, msg)
}

// NewAuthenticator picks the authenticator for the configured auth mode.
func NewAuthenticator(ctx context.Context, cfg *config.KeycloakConfig) (Authenticator, error) {
	switch cfg.AuthMode {
	case ModeNone:
		logging.Warn().Msg("Authentication disabled, every request is admin")
		return NoneAuthenticator{}, nil
	case ModeOIDC, "":
		return NewOIDCAuthenticator(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
}
