// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package builtin contains the driver implementations that run against the
// gateway's own database: credential verification and the session subsystem.
package builtin

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sapcc/go-bits/sqlext"

	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/models"
)

func init() {
	arcanum.AuthDriverRegistry.Add(func() arcanum.AuthDriver { return &AuthDriver{} })
}

// AuthDriver is the auth driver "builtin". JWTs are verified against the
// configured issuer keys; API keys and service tokens are verified by digest
// lookup in the database.
type AuthDriver struct {
	cfg arcanum.Configuration
	db  *arcanum.DB
}

// PluginTypeID implements the arcanum.AuthDriver interface.
func (d *AuthDriver) PluginTypeID() string { return "builtin" }

// Init implements the arcanum.AuthDriver interface.
func (d *AuthDriver) Init(ctx context.Context, cfg arcanum.Configuration, db *arcanum.DB, rc *redis.Client) error {
	d.cfg = cfg
	d.db = db
	return nil
}

// VerifyCredential implements the arcanum.AuthDriver interface.
func (d *AuthDriver) VerifyCredential(ctx context.Context, mode arcanum.AuthMode, rawCredential string) (arcanum.Identity, *arcanum.GatewayError) {
	switch mode {
	case arcanum.ModeJWT:
		return d.verifySessionToken(ctx, rawCredential)
	case arcanum.ModeAPIKey:
		return d.verifyAPIKey(ctx, rawCredential)
	case arcanum.ModeServiceToken:
		return d.verifyServiceToken(ctx, rawCredential)
	default:
		return nil, arcanum.ErrUnauthenticated.With("unknown credential mode %q", mode)
	}
}

var sessionAliveQuery = sqlext.SimplifyWhitespace(`
	SELECT COUNT(*) FROM sessions WHERE id = $1 AND NOT revoked AND expires_at > NOW()
`)

func (d *AuthDriver) verifySessionToken(ctx context.Context, tokenStr string) (arcanum.Identity, *arcanum.GatewayError) {
	claims, gerr := parseSessionToken(d.cfg, tokenStr)
	if gerr != nil {
		return nil, gerr
	}

	// a logout kills the token early, even though its signature stays valid
	count, err := d.db.WithContext(ctx).SelectInt(sessionAliveQuery, claims.SessionID)
	if err != nil {
		return nil, arcanum.AsGatewayError(err)
	}
	if count == 0 {
		return nil, arcanum.ErrUnauthenticated.With("session has been revoked")
	}

	return UserIdentity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		SessionID: claims.SessionID,
	}, nil
}

var apiKeyQuery = sqlext.SimplifyWhitespace(`
	SELECT * FROM api_keys WHERE secret_digest = $1
`)

func (d *AuthDriver) verifyAPIKey(ctx context.Context, rawCredential string) (arcanum.Identity, *arcanum.GatewayError) {
	var key models.APIKey
	err := d.db.WithContext(ctx).SelectOne(&key, apiKeyQuery, digestOf(rawCredential))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, arcanum.ErrUnauthenticated.With("no such API key")
	}
	if err != nil {
		return nil, arcanum.AsGatewayError(err)
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
		return nil, arcanum.ErrUnauthenticated.With("API key has expired")
	}
	return APIKeyIdentity{UserID: key.IdentityID, KeyName: key.Name}, nil
}

var serviceTokenQuery = sqlext.SimplifyWhitespace(`
	SELECT * FROM service_tokens WHERE secret_digest = $1
`)

func (d *AuthDriver) verifyServiceToken(ctx context.Context, rawCredential string) (arcanum.Identity, *arcanum.GatewayError) {
	var token models.ServiceToken
	err := d.db.WithContext(ctx).SelectOne(&token, serviceTokenQuery, digestOf(rawCredential))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, arcanum.ErrUnauthenticated.With("no such service token")
	}
	if err != nil {
		return nil, arcanum.AsGatewayError(err)
	}
	if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
		return nil, arcanum.ErrUnauthenticated.With("service token has expired")
	}
	return ServiceTokenIdentity{
		TokenID:     token.ID,
		TokenName:   token.Name,
		WorkspaceID: token.WorkspaceID,
	}, nil
}

func digestOf(rawCredential string) string {
	digest := sha256.Sum256([]byte(rawCredential))
	return hex.EncodeToString(digest[:])
}
