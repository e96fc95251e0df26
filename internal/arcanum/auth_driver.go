// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package arcanum

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/sapcc/go-bits/audittools"
	"github.com/sapcc/go-bits/pluggable"
)

// AuthMode is an enum of the credential classes accepted by the gateway.
// Each endpoint declares the set of modes that it accepts.
type AuthMode string

const (
	// ModeJWT authenticates with a bearer token in the Authorization header.
	ModeJWT AuthMode = "JWT"
	// ModeAPIKey authenticates with the X-API-Key header.
	ModeAPIKey AuthMode = "API_KEY"
	// ModeServiceToken authenticates with the X-Service-Token header.
	ModeServiceToken AuthMode = "SERVICE_TOKEN"
)

// AuthModePrecedence is the fixed order in which credential classes are
// tried. The first accepted mode whose credential material is present in the
// request wins; later modes are not consulted.
var AuthModePrecedence = []AuthMode{ModeJWT, ModeAPIKey, ModeServiceToken}

// Identity describes the identity of an authenticated caller, as resolved by
// an AuthDriver from one concrete credential.
type Identity interface {
	// IdentityID returns the stable ID of the user or machine identity.
	IdentityID() string
	// DisplayName returns a human-readable name (e.g. e-mail address or token
	// name) for log and audit output.
	DisplayName() string
	// UserInfo returns the audit representation of this identity, or nil if
	// this identity shall not appear in audit events.
	UserInfo() audittools.UserInfo
}

// AuthDriver represents the session/token subsystem that can verify raw
// credential material. Verification internals (signature checks, digest
// comparisons, revocation lists) are the driver's concern; the gateway only
// consumes the verdict.
type AuthDriver interface {
	pluggable.Plugin
	// Init is called before any other interface methods. The supplied
	// *redis.Client may be nil and can be stored for caching verdicts.
	Init(ctx context.Context, cfg Configuration, db *DB, rc *redis.Client) error

	// VerifyCredential verifies the given raw credential material under the
	// given mode. It returns ErrUnauthenticated for expired, malformed or
	// revoked credentials.
	VerifyCredential(ctx context.Context, mode AuthMode, rawCredential string) (Identity, *GatewayError)
}

// AuthDriverRegistry is a pluggable.Registry for AuthDriver implementations.
var AuthDriverRegistry pluggable.Registry[AuthDriver]

// NewAuthDriver creates a new AuthDriver using one of the plugins registered
// with AuthDriverRegistry.
func NewAuthDriver(ctx context.Context, pluginTypeID string, cfg Configuration, db *DB, rc *redis.Client) (AuthDriver, error) {
	ad, ok := AuthDriverRegistry.TryInstantiate(pluginTypeID).Unpack()
	if !ok {
		return nil, errors.New("no such auth driver: " + pluginTypeID)
	}
	return ad, ad.Init(ctx, cfg, db, rc)
}
