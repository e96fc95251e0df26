// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package arcanum

import (
	"context"
	"errors"

	"github.com/sapcc/go-bits/pluggable"
)

// LoginChallenge is returned by SessionDriver.BeginLogin. The gateway passes
// it through to the client without interpreting it; the SRP-style handshake
// is entirely the session subsystem's concern.
type LoginChallenge struct {
	ServerPublicKey string `json:"serverPublicKey"`
	Salt            string `json:"salt"`
}

// LoginResult is returned by SessionDriver.CompleteLogin. Token is a
// short-lived access token; RefreshToken can be traded for fresh access
// tokens via ExchangeToken. The remaining fields return the caller's stored
// key material.
type LoginResult struct {
	Token               string `json:"token"`
	RefreshToken        string `json:"refreshToken"`
	PublicKey           string `json:"publicKey"`
	EncryptedPrivateKey string `json:"encryptedPrivateKey"`
	IV                  string `json:"iv"`
	Tag                 string `json:"tag"`
}

// SessionDriver represents the session/token issuance subsystem. How tokens
// are minted and passwords are hashed is out of the gateway's hands; the
// gateway only validates request shapes and forwards.
type SessionDriver interface {
	pluggable.Plugin
	// Init is called before any other interface methods.
	Init(ctx context.Context, cfg Configuration, db *DB) error

	// ExchangeToken trades a valid refresh token for a fresh access token.
	ExchangeToken(ctx context.Context, refreshToken string) (string, *GatewayError)
	// BeginLogin starts a login handshake for the given account.
	BeginLogin(ctx context.Context, email, clientPublicKey string) (LoginChallenge, *GatewayError)
	// CompleteLogin finishes a login handshake.
	CompleteLogin(ctx context.Context, email, clientProof string) (LoginResult, *GatewayError)
	// RevokeSession invalidates the session that authenticated the current
	// request.
	RevokeSession(ctx context.Context, identity Identity) *GatewayError
	// RevokeAllSessions invalidates every session of the given identity.
	RevokeAllSessions(ctx context.Context, identity Identity) *GatewayError
}

// SessionDriverRegistry is a pluggable.Registry for SessionDriver implementations.
var SessionDriverRegistry pluggable.Registry[SessionDriver]

// NewSessionDriver creates a new SessionDriver using one of the plugins
// registered with SessionDriverRegistry.
func NewSessionDriver(ctx context.Context, pluginTypeID string, cfg Configuration, db *DB) (SessionDriver, error) {
	sd, ok := SessionDriverRegistry.TryInstantiate(pluginTypeID).Unpack()
	if !ok {
		return nil, errors.New("no such session driver: " + pluginTypeID)
	}
	return sd, sd.Init(ctx, cfg, db)
}
