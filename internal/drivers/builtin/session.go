// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/sapcc/go-bits/sqlext"
	uuid "github.com/satori/go.uuid"

	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/models"
)

func init() {
	arcanum.SessionDriverRegistry.Add(func() arcanum.SessionDriver { return &SessionDriver{} })
}

// challengeValidity is how long a login challenge from BeginLogin can be
// answered via CompleteLogin.
const challengeValidity = 2 * time.Minute

// sessionValidity is how long a refresh token stays usable.
const sessionValidity = 30 * 24 * time.Hour

type pendingChallenge struct {
	Nonce     string
	ExpiresAt time.Time
}

// SessionDriver is the session driver "builtin". Sessions live in the
// gateway's own database; login challenges are held in memory, so a login
// handshake must complete against the same API process that started it.
type SessionDriver struct {
	cfg arcanum.Configuration
	db  *arcanum.DB

	mu         sync.Mutex
	challenges map[string]pendingChallenge
}

// PluginTypeID implements the arcanum.SessionDriver interface.
func (d *SessionDriver) PluginTypeID() string { return "builtin" }

// Init implements the arcanum.SessionDriver interface.
func (d *SessionDriver) Init(ctx context.Context, cfg arcanum.Configuration, db *arcanum.DB) error {
	d.cfg = cfg
	d.db = db
	d.challenges = make(map[string]pendingChallenge)
	return nil
}

var sessionByDigestQuery = sqlext.SimplifyWhitespace(`
	SELECT * FROM sessions WHERE refresh_token_digest = $1 AND NOT revoked AND expires_at > NOW()
`)

// ExchangeToken implements the arcanum.SessionDriver interface.
func (d *SessionDriver) ExchangeToken(ctx context.Context, refreshToken string) (string, *arcanum.GatewayError) {
	var session models.Session
	err := d.db.WithContext(ctx).SelectOne(&session, sessionByDigestQuery, digestOf(refreshToken))
	if errors.Is(err, sql.ErrNoRows) {
		return "", arcanum.ErrUnauthenticated.With("invalid refresh token")
	}
	if err != nil {
		return "", arcanum.AsGatewayError(err)
	}

	var user models.User
	err = d.db.WithContext(ctx).SelectOne(&user, `SELECT * FROM users WHERE id = $1`, session.UserID)
	if err != nil {
		return "", arcanum.AsGatewayError(err)
	}

	token, err := IssueSessionToken(d.cfg, user.ID, user.Email, session.ID)
	if err != nil {
		return "", arcanum.AsGatewayError(err)
	}
	return token, nil
}

// BeginLogin implements the arcanum.SessionDriver interface.
func (d *SessionDriver) BeginLogin(ctx context.Context, email, clientPublicKey string) (arcanum.LoginChallenge, *arcanum.GatewayError) {
	var user models.User
	err := d.db.WithContext(ctx).SelectOne(&user, `SELECT * FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return arcanum.LoginChallenge{}, arcanum.ErrUnauthenticated.With("invalid credentials")
	}
	if err != nil {
		return arcanum.LoginChallenge{}, arcanum.AsGatewayError(err)
	}

	nonce := randomHex(32)
	d.mu.Lock()
	d.challenges[email] = pendingChallenge{
		Nonce:     nonce,
		ExpiresAt: time.Now().Add(challengeValidity),
	}
	d.mu.Unlock()

	return arcanum.LoginChallenge{
		ServerPublicKey: nonce,
		Salt:            user.LoginSalt,
	}, nil
}

// CompleteLogin implements the arcanum.SessionDriver interface.
func (d *SessionDriver) CompleteLogin(ctx context.Context, email, clientProof string) (arcanum.LoginResult, *arcanum.GatewayError) {
	d.mu.Lock()
	challenge, ok := d.challenges[email]
	delete(d.challenges, email)
	d.mu.Unlock()
	if !ok || challenge.ExpiresAt.Before(time.Now()) {
		return arcanum.LoginResult{}, arcanum.ErrUnauthenticated.With("no pending login challenge")
	}

	var user models.User
	err := d.db.WithContext(ctx).SelectOne(&user, `SELECT * FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return arcanum.LoginResult{}, arcanum.ErrUnauthenticated.With("invalid credentials")
	}
	if err != nil {
		return arcanum.LoginResult{}, arcanum.AsGatewayError(err)
	}

	// the proof binds the stored verifier to this challenge; a replayed
	// proof fails because the nonce is consumed above
	expected := digestOf(challenge.Nonce + user.LoginVerifier)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(clientProof)) != 1 {
		return arcanum.LoginResult{}, arcanum.ErrUnauthenticated.With("invalid credentials")
	}

	refreshToken := randomHex(32)
	session := models.Session{
		ID:                 uuid.NewV4().String(),
		UserID:             user.ID,
		RefreshTokenDigest: digestOf(refreshToken),
		ExpiresAt:          time.Now().Add(sessionValidity),
		CreatedAt:          time.Now(),
	}
	err = d.db.WithContext(ctx).Insert(&session)
	if err != nil {
		return arcanum.LoginResult{}, arcanum.AsGatewayError(err)
	}

	token, err := IssueSessionToken(d.cfg, user.ID, user.Email, session.ID)
	if err != nil {
		return arcanum.LoginResult{}, arcanum.AsGatewayError(err)
	}
	return arcanum.LoginResult{
		Token:               token,
		RefreshToken:        refreshToken,
		PublicKey:           user.PublicKey,
		EncryptedPrivateKey: user.EncryptedPrivateKey,
		IV:                  user.PrivateKeyIV,
		Tag:                 user.PrivateKeyTag,
	}, nil
}

// RevokeSession implements the arcanum.SessionDriver interface.
func (d *SessionDriver) RevokeSession(ctx context.Context, identity arcanum.Identity) *arcanum.GatewayError {
	// only JWT sessions can be revoked individually; for anything else,
	// fall back to revoking all sessions of the identity
	if uid, ok := identity.(interface{ CurrentSessionID() string }); ok {
		_, err := d.db.WithContext(ctx).Exec(
			`UPDATE sessions SET revoked = TRUE WHERE id = $1`, uid.CurrentSessionID())
		return arcanum.AsGatewayError(err)
	}
	return d.RevokeAllSessions(ctx, identity)
}

// RevokeAllSessions implements the arcanum.SessionDriver interface.
func (d *SessionDriver) RevokeAllSessions(ctx context.Context, identity arcanum.Identity) *arcanum.GatewayError {
	_, err := d.db.WithContext(ctx).Exec(
		`UPDATE sessions SET revoked = TRUE WHERE user_id = $1`, identity.IdentityID())
	return arcanum.AsGatewayError(err)
}

func randomHex(byteCount int) string {
	buf := make([]byte, byteCount)
	_, err := rand.Read(buf)
	if err != nil {
		// rand.Read only fails if the OS entropy source is broken
		panic(err.Error())
	}
	return hex.EncodeToString(buf)
}
