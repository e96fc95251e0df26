// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/satori/go.uuid"

	"github.com/sapcc/arcanum/internal/arcanum"
)

// TokenValidity is how long issued access tokens stay valid. Clients are
// expected to refresh via POST /token well before expiry.
const TokenValidity = 4 * time.Hour

// sessionClaims is the claims shape of access tokens issued by this driver.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	SessionID string `json:"sid"`
}

func issuerName(cfg arcanum.Configuration) string {
	return "arcanum-api@" + cfg.APIPublicHostname
}

// IssueSessionToken mints an access token for the given user and session.
func IssueSessionToken(cfg arcanum.Configuration, userID, email, sessionID string) (string, error) {
	issuerKey := cfg.JWTIssuerKeys[0]
	method := chooseSigningMethod(issuerKey)

	now := time.Now()
	return jwt.NewWithClaims(method, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewV4().String(),
			Audience:  jwt.ClaimStrings{cfg.APIPublicHostname},
			Issuer:    issuerName(cfg),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenValidity)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email:     email,
		SessionID: sessionID,
	}).SignedString(issuerKey)
}

// parseSessionToken parses and verifies an access token. All configured
// issuer keys are tried, so tokens stay valid across a key rotation.
func parseSessionToken(cfg arcanum.Configuration, tokenStr string) (*sessionClaims, *arcanum.GatewayError) {
	var lastErr error
	for _, issuerKey := range cfg.JWTIssuerKeys {
		ourSigningMethod := chooseSigningMethod(issuerKey)
		var claims sessionClaims
		token, err := jwt.ParseWithClaims(tokenStr, &claims,
			func(t *jwt.Token) (any, error) {
				// check that the signing method matches what we generate
				if !equalSigningMethods(ourSigningMethod, t.Method) {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return derivePublicKey(issuerKey), nil
			},
			jwt.WithIssuer(issuerName(cfg)),
			jwt.WithAudience(cfg.APIPublicHostname),
			jwt.WithExpirationRequired(),
			// allow up to 3 seconds clock mismatch
			jwt.WithLeeway(3*time.Second),
		)
		if err == nil && token.Valid {
			return &claims, nil
		}
		lastErr = err
	}
	return nil, arcanum.ErrUnauthenticated.With("%s", lastErr.Error())
}

func chooseSigningMethod(key crypto.PrivateKey) jwt.SigningMethod {
	switch key.(type) {
	case ed25519.PrivateKey:
		return jwt.SigningMethodEdDSA
	case *rsa.PrivateKey:
		return jwt.SigningMethodRS256
	default:
		panic(fmt.Sprintf("do not know which JWT method to use for issuerKey.type = %T", key))
	}
}

func derivePublicKey(key crypto.PrivateKey) crypto.PublicKey {
	switch key := key.(type) {
	case ed25519.PrivateKey:
		return key.Public()
	case *rsa.PrivateKey:
		return key.Public()
	default:
		panic(fmt.Sprintf("do not know which JWT method to use for issuerKey.type = %T", key))
	}
}

func equalSigningMethods(m1, m2 jwt.SigningMethod) bool {
	switch m1 := m1.(type) {
	case *jwt.SigningMethodEd25519:
		if m2, ok := m2.(*jwt.SigningMethodEd25519); ok {
			return *m1 == *m2
		}
		return false
	case *jwt.SigningMethodRSA:
		if m2, ok := m2.(*jwt.SigningMethodRSA); ok {
			return *m1 == *m2
		}
		return false
	default:
		panic(fmt.Sprintf("do not know how to compare signing methods of type %T", m1))
	}
}
