// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"time"
)

// User contains a record from the `users` table.
//
// The login verifier is derived from the password on the client; the
// password itself never reaches the server. The private key is stored
// encrypted under a key that only the client can derive.
type User struct {
	ID            string `db:"id"`
	Email         string `db:"email"`
	LoginSalt     string `db:"login_salt"`
	LoginVerifier string `db:"login_verifier"`

	PublicKey           string `db:"public_key"`
	EncryptedPrivateKey string `db:"encrypted_private_key"`
	PrivateKeyIV        string `db:"private_key_iv"`
	PrivateKeyTag       string `db:"private_key_tag"`

	CreatedAt time.Time `db:"created_at"`
}

// Session contains a record from the `sessions` table. The refresh token
// itself is never stored, only its digest.
type Session struct {
	ID                 string    `db:"id"`
	UserID             string    `db:"user_id"`
	RefreshTokenDigest string    `db:"refresh_token_digest"`
	Revoked            bool      `db:"revoked"`
	ExpiresAt          time.Time `db:"expires_at"`
	CreatedAt          time.Time `db:"created_at"`
}
