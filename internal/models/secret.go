// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"time"
)

// SecretType is an enum. It decides who may see a secret: personal secrets
// are only visible to the identity that created them, shared secrets are
// visible to everyone holding a suitable permission in the workspace.
type SecretType string

const (
	// PersonalSecret is the SecretType for secrets scoped to a single identity.
	PersonalSecret SecretType = "PERSONAL"
	// SharedSecret is the SecretType for secrets shared within a workspace.
	SharedSecret SecretType = "SHARED"
)

// IsValid returns whether this SecretType is one of the declared values.
func (t SecretType) IsValid() bool {
	return t == PersonalSecret || t == SharedSecret
}

// Secret contains a record from the `secrets` table.
//
// The gateway only ever sees ciphertext. Key and value are each stored as a
// ciphertext/IV/authentication-tag triple; decryption happens on the client.
type Secret struct {
	ID          string     `db:"id" json:"id"`
	WorkspaceID string     `db:"workspace_id" json:"workspaceId"`
	Environment string     `db:"environment" json:"environment"`
	FolderID    string     `db:"folder_id" json:"folderId"`
	Type        SecretType `db:"type" json:"type"`
	// UserID is only set for personal secrets and identifies their owner.
	UserID string `db:"user_id" json:"userId,omitempty"`

	SecretKeyCiphertext   string `db:"secret_key_ciphertext" json:"secretKeyCiphertext"`
	SecretKeyIV           string `db:"secret_key_iv" json:"secretKeyIV"`
	SecretKeyTag          string `db:"secret_key_tag" json:"secretKeyTag"`
	SecretValueCiphertext string `db:"secret_value_ciphertext" json:"secretValueCiphertext"`
	SecretValueIV         string `db:"secret_value_iv" json:"secretValueIV"`
	SecretValueTag        string `db:"secret_value_tag" json:"secretValueTag"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// SecretTag contains a record from the `secret_tags` table.
type SecretTag struct {
	SecretID string `db:"secret_id"`
	Slug     string `db:"slug"`
}

// SecretQuery contains the filters for listing secrets in a workspace.
type SecretQuery struct {
	WorkspaceID    string
	Environment    string
	FolderID       string
	SecretPath     string
	TagSlugs       []string
	IncludeImports bool
	// IdentityID restricts personal secrets to this owner.
	IdentityID string
}
