// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"time"
)

// Role is an enum of the coarse authorization tiers within a workspace.
type Role string

const (
	// RoleAdmin is the Role for workspace administrators.
	RoleAdmin Role = "ADMIN"
	// RoleMember is the Role for regular workspace members.
	RoleMember Role = "MEMBER"
)

// Permission is an enum of the fine-grained capabilities that can be granted
// within a workspace, either at workspace scope or for individual secrets.
type Permission string

const (
	// PermReadSecrets allows reading and listing secrets.
	PermReadSecrets Permission = "READ_SECRETS"
	// PermWriteSecrets allows creating, updating and deleting secrets.
	PermWriteSecrets Permission = "WRITE_SECRETS"
)

// PermissionSet is a set of permissions, as granted to one identity within
// one workspace or for one specific secret.
type PermissionSet map[Permission]bool

// Has returns whether this set contains the given permission.
func (s PermissionSet) Has(perm Permission) bool {
	return s[perm]
}

// HasAll returns whether this set contains every one of the given permissions.
func (s PermissionSet) HasAll(perms []Permission) bool {
	for _, perm := range perms {
		if !s[perm] {
			return false
		}
	}
	return true
}

// SecretGrants maps secret IDs to the permissions that one identity holds for
// each of these secrets.
type SecretGrants map[string]PermissionSet

// WorkspaceMembership contains a record from the `workspace_memberships` table.
type WorkspaceMembership struct {
	WorkspaceID string    `db:"workspace_id"`
	IdentityID  string    `db:"identity_id"`
	Role        Role      `db:"role"`
	CreatedAt   time.Time `db:"created_at"`
}

// SecretPermission contains a record from the `secret_permissions` table.
// Rows only exist for shared secrets whose access deviates from the
// workspace-level default.
type SecretPermission struct {
	SecretID   string     `db:"secret_id"`
	IdentityID string     `db:"identity_id"`
	Permission Permission `db:"permission"`
}

// APIKey contains a record from the `api_keys` table. The key material itself
// is never stored, only its digest.
type APIKey struct {
	ID           string     `db:"id"`
	IdentityID   string     `db:"identity_id"`
	SecretDigest string     `db:"secret_digest"`
	Name         string     `db:"name"`
	ExpiresAt    *time.Time `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

// ServiceToken contains a record from the `service_tokens` table. Service
// tokens are workspace-scoped machine credentials.
type ServiceToken struct {
	ID           string     `db:"id"`
	WorkspaceID  string     `db:"workspace_id"`
	SecretDigest string     `db:"secret_digest"`
	Name         string     `db:"name"`
	ExpiresAt    *time.Time `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
}
