// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package test contains the mock drivers and the setup helper for unit
// tests. All mock drivers register under the plugin type ID "unittest".
package test

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sapcc/go-bits/audittools"

	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/models"
)

func init() {
	arcanum.AuthDriverRegistry.Add(func() arcanum.AuthDriver { return &AuthDriver{} })
	arcanum.MembershipDriverRegistry.Add(func() arcanum.MembershipDriver { return &MembershipDriver{} })
	arcanum.SecretStoreDriverRegistry.Add(func() arcanum.SecretStoreDriver { return &SecretStoreDriver{} })
	arcanum.SessionDriverRegistry.Add(func() arcanum.SessionDriver { return &SessionDriver{} })
}

// Identity is an arcanum.Identity for unit tests.
type Identity struct {
	ID   string
	Name string
}

// IdentityID implements the arcanum.Identity interface.
func (i Identity) IdentityID() string { return i.ID }

// DisplayName implements the arcanum.Identity interface.
func (i Identity) DisplayName() string { return i.Name }

// UserInfo implements the arcanum.Identity interface.
func (i Identity) UserInfo() audittools.UserInfo {
	return userInfo{i.ID, i.Name}
}

type userInfo struct {
	uuid string
	name string
}

func (u userInfo) UserUUID() string                { return u.uuid }
func (u userInfo) UserName() string                { return u.name }
func (u userInfo) UserDomainName() string          { return "" }
func (u userInfo) ProjectScopeUUID() string        { return "" }
func (u userInfo) ProjectScopeName() string        { return "" }
func (u userInfo) ProjectScopeDomainName() string  { return "" }
func (u userInfo) DomainScopeUUID() string         { return "" }
func (u userInfo) DomainScopeName() string         { return "" }
func (u userInfo) ApplicationCredentialID() string { return "" }

// AuthDriver (driver ID "unittest") is an arcanum.AuthDriver for unit tests.
// Credentials are registered explicitly; everything else is rejected.
type AuthDriver struct {
	// Credentials maps "<mode>:<raw credential>" to the identity that this
	// credential authenticates.
	Credentials map[string]arcanum.Identity
	// VerifyLog records the verification calls in order.
	VerifyLog []arcanum.AuthMode
}

// PluginTypeID implements the arcanum.AuthDriver interface.
func (d *AuthDriver) PluginTypeID() string { return "unittest" }

// Init implements the arcanum.AuthDriver interface.
func (d *AuthDriver) Init(ctx context.Context, cfg arcanum.Configuration, db *arcanum.DB, rc *redis.Client) error {
	d.Credentials = make(map[string]arcanum.Identity)
	return nil
}

// GrantCredential registers a credential for the given identity.
func (d *AuthDriver) GrantCredential(mode arcanum.AuthMode, rawCredential string, identity arcanum.Identity) {
	d.Credentials[string(mode)+":"+rawCredential] = identity
}

// VerifyCredential implements the arcanum.AuthDriver interface.
func (d *AuthDriver) VerifyCredential(ctx context.Context, mode arcanum.AuthMode, rawCredential string) (arcanum.Identity, *arcanum.GatewayError) {
	d.VerifyLog = append(d.VerifyLog, mode)
	identity, ok := d.Credentials[string(mode)+":"+rawCredential]
	if !ok {
		return nil, arcanum.ErrUnauthenticated.With("wrong credentials")
	}
	return identity, nil
}

// MembershipDriver (driver ID "unittest") is an arcanum.MembershipDriver for
// unit tests.
type MembershipDriver struct {
	// Roles maps workspace ID to identity ID to role.
	Roles map[string]map[string]models.Role
	// WorkspacePerms maps workspace ID to identity ID to permissions.
	WorkspacePerms map[string]map[string]models.PermissionSet
	// SecretPerms maps secret ID to identity ID to permissions. Secrets
	// without an entry fall back to the workspace-level permissions.
	SecretPerms map[string]map[string]models.PermissionSet
}

// PluginTypeID implements the arcanum.MembershipDriver interface.
func (d *MembershipDriver) PluginTypeID() string { return "unittest" }

// Init implements the arcanum.MembershipDriver interface.
func (d *MembershipDriver) Init(ctx context.Context, db *arcanum.DB) error {
	d.Roles = make(map[string]map[string]models.Role)
	d.WorkspacePerms = make(map[string]map[string]models.PermissionSet)
	d.SecretPerms = make(map[string]map[string]models.PermissionSet)
	return nil
}

// GrantMembership registers a role and workspace-level permissions for the
// given identity.
func (d *MembershipDriver) GrantMembership(workspaceID, identityID string, role models.Role, perms ...models.Permission) {
	if d.Roles[workspaceID] == nil {
		d.Roles[workspaceID] = make(map[string]models.Role)
		d.WorkspacePerms[workspaceID] = make(map[string]models.PermissionSet)
	}
	d.Roles[workspaceID][identityID] = role
	permSet := make(models.PermissionSet, len(perms))
	for _, perm := range perms {
		permSet[perm] = true
	}
	d.WorkspacePerms[workspaceID][identityID] = permSet
}

// GrantSecretPermissions overrides the permissions on one secret for the
// given identity.
func (d *MembershipDriver) GrantSecretPermissions(secretID, identityID string, perms ...models.Permission) {
	if d.SecretPerms[secretID] == nil {
		d.SecretPerms[secretID] = make(map[string]models.PermissionSet)
	}
	permSet := make(models.PermissionSet, len(perms))
	for _, perm := range perms {
		permSet[perm] = true
	}
	d.SecretPerms[secretID][identityID] = permSet
}

// LookupRole implements the arcanum.MembershipDriver interface.
func (d *MembershipDriver) LookupRole(ctx context.Context, identity arcanum.Identity, workspaceID string) (models.Role, bool, error) {
	role, ok := d.Roles[workspaceID][identity.IdentityID()]
	return role, ok, nil
}

// LookupWorkspacePermissions implements the arcanum.MembershipDriver interface.
func (d *MembershipDriver) LookupWorkspacePermissions(ctx context.Context, identity arcanum.Identity, workspaceID string) (models.PermissionSet, error) {
	perms, ok := d.WorkspacePerms[workspaceID][identity.IdentityID()]
	if !ok {
		return models.PermissionSet{}, nil
	}
	return perms, nil
}

// LookupSecretPermissions implements the arcanum.MembershipDriver interface.
func (d *MembershipDriver) LookupSecretPermissions(ctx context.Context, identity arcanum.Identity, workspaceID string, secrets []models.Secret) (models.SecretGrants, error) {
	workspacePerms, err := d.LookupWorkspacePermissions(ctx, identity, workspaceID)
	if err != nil {
		return nil, err
	}
	grants := make(models.SecretGrants, len(secrets))
	for _, secret := range secrets {
		if perms, ok := d.SecretPerms[secret.ID][identity.IdentityID()]; ok {
			grants[secret.ID] = perms
		} else {
			grants[secret.ID] = workspacePerms
		}
	}
	return grants, nil
}

// SecretStoreDriver (driver ID "unittest") is an arcanum.SecretStoreDriver
// for unit tests. Secrets live in memory and get deterministic IDs.
type SecretStoreDriver struct {
	mu      sync.Mutex
	Secrets map[string]models.Secret
	nextID  int
	// OpLog records the mutating operations in order, e.g. "create:2" or
	// "delete:s-1".
	OpLog []string
}

// PluginTypeID implements the arcanum.SecretStoreDriver interface.
func (d *SecretStoreDriver) PluginTypeID() string { return "unittest" }

// Init implements the arcanum.SecretStoreDriver interface.
func (d *SecretStoreDriver) Init(ctx context.Context, db *arcanum.DB) error {
	d.Secrets = make(map[string]models.Secret)
	return nil
}

// AddSecret stores a secret record directly, bypassing the API. Returns the
// assigned ID.
func (d *SecretStoreDriver) AddSecret(secret models.Secret) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if secret.ID == "" {
		d.nextID++
		secret.ID = fmt.Sprintf("s-%d", d.nextID)
	}
	d.Secrets[secret.ID] = secret
	return secret.ID
}

// ResolveSecretsByIDs implements the arcanum.SecretStoreDriver interface.
func (d *SecretStoreDriver) ResolveSecretsByIDs(ctx context.Context, workspaceID string, ids []string) (map[string]models.Secret, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make(map[string]models.Secret)
	for _, id := range ids {
		secret, ok := d.Secrets[id]
		if ok && secret.WorkspaceID == workspaceID {
			result[id] = secret
		}
	}
	return result, nil
}

// ListSecrets implements the arcanum.SecretStoreDriver interface.
func (d *SecretStoreDriver) ListSecrets(ctx context.Context, query models.SecretQuery) ([]models.Secret, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []models.Secret
	for _, secret := range d.Secrets {
		if secret.WorkspaceID != query.WorkspaceID || secret.Environment != query.Environment || secret.FolderID != query.FolderID {
			continue
		}
		if secret.Type == models.PersonalSecret && secret.UserID != query.IdentityID {
			continue
		}
		result = append(result, secret)
	}
	slices.SortFunc(result, func(lhs, rhs models.Secret) int {
		return strings.Compare(lhs.ID, rhs.ID)
	})
	return result, nil
}

// CreateSecrets implements the arcanum.SecretStoreDriver interface.
func (d *SecretStoreDriver) CreateSecrets(ctx context.Context, secrets []models.Secret) ([]models.Secret, error) {
	d.mu.Lock()
	d.OpLog = append(d.OpLog, fmt.Sprintf("create:%d", len(secrets)))
	d.mu.Unlock()
	for idx := range secrets {
		secrets[idx].ID = d.AddSecret(secrets[idx])
	}
	return secrets, nil
}

// UpdateSecrets implements the arcanum.SecretStoreDriver interface.
func (d *SecretStoreDriver) UpdateSecrets(ctx context.Context, secrets []models.Secret) ([]models.Secret, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.OpLog = append(d.OpLog, fmt.Sprintf("update:%d", len(secrets)))
	for _, secret := range secrets {
		d.Secrets[secret.ID] = secret
	}
	return secrets, nil
}

// DeleteSecrets implements the arcanum.SecretStoreDriver interface.
func (d *SecretStoreDriver) DeleteSecrets(ctx context.Context, workspaceID string, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		d.OpLog = append(d.OpLog, "delete:"+id)
		delete(d.Secrets, id)
	}
	return nil
}

// SessionDriver (driver ID "unittest") is an arcanum.SessionDriver for unit
// tests.
type SessionDriver struct {
	// RefreshTokens maps accepted refresh tokens to the access token that an
	// exchange yields.
	RefreshTokens map[string]string
	// Revoked records RevokeSession calls by identity ID.
	Revoked []string
	// RevokedAll records RevokeAllSessions calls by identity ID.
	RevokedAll []string
}

// PluginTypeID implements the arcanum.SessionDriver interface.
func (d *SessionDriver) PluginTypeID() string { return "unittest" }

// Init implements the arcanum.SessionDriver interface.
func (d *SessionDriver) Init(ctx context.Context, cfg arcanum.Configuration, db *arcanum.DB) error {
	d.RefreshTokens = make(map[string]string)
	return nil
}

// ExchangeToken implements the arcanum.SessionDriver interface.
func (d *SessionDriver) ExchangeToken(ctx context.Context, refreshToken string) (string, *arcanum.GatewayError) {
	token, ok := d.RefreshTokens[refreshToken]
	if !ok {
		return "", arcanum.ErrUnauthenticated.With("invalid refresh token")
	}
	return token, nil
}

// BeginLogin implements the arcanum.SessionDriver interface.
func (d *SessionDriver) BeginLogin(ctx context.Context, email, clientPublicKey string) (arcanum.LoginChallenge, *arcanum.GatewayError) {
	return arcanum.LoginChallenge{ServerPublicKey: "server-public-key", Salt: "salt-for-" + email}, nil
}

// CompleteLogin implements the arcanum.SessionDriver interface.
func (d *SessionDriver) CompleteLogin(ctx context.Context, email, clientProof string) (arcanum.LoginResult, *arcanum.GatewayError) {
	if clientProof != "correct-proof" {
		return arcanum.LoginResult{}, arcanum.ErrUnauthenticated.With("invalid credentials")
	}
	return arcanum.LoginResult{
		Token:        "access-token-for-" + email,
		RefreshToken: "refresh-token-for-" + email,
		PublicKey:    "public-key",
	}, nil
}

// RevokeSession implements the arcanum.SessionDriver interface.
func (d *SessionDriver) RevokeSession(ctx context.Context, identity arcanum.Identity) *arcanum.GatewayError {
	d.Revoked = append(d.Revoked, identity.IdentityID())
	return nil
}

// RevokeAllSessions implements the arcanum.SessionDriver interface.
func (d *SessionDriver) RevokeAllSessions(ctx context.Context, identity arcanum.Identity) *arcanum.GatewayError {
	d.RevokedAll = append(d.RevokedAll, identity.IdentityID())
	return nil
}
