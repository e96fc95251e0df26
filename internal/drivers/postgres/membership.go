// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package postgres contains the driver implementations backed by the
// gateway's Postgres database: workspace membership and secret storage.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/sapcc/go-bits/sqlext"

	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/models"
)

func init() {
	arcanum.MembershipDriverRegistry.Add(func() arcanum.MembershipDriver { return &MembershipDriver{} })
}

// MembershipDriver is the membership driver "postgres".
//
// Workspace-level permissions derive from the role: both admins and members
// hold read and write. Per-secret permission rows, where present for an
// identity, replace the workspace default for that secret, so access to
// individual secrets can be narrowed without changing the role.
type MembershipDriver struct {
	db *arcanum.DB
}

// PluginTypeID implements the arcanum.MembershipDriver interface.
func (d *MembershipDriver) PluginTypeID() string { return "postgres" }

// Init implements the arcanum.MembershipDriver interface.
func (d *MembershipDriver) Init(ctx context.Context, db *arcanum.DB) error {
	d.db = db
	return nil
}

var roleQuery = sqlext.SimplifyWhitespace(`
	SELECT role FROM workspace_memberships WHERE workspace_id = $1 AND identity_id = $2
`)

// LookupRole implements the arcanum.MembershipDriver interface.
func (d *MembershipDriver) LookupRole(ctx context.Context, identity arcanum.Identity, workspaceID string) (models.Role, bool, error) {
	var role models.Role
	err := d.db.WithContext(ctx).SelectOne(&role, roleQuery, workspaceID, identity.IdentityID())
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}

// LookupWorkspacePermissions implements the arcanum.MembershipDriver interface.
func (d *MembershipDriver) LookupWorkspacePermissions(ctx context.Context, identity arcanum.Identity, workspaceID string) (models.PermissionSet, error) {
	role, ok, err := d.LookupRole(ctx, identity, workspaceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return models.PermissionSet{}, nil
	}
	return permissionsForRole(role), nil
}

var secretGrantsQuery = sqlext.SimplifyWhitespace(`
	SELECT secret_id, permission FROM secret_permissions WHERE identity_id = $1 AND secret_id = ANY($2)
`)

// LookupSecretPermissions implements the arcanum.MembershipDriver interface.
func (d *MembershipDriver) LookupSecretPermissions(ctx context.Context, identity arcanum.Identity, workspaceID string, secrets []models.Secret) (models.SecretGrants, error) {
	workspacePerms, err := d.LookupWorkspacePermissions(ctx, identity, workspaceID)
	if err != nil {
		return nil, err
	}

	secretIDs := make([]string, len(secrets))
	for idx, secret := range secrets {
		secretIDs[idx] = secret.ID
	}
	overrides := make(models.SecretGrants)
	err = sqlext.ForeachRow(d.db, secretGrantsQuery, []any{identity.IdentityID(), pq.Array(secretIDs)},
		func(rows *sql.Rows) error {
			var (
				secretID   string
				permission models.Permission
			)
			err := rows.Scan(&secretID, &permission)
			if err != nil {
				return err
			}
			if overrides[secretID] == nil {
				overrides[secretID] = make(models.PermissionSet)
			}
			overrides[secretID][permission] = true
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	grants := make(models.SecretGrants, len(secrets))
	for _, secret := range secrets {
		if perms, ok := overrides[secret.ID]; ok {
			grants[secret.ID] = perms
		} else {
			grants[secret.ID] = workspacePerms
		}
	}
	return grants, nil
}

func permissionsForRole(role models.Role) models.PermissionSet {
	switch role {
	case models.RoleAdmin:
		return models.PermissionSet{models.PermReadSecrets: true, models.PermWriteSecrets: true}
	case models.RoleMember:
		return models.PermissionSet{models.PermReadSecrets: true, models.PermWriteSecrets: true}
	default:
		return models.PermissionSet{}
	}
}
