// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package arcanum

import (
	"context"
	"errors"

	"github.com/sapcc/go-bits/pluggable"

	"github.com/sapcc/arcanum/internal/models"
)

// MembershipDriver represents the backend that owns workspace membership and
// permission records. Role and permission checks are always evaluated against
// the workspace named in the current request; the gateway never caches
// results across requests.
type MembershipDriver interface {
	pluggable.Plugin
	// Init is called before any other interface methods.
	Init(ctx context.Context, db *DB) error

	// LookupRole returns the role that the given identity holds in the given
	// workspace, or ok = false if it is not a member.
	LookupRole(ctx context.Context, identity Identity, workspaceID string) (role models.Role, ok bool, err error)

	// LookupWorkspacePermissions returns the workspace-level permissions of
	// the given identity in the given workspace.
	LookupWorkspacePermissions(ctx context.Context, identity Identity, workspaceID string) (models.PermissionSet, error)

	// LookupSecretPermissions returns the per-secret permissions of the given
	// identity for each of the given secrets. The result contains an entry for
	// every input secret (possibly an empty set). Secrets without explicit
	// per-secret grants fall back to the workspace-level permissions; where a
	// per-secret grant exists, it replaces the workspace-level default.
	LookupSecretPermissions(ctx context.Context, identity Identity, workspaceID string, secrets []models.Secret) (models.SecretGrants, error)
}

// MembershipDriverRegistry is a pluggable.Registry for MembershipDriver implementations.
var MembershipDriverRegistry pluggable.Registry[MembershipDriver]

// NewMembershipDriver creates a new MembershipDriver using one of the plugins
// registered with MembershipDriverRegistry.
func NewMembershipDriver(ctx context.Context, pluginTypeID string, db *DB) (MembershipDriver, error) {
	md, ok := MembershipDriverRegistry.TryInstantiate(pluginTypeID).Unpack()
	if !ok {
		return nil, errors.New("no such membership driver: " + pluginTypeID)
	}
	return md, md.Init(ctx, db)
}
