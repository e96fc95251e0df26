// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"

	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/models"
)

// checkWorkspacePermissions confirms that the caller holds every required
// permission at workspace scope, and records the grants in the AuthContext.
func checkWorkspacePermissions(ctx context.Context, md arcanum.MembershipDriver, authCtx *AuthContext, workspaceID string, required []models.Permission) *arcanum.GatewayError {
	grants, err := md.LookupWorkspacePermissions(ctx, authCtx.Identity, workspaceID)
	if err != nil {
		return arcanum.AsGatewayError(err)
	}
	for _, perm := range required {
		if !grants.Has(perm) {
			return arcanum.ErrForbidden.With("missing permission %s in workspace %s", perm, workspaceID)
		}
	}
	authCtx.Grants = grants
	return nil
}

// RequireWorkspacePermissions is for handlers that need an additional
// workspace-level permission check beyond what their pipeline declares,
// e.g. when a request mixes secret-scoped entries with create-style entries
// that have no secret to attach a check to.
func RequireWorkspacePermissions(ctx context.Context, md arcanum.MembershipDriver, authCtx *AuthContext, workspaceID string, required []models.Permission) *arcanum.GatewayError {
	return checkWorkspacePermissions(ctx, md, authCtx, workspaceID, required)
}

// RequireSecretPermissions is the secret-scoped analog of
// RequireWorkspacePermissions. It checks the given permissions against every
// secret already resolved into the AuthContext.
func RequireSecretPermissions(ctx context.Context, md arcanum.MembershipDriver, authCtx *AuthContext, workspaceID string, required []models.Permission) *arcanum.GatewayError {
	return checkSecretPermissions(ctx, md, authCtx, workspaceID, required)
}

// checkSecretPermissions confirms, for every pre-resolved secret, that the
// caller may see it at all and that it holds every required permission for
// it. The decision is all-or-nothing: one failing secret fails the entire
// request, no entry is silently dropped from the list.
func checkSecretPermissions(ctx context.Context, md arcanum.MembershipDriver, authCtx *AuthContext, workspaceID string, required []models.Permission) *arcanum.GatewayError {
	if len(authCtx.ResolvedSecrets) == 0 {
		return nil
	}
	grants, err := md.LookupSecretPermissions(ctx, authCtx.Identity, workspaceID, authCtx.ResolvedSecrets)
	if err != nil {
		return arcanum.AsGatewayError(err)
	}
	for _, secret := range authCtx.ResolvedSecrets {
		// personal secrets are invisible to everyone but their owner,
		// regardless of any permission grants
		if secret.Type == models.PersonalSecret && secret.UserID != authCtx.IdentityID {
			return arcanum.ErrForbidden.With("no access to secret %s", secret.ID)
		}
		for _, perm := range required {
			if !grants[secret.ID].Has(perm) {
				return arcanum.ErrForbidden.With("missing permission %s for secret %s", perm, secret.ID)
			}
		}
	}
	return nil
}
