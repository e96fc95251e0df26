// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"slices"

	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/models"
)

// checkRole confirms that the caller holds one of the required roles in the
// given workspace, and records the role in the AuthContext.
func checkRole(ctx context.Context, md arcanum.MembershipDriver, authCtx *AuthContext, workspaceID string, requiredRoles []models.Role) *arcanum.GatewayError {
	role, ok, err := md.LookupRole(ctx, authCtx.Identity, workspaceID)
	if err != nil {
		return arcanum.AsGatewayError(err)
	}
	if !ok {
		return arcanum.ErrForbidden.With("not a member of workspace %s", workspaceID)
	}
	if !slices.Contains(requiredRoles, role) {
		return arcanum.ErrForbidden.With("role %s does not allow this operation", role)
	}
	authCtx.Role = role
	return nil
}
