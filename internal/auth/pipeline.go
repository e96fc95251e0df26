// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"net/http"

	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/models"
)

// PermissionScope is an enum that declares at which granularity an
// endpoint's permission requirements are checked.
type PermissionScope int

const (
	// ScopeNone is for endpoints without permission requirements.
	ScopeNone PermissionScope = iota
	// ScopeWorkspace checks permissions at workspace level. Sufficient for
	// operations that do not name explicit secret IDs (create, read, list).
	ScopeWorkspace
	// ScopeSecret checks permissions per referenced secret. Required for
	// operations that name explicit secret IDs (update, delete, batch).
	// Endpoints with this scope have their referenced IDs resolved before the
	// permission check.
	ScopeSecret
)

// Pipeline is the static authorization configuration of one endpoint. All
// policy lives here rather than being scattered across handler call sites;
// one generic executor (Authorize) interprets it.
type Pipeline struct {
	// AcceptedModes is the set of credential classes this endpoint accepts.
	AcceptedModes []arcanum.AuthMode
	// RequiredRoles is the set of workspace roles that may call this
	// endpoint. Empty means no role check.
	RequiredRoles []models.Role
	// RequiredPermissions must all be held by the caller, at the granularity
	// given by Scope.
	RequiredPermissions []models.Permission
	// Scope declares the granularity of the permission check.
	Scope PermissionScope
}

// Drivers bundles the external collaborators consumed by the pipeline.
type Drivers struct {
	Auth       arcanum.AuthDriver
	Membership arcanum.MembershipDriver
	Store      arcanum.SecretStoreDriver
}

// StageOrder is the fixed order in which Authorize evaluates its stages.
// (Payload shape validation precedes all of these; it runs in the handlers
// before Authorize is called, since it is cheapest and needs no identity.)
// The order is a deliberate constant, not an artifact of registration order:
// authentication before authorization because authorization needs an
// identity, reference resolution before permission checks because
// secret-scoped checks operate on resolved records.
var StageOrder = []string{"credentials", "references", "role", "permissions"}

// Authorize screens one request against this endpoint configuration. It
// evaluates the stages in StageOrder and short-circuits on the first
// failure; no state is written before the decision is complete, so a failed
// decision has no side effects and re-submitting an identical request yields
// an identical verdict.
//
// workspaceID comes from the endpoint's declared location for it (request
// body or query); secretIDs are the deduplicated explicit secret references
// of the payload (empty except for update/delete/batch shapes).
func (p Pipeline) Authorize(ctx context.Context, d Drivers, r *http.Request, workspaceID string, secretIDs []string) (*AuthContext, *arcanum.GatewayError) {
	authCtx, gerr := ResolveCredential(ctx, d.Auth, r, p.AcceptedModes)
	if gerr != nil {
		return nil, gerr
	}

	if p.Scope == ScopeSecret {
		secrets, gerr := resolveSecretRefs(ctx, d.Store, workspaceID, secretIDs)
		if gerr != nil {
			return nil, gerr
		}
		authCtx.ResolvedSecrets = secrets
	}

	if len(p.RequiredRoles) > 0 {
		gerr = checkRole(ctx, d.Membership, authCtx, workspaceID, p.RequiredRoles)
		if gerr != nil {
			return nil, gerr
		}
	}

	switch p.Scope {
	case ScopeNone:
		// no permission requirements declared
	case ScopeWorkspace:
		gerr = checkWorkspacePermissions(ctx, d.Membership, authCtx, workspaceID, p.RequiredPermissions)
	case ScopeSecret:
		gerr = checkSecretPermissions(ctx, d.Membership, authCtx, workspaceID, p.RequiredPermissions)
	}
	if gerr != nil {
		return nil, gerr
	}

	return authCtx, nil
}
