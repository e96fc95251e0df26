// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package auth implements the authorization decision pipeline that screens
// every request before any business logic runs: credential resolution,
// reference resolution for batch payloads, workspace role checks and
// permission checks, in a fixed order with short-circuit on first failure.
package auth

import (
	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/models"
)

// AuthContext describes the resolved identity and access rights for the
// scope of an individual API request. It is created once per request by the
// pipeline, is read-only for downstream business logic, and is discarded at
// request end. Role and Grants always refer to the workspace named in the
// current request; they are never carried over from a prior request.
type AuthContext struct {
	// IdentityID is the stable ID of the authenticated user or machine.
	IdentityID string
	// Mode is the credential class that authenticated this request.
	Mode arcanum.AuthMode
	// Identity is the full identity as resolved by the auth driver.
	Identity arcanum.Identity

	// Role is the caller's role in the request's workspace. Only filled when
	// the endpoint declares a role requirement.
	Role models.Role
	// Grants are the caller's workspace-level permissions. Only filled when
	// the endpoint declares workspace-scoped permission requirements.
	Grants models.PermissionSet
	// ResolvedSecrets are the pre-resolved secret records for every secret ID
	// referenced by the request. Only filled for secret-scoped endpoints.
	// Downstream business logic consumes these instead of re-querying storage.
	ResolvedSecrets []models.Secret
}
