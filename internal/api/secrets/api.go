// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package secretsapi implements the secret CRUD endpoints of the gateway.
package secretsapi

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sapcc/go-bits/audittools"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/arcanum/internal/api"
	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/auth"
	"github.com/sapcc/arcanum/internal/models"
)

// API contains state variables used by the secrets API endpoints.
type API struct {
	drivers auth.Drivers
	auditor audittools.Auditor
}

// NewAPI constructs a new API instance.
func NewAPI(d auth.Drivers, auditor audittools.Auditor) *API {
	return &API{d, auditor}
}

// AddTo implements the api.API interface.
func (a *API) AddTo(r *mux.Router) {
	r.Methods("POST").Path("/secrets/batch").HandlerFunc(a.handleBatchSecrets)
	r.Methods("POST").Path("/secrets").HandlerFunc(a.handleCreateSecrets)
	r.Methods("GET").Path("/secrets").HandlerFunc(a.handleListSecrets)
	r.Methods("PATCH").Path("/secrets").HandlerFunc(a.handleUpdateSecrets)
	r.Methods("DELETE").Path("/secrets").HandlerFunc(a.handleDeleteSecrets)
}

// All secret endpoints accept every credential class; the decision which
// caller may do what is made by role and permission requirements, not by
// restricting credential classes.
var (
	secretModes = []arcanum.AuthMode{arcanum.ModeJWT, arcanum.ModeAPIKey, arcanum.ModeServiceToken}
	secretRoles = []models.Role{models.RoleAdmin, models.RoleMember}

	createSecretsPipeline = auth.Pipeline{
		AcceptedModes:       secretModes,
		RequiredRoles:       secretRoles,
		RequiredPermissions: []models.Permission{models.PermWriteSecrets},
		Scope:               auth.ScopeWorkspace,
	}
	listSecretsPipeline = auth.Pipeline{
		AcceptedModes:       secretModes,
		RequiredRoles:       secretRoles,
		RequiredPermissions: []models.Permission{models.PermReadSecrets},
		Scope:               auth.ScopeWorkspace,
	}
	updateSecretsPipeline = auth.Pipeline{
		AcceptedModes:       secretModes,
		RequiredRoles:       secretRoles,
		RequiredPermissions: []models.Permission{models.PermWriteSecrets},
		Scope:               auth.ScopeSecret,
	}
	deleteSecretsPipeline = auth.Pipeline{
		AcceptedModes:       secretModes,
		RequiredRoles:       secretRoles,
		RequiredPermissions: []models.Permission{models.PermWriteSecrets},
		Scope:               auth.ScopeSecret,
	}
	// Batch submissions mix entry kinds, so per-secret permission
	// requirements are attached per entry kind in the handler instead of
	// here. Reference resolution and the personal-secret visibility check
	// still run for every referenced ID.
	batchSecretsPipeline = auth.Pipeline{
		AcceptedModes: secretModes,
		RequiredRoles: secretRoles,
		Scope:         auth.ScopeSecret,
	}
)

// readBody slurps the request body, responding with an error on failure.
// Returns nil if a response was already written.
func readBody(w http.ResponseWriter, r *http.Request) []byte {
	body, err := io.ReadAll(r.Body)
	if respondwith.ErrorText(w, err) {
		return nil
	}
	return body
}
