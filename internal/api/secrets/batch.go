// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package secretsapi

import (
	"net/http"

	"github.com/sapcc/go-api-declarations/cadf"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/arcanum/internal/api"
	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/auth"
	"github.com/sapcc/arcanum/internal/models"
	"github.com/sapcc/arcanum/internal/payload"
)

func (a *API) handleBatchSecrets(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/secrets/batch")
	body := readBody(w, r)
	if body == nil {
		return
	}
	req, gerr := payload.ParseBatchSecretsRequest(body)
	if api.RespondWithError(w, gerr) {
		return
	}

	// resolves all referenced IDs and rejects personal secrets of other
	// identities; entry kinds get their permission checks below
	authCtx, gerr := batchSecretsPipeline.Authorize(r.Context(), a.drivers, r, req.WorkspaceID, req.SecretIDs())
	if api.RespondWithError(w, gerr) {
		return
	}
	api.CountAuthorized("/secrets/batch", authCtx.Mode)

	var creates, updates []payload.SecretInput
	var deleteIDs []string
	for _, entry := range req.Requests {
		switch entry.Method {
		case payload.BatchMethodCreate:
			creates = append(creates, entry.Secret)
		case payload.BatchMethodUpdate:
			updates = append(updates, entry.Secret)
		case payload.BatchMethodDelete:
			deleteIDs = append(deleteIDs, *entry.Secret.ID)
		}
	}

	// create-style entries have no existing secret to attach a permission
	// check to, so they require write permission at workspace scope
	writePerm := []models.Permission{models.PermWriteSecrets}
	if len(creates) > 0 {
		gerr = auth.RequireWorkspacePermissions(r.Context(), a.drivers.Membership, authCtx, req.WorkspaceID, writePerm)
		if api.RespondWithError(w, gerr) {
			return
		}
	}
	if len(updates) > 0 || len(deleteIDs) > 0 {
		gerr = auth.RequireSecretPermissions(r.Context(), a.drivers.Membership, authCtx, req.WorkspaceID, writePerm)
		if api.RespondWithError(w, gerr) {
			return
		}
	}

	// the whole batch is authorized now; failures below are storage errors,
	// not authorization decisions
	result := struct {
		Created []models.Secret `json:"created"`
		Updated []models.Secret `json:"updated"`
		Deleted []string        `json:"deleted"`
	}{
		Created: []models.Secret{},
		Updated: []models.Secret{},
		Deleted: []string{},
	}

	if len(creates) > 0 {
		secrets := make([]models.Secret, 0, len(creates))
		for _, entry := range creates {
			secrets = append(secrets, entry.ToModel(req.WorkspaceID, req.Environment, req.FolderID, authCtx.IdentityID))
		}
		created, err := a.drivers.Store.CreateSecrets(r.Context(), secrets)
		if api.RespondWithError(w, arcanum.AsGatewayError(err)) {
			return
		}
		a.recordAudit(r, authCtx, cadf.CreateAction, created...)
		result.Created = created
	}

	if len(updates) > 0 {
		merged, gerr := mergeUpdates(authCtx.ResolvedSecrets, updates)
		if api.RespondWithError(w, gerr) {
			return
		}
		updated, err := a.drivers.Store.UpdateSecrets(r.Context(), merged)
		if api.RespondWithError(w, arcanum.AsGatewayError(err)) {
			return
		}
		a.recordAudit(r, authCtx, cadf.UpdateAction, updated...)
		result.Updated = updated
	}

	if len(deleteIDs) > 0 {
		err := a.drivers.Store.DeleteSecrets(r.Context(), req.WorkspaceID, deleteIDs)
		if api.RespondWithError(w, arcanum.AsGatewayError(err)) {
			return
		}
		for _, secret := range authCtx.ResolvedSecrets {
			for _, id := range deleteIDs {
				if secret.ID == id {
					a.recordAudit(r, authCtx, cadf.DeleteAction, secret)
				}
			}
		}
		result.Deleted = deleteIDs
	}

	respondwith.JSON(w, http.StatusOK, result)
}
