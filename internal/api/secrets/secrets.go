// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package secretsapi

import (
	"encoding/json"
	"net/http"

	"github.com/sapcc/go-api-declarations/cadf"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/arcanum/internal/api"
	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/models"
	"github.com/sapcc/arcanum/internal/payload"
)

func (a *API) handleCreateSecrets(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/secrets")
	body := readBody(w, r)
	if body == nil {
		return
	}
	req, gerr := payload.ParseCreateSecretsRequest(body)
	if api.RespondWithError(w, gerr) {
		return
	}

	authCtx, gerr := createSecretsPipeline.Authorize(r.Context(), a.drivers, r, req.WorkspaceID, nil)
	if api.RespondWithError(w, gerr) {
		return
	}
	api.CountAuthorized("/secrets", authCtx.Mode)

	entries := req.Secrets.Entries()
	secrets := make([]models.Secret, 0, len(entries))
	for _, entry := range entries {
		secrets = append(secrets, entry.ToModel(req.WorkspaceID, req.Environment, req.FolderID, authCtx.IdentityID))
	}
	created, err := a.drivers.Store.CreateSecrets(r.Context(), secrets)
	if api.RespondWithError(w, arcanum.AsGatewayError(err)) {
		return
	}
	a.recordAudit(r, authCtx, cadf.CreateAction, created...)

	// the response mirrors the submission shape: an object in, an object out
	if req.Secrets.IsSingle() {
		respondwith.JSON(w, http.StatusOK, map[string]any{"secret": created[0]})
	} else {
		respondwith.JSON(w, http.StatusOK, map[string]any{"secrets": created})
	}
}

func (a *API) handleListSecrets(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/secrets")
	q, gerr := payload.ParseListSecretsQuery(r.URL.Query())
	if api.RespondWithError(w, gerr) {
		return
	}

	authCtx, gerr := listSecretsPipeline.Authorize(r.Context(), a.drivers, r, q.WorkspaceID, nil)
	if api.RespondWithError(w, gerr) {
		return
	}
	api.CountAuthorized("/secrets", authCtx.Mode)

	secrets, err := a.drivers.Store.ListSecrets(r.Context(), models.SecretQuery{
		WorkspaceID:    q.WorkspaceID,
		Environment:    q.Environment,
		FolderID:       q.FolderID,
		SecretPath:     q.SecretPath,
		TagSlugs:       q.TagSlugs,
		IncludeImports: q.IncludeImports,
		// personal secrets of other identities are filtered inside the store
		IdentityID: authCtx.IdentityID,
	})
	if api.RespondWithError(w, arcanum.AsGatewayError(err)) {
		return
	}

	// ensure that this serializes as a list, not as null
	if len(secrets) == 0 {
		secrets = []models.Secret{}
	}
	respondwith.JSON(w, http.StatusOK, map[string]any{"secrets": secrets})
}

func (a *API) handleUpdateSecrets(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/secrets")
	body := readBody(w, r)
	if body == nil {
		return
	}
	req, gerr := payload.ParseUpdateSecretsRequest(body)
	if api.RespondWithError(w, gerr) {
		return
	}

	authCtx, gerr := updateSecretsPipeline.Authorize(r.Context(), a.drivers, r, req.WorkspaceID, req.SecretIDs())
	if api.RespondWithError(w, gerr) {
		return
	}
	api.CountAuthorized("/secrets", authCtx.Mode)

	updates, gerr := mergeUpdates(authCtx.ResolvedSecrets, req.Secrets.Entries())
	if api.RespondWithError(w, gerr) {
		return
	}
	updated, err := a.drivers.Store.UpdateSecrets(r.Context(), updates)
	if api.RespondWithError(w, arcanum.AsGatewayError(err)) {
		return
	}
	a.recordAudit(r, authCtx, cadf.UpdateAction, updated...)

	if req.Secrets.IsSingle() {
		respondwith.JSON(w, http.StatusOK, map[string]any{"secret": updated[0]})
	} else {
		respondwith.JSON(w, http.StatusOK, map[string]any{"secrets": updated})
	}
}

func (a *API) handleDeleteSecrets(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/secrets")
	body := readBody(w, r)
	if body == nil {
		return
	}
	req, gerr := payload.ParseDeleteSecretsRequest(body)
	if api.RespondWithError(w, gerr) {
		return
	}

	authCtx, gerr := deleteSecretsPipeline.Authorize(r.Context(), a.drivers, r, req.WorkspaceID, req.SecretIDs())
	if api.RespondWithError(w, gerr) {
		return
	}
	api.CountAuthorized("/secrets", authCtx.Mode)

	err := a.drivers.Store.DeleteSecrets(r.Context(), req.WorkspaceID, req.SecretIDs())
	if api.RespondWithError(w, arcanum.AsGatewayError(err)) {
		return
	}
	a.recordAudit(r, authCtx, cadf.DeleteAction, authCtx.ResolvedSecrets...)

	respondwith.JSON(w, http.StatusOK, struct{}{})
}

// mergeUpdates applies the submitted field changes onto the pre-resolved
// secret records. Fields absent from a submission keep their stored value.
func mergeUpdates(resolved []models.Secret, entries []payload.SecretInput) ([]models.Secret, *arcanum.GatewayError) {
	byID := make(map[string]models.Secret, len(resolved))
	for _, secret := range resolved {
		byID[secret.ID] = secret
	}

	updates := make([]models.Secret, 0, len(entries))
	for _, entry := range entries {
		secret, ok := byID[*entry.ID]
		if !ok {
			// unreachable after reference resolution, but do not trust it blindly
			return nil, arcanum.ErrNotFound.With("secret %s not found", *entry.ID)
		}
		applyUpdate(&secret, entry)
		updates = append(updates, secret)
	}
	return updates, nil
}

func applyUpdate(secret *models.Secret, entry payload.SecretInput) {
	if entry.Type != nil {
		secret.Type = models.SecretType(*entry.Type)
	}
	if entry.SecretKeyCiphertext != nil {
		secret.SecretKeyCiphertext = *entry.SecretKeyCiphertext
	}
	if entry.SecretKeyIV != nil {
		secret.SecretKeyIV = *entry.SecretKeyIV
	}
	if entry.SecretKeyTag != nil {
		secret.SecretKeyTag = *entry.SecretKeyTag
	}
	if entry.SecretValueCiphertext != nil {
		json.Unmarshal(entry.SecretValueCiphertext, &secret.SecretValueCiphertext) //nolint:errcheck // checked during shape validation
	}
	if entry.SecretValueIV != nil {
		secret.SecretValueIV = *entry.SecretValueIV
	}
	if entry.SecretValueTag != nil {
		secret.SecretValueTag = *entry.SecretValueTag
	}
}
