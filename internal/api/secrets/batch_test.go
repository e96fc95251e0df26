// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package secretsapi_test

import (
	"net/http"
	"testing"

	"github.com/sapcc/go-api-declarations/cadf"
	"github.com/sapcc/go-bits/assert"

	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/models"
	"github.com/sapcc/arcanum/internal/test"
)

func TestBatchMixedEntryKinds(t *testing.T) {
	s := setupWithAlice(t)
	updateID := s.SD.AddSecret(models.Secret{
		WorkspaceID: "ws-1", Environment: "dev", FolderID: "root",
		Type:                models.SharedSecret,
		SecretKeyCiphertext: "kc", SecretKeyIV: "kiv", SecretKeyTag: "ktag",
		SecretValueCiphertext: "vc", SecretValueIV: "viv", SecretValueTag: "vtag",
	})
	deleteID := s.SD.AddSecret(models.Secret{
		WorkspaceID: "ws-1", Environment: "dev", FolderID: "root",
		Type:                models.SharedSecret,
		SecretKeyCiphertext: "kc", SecretKeyIV: "kiv", SecretKeyTag: "ktag",
		SecretValueCiphertext: "vc", SecretValueIV: "viv", SecretValueTag: "vtag",
	})

	updatedJSON := newSecretJSON(updateID)
	updatedJSON["secretValueCiphertext"] = "vc-new"
	assert.HTTPRequest{
		Method: "POST",
		Path:   "/secrets/batch",
		Header: bearerAlice(),
		Body: assert.JSONObject{
			"workspaceId": "ws-1",
			"environment": "dev",
			"requests": []assert.JSONObject{
				{"method": "POST", "secret": newSecretBody},
				{"method": "PATCH", "secret": assert.JSONObject{"id": updateID, "secretValueCiphertext": "vc-new"}},
				{"method": "DELETE", "secret": assert.JSONObject{"id": deleteID}},
			},
		},
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"created": []assert.JSONObject{newSecretJSON("s-3")},
			"updated": []assert.JSONObject{updatedJSON},
			"deleted": []string{deleteID},
		},
	}.Check(t, s.Handler)

	s.Auditor.ExpectEvents(t,
		test.AuditEvent{Action: cadf.CreateAction, Outcome: 200, TargetType: "secrets-store/secret", TargetID: "s-3", Workspace: "ws-1", UserName: "alice"},
		test.AuditEvent{Action: cadf.UpdateAction, Outcome: 200, TargetType: "secrets-store/secret", TargetID: updateID, Workspace: "ws-1", UserName: "alice"},
		test.AuditEvent{Action: cadf.DeleteAction, Outcome: 200, TargetType: "secrets-store/secret", TargetID: deleteID, Workspace: "ws-1", UserName: "alice"},
	)
	assert.DeepEqual(t, "storage operations", s.SD.OpLog, []string{"create:1", "update:1", "delete:" + deleteID})
}

func TestBatchIsAllOrNothing(t *testing.T) {
	s := setupWithAlice(t)
	id := s.SD.AddSecret(models.Secret{WorkspaceID: "ws-1", Environment: "dev", FolderID: "root", Type: models.SharedSecret})

	// one unresolvable reference fails the entire batch before any entry
	// takes effect, including the create entry that would have been fine
	assert.HTTPRequest{
		Method: "POST",
		Path:   "/secrets/batch",
		Header: bearerAlice(),
		Body: assert.JSONObject{
			"workspaceId": "ws-1",
			"environment": "dev",
			"requests": []assert.JSONObject{
				{"method": "POST", "secret": newSecretBody},
				{"method": "DELETE", "secret": assert.JSONObject{"id": id}},
				{"method": "DELETE", "secret": assert.JSONObject{"id": "s-bogus"}},
			},
		},
		ExpectStatus: http.StatusNotFound,
		ExpectBody: assert.JSONObject{
			"error": assert.JSONObject{
				"code":    "NOT_FOUND",
				"message": "referenced secret does not exist",
				"detail":  "secret s-bogus not found",
			},
		},
	}.Check(t, s.Handler)
	s.Auditor.ExpectEvents(t)
	if len(s.SD.OpLog) != 0 {
		t.Errorf("expected no storage operations on a denied batch, got %v", s.SD.OpLog)
	}
}

func TestBatchChecksPermissionsPerEntryKind(t *testing.T) {
	s := test.NewSetup(t)
	s.AD.GrantCredential(arcanum.ModeJWT, "alice-token", test.Identity{ID: "u-1", Name: "alice"})
	// alice only holds read permission at workspace scope...
	s.MD.GrantMembership("ws-1", "u-1", models.RoleMember, models.PermReadSecrets)
	id := s.SD.AddSecret(models.Secret{
		WorkspaceID: "ws-1", Environment: "dev", FolderID: "root",
		Type:                models.SharedSecret,
		SecretKeyCiphertext: "kc", SecretKeyIV: "kiv", SecretKeyTag: "ktag",
		SecretValueCiphertext: "vc", SecretValueIV: "viv", SecretValueTag: "vtag",
	})
	// ...but has a write grant on this one secret
	s.MD.GrantSecretPermissions(id, "u-1", models.PermReadSecrets, models.PermWriteSecrets)

	// an update-only batch needs write permission only on the touched secrets
	updatedJSON := newSecretJSON(id)
	updatedJSON["secretValueCiphertext"] = "vc-new"
	assert.HTTPRequest{
		Method: "POST",
		Path:   "/secrets/batch",
		Header: bearerAlice(),
		Body: assert.JSONObject{
			"workspaceId": "ws-1",
			"environment": "dev",
			"requests": []assert.JSONObject{
				{"method": "PATCH", "secret": assert.JSONObject{"id": id, "secretValueCiphertext": "vc-new"}},
			},
		},
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"created": []assert.JSONObject{},
			"updated": []assert.JSONObject{updatedJSON},
			"deleted": []string{},
		},
	}.Check(t, s.Handler)
	s.Auditor.ExpectEvents(t, test.AuditEvent{
		Action: cadf.UpdateAction, Outcome: 200,
		TargetType: "secrets-store/secret", TargetID: id,
		Workspace: "ws-1", UserName: "alice",
	})

	// adding a create entry brings in the workspace-scope write requirement,
	// which alice does not meet; nothing from the batch is applied
	s.SD.OpLog = nil
	assert.HTTPRequest{
		Method: "POST",
		Path:   "/secrets/batch",
		Header: bearerAlice(),
		Body: assert.JSONObject{
			"workspaceId": "ws-1",
			"environment": "dev",
			"requests": []assert.JSONObject{
				{"method": "POST", "secret": newSecretBody},
				{"method": "PATCH", "secret": assert.JSONObject{"id": id, "secretValueCiphertext": "vc-newer"}},
			},
		},
		ExpectStatus: http.StatusForbidden,
		ExpectBody: assert.JSONObject{
			"error": assert.JSONObject{
				"code":    "FORBIDDEN",
				"message": "access to the requested resource is denied",
				"detail":  "missing permission WRITE_SECRETS in workspace ws-1",
			},
		},
	}.Check(t, s.Handler)
	s.Auditor.ExpectEvents(t)
	if len(s.SD.OpLog) != 0 {
		t.Errorf("expected no storage operations on a denied batch, got %v", s.SD.OpLog)
	}
}
