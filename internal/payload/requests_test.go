// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"net/url"
	"testing"

	"github.com/sapcc/go-bits/assert"

	"github.com/sapcc/arcanum/internal/arcanum"
)

func expectViolations(t *testing.T, gerr *arcanum.GatewayError, expected ...string) {
	t.Helper()
	if gerr == nil {
		t.Fatal("expected a validation error, got none")
	}
	if gerr.Code != arcanum.ErrValidation {
		t.Fatalf("expected code %s, got %s", arcanum.ErrValidation, gerr.Code)
	}
	assert.DeepEqual(t, "violations", gerr.Violations, expected)
}

func TestParseCreateSecretsRequest(t *testing.T) {
	validEntry := `{
		"type": "SHARED",
		"secretKeyCiphertext": "kc", "secretKeyIV": "kiv", "secretKeyTag": "ktag",
		"secretValueCiphertext": "vc", "secretValueIV": "viv", "secretValueTag": "vtag"
	}`

	// happy path: single object
	req, gerr := ParseCreateSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"secrets": ` + validEntry + `
	}`))
	if gerr != nil {
		t.Fatalf("unexpected error: %s", gerr.Error())
	}
	if !req.Secrets.IsSingle() {
		t.Error("expected single-object submission")
	}
	if req.FolderID != "root" {
		t.Errorf("expected folderId to default to \"root\", got %q", req.FolderID)
	}

	// happy path: array of objects
	req, gerr = ParseCreateSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev", "folderId": "f1",
		"secrets": [` + validEntry + `, ` + validEntry + `]
	}`))
	if gerr != nil {
		t.Fatalf("unexpected error: %s", gerr.Error())
	}
	if req.Secrets.IsSingle() {
		t.Error("expected array submission")
	}
	if len(req.Secrets.Entries()) != 2 {
		t.Errorf("expected 2 entries, got %d", len(req.Secrets.Entries()))
	}
	if req.FolderID != "f1" {
		t.Errorf("expected folderId %q, got %q", "f1", req.FolderID)
	}

	// all violations are reported together, not just the first
	_, gerr = ParseCreateSecretsRequest([]byte(`{
		"secrets": []
	}`))
	expectViolations(t, gerr,
		"workspaceId is a required property and must be a non-empty string",
		"environment is a required property and must be a non-empty string",
		"secrets must not be an empty array",
	)

	// missing secrets property
	_, gerr = ParseCreateSecretsRequest([]byte(`{"workspaceId": "w1", "environment": "dev"}`))
	expectViolations(t, gerr, "secrets is a required property")

	// secrets must be an object or array
	_, gerr = ParseCreateSecretsRequest([]byte(`{"workspaceId": "w1", "environment": "dev", "secrets": 42}`))
	expectViolations(t, gerr, "secrets must be an object or an array of objects")

	// missing entry fields are named individually
	_, gerr = ParseCreateSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"secrets": {"type": "SHARED", "secretKeyCiphertext": "kc", "secretKeyIV": "kiv",
		            "secretKeyTag": "ktag", "secretValueCiphertext": "vc", "secretValueIV": "viv"}
	}`))
	expectViolations(t, gerr, "secret: missing required property secretValueTag")

	// invalid type enum
	_, gerr = ParseCreateSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"secrets": [{"type": "TEAM", "secretKeyCiphertext": "kc", "secretKeyIV": "kiv",
		             "secretKeyTag": "ktag", "secretValueCiphertext": "vc", "secretValueIV": "viv",
		             "secretValueTag": "vtag"}]
	}`))
	expectViolations(t, gerr, "secrets[0]: type must be either PERSONAL or SHARED")

	// value ciphertext must be a string (but empty string is fine)
	_, gerr = ParseCreateSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"secrets": {"type": "SHARED", "secretKeyCiphertext": "kc", "secretKeyIV": "kiv",
		            "secretKeyTag": "ktag", "secretValueCiphertext": 5, "secretValueIV": "viv",
		            "secretValueTag": "vtag"}
	}`))
	expectViolations(t, gerr, "secret: secretValueCiphertext must be a string")

	_, gerr = ParseCreateSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"secrets": {"type": "SHARED", "secretKeyCiphertext": "kc", "secretKeyIV": "kiv",
		            "secretKeyTag": "ktag", "secretValueCiphertext": "", "secretValueIV": "viv",
		            "secretValueTag": "vtag"}
	}`))
	if gerr != nil {
		t.Fatalf("unexpected error for empty value ciphertext: %s", gerr.Error())
	}

	// malformed JSON is a validation error, not a 500
	_, gerr = ParseCreateSecretsRequest([]byte(`{`))
	if gerr == nil || gerr.Code != arcanum.ErrValidation {
		t.Fatal("expected a validation error for malformed JSON")
	}
}

func TestParseUpdateSecretsRequest(t *testing.T) {
	// entries without an ID are rejected with the exact documented message
	_, gerr := ParseUpdateSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"secrets": [{"secretKeyCiphertext": "kc"}]
	}`))
	expectViolations(t, gerr, "Each secret must contain a ID property")

	_, gerr = ParseUpdateSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"secrets": {"id": ""}
	}`))
	expectViolations(t, gerr, "Each secret must contain a ID property")

	// a missing ID in an earlier entry does not hide violations in later
	// entries
	_, gerr = ParseUpdateSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"secrets": [{"secretKeyCiphertext": "kc"}, {"id": "s-1", "secretValueCiphertext": 42}]
	}`))
	expectViolations(t, gerr,
		"Each secret must contain a ID property",
		"secrets[1]: secretValueCiphertext must be a string",
	)

	// a non-string ciphertext is rejected on update just like on create
	_, gerr = ParseUpdateSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"secrets": {"id": "s-1", "secretValueCiphertext": 42}
	}`))
	expectViolations(t, gerr, "secret: secretValueCiphertext must be a string")

	// happy path, with duplicate IDs deduplicated in order
	req, gerr := ParseUpdateSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"secrets": [{"id": "s-2"}, {"id": "s-1"}, {"id": "s-2"}]
	}`))
	if gerr != nil {
		t.Fatalf("unexpected error: %s", gerr.Error())
	}
	assert.DeepEqual(t, "secret IDs", req.SecretIDs(), []string{"s-2", "s-1"})
}

func TestParseDeleteSecretsRequest(t *testing.T) {
	// secretIds can be a single string...
	req, gerr := ParseDeleteSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev", "secretIds": "s-1"
	}`))
	if gerr != nil {
		t.Fatalf("unexpected error: %s", gerr.Error())
	}
	assert.DeepEqual(t, "secret IDs", req.SecretIDs(), []string{"s-1"})

	// ...or an array of strings
	req, gerr = ParseDeleteSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev", "secretIds": ["s-1", "s-2", "s-1"]
	}`))
	if gerr != nil {
		t.Fatalf("unexpected error: %s", gerr.Error())
	}
	assert.DeepEqual(t, "secret IDs", req.SecretIDs(), []string{"s-1", "s-2"})

	// but not an empty array
	_, gerr = ParseDeleteSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev", "secretIds": []
	}`))
	expectViolations(t, gerr, "secretIds must not be an empty array")

	// and not other JSON types
	_, gerr = ParseDeleteSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev", "secretIds": {"id": "s-1"}
	}`))
	expectViolations(t, gerr, "secretIds must be a string or an array of strings")

	_, gerr = ParseDeleteSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev"
	}`))
	expectViolations(t, gerr, "secretIds is a required property")

	_, gerr = ParseDeleteSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev", "secretIds": ["s-1", ""]
	}`))
	expectViolations(t, gerr, "secretIds must not contain empty strings")
}

func TestParseBatchSecretsRequest(t *testing.T) {
	// mixed batch: create + update + delete
	req, gerr := ParseBatchSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"requests": [
			{"method": "POST", "secret": {"type": "SHARED",
				"secretKeyCiphertext": "kc", "secretKeyIV": "kiv", "secretKeyTag": "ktag",
				"secretValueCiphertext": "vc", "secretValueIV": "viv", "secretValueTag": "vtag"}},
			{"method": "PATCH", "secret": {"id": "s-1"}},
			{"method": "DELETE", "secret": {"id": "s-2"}}
		]
	}`))
	if gerr != nil {
		t.Fatalf("unexpected error: %s", gerr.Error())
	}
	// create entries have no existing secret to reference
	assert.DeepEqual(t, "secret IDs", req.SecretIDs(), []string{"s-1", "s-2"})

	// update/delete entries without an ID
	_, gerr = ParseBatchSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"requests": [{"method": "DELETE", "secret": {}}]
	}`))
	expectViolations(t, gerr, "Each secret must contain a ID property")

	// update entries validate their ciphertext just like PATCH /secrets does
	_, gerr = ParseBatchSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"requests": [{"method": "PATCH", "secret": {"id": "s-1", "secretValueCiphertext": 42}}]
	}`))
	expectViolations(t, gerr, "requests[0].secret: secretValueCiphertext must be a string")

	// unknown method
	_, gerr = ParseBatchSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev",
		"requests": [{"method": "PUT", "secret": {"id": "s-1"}}]
	}`))
	expectViolations(t, gerr, "requests[0]: method must be one of POST, PATCH, DELETE")

	// empty batch
	_, gerr = ParseBatchSecretsRequest([]byte(`{
		"workspaceId": "w1", "environment": "dev", "requests": []
	}`))
	expectViolations(t, gerr, "requests must be a non-empty array")
}

func TestParseListSecretsQuery(t *testing.T) {
	q, gerr := ParseListSecretsQuery(url.Values{
		"workspaceId": {"w1"},
		"environment": {"dev"},
		"tagSlugs":    {"db, auth"},
	})
	if gerr != nil {
		t.Fatalf("unexpected error: %s", gerr.Error())
	}
	if q.FolderID != "root" {
		t.Errorf("expected folderId to default to \"root\", got %q", q.FolderID)
	}
	assert.DeepEqual(t, "tag slugs", q.TagSlugs, []string{"db", "auth"})
	if q.IncludeImports {
		t.Error("expected include_imports to default to false")
	}

	_, gerr = ParseListSecretsQuery(url.Values{
		"workspaceId":     {"w1"},
		"environment":     {"dev"},
		"include_imports": {"maybe"},
	})
	expectViolations(t, gerr, "include_imports must be a boolean")

	_, gerr = ParseListSecretsQuery(url.Values{})
	expectViolations(t, gerr,
		"workspaceId is a required property and must be a non-empty string",
		"environment is a required property and must be a non-empty string",
	)
}
