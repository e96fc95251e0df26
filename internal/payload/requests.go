// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/models"
)

// commonFields are the scalar properties shared by all secret-affecting
// request bodies.
type commonFields struct {
	WorkspaceID string   `json:"workspaceId"`
	Environment string   `json:"environment"`
	FolderID    string   `json:"folderId"`
	SecretPath  string   `json:"secretPath"`
	TagSlugs    []string `json:"tagSlugs"`
}

func (f *commonFields) check(v *violations) {
	if f.WorkspaceID == "" {
		v.add("workspaceId is a required property and must be a non-empty string")
	}
	if f.Environment == "" {
		v.add("environment is a required property and must be a non-empty string")
	}
	if f.FolderID == "" {
		f.FolderID = "root"
	}
}

// CreateSecretsRequest is the parsed and validated body of POST /secrets.
type CreateSecretsRequest struct {
	commonFields
	Secrets SecretSubmission `json:"secrets"`
}

// ParseCreateSecretsRequest validates the body of POST /secrets.
func ParseCreateSecretsRequest(body []byte) (*CreateSecretsRequest, *arcanum.GatewayError) {
	var req CreateSecretsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, malformedBody(err)
	}

	var v violations
	req.commonFields.check(&v)
	if req.Secrets.collectShapeViolations(&v) {
		for idx, entry := range req.Secrets.Entries() {
			checkCreateEntry(&v, entryLabel(req.Secrets, idx), entry)
		}
	}
	if len(v.list) > 0 {
		return nil, arcanum.ErrValidation.WithViolations(v.list)
	}
	return &req, nil
}

// UpdateSecretsRequest is the parsed and validated body of PATCH /secrets.
type UpdateSecretsRequest struct {
	commonFields
	Secrets SecretSubmission `json:"secrets"`
}

// ParseUpdateSecretsRequest validates the body of PATCH /secrets.
func ParseUpdateSecretsRequest(body []byte) (*UpdateSecretsRequest, *arcanum.GatewayError) {
	var req UpdateSecretsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, malformedBody(err)
	}

	var v violations
	req.commonFields.check(&v)
	if req.Secrets.collectShapeViolations(&v) {
		// the missing-ID message is reported only once, but later entries are
		// still scanned for their own violations
		missingIDReported := false
		for idx, entry := range req.Secrets.Entries() {
			if (entry.ID == nil || *entry.ID == "") && !missingIDReported {
				v.add("Each secret must contain a ID property")
				missingIDReported = true
			}
			if entry.SecretValueCiphertext != nil {
				checkCiphertextIsString(&v, entryLabel(req.Secrets, idx), entry.SecretValueCiphertext)
			}
		}
	}
	if len(v.list) > 0 {
		return nil, arcanum.ErrValidation.WithViolations(v.list)
	}
	return &req, nil
}

// SecretIDs returns the IDs of all secrets named in this update request,
// deduplicated in order of first appearance.
func (r UpdateSecretsRequest) SecretIDs() []string {
	var ids []string
	for _, entry := range r.Secrets.Entries() {
		if entry.ID != nil && !slices.Contains(ids, *entry.ID) {
			ids = append(ids, *entry.ID)
		}
	}
	return ids
}

// DeleteSecretsRequest is the parsed and validated body of DELETE /secrets.
type DeleteSecretsRequest struct {
	commonFields
	SecretIDList StringOrStringList `json:"secretIds"`
}

// ParseDeleteSecretsRequest validates the body of DELETE /secrets.
func ParseDeleteSecretsRequest(body []byte) (*DeleteSecretsRequest, *arcanum.GatewayError) {
	var req DeleteSecretsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, malformedBody(err)
	}

	var v violations
	req.commonFields.check(&v)
	switch {
	case !req.SecretIDList.present:
		v.add("secretIds is a required property")
	case req.SecretIDList.invalid:
		v.add("secretIds must be a string or an array of strings")
	case len(req.SecretIDList.values) == 0:
		v.add("secretIds must not be an empty array")
	case slices.Contains(req.SecretIDList.values, ""):
		v.add("secretIds must not contain empty strings")
	}
	if len(v.list) > 0 {
		return nil, arcanum.ErrValidation.WithViolations(v.list)
	}
	return &req, nil
}

// SecretIDs returns the IDs named in this delete request, deduplicated in
// order of first appearance.
func (r DeleteSecretsRequest) SecretIDs() []string {
	var ids []string
	for _, id := range r.SecretIDList.Values() {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Batch methods accepted in BatchEntry.Method.
const (
	BatchMethodCreate = "POST"
	BatchMethodUpdate = "PATCH"
	BatchMethodDelete = "DELETE"
)

// BatchEntry is one sub-request of a batch submission: an action plus the
// secret that it affects.
type BatchEntry struct {
	Method string      `json:"method"`
	Secret SecretInput `json:"secret"`
}

// BatchSecretsRequest is the parsed and validated body of POST /secrets/batch.
type BatchSecretsRequest struct {
	commonFields
	Requests []BatchEntry `json:"requests"`
}

// ParseBatchSecretsRequest validates the body of POST /secrets/batch.
func ParseBatchSecretsRequest(body []byte) (*BatchSecretsRequest, *arcanum.GatewayError) {
	var req BatchSecretsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, malformedBody(err)
	}

	var v violations
	req.commonFields.check(&v)
	if len(req.Requests) == 0 {
		v.add("requests must be a non-empty array")
	}
	for idx, entry := range req.Requests {
		label := fmt.Sprintf("requests[%d]", idx)
		switch entry.Method {
		case BatchMethodCreate:
			checkCreateEntry(&v, label+".secret", entry.Secret)
		case BatchMethodUpdate:
			if entry.Secret.ID == nil || *entry.Secret.ID == "" {
				v.add("Each secret must contain a ID property")
			}
			if entry.Secret.SecretValueCiphertext != nil {
				checkCiphertextIsString(&v, label+".secret", entry.Secret.SecretValueCiphertext)
			}
		case BatchMethodDelete:
			if entry.Secret.ID == nil || *entry.Secret.ID == "" {
				v.add("Each secret must contain a ID property")
			}
		default:
			v.add(fmt.Sprintf("%s: method must be one of POST, PATCH, DELETE", label))
		}
	}
	if len(v.list) > 0 {
		return nil, arcanum.ErrValidation.WithViolations(v.list)
	}
	return &req, nil
}

// SecretIDs returns the IDs of all existing secrets referenced by this batch
// (update-style and delete-style entries), deduplicated in order of first
// appearance. Create-style entries do not reference existing secrets and are
// not included.
func (r BatchSecretsRequest) SecretIDs() []string {
	var ids []string
	for _, entry := range r.Requests {
		if entry.Method == BatchMethodCreate {
			continue
		}
		if entry.Secret.ID != nil && !slices.Contains(ids, *entry.Secret.ID) {
			ids = append(ids, *entry.Secret.ID)
		}
	}
	return ids
}

// ListSecretsQuery is the parsed and validated query of GET /secrets.
type ListSecretsQuery struct {
	WorkspaceID    string
	Environment    string
	FolderID       string
	SecretPath     string
	TagSlugs       []string
	IncludeImports bool
}

// ParseListSecretsQuery validates the query parameters of GET /secrets.
func ParseListSecretsQuery(query url.Values) (*ListSecretsQuery, *arcanum.GatewayError) {
	q := ListSecretsQuery{
		WorkspaceID: query.Get("workspaceId"),
		Environment: query.Get("environment"),
		FolderID:    query.Get("folderId"),
		SecretPath:  query.Get("secretPath"),
	}

	var v violations
	if q.WorkspaceID == "" {
		v.add("workspaceId is a required property and must be a non-empty string")
	}
	if q.Environment == "" {
		v.add("environment is a required property and must be a non-empty string")
	}
	if q.FolderID == "" {
		q.FolderID = "root"
	}
	if tagSlugs := query.Get("tagSlugs"); tagSlugs != "" {
		q.TagSlugs = splitCommaSeparated(tagSlugs)
	}
	if includeImports := query.Get("include_imports"); includeImports != "" {
		parsed, err := strconv.ParseBool(includeImports)
		if err != nil {
			v.add("include_imports must be a boolean")
		} else {
			q.IncludeImports = parsed
		}
	}

	if len(v.list) > 0 {
		return nil, arcanum.ErrValidation.WithViolations(v.list)
	}
	return &q, nil
}

// ToModel converts a validated create-style SecretInput into a Secret record
// for the storage engine. For personal secrets, identityID becomes the owner.
func (in SecretInput) ToModel(workspaceID, environment, folderID, identityID string) models.Secret {
	secret := models.Secret{
		WorkspaceID: workspaceID,
		Environment: environment,
		FolderID:    folderID,
		Type:        models.SecretType(deref(in.Type)),

		SecretKeyCiphertext: deref(in.SecretKeyCiphertext),
		SecretKeyIV:         deref(in.SecretKeyIV),
		SecretKeyTag:        deref(in.SecretKeyTag),
		SecretValueIV:       deref(in.SecretValueIV),
		SecretValueTag:      deref(in.SecretValueTag),
	}
	json.Unmarshal(in.SecretValueCiphertext, &secret.SecretValueCiphertext) //nolint:errcheck // checked during shape validation
	if in.ID != nil {
		secret.ID = *in.ID
	}
	if secret.Type == models.PersonalSecret {
		secret.UserID = identityID
	}
	return secret
}

func checkCreateEntry(v *violations, label string, entry SecretInput) {
	if entry.Type == nil {
		v.add(label + ": type is a required property")
	} else if !isValidSecretType(*entry.Type) {
		v.add(label + ": type must be either PERSONAL or SHARED")
	}

	required := []struct {
		name  string
		value *string
	}{
		{"secretKeyCiphertext", entry.SecretKeyCiphertext},
		{"secretKeyIV", entry.SecretKeyIV},
		{"secretKeyTag", entry.SecretKeyTag},
		{"secretValueIV", entry.SecretValueIV},
		{"secretValueTag", entry.SecretValueTag},
	}
	for _, field := range required {
		if field.value == nil {
			v.add(fmt.Sprintf("%s: missing required property %s", label, field.name))
		}
	}

	// the value ciphertext must be a string, but the empty string is allowed
	// (empty values are a legitimate use case)
	if entry.SecretValueCiphertext == nil {
		v.add(label + ": missing required property secretValueCiphertext")
	} else {
		checkCiphertextIsString(v, label, entry.SecretValueCiphertext)
	}
}

func checkCiphertextIsString(v *violations, label string, raw json.RawMessage) {
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		v.add(label + ": secretValueCiphertext must be a string")
	}
}

func entryLabel(s SecretSubmission, idx int) string {
	if s.IsSingle() {
		return "secret"
	}
	return fmt.Sprintf("secrets[%d]", idx)
}

func malformedBody(err error) *arcanum.GatewayError {
	return arcanum.ErrValidation.WithViolations([]string{
		"request body is not valid JSON: " + err.Error(),
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func splitCommaSeparated(in string) []string {
	var result []string
	for _, field := range strings.Split(in, ",") {
		field = strings.TrimSpace(field)
		if field != "" {
			result = append(result, field)
		}
	}
	return result
}
