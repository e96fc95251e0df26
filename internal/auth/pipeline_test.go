// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sapcc/go-bits/assert"

	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/auth"
	"github.com/sapcc/arcanum/internal/models"
	"github.com/sapcc/arcanum/internal/test"
)

var allModes = []arcanum.AuthMode{arcanum.ModeJWT, arcanum.ModeAPIKey, arcanum.ModeServiceToken}

func makeRequest(headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/secrets", http.NoBody)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func expectDenied(t *testing.T, gerr *arcanum.GatewayError, code arcanum.GatewayErrorCode, detail string) {
	t.Helper()
	if gerr == nil {
		t.Fatal("expected the pipeline to deny, but it allowed")
	}
	if gerr.Code != code {
		t.Errorf("expected code %s, got %s", code, gerr.Code)
	}
	if gerr.Inner == nil {
		t.Errorf("expected detail %q, got none", detail)
	} else if gerr.Inner.Error() != detail {
		t.Errorf("expected detail %q, got %q", detail, gerr.Inner.Error())
	}
}

func TestCredentialPrecedence(t *testing.T) {
	s := test.NewSetup(t)
	s.AD.GrantCredential(arcanum.ModeJWT, "jwt-token", test.Identity{ID: "u-jwt", Name: "alice"})
	s.AD.GrantCredential(arcanum.ModeAPIKey, "api-key", test.Identity{ID: "u-key", Name: "alice-key"})
	s.MD.GrantMembership("ws-1", "u-jwt", models.RoleMember, models.PermReadSecrets)
	s.MD.GrantMembership("ws-1", "u-key", models.RoleMember, models.PermReadSecrets)

	pipeline := auth.Pipeline{
		AcceptedModes: allModes,
		RequiredRoles: []models.Role{models.RoleAdmin, models.RoleMember},
		Scope:         auth.ScopeNone,
	}

	// when both a JWT and an API key are presented, the JWT wins and the API
	// key is never even inspected
	r := makeRequest(map[string]string{
		"Authorization": "Bearer jwt-token",
		"X-API-Key":     "api-key",
	})
	authCtx, gerr := pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", nil)
	if gerr != nil {
		t.Fatalf("unexpected denial: %s", gerr.Error())
	}
	if authCtx.IdentityID != "u-jwt" {
		t.Errorf("expected identity u-jwt, got %s", authCtx.IdentityID)
	}
	if authCtx.Mode != arcanum.ModeJWT {
		t.Errorf("expected mode JWT, got %s", authCtx.Mode)
	}
	assert.DeepEqual(t, "verification calls", s.AD.VerifyLog, []arcanum.AuthMode{arcanum.ModeJWT})

	// an API key beats a service token, for the same reason
	s.AD.VerifyLog = nil
	s.AD.GrantCredential(arcanum.ModeServiceToken, "svc-token", test.Identity{ID: "u-svc", Name: "deployer"})
	r = makeRequest(map[string]string{
		"X-API-Key":       "api-key",
		"X-Service-Token": "svc-token",
	})
	authCtx, gerr = pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", nil)
	if gerr != nil {
		t.Fatalf("unexpected denial: %s", gerr.Error())
	}
	if authCtx.IdentityID != "u-key" {
		t.Errorf("expected identity u-key, got %s", authCtx.IdentityID)
	}
	assert.DeepEqual(t, "verification calls", s.AD.VerifyLog, []arcanum.AuthMode{arcanum.ModeAPIKey})
}

func TestInvalidCredentialIsTerminal(t *testing.T) {
	s := test.NewSetup(t)
	s.AD.GrantCredential(arcanum.ModeAPIKey, "good-key", test.Identity{ID: "u-1", Name: "alice"})
	s.MD.GrantMembership("ws-1", "u-1", models.RoleMember, models.PermReadSecrets)

	pipeline := auth.Pipeline{AcceptedModes: allModes, Scope: auth.ScopeNone}

	// a present-but-invalid JWT denies the request even though a perfectly
	// valid API key rides along; lower-precedence modes are not fallbacks
	r := makeRequest(map[string]string{
		"Authorization": "Bearer forged-token",
		"X-API-Key":     "good-key",
	})
	_, gerr := pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", nil)
	expectDenied(t, gerr, arcanum.ErrUnauthenticated, "wrong credentials")
	assert.DeepEqual(t, "verification calls", s.AD.VerifyLog, []arcanum.AuthMode{arcanum.ModeJWT})
}

func TestMissingCredential(t *testing.T) {
	s := test.NewSetup(t)
	pipeline := auth.Pipeline{AcceptedModes: allModes, Scope: auth.ScopeNone}

	_, gerr := pipeline.Authorize(t.Context(), s.Drivers(), makeRequest(nil), "ws-1", nil)
	expectDenied(t, gerr, arcanum.ErrUnauthenticated, "no acceptable credential found in request headers")

	// a credential of a mode that this endpoint does not accept counts as
	// absent, not as invalid
	jwtOnly := auth.Pipeline{AcceptedModes: []arcanum.AuthMode{arcanum.ModeJWT}, Scope: auth.ScopeNone}
	r := makeRequest(map[string]string{"X-API-Key": "whatever"})
	_, gerr = jwtOnly.Authorize(t.Context(), s.Drivers(), r, "ws-1", nil)
	expectDenied(t, gerr, arcanum.ErrUnauthenticated, "no acceptable credential found in request headers")
	if len(s.AD.VerifyLog) != 0 {
		t.Errorf("expected no verification calls, got %v", s.AD.VerifyLog)
	}
}

func TestRoleCheck(t *testing.T) {
	s := test.NewSetup(t)
	s.AD.GrantCredential(arcanum.ModeJWT, "token", test.Identity{ID: "u-1", Name: "alice"})

	pipeline := auth.Pipeline{
		AcceptedModes: allModes,
		RequiredRoles: []models.Role{models.RoleAdmin},
		Scope:         auth.ScopeNone,
	}
	r := makeRequest(map[string]string{"Authorization": "Bearer token"})

	// not a member at all
	_, gerr := pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", nil)
	expectDenied(t, gerr, arcanum.ErrForbidden, "not a member of workspace ws-1")

	// member, but with an insufficient role
	s.MD.GrantMembership("ws-1", "u-1", models.RoleMember, models.PermReadSecrets, models.PermWriteSecrets)
	_, gerr = pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", nil)
	expectDenied(t, gerr, arcanum.ErrForbidden, "role MEMBER does not allow this operation")

	// membership in a different workspace does not carry over
	s.MD.GrantMembership("ws-2", "u-1", models.RoleAdmin, models.PermReadSecrets, models.PermWriteSecrets)
	_, gerr = pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", nil)
	expectDenied(t, gerr, arcanum.ErrForbidden, "role MEMBER does not allow this operation")

	authCtx, gerr := pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-2", nil)
	if gerr != nil {
		t.Fatalf("unexpected denial: %s", gerr.Error())
	}
	if authCtx.Role != models.RoleAdmin {
		t.Errorf("expected role ADMIN, got %s", authCtx.Role)
	}
}

func TestWorkspacePermissionCheck(t *testing.T) {
	s := test.NewSetup(t)
	s.AD.GrantCredential(arcanum.ModeJWT, "token", test.Identity{ID: "u-1", Name: "alice"})
	s.MD.GrantMembership("ws-1", "u-1", models.RoleMember, models.PermReadSecrets)

	pipeline := auth.Pipeline{
		AcceptedModes:       allModes,
		RequiredRoles:       []models.Role{models.RoleAdmin, models.RoleMember},
		RequiredPermissions: []models.Permission{models.PermWriteSecrets},
		Scope:               auth.ScopeWorkspace,
	}
	r := makeRequest(map[string]string{"Authorization": "Bearer token"})

	_, gerr := pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", nil)
	expectDenied(t, gerr, arcanum.ErrForbidden, "missing permission WRITE_SECRETS in workspace ws-1")

	s.MD.GrantMembership("ws-1", "u-1", models.RoleMember, models.PermReadSecrets, models.PermWriteSecrets)
	authCtx, gerr := pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", nil)
	if gerr != nil {
		t.Fatalf("unexpected denial: %s", gerr.Error())
	}
	if !authCtx.Grants.Has(models.PermWriteSecrets) {
		t.Error("expected WRITE_SECRETS in recorded grants")
	}
}

func TestReferenceResolution(t *testing.T) {
	s := test.NewSetup(t)
	s.AD.GrantCredential(arcanum.ModeJWT, "token", test.Identity{ID: "u-1", Name: "alice"})
	s.MD.GrantMembership("ws-1", "u-1", models.RoleMember, models.PermReadSecrets, models.PermWriteSecrets)
	id1 := s.SD.AddSecret(models.Secret{WorkspaceID: "ws-1", Environment: "dev", FolderID: "root", Type: models.SharedSecret})
	id2 := s.SD.AddSecret(models.Secret{WorkspaceID: "ws-2", Environment: "dev", FolderID: "root", Type: models.SharedSecret})

	pipeline := auth.Pipeline{
		AcceptedModes:       allModes,
		RequiredRoles:       []models.Role{models.RoleAdmin, models.RoleMember},
		RequiredPermissions: []models.Permission{models.PermWriteSecrets},
		Scope:               auth.ScopeSecret,
	}
	r := makeRequest(map[string]string{"Authorization": "Bearer token"})

	// happy path
	authCtx, gerr := pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", []string{id1})
	if gerr != nil {
		t.Fatalf("unexpected denial: %s", gerr.Error())
	}
	if len(authCtx.ResolvedSecrets) != 1 || authCtx.ResolvedSecrets[0].ID != id1 {
		t.Errorf("expected resolved secret %s, got %+v", id1, authCtx.ResolvedSecrets)
	}

	// an unknown ID fails the whole request, even when other IDs resolve
	_, gerr = pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", []string{id1, "s-bogus"})
	expectDenied(t, gerr, arcanum.ErrNotFound, "secret s-bogus not found")

	// a secret in a different workspace does not resolve here, and the
	// response does not reveal that the ID exists elsewhere
	_, gerr = pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", []string{id2})
	expectDenied(t, gerr, arcanum.ErrNotFound, "secret "+id2+" not found")

	// resolution happens before the role check: a non-member referencing an
	// unknown secret sees the 404, not the 403
	s.AD.GrantCredential(arcanum.ModeJWT, "outsider-token", test.Identity{ID: "u-2", Name: "mallory"})
	r = makeRequest(map[string]string{"Authorization": "Bearer outsider-token"})
	_, gerr = pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", []string{"s-bogus"})
	expectDenied(t, gerr, arcanum.ErrNotFound, "secret s-bogus not found")
}

func TestSecretPermissionCheck(t *testing.T) {
	s := test.NewSetup(t)
	s.AD.GrantCredential(arcanum.ModeJWT, "token", test.Identity{ID: "u-1", Name: "alice"})
	s.MD.GrantMembership("ws-1", "u-1", models.RoleMember, models.PermReadSecrets, models.PermWriteSecrets)
	id1 := s.SD.AddSecret(models.Secret{WorkspaceID: "ws-1", Environment: "dev", FolderID: "root", Type: models.SharedSecret})
	id2 := s.SD.AddSecret(models.Secret{WorkspaceID: "ws-1", Environment: "dev", FolderID: "root", Type: models.SharedSecret})

	pipeline := auth.Pipeline{
		AcceptedModes:       allModes,
		RequiredRoles:       []models.Role{models.RoleAdmin, models.RoleMember},
		RequiredPermissions: []models.Permission{models.PermWriteSecrets},
		Scope:               auth.ScopeSecret,
	}
	r := makeRequest(map[string]string{"Authorization": "Bearer token"})

	// a per-secret grant replaces the workspace default for that secret, so a
	// read-only override takes write access away
	s.MD.GrantSecretPermissions(id2, "u-1", models.PermReadSecrets)
	_, gerr := pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", []string{id1, id2})
	expectDenied(t, gerr, arcanum.ErrForbidden, "missing permission WRITE_SECRETS for secret "+id2)

	// all-or-nothing: the same request with only the unrestricted secret passes
	_, gerr = pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", []string{id1})
	if gerr != nil {
		t.Fatalf("unexpected denial: %s", gerr.Error())
	}
}

func TestPersonalSecretIsOwnerOnly(t *testing.T) {
	s := test.NewSetup(t)
	s.AD.GrantCredential(arcanum.ModeJWT, "alice-token", test.Identity{ID: "u-1", Name: "alice"})
	s.AD.GrantCredential(arcanum.ModeJWT, "bob-token", test.Identity{ID: "u-2", Name: "bob"})
	s.MD.GrantMembership("ws-1", "u-1", models.RoleMember, models.PermReadSecrets, models.PermWriteSecrets)
	s.MD.GrantMembership("ws-1", "u-2", models.RoleAdmin, models.PermReadSecrets, models.PermWriteSecrets)
	id := s.SD.AddSecret(models.Secret{WorkspaceID: "ws-1", Environment: "dev", FolderID: "root", Type: models.PersonalSecret, UserID: "u-1"})

	pipeline := auth.Pipeline{
		AcceptedModes:       allModes,
		RequiredRoles:       []models.Role{models.RoleAdmin, models.RoleMember},
		RequiredPermissions: []models.Permission{models.PermWriteSecrets},
		Scope:               auth.ScopeSecret,
	}

	// the owner may touch their personal secret
	r := makeRequest(map[string]string{"Authorization": "Bearer alice-token"})
	_, gerr := pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", []string{id})
	if gerr != nil {
		t.Fatalf("unexpected denial: %s", gerr.Error())
	}

	// nobody else may, not even a workspace admin
	r = makeRequest(map[string]string{"Authorization": "Bearer bob-token"})
	_, gerr = pipeline.Authorize(t.Context(), s.Drivers(), r, "ws-1", []string{id})
	expectDenied(t, gerr, arcanum.ErrForbidden, "no access to secret "+id)
}
