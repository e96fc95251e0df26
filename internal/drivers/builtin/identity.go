// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"github.com/sapcc/go-bits/audittools"
)

// UserIdentity is the identity of a caller authenticated through a session
// JWT.
type UserIdentity struct {
	UserID    string
	Email     string
	SessionID string
}

// IdentityID implements the arcanum.Identity interface.
func (uid UserIdentity) IdentityID() string { return uid.UserID }

// DisplayName implements the arcanum.Identity interface.
func (uid UserIdentity) DisplayName() string { return uid.Email }

// UserInfo implements the arcanum.Identity interface.
func (uid UserIdentity) UserInfo() audittools.UserInfo {
	return userInfo{uuid: uid.UserID, name: uid.Email}
}

// CurrentSessionID identifies the session that minted the presented token.
// The session driver uses this for single-session logout.
func (uid UserIdentity) CurrentSessionID() string { return uid.SessionID }

// APIKeyIdentity is the identity of a caller authenticated through an API
// key. It acts on behalf of the user that created the key.
type APIKeyIdentity struct {
	UserID  string
	KeyName string
}

// IdentityID implements the arcanum.Identity interface.
func (kid APIKeyIdentity) IdentityID() string { return kid.UserID }

// DisplayName implements the arcanum.Identity interface.
func (kid APIKeyIdentity) DisplayName() string { return "api-key:" + kid.KeyName }

// UserInfo implements the arcanum.Identity interface.
func (kid APIKeyIdentity) UserInfo() audittools.UserInfo {
	return userInfo{uuid: kid.UserID, name: kid.DisplayName()}
}

// ServiceTokenIdentity is the identity of a machine caller authenticated
// through a workspace-scoped service token.
type ServiceTokenIdentity struct {
	TokenID     string
	TokenName   string
	WorkspaceID string
}

// IdentityID implements the arcanum.Identity interface.
func (sid ServiceTokenIdentity) IdentityID() string { return sid.TokenID }

// DisplayName implements the arcanum.Identity interface.
func (sid ServiceTokenIdentity) DisplayName() string { return "service-token:" + sid.TokenName }

// UserInfo implements the arcanum.Identity interface.
func (sid ServiceTokenIdentity) UserInfo() audittools.UserInfo {
	return userInfo{uuid: sid.TokenID, name: sid.DisplayName(), projectID: sid.WorkspaceID}
}

// userInfo renders identities into audit events. Workspaces take the place
// of project scopes; there is no domain hierarchy here.
type userInfo struct {
	uuid      string
	name      string
	projectID string
}

func (u userInfo) UserUUID() string                { return u.uuid }
func (u userInfo) UserName() string                { return u.name }
func (u userInfo) UserDomainName() string          { return "" }
func (u userInfo) ProjectScopeUUID() string        { return u.projectID }
func (u userInfo) ProjectScopeName() string        { return "" }
func (u userInfo) ProjectScopeDomainName() string  { return "" }
func (u userInfo) DomainScopeUUID() string         { return "" }
func (u userInfo) DomainScopeName() string         { return "" }
func (u userInfo) ApplicationCredentialID() string { return "" }
