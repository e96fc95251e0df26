// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/sapcc/arcanum/internal/arcanum"
)

// CredentialFromRequest extracts the raw credential material for the given
// mode from the request, or "" if no such credential is present.
func CredentialFromRequest(r *http.Request, mode arcanum.AuthMode) string {
	switch mode {
	case arcanum.ModeJWT:
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer ")
		}
		return ""
	case arcanum.ModeAPIKey:
		return r.Header.Get("X-API-Key")
	case arcanum.ModeServiceToken:
		return r.Header.Get("X-Service-Token")
	default:
		return ""
	}
}

// ResolveCredential establishes the caller's identity from the first
// credential present in the request whose mode the endpoint accepts. Modes
// are tried in the fixed precedence order (JWT, then API key, then service
// token). A credential that is present but fails verification is terminal:
// later modes are not consulted as fallbacks.
func ResolveCredential(ctx context.Context, ad arcanum.AuthDriver, r *http.Request, acceptedModes []arcanum.AuthMode) (*AuthContext, *arcanum.GatewayError) {
	for _, mode := range arcanum.AuthModePrecedence {
		if !slices.Contains(acceptedModes, mode) {
			continue
		}
		rawCredential := CredentialFromRequest(r, mode)
		if rawCredential == "" {
			continue
		}
		identity, gerr := ad.VerifyCredential(ctx, mode, rawCredential)
		if gerr != nil {
			return nil, gerr
		}
		return &AuthContext{
			IdentityID: identity.IdentityID(),
			Mode:       mode,
			Identity:   identity,
		}, nil
	}
	return nil, arcanum.ErrUnauthenticated.With("no acceptable credential found in request headers")
}
