// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package sessionapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/arcanum/internal/api"
	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/auth"
)

func (a *API) handleExchangeToken(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/token")
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !a.decodeRequestBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		api.RespondWithError(w, arcanum.ErrValidation.WithViolations([]string{
			"refreshToken is a required property and must be a non-empty string",
		}))
		return
	}

	token, gerr := a.sessionDriver.ExchangeToken(r.Context(), req.RefreshToken)
	if api.RespondWithError(w, gerr) {
		return
	}
	respondwith.JSON(w, http.StatusOK, map[string]any{"token": token})
}

func (a *API) handleLogin1(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/login1")
	if api.EnforceRateLimit(w, r, a.rle, arcanum.LoginAttemptAction) {
		return
	}
	var req struct {
		Email           string `json:"email"`
		ClientPublicKey string `json:"clientPublicKey"`
	}
	if !a.decodeRequestBody(w, r, &req) {
		return
	}
	var missing []string
	if req.Email == "" {
		missing = append(missing, "email is a required property and must be a non-empty string")
	}
	if req.ClientPublicKey == "" {
		missing = append(missing, "clientPublicKey is a required property and must be a non-empty string")
	}
	if len(missing) > 0 {
		api.RespondWithError(w, arcanum.ErrValidation.WithViolations(missing))
		return
	}

	challenge, gerr := a.sessionDriver.BeginLogin(r.Context(), req.Email, req.ClientPublicKey)
	if api.RespondWithError(w, gerr) {
		return
	}
	respondwith.JSON(w, http.StatusOK, challenge)
}

func (a *API) handleLogin2(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/login2")
	if api.EnforceRateLimit(w, r, a.rle, arcanum.LoginAttemptAction) {
		return
	}
	var req struct {
		Email       string `json:"email"`
		ClientProof string `json:"clientProof"`
	}
	if !a.decodeRequestBody(w, r, &req) {
		return
	}
	var missing []string
	if req.Email == "" {
		missing = append(missing, "email is a required property and must be a non-empty string")
	}
	if req.ClientProof == "" {
		missing = append(missing, "clientProof is a required property and must be a non-empty string")
	}
	if len(missing) > 0 {
		api.RespondWithError(w, arcanum.ErrValidation.WithViolations(missing))
		return
	}

	result, gerr := a.sessionDriver.CompleteLogin(r.Context(), req.Email, req.ClientProof)
	if api.RespondWithError(w, gerr) {
		return
	}
	respondwith.JSON(w, http.StatusOK, result)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/logout")
	authCtx, gerr := auth.ResolveCredential(r.Context(), a.authDriver, r, jwtOnly)
	if api.RespondWithError(w, gerr) {
		return
	}
	api.CountAuthorized("/logout", authCtx.Mode)

	gerr = a.sessionDriver.RevokeSession(r.Context(), authCtx.Identity)
	if api.RespondWithError(w, gerr) {
		return
	}
	respondwith.JSON(w, http.StatusOK, struct{}{})
}

func (a *API) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/checkAuth")
	authCtx, gerr := auth.ResolveCredential(r.Context(), a.authDriver, r, jwtOnly)
	if api.RespondWithError(w, gerr) {
		return
	}
	api.CountAuthorized("/checkAuth", authCtx.Mode)
	respondwith.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleRevokeAllSessions(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/sessions")
	if api.EnforceRateLimit(w, r, a.rle, arcanum.SessionRevokeAction) {
		return
	}
	authCtx, gerr := auth.ResolveCredential(r.Context(), a.authDriver, r, jwtOnly)
	if api.RespondWithError(w, gerr) {
		return
	}
	api.CountAuthorized("/sessions", authCtx.Mode)

	gerr = a.sessionDriver.RevokeAllSessions(r.Context(), authCtx.Identity)
	if api.RespondWithError(w, gerr) {
		return
	}
	respondwith.JSON(w, http.StatusOK, struct{}{})
}

func (a *API) handleCommonPasswords(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/common-passwords")
	if api.EnforceRateLimit(w, r, a.rle, arcanum.PasswordListAction) {
		return
	}
	respondwith.JSON(w, http.StatusOK, commonPasswords)
}

// decodeRequestBody reads and unmarshals the request body, responding with
// 422 on malformed JSON. Returns whether decoding succeeded.
func (a *API) decodeRequestBody(w http.ResponseWriter, r *http.Request, target any) bool {
	body, err := io.ReadAll(r.Body)
	if respondwith.ErrorText(w, err) {
		return false
	}
	err = json.Unmarshal(body, target)
	if err != nil {
		api.RespondWithError(w, arcanum.ErrValidation.WithViolations([]string{
			"request body is not valid JSON: " + err.Error(),
		}))
		return false
	}
	return true
}
