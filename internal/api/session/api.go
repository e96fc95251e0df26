// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package sessionapi implements the authentication lifecycle endpoints of
// the gateway: token exchange, the login handshake, logout and session
// revocation.
package sessionapi

import (
	"github.com/gorilla/mux"

	"github.com/sapcc/arcanum/internal/arcanum"
)

// API contains state variables used by the session API endpoints.
type API struct {
	authDriver    arcanum.AuthDriver
	sessionDriver arcanum.SessionDriver
	rle           *arcanum.RateLimitEngine
}

// NewAPI constructs a new API instance. rle may be nil if rate limiting is
// not configured.
func NewAPI(ad arcanum.AuthDriver, sd arcanum.SessionDriver, rle *arcanum.RateLimitEngine) *API {
	return &API{ad, sd, rle}
}

// AddTo implements the api.API interface.
func (a *API) AddTo(r *mux.Router) {
	r.Methods("POST").Path("/token").HandlerFunc(a.handleExchangeToken)
	r.Methods("POST").Path("/login1").HandlerFunc(a.handleLogin1)
	r.Methods("POST").Path("/login2").HandlerFunc(a.handleLogin2)
	r.Methods("POST").Path("/logout").HandlerFunc(a.handleLogout)
	r.Methods("POST").Path("/checkAuth").HandlerFunc(a.handleCheckAuth)
	r.Methods("GET").Path("/common-passwords").HandlerFunc(a.handleCommonPasswords)
	r.Methods("DELETE").Path("/sessions").HandlerFunc(a.handleRevokeAllSessions)
}

// Session endpoints that require an authenticated caller only accept JWTs.
// API keys and service tokens have no session to operate on.
var jwtOnly = []arcanum.AuthMode{arcanum.ModeJWT}
