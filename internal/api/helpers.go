// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package api contains helpers shared by the HTTP API packages.
package api

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sapcc/go-bits/httpext"

	"github.com/sapcc/arcanum/internal/arcanum"
)

// RespondWithError writes `gerr` into the response body if it is non-nil.
// Returns whether a response was written.
func RespondWithError(w http.ResponseWriter, gerr *arcanum.GatewayError) bool {
	if gerr == nil {
		return false
	}
	DeniedRequestsCounter.With(prometheus.Labels{"reason": string(gerr.Code)}).Inc()
	gerr.WriteAsJSONTo(w)
	return true
}

// EnforceRateLimit checks the rate limit for the given action and, if it is
// exhausted, responds with 429 and a Retry-After header. Returns whether a
// response was written.
func EnforceRateLimit(w http.ResponseWriter, r *http.Request, rle *arcanum.RateLimitEngine, action arcanum.RateLimitedAction) bool {
	allowed, retryAfter, err := rle.RateLimitAllows(r.Context(), httpext.GetRequesterIPFor(r), action)
	if err != nil {
		return RespondWithError(w, arcanum.AsGatewayError(err))
	}
	if !allowed {
		retryAfterSeconds := int(retryAfter.Seconds()) + 1
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		return RespondWithError(w, arcanum.ErrRateLimited.With("too many requests"))
	}
	return false
}

// CountAuthorized records a successful authorization for metrics.
func CountAuthorized(endpoint string, mode arcanum.AuthMode) {
	AuthorizedRequestsCounter.With(prometheus.Labels{"endpoint": endpoint, "auth_mode": string(mode)}).Inc()
}
