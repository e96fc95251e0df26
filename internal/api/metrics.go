// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AuthorizedRequestsCounter counts requests that passed the full
// authorization pipeline, broken down by endpoint and credential type.
var AuthorizedRequestsCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "arcanum_authorized_requests",
		Help: "Count of requests that passed authorization.",
	},
	[]string{"endpoint", "auth_mode"},
)

// DeniedRequestsCounter counts requests rejected by the gateway, broken
// down by the error code of the rejection.
var DeniedRequestsCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "arcanum_denied_requests",
		Help: "Count of requests rejected by the gateway.",
	},
	[]string{"reason"},
)

func init() {
	prometheus.MustRegister(AuthorizedRequestsCounter)
	prometheus.MustRegister(DeniedRequestsCounter)
}
