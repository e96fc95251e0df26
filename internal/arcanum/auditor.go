// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package arcanum

import (
	"context"

	"github.com/sapcc/go-bits/audittools"
)

// InitAuditTrail initializes an audittools.Auditor from the configuration
// variables in the environment. Events are published to the RabbitMQ queue
// named by $ARCANUM_AUDIT_RABBITMQ_QUEUE_NAME; without that variable, events
// only go to the standard log.
func InitAuditTrail(ctx context.Context) (audittools.Auditor, error) {
	return audittools.NewAuditor(ctx, audittools.AuditorOpts{
		EnvPrefix: "ARCANUM_AUDIT_RABBITMQ",
		Observer: audittools.Observer{
			TypeURI: "service/secrets-store",
			Name:    "arcanum",
			ID:      audittools.GenerateUUID(),
		},
	})
}
