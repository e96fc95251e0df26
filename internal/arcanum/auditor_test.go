// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package arcanum_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sapcc/go-api-declarations/cadf"
	"github.com/sapcc/go-bits/audittools"

	secretsapi "github.com/sapcc/arcanum/internal/api/secrets"
	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/drivers/builtin"
	"github.com/sapcc/arcanum/internal/models"
)

func TestInitAuditTrailWithoutQueue(t *testing.T) {
	// without ARCANUM_AUDIT_RABBITMQ_QUEUE_NAME, events go to the standard
	// log; Record() must still accept a fully rendered event
	auditor, err := arcanum.InitAuditTrail(t.Context())
	if err != nil {
		t.Fatal(err.Error())
	}

	identities := []arcanum.Identity{
		builtin.UserIdentity{UserID: "u-1", Email: "alice@example.org", SessionID: "sess-1"},
		builtin.APIKeyIdentity{UserID: "u-1", KeyName: "deploy"},
		builtin.ServiceTokenIdentity{TokenID: "st-1", TokenName: "ci", WorkspaceID: "ws-1"},
	}
	for _, identity := range identities {
		auditor.Record(audittools.Event{
			Time:       time.Now(),
			Request:    httptest.NewRequest(http.MethodPost, "/secrets", http.NoBody),
			User:       identity.UserInfo(),
			ReasonCode: http.StatusOK,
			Action:     cadf.CreateAction,
			Target: secretsapi.AuditSecret{Secret: models.Secret{
				ID:          "s-1",
				WorkspaceID: "ws-1",
			}},
		})
	}
}
