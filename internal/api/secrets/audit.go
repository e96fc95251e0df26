// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package secretsapi

import (
	"net/http"
	"time"

	"github.com/sapcc/go-api-declarations/cadf"
	"github.com/sapcc/go-bits/audittools"

	"github.com/sapcc/arcanum/internal/auth"
	"github.com/sapcc/arcanum/internal/models"
)

// AuditSecret is an audittools.TargetRenderer.
//
// Only metadata appears in the rendered resource. Ciphertext never enters
// the audit trail, not even in attachments.
type AuditSecret struct {
	Secret models.Secret
}

// Render implements the audittools.TargetRenderer interface.
func (a AuditSecret) Render() cadf.Resource {
	return cadf.Resource{
		TypeURI:   "secrets-store/secret",
		ID:        a.Secret.ID,
		ProjectID: a.Secret.WorkspaceID,
	}
}

func (a *API) recordAudit(r *http.Request, authCtx *auth.AuthContext, action cadf.Action, secrets ...models.Secret) {
	userInfo := authCtx.Identity.UserInfo()
	if userInfo == nil {
		return
	}
	for _, secret := range secrets {
		a.auditor.Record(audittools.Event{
			Time:       time.Now(),
			Request:    r,
			User:       userInfo,
			ReasonCode: http.StatusOK,
			Action:     action,
			Target:     AuditSecret{secret},
		})
	}
}
