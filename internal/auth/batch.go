// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"

	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/models"
)

// resolveSecretRefs resolves the given referenced secret IDs into full
// records before any permission check runs. All IDs are resolved in one
// aggregate lookup to bound latency. An ID that does not resolve fails the
// whole request; there is no partial resolution.
//
// The caller is expected to have deduplicated the IDs already (the payload
// package does this while extracting them).
func resolveSecretRefs(ctx context.Context, sd arcanum.SecretStoreDriver, workspaceID string, ids []string) ([]models.Secret, *arcanum.GatewayError) {
	if len(ids) == 0 {
		return nil, nil
	}
	resolved, err := sd.ResolveSecretsByIDs(ctx, workspaceID, ids)
	if err != nil {
		return nil, arcanum.AsGatewayError(err)
	}

	secrets := make([]models.Secret, 0, len(ids))
	for _, id := range ids {
		secret, ok := resolved[id]
		if !ok {
			return nil, arcanum.ErrNotFound.With("secret %s not found", id)
		}
		secrets = append(secrets, secret)
	}
	return secrets, nil
}
