// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package arcanum

import (
	"context"
	"errors"

	"github.com/sapcc/go-bits/pluggable"

	"github.com/sapcc/arcanum/internal/models"
)

// SecretStoreDriver represents the secret storage engine. The gateway only
// talks to it through this interface: once to resolve referenced secret IDs
// before permission checks, and once to delegate the actual operation after
// the authorization decision.
type SecretStoreDriver interface {
	pluggable.Plugin
	// Init is called before any other interface methods.
	Init(ctx context.Context, db *DB) error

	// ResolveSecretsByIDs resolves the given secret IDs within the given
	// workspace in one aggregate lookup. IDs that do not exist are missing
	// from the result; the caller decides whether that is fatal.
	ResolveSecretsByIDs(ctx context.Context, workspaceID string, ids []string) (map[string]models.Secret, error)

	// ListSecrets returns all secrets matching the given query.
	ListSecrets(ctx context.Context, query models.SecretQuery) ([]models.Secret, error)
	// CreateSecrets stores the given new secrets and returns them with IDs
	// and timestamps filled in.
	CreateSecrets(ctx context.Context, secrets []models.Secret) ([]models.Secret, error)
	// UpdateSecrets applies the given updates. Each input carries the ID of
	// an existing secret that authorization has already been checked for.
	UpdateSecrets(ctx context.Context, secrets []models.Secret) ([]models.Secret, error)
	// DeleteSecrets deletes the secrets with the given IDs.
	DeleteSecrets(ctx context.Context, workspaceID string, ids []string) error
}

// SecretStoreDriverRegistry is a pluggable.Registry for SecretStoreDriver implementations.
var SecretStoreDriverRegistry pluggable.Registry[SecretStoreDriver]

// NewSecretStoreDriver creates a new SecretStoreDriver using one of the
// plugins registered with SecretStoreDriverRegistry.
func NewSecretStoreDriver(ctx context.Context, pluginTypeID string, db *DB) (SecretStoreDriver, error) {
	sd, ok := SecretStoreDriverRegistry.TryInstantiate(pluginTypeID).Unpack()
	if !ok {
		return nil, errors.New("no such secret store driver: " + pluginTypeID)
	}
	return sd, sd.Init(ctx, db)
}
