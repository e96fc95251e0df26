// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/sapcc/go-bits/sqlext"
	uuid "github.com/satori/go.uuid"

	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/models"
)

func init() {
	arcanum.SecretStoreDriverRegistry.Add(func() arcanum.SecretStoreDriver { return &SecretStoreDriver{} })
}

// SecretStoreDriver is the secret store driver "postgres".
type SecretStoreDriver struct {
	db *arcanum.DB
}

// PluginTypeID implements the arcanum.SecretStoreDriver interface.
func (d *SecretStoreDriver) PluginTypeID() string { return "postgres" }

// Init implements the arcanum.SecretStoreDriver interface.
func (d *SecretStoreDriver) Init(ctx context.Context, db *arcanum.DB) error {
	d.db = db
	return nil
}

var resolveSecretsQuery = sqlext.SimplifyWhitespace(`
	SELECT * FROM secrets WHERE workspace_id = $1 AND id = ANY($2)
`)

// ResolveSecretsByIDs implements the arcanum.SecretStoreDriver interface.
func (d *SecretStoreDriver) ResolveSecretsByIDs(ctx context.Context, workspaceID string, ids []string) (map[string]models.Secret, error) {
	var secrets []models.Secret
	_, err := d.db.WithContext(ctx).Select(&secrets, resolveSecretsQuery, workspaceID, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	result := make(map[string]models.Secret, len(secrets))
	for _, secret := range secrets {
		result[secret.ID] = secret
	}
	return result, nil
}

var listSecretsQuery = sqlext.SimplifyWhitespace(`
	SELECT * FROM secrets
	 WHERE workspace_id = $1 AND environment = $2 AND folder_id = $3
	   AND (type = 'SHARED' OR user_id = $4)
	 ORDER BY id
`)

var listSecretsByTagQuery = sqlext.SimplifyWhitespace(`
	SELECT * FROM secrets
	 WHERE workspace_id = $1 AND environment = $2 AND folder_id = $3
	   AND (type = 'SHARED' OR user_id = $4)
	   AND id IN (SELECT secret_id FROM secret_tags WHERE slug = ANY($5))
	 ORDER BY id
`)

// ListSecrets implements the arcanum.SecretStoreDriver interface.
//
// Personal secrets of other identities are filtered out here; downstream
// code never sees them.
func (d *SecretStoreDriver) ListSecrets(ctx context.Context, query models.SecretQuery) ([]models.Secret, error) {
	folderID := query.FolderID
	if query.SecretPath != "" {
		// paths are stored as folder IDs; an explicit path wins over folderId
		folderID = query.SecretPath
	}

	var secrets []models.Secret
	var err error
	if len(query.TagSlugs) > 0 {
		_, err = d.db.WithContext(ctx).Select(&secrets, listSecretsByTagQuery,
			query.WorkspaceID, query.Environment, folderID, query.IdentityID, pq.Array(query.TagSlugs))
	} else {
		_, err = d.db.WithContext(ctx).Select(&secrets, listSecretsQuery,
			query.WorkspaceID, query.Environment, folderID, query.IdentityID)
	}
	return secrets, err
}

// CreateSecrets implements the arcanum.SecretStoreDriver interface.
func (d *SecretStoreDriver) CreateSecrets(ctx context.Context, secrets []models.Secret) ([]models.Secret, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer arcanum.RollbackUnlessCommitted(tx)

	now := time.Now()
	for idx := range secrets {
		if secrets[idx].ID == "" {
			secrets[idx].ID = uuid.NewV4().String()
		}
		secrets[idx].CreatedAt = now
		secrets[idx].UpdatedAt = now
		err = tx.WithContext(ctx).Insert(&secrets[idx])
		if err != nil {
			return nil, err
		}
	}
	return secrets, tx.Commit()
}

// UpdateSecrets implements the arcanum.SecretStoreDriver interface.
func (d *SecretStoreDriver) UpdateSecrets(ctx context.Context, secrets []models.Secret) ([]models.Secret, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer arcanum.RollbackUnlessCommitted(tx)

	now := time.Now()
	for idx := range secrets {
		secrets[idx].UpdatedAt = now
		_, err = tx.WithContext(ctx).Update(&secrets[idx])
		if err != nil {
			return nil, err
		}
	}
	return secrets, tx.Commit()
}

var deleteSecretsQuery = sqlext.SimplifyWhitespace(`
	DELETE FROM secrets WHERE workspace_id = $1 AND id = ANY($2)
`)

// DeleteSecrets implements the arcanum.SecretStoreDriver interface.
func (d *SecretStoreDriver) DeleteSecrets(ctx context.Context, workspaceID string, ids []string) error {
	_, err := d.db.WithContext(ctx).Exec(deleteSecretsQuery, workspaceID, pq.Array(ids))
	return err
}
