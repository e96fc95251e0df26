// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package arcanum

import (
	"database/sql"

	gorp "github.com/go-gorp/gorp/v3"
	"github.com/sapcc/go-bits/easypg"
	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/arcanum/internal/models"
)

var sqlMigrations = map[string]string{
	"001_initial.up.sql": `
		CREATE TABLE workspace_memberships (
			workspace_id TEXT        NOT NULL,
			identity_id  TEXT        NOT NULL,
			role         TEXT        NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (workspace_id, identity_id)
		);

		CREATE TABLE secrets (
			id                      TEXT        NOT NULL PRIMARY KEY,
			workspace_id            TEXT        NOT NULL,
			environment             TEXT        NOT NULL,
			folder_id               TEXT        NOT NULL DEFAULT 'root',
			type                    TEXT        NOT NULL,
			user_id                 TEXT        NOT NULL DEFAULT '',
			secret_key_ciphertext   TEXT        NOT NULL,
			secret_key_iv           TEXT        NOT NULL,
			secret_key_tag          TEXT        NOT NULL,
			secret_value_ciphertext TEXT        NOT NULL,
			secret_value_iv         TEXT        NOT NULL,
			secret_value_tag        TEXT        NOT NULL,
			created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE secret_permissions (
			secret_id   TEXT NOT NULL REFERENCES secrets ON DELETE CASCADE,
			identity_id TEXT NOT NULL,
			permission  TEXT NOT NULL,
			PRIMARY KEY (secret_id, identity_id, permission)
		);

		CREATE TABLE api_keys (
			id            TEXT        NOT NULL PRIMARY KEY,
			identity_id   TEXT        NOT NULL,
			secret_digest TEXT        NOT NULL,
			name          TEXT        NOT NULL,
			expires_at    TIMESTAMPTZ DEFAULT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE service_tokens (
			id            TEXT        NOT NULL PRIMARY KEY,
			workspace_id  TEXT        NOT NULL,
			secret_digest TEXT        NOT NULL,
			name          TEXT        NOT NULL,
			expires_at    TIMESTAMPTZ DEFAULT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`,
	"001_initial.down.sql": `
		DROP TABLE service_tokens;
		DROP TABLE api_keys;
		DROP TABLE secret_permissions;
		DROP TABLE secrets;
		DROP TABLE workspace_memberships;
	`,
	"002_sessions.up.sql": `
		CREATE TABLE users (
			id                    TEXT        NOT NULL PRIMARY KEY,
			email                 TEXT        NOT NULL UNIQUE,
			login_salt            TEXT        NOT NULL,
			login_verifier        TEXT        NOT NULL,
			public_key            TEXT        NOT NULL,
			encrypted_private_key TEXT        NOT NULL,
			private_key_iv        TEXT        NOT NULL,
			private_key_tag       TEXT        NOT NULL,
			created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE sessions (
			id                   TEXT        NOT NULL PRIMARY KEY,
			user_id              TEXT        NOT NULL REFERENCES users ON DELETE CASCADE,
			refresh_token_digest TEXT        NOT NULL,
			revoked              BOOLEAN     NOT NULL DEFAULT FALSE,
			expires_at           TIMESTAMPTZ NOT NULL,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`,
	"002_sessions.down.sql": `
		DROP TABLE sessions;
		DROP TABLE users;
	`,
	"003_secret_tags.up.sql": `
		CREATE TABLE secret_tags (
			secret_id TEXT NOT NULL REFERENCES secrets ON DELETE CASCADE,
			slug      TEXT NOT NULL,
			PRIMARY KEY (secret_id, slug)
		);
	`,
	"003_secret_tags.down.sql": `
		DROP TABLE secret_tags;
	`,
}

// DB adds convenience functions on top of gorp.DbMap.
type DB struct {
	gorp.DbMap
}

// DBConfiguration returns the easypg.Configuration for the reference schema.
func DBConfiguration() easypg.Configuration {
	return easypg.Configuration{
		Migrations: sqlMigrations,
	}
}

// InitORM wraps a database connection into a DB instance.
func InitORM(dbConn *sql.DB) *DB {
	result := &DB{DbMap: gorp.DbMap{Db: dbConn, Dialect: gorp.PostgresDialect{}}}
	initModels(&result.DbMap)
	return result
}

// initModels configures the ORM mappings for all tables.
func initModels(db *gorp.DbMap) {
	db.AddTableWithName(models.WorkspaceMembership{}, "workspace_memberships").SetKeys(false, "workspace_id", "identity_id")
	db.AddTableWithName(models.Secret{}, "secrets").SetKeys(false, "id")
	db.AddTableWithName(models.SecretPermission{}, "secret_permissions").SetKeys(false, "secret_id", "identity_id", "permission")
	db.AddTableWithName(models.APIKey{}, "api_keys").SetKeys(false, "id")
	db.AddTableWithName(models.ServiceToken{}, "service_tokens").SetKeys(false, "id")
	db.AddTableWithName(models.User{}, "users").SetKeys(false, "id")
	db.AddTableWithName(models.Session{}, "sessions").SetKeys(false, "id")
	db.AddTableWithName(models.SecretTag{}, "secret_tags").SetKeys(false, "secret_id", "slug")
}

// RollbackUnlessCommitted calls Rollback() on a transaction if it hasn't been
// committed or rolled back yet. Use this with the defer keyword to make sure
// that a transaction is automatically rolled back when a function fails.
func RollbackUnlessCommitted(tx *gorp.Transaction) {
	err := tx.Rollback()
	switch err {
	case nil:
		// rolled back successfully
		logg.Info("implicit rollback done")
	case sql.ErrTxDone:
		// already committed or rolled back - nothing to do
	default:
		logg.Error("implicit rollback failed: %s", err.Error())
	}
}
