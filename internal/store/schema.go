package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"metastore/internal/logger"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS object (
	tenant      TEXT NOT NULL,
	object_id   TEXT NOT NULL,
	object_type TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (tenant, object_id)
);

CREATE TABLE IF NOT EXISTS object_version (
	tenant           TEXT NOT NULL,
	object_id        TEXT NOT NULL,
	object_version   INTEGER NOT NULL,
	object_timestamp INTEGER NOT NULL,
	definition_type  TEXT NOT NULL,
	definition_bytes BLOB NOT NULL,
	is_latest_object INTEGER NOT NULL,
	PRIMARY KEY (tenant, object_id, object_version)
);

CREATE INDEX IF NOT EXISTS idx_object_version_latest
	ON object_version (tenant, object_id, is_latest_object);

CREATE TABLE IF NOT EXISTS tag (
	tenant        TEXT NOT NULL,
	object_id     TEXT NOT NULL,
	object_version INTEGER NOT NULL,
	tag_version   INTEGER NOT NULL,
	tag_timestamp INTEGER NOT NULL,
	is_latest_tag INTEGER NOT NULL,
	PRIMARY KEY (tenant, object_id, object_version, tag_version)
);

CREATE INDEX IF NOT EXISTS idx_tag_latest
	ON tag (tenant, object_id, object_version, is_latest_tag);

CREATE TABLE IF NOT EXISTS tag_attr (
	tenant         TEXT NOT NULL,
	object_id      TEXT NOT NULL,
	object_version INTEGER NOT NULL,
	tag_version    INTEGER NOT NULL,
	attr_name      TEXT NOT NULL,
	element_index  INTEGER NOT NULL,
	element_type   TEXT NOT NULL,
	is_array       INTEGER NOT NULL,
	element_value  BLOB NOT NULL,
	PRIMARY KEY (tenant, object_id, object_version, tag_version, attr_name, element_index)
);

CREATE INDEX IF NOT EXISTS idx_tag_attr_name
	ON tag_attr (tenant, attr_name);

CREATE TABLE IF NOT EXISTS config_entry (
	tenant            TEXT NOT NULL,
	config_class      TEXT NOT NULL,
	config_key        TEXT NOT NULL,
	config_version    INTEGER NOT NULL,
	config_timestamp  INTEGER NOT NULL,
	is_latest_config  INTEGER NOT NULL,
	config_deleted    INTEGER NOT NULL,
	object_type       TEXT,
	object_id         TEXT,
	object_version    INTEGER,
	object_as_of      INTEGER,
	resource_sub_type TEXT,
	PRIMARY KEY (tenant, config_class, config_key, config_version)
);

CREATE INDEX IF NOT EXISTS idx_config_entry_latest
	ON config_entry (tenant, config_class, config_key, is_latest_config);

CREATE TABLE IF NOT EXISTS batch_fingerprint (
	tenant        TEXT NOT NULL,
	fingerprint   TEXT NOT NULL,
	committed_at  INTEGER NOT NULL,
	PRIMARY KEY (tenant, fingerprint)
);
`

// Store is the DAL: a sqlite-backed implementation of spec.md section 4.4's
// persistence contract. One Store serves every tenant; tenant isolation is
// enforced by always scoping queries with a tenant column rather than by
// separate databases, matching the single-writer-process model assumed by
// the rest of this package.
type Store struct {
	db    *sql.DB
	locks *shardedObjectLock
}

// Open creates or attaches to a sqlite database at path and ensures the
// schema exists. path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	// One connection: sqlite serializes writers anyway and the sharded
	// in-process lock assumes a single writer per process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	logger.Info("store: opened %s", path)
	return &Store{db: db, locks: newShardedObjectLock()}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
