package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// The schema is versioned: metadata('db_version') holds the index of
// the last applied step. Migrate walks the remaining steps in order,
// each inside a transaction that also records the new version, so a
// step can never run twice and a current store is a no-op.
type migration struct {
	name  string
	apply func(tx *gorm.DB) error
}

var migrations = []migration{
	{name: "create_metadata", apply: createMetadata},
	{name: "create_forum_tables", apply: createForumTables},
	{name: "create_session_table", apply: createSessionTable},
	{name: "add_user_color", apply: addUserColor},
}

// Migrate upgrades the store to the latest schema version.
func (s *Store) Migrate(ctx context.Context) error {
	for {
		version, err := s.schemaVersion(ctx)
		if err != nil {
			return fmt.Errorf("schema version: %w", err)
		}
		if version >= len(migrations) {
			s.log.Infow("db_up_to_date", "current_version", version)
			return nil
		}

		step := migrations[version]
		s.log.Infow("upgrading_db", "existing_version", version, "step", step.name)

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := step.apply(tx); err != nil {
				return err
			}
			return tx.Exec(
				"UPDATE metadata SET value = ? WHERE setting = 'db_version'",
				strconv.Itoa(version+1),
			).Error
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", step.name, err)
		}
	}
}

// schemaVersion reads the stored version. A store without a metadata
// table is a fresh file at version 0.
func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var raw string
	tx := s.db.WithContext(ctx).Raw(
		"SELECT value FROM metadata WHERE setting = 'db_version'",
	).Scan(&raw)
	if tx.Error != nil {
		if strings.Contains(tx.Error.Error(), "no such table") || errors.Is(tx.Error, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, tx.Error
	}
	if tx.RowsAffected == 0 {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func createMetadata(tx *gorm.DB) error {
	if err := tx.Exec("CREATE TABLE metadata (setting TEXT, value TEXT)").Error; err != nil {
		return err
	}
	return tx.Exec("INSERT INTO metadata (setting, value) VALUES ('db_version', '0')").Error
}

func createForumTables(tx *gorm.DB) error {
	stmts := []string{
		`CREATE TABLE user (
			user_id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_name TEXT NOT NULL UNIQUE,
			secret BLOB
		)`,
		`CREATE TABLE post (
			post_id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT,
			post_date TEXT,
			edit_date TEXT
		)`,
		`CREATE TABLE post_user (
			user_id INTEGER,
			post_id INTEGER,
			FOREIGN KEY(user_id) REFERENCES user(user_id),
			FOREIGN KEY(post_id) REFERENCES post(post_id)
		)`,
		`CREATE TABLE thread (
			thread_id INTEGER PRIMARY KEY,
			title TEXT NOT NULL
		)`,
		`CREATE TABLE post_thread (
			post_id INTEGER,
			thread_id INTEGER,
			ordering INTEGER,
			FOREIGN KEY(post_id) REFERENCES post(post_id),
			FOREIGN KEY(thread_id) REFERENCES thread(thread_id)
		)`,
		`CREATE TABLE file (
			file_id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT,
			upload_date TEXT
		)`,
		`CREATE TABLE file_user (
			user_id INTEGER,
			file_id INTEGER,
			FOREIGN KEY(user_id) REFERENCES user(user_id),
			FOREIGN KEY(file_id) REFERENCES file(file_id)
		)`,
	}

	for _, stmt := range stmts {
		if err := tx.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func createSessionTable(tx *gorm.DB) error {
	stmts := []string{
		`CREATE TABLE session (
			session_id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER,
			session_key TEXT NOT NULL,
			creation_date TEXT,
			expiry_date TEXT,
			FOREIGN KEY(user_id) REFERENCES user(user_id)
		)`,
		`CREATE INDEX session_key_index ON session(session_key)`,
		`CREATE INDEX user_name_index ON user(user_name)`,
	}

	for _, stmt := range stmts {
		if err := tx.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func addUserColor(tx *gorm.DB) error {
	return tx.Exec("ALTER TABLE user ADD COLUMN color TEXT NOT NULL DEFAULT '#808080'").Error
}
