package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	version int
	sql     []string
}

// Só os campos que o núcleo de entrega toca. O resto do schema da plataforma
// vive em outro lugar.
var migrations = []migration{
	{
		version: 1,
		sql: []string{
			`CREATE TABLE IF NOT EXISTS push_subscriptions (
				id         TEXT PRIMARY KEY,
				endpoint   TEXT NOT NULL UNIQUE,
				p256dh     TEXT NOT NULL,
				auth       TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS lessons (
				id             TEXT PRIMARY KEY,
				title          TEXT NOT NULL DEFAULT '',
				video_guid     TEXT UNIQUE,
				status         TEXT NOT NULL DEFAULT 'processing',
				video_duration INTEGER,
				updated_at     TIMESTAMP
			)`,
		},
	},
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`,
	); err != nil {
		return fmt.Errorf("creating schema_version: %w", err)
	}

	var current int
	if err := db.GetContext(ctx, &current,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`,
	); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func apply(ctx context.Context, db *sqlx.DB, m migration) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration v%d: %w", m.version, err)
	}
	defer tx.Rollback()

	for _, stmt := range m.sql {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO schema_version (version) VALUES (?)`), m.version,
	); err != nil {
		return fmt.Errorf("recording migration v%d: %w", m.version, err)
	}
	return tx.Commit()
}

// Version retorna a última migração aplicada.
func Version(ctx context.Context, db *sqlx.DB) (int, error) {
	var v int
	err := db.GetContext(ctx, &v, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	return v, err
}
