package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const Schema = `
CREATE TABLE IF NOT EXISTS app_user (
	id            SERIAL PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS workout (
	id           SERIAL PRIMARY KEY,
	user_id      INTEGER NOT NULL REFERENCES app_user (id) ON DELETE CASCADE,
	workout_type TEXT NOT NULL,
	workout_date DATE NOT NULL,
	duration     INTEGER NOT NULL CHECK (duration BETWEEN 1 AND 300),
	calories     INTEGER NOT NULL CHECK (calories BETWEEN 1 AND 2000),
	intensity    TEXT NOT NULL CHECK (intensity IN ('low', 'medium', 'high')),
	locations    TEXT[] NOT NULL DEFAULT '{}',
	rating       INTEGER CHECK (rating BETWEEN 1 AND 5),
	notes        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS workout_user_date_idx ON workout (user_id, workout_date DESC);
`

// EnsureSchema creates the tables if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	log.Debugln("db schema in place")
	return nil
}
