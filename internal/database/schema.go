package database

import "database/sql"

// Migrate creates the bot's tables when they do not exist yet.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			user_id    TEXT PRIMARY KEY,
			wallet     BIGINT NOT NULL DEFAULT 0,
			bank       BIGINT NOT NULL DEFAULT 0,
			last_daily TIMESTAMPTZ,
			version    INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id             SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL,
			from_id        TEXT NOT NULL,
			to_id          TEXT NOT NULL,
			from_pocket    TEXT NOT NULL,
			to_pocket      TEXT NOT NULL,
			amount         BIGINT NOT NULL,
			reason         TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS message_counts (
			user_id    TEXT PRIMARY KEY,
			count      BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS invite_uses (
			user_id     TEXT NOT NULL,
			guild_id    TEXT NOT NULL,
			invite_code TEXT NOT NULL,
			inviter_id  TEXT NOT NULL,
			joined_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, guild_id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
