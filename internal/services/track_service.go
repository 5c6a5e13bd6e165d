package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/betterhood/hoodbot/internal/models"
)

// Tracker owns the message-count and invite-use tables.
type Tracker struct {
	db *sql.DB
}

func NewTracker(db *sql.DB) *Tracker {
	return &Tracker{db: db}
}

// IncrementMessages bumps the sender's counter and returns the new total.
func (t *Tracker) IncrementMessages(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := t.db.QueryRowContext(ctx, `
		INSERT INTO message_counts (user_id, count, updated_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET count = message_counts.count + 1, updated_at = EXCLUDED.updated_at
		RETURNING count`, userID, time.Now()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment messages for %s: %w", userID, err)
	}
	return count, nil
}

// MessageCount returns the counter for userID, zero when unknown.
func (t *Tracker) MessageCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := t.db.QueryRowContext(ctx,
		`SELECT count FROM message_counts WHERE user_id = $1`, userID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("message count for %s: %w", userID, err)
	}
	return count, nil
}

// Leaderboard returns the top message senders, highest first.
func (t *Tracker) Leaderboard(ctx context.Context, limit int) ([]models.MessageCount, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT user_id, count, updated_at
		FROM message_counts
		ORDER BY count DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("message leaderboard: %w", err)
	}
	defer rows.Close()

	var board []models.MessageCount
	for rows.Next() {
		var mc models.MessageCount
		if err := rows.Scan(&mc.UserID, &mc.Count, &mc.UpdatedAt); err != nil {
			return nil, err
		}
		board = append(board, mc)
	}
	return board, rows.Err()
}

// RecordJoin stores which invite a member used; re-joins overwrite the
// previous record.
func (t *Tracker) RecordJoin(ctx context.Context, use models.InviteUse) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO invite_uses (user_id, guild_id, invite_code, inviter_id, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, guild_id) DO UPDATE
		SET invite_code = EXCLUDED.invite_code,
		    inviter_id = EXCLUDED.inviter_id,
		    joined_at = EXCLUDED.joined_at`,
		use.UserID, use.GuildID, use.InviteCode, use.InviterID, time.Now())
	if err != nil {
		return fmt.Errorf("record join for %s: %w", use.UserID, err)
	}
	return nil
}

// JoinRecord fetches how a member joined, nil when nothing was recorded.
func (t *Tracker) JoinRecord(ctx context.Context, guildID, userID string) (*models.InviteUse, error) {
	var use models.InviteUse
	err := t.db.QueryRowContext(ctx, `
		SELECT user_id, guild_id, invite_code, inviter_id, joined_at
		FROM invite_uses
		WHERE guild_id = $1 AND user_id = $2`, guildID, userID).
		Scan(&use.UserID, &use.GuildID, &use.InviteCode, &use.InviterID, &use.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("join record for %s: %w", userID, err)
	}
	return &use, nil
}
