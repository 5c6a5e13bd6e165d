package models

import "time"

// MessageCount is a per-user counter of guild messages, used for the
// leaderboard and role rewards.
type MessageCount struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Count     int64     `json:"count" db:"count"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// InviteUse records which invite a member used to join a guild.
type InviteUse struct {
	UserID     string    `json:"user_id" db:"user_id"`
	GuildID    string    `json:"guild_id" db:"guild_id"`
	InviteCode string    `json:"invite_code" db:"invite_code"`
	InviterID  string    `json:"inviter_id" db:"inviter_id"`
	JoinedAt   time.Time `json:"joined_at" db:"joined_at"`
}
