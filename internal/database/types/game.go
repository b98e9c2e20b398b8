package types

import (
	"time"
)

// Game is a game posting found in one of the quest channels.
type Game struct {
	MessageID uint64     `bun:"message_id,pk"              json:"message_id"`
	Title     string     `bun:"title,notnull"              json:"title"`
	DM        uint64     `bun:"dm,notnull"                 json:"dm"`         // Discord ID of the poster
	Time      *time.Time `bun:"time,nullzero"              json:"time"`       // Scheduled time, if known
	Players   []uint64   `bun:"players,type:jsonb,notnull" json:"players"`    // Discord IDs of joined players
	CreatedAt time.Time  `bun:"created_at,notnull"         json:"created_at"` // When the posting was tracked
}

// NewGame creates a game posting without a scheduled time or players.
func NewGame(title string, dm, messageID uint64, now time.Time) *Game {
	return &Game{
		MessageID: messageID,
		Title:     title,
		DM:        dm,
		Players:   []uint64{},
		CreatedAt: now,
	}
}
