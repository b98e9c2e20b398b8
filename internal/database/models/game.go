package models

import (
	"context"
	"fmt"

	"github.com/bookwyrm/bookwyrm/internal/database/dbretry"
	"github.com/bookwyrm/bookwyrm/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// GameModel handles database operations for game postings.
type GameModel struct {
	db     *bun.DB
	policy dbretry.Policy
	logger *zap.Logger
}

// NewGame creates a new game model.
func NewGame(db *bun.DB, policy dbretry.Policy, logger *zap.Logger) *GameModel {
	return &GameModel{
		db:     db,
		policy: policy,
		logger: logger.Named("db_game"),
	}
}

// SaveGame stores a game posting. Re-posting the same message updates its title.
func (r *GameModel) SaveGame(ctx context.Context, game *types.Game) error {
	return dbretry.NoResult(ctx, r.policy, func(ctx context.Context) error {
		_, err := r.db.NewInsert().
			Model(game).
			On("CONFLICT (message_id) DO UPDATE").
			Set("title = EXCLUDED.title").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save game: %w", err)
		}

		r.logger.Debug("Saved game posting",
			zap.Uint64("messageID", game.MessageID),
			zap.String("title", game.Title))

		return nil
	})
}

