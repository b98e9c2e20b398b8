package database

import (
	"github.com/bookwyrm/bookwyrm/internal/database/dbretry"
	"github.com/bookwyrm/bookwyrm/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	reward *models.RewardModel
	game   *models.GameModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, policy dbretry.Policy, logger *zap.Logger) *Repository {
	return &Repository{
		reward: models.NewReward(db, policy, logger),
		game:   models.NewGame(db, policy, logger),
	}
}

// Reward returns the reward submission model repository.
func (r *Repository) Reward() *models.RewardModel {
	return r.reward
}

// Game returns the game posting model repository.
func (r *Repository) Game() *models.GameModel {
	return r.game
}
