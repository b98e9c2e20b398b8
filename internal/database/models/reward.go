package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bookwyrm/bookwyrm/internal/database/dbretry"
	"github.com/bookwyrm/bookwyrm/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// RewardModel handles database operations for reward submissions.
type RewardModel struct {
	db     *bun.DB
	policy dbretry.Policy
	logger *zap.Logger
}

// NewReward creates a new reward submission model.
func NewReward(db *bun.DB, policy dbretry.Policy, logger *zap.Logger) *RewardModel {
	return &RewardModel{
		db:     db,
		policy: policy,
		logger: logger.Named("db_reward"),
	}
}

// FindByMessageID retrieves the submission tracked for a message.
// Returns types.ErrSubmissionNotFound if the message is not tracked.
func (r *RewardModel) FindByMessageID(ctx context.Context, messageID uint64) (*types.RewardSubmission, error) {
	return dbretry.Operation(ctx, r.policy, func(ctx context.Context) (*types.RewardSubmission, error) {
		var submission types.RewardSubmission
		err := r.db.NewSelect().
			Model(&submission).
			Where("message_id = ?", messageID).
			Scan(ctx)
		if err != nil {
			return nil, notFound(err, messageID)
		}
		return &submission, nil
	})
}

// FindAll retrieves every tracked submission, oldest first.
func (r *RewardModel) FindAll(ctx context.Context) ([]*types.RewardSubmission, error) {
	return dbretry.Operation(ctx, r.policy, func(ctx context.Context) ([]*types.RewardSubmission, error) {
		var submissions []*types.RewardSubmission
		err := r.db.NewSelect().
			Model(&submissions).
			Order("time_submitted ASC", "message_id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get reward submissions: %w", err)
		}
		return submissions, nil
	})
}

// Upsert inserts a submission or replaces the one stored for the same message.
func (r *RewardModel) Upsert(ctx context.Context, submission *types.RewardSubmission) error {
	return dbretry.NoResult(ctx, r.policy, func(ctx context.Context) error {
		_, err := upsertQuery(r.db, submission).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert reward submission: %w", err)
		}

		r.logger.Debug("Saved reward submission",
			zap.Uint64("messageID", submission.MessageID),
			zap.Int("votes", len(submission.Votes)))

		return nil
	})
}

// DeleteByMessageID removes the submission tracked for a message.
// Deleting an untracked message is not an error.
func (r *RewardModel) DeleteByMessageID(ctx context.Context, messageID uint64) error {
	return dbretry.NoResult(ctx, r.policy, func(ctx context.Context) error {
		result, err := r.db.NewDelete().
			Model((*types.RewardSubmission)(nil)).
			Where("message_id = ?", messageID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete reward submission: %w", err)
		}

		if affected, _ := result.RowsAffected(); affected > 0 {
			r.logger.Debug("Deleted reward submission", zap.Uint64("messageID", messageID))
		}

		return nil
	})
}

// upsertQuery replaces every column of an existing row with the same message ID.
func upsertQuery(db bun.IDB, submission *types.RewardSubmission) *bun.InsertQuery {
	return db.NewInsert().
		Model(submission).
		On("CONFLICT (message_id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("time_submitted = EXCLUDED.time_submitted").
		Set("time_last_edited = EXCLUDED.time_last_edited").
		Set("author = EXCLUDED.author").
		Set("votes = EXCLUDED.votes")
}

// notFound maps a missing row to types.ErrSubmissionNotFound.
func notFound(err error, messageID uint64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: message %d", types.ErrSubmissionNotFound, messageID)
	}
	return fmt.Errorf("failed to get reward submission: %w", err)
}
