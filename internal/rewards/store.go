package rewards

import (
	"context"

	"github.com/bookwyrm/bookwyrm/internal/database/types"
)

// Store persists reward submissions keyed by message ID.
// FindByMessageID returns ErrSubmissionNotFound for untracked messages
// and DeleteByMessageID succeeds for them.
type Store interface {
	FindByMessageID(ctx context.Context, messageID uint64) (*types.RewardSubmission, error)
	FindAll(ctx context.Context) ([]*types.RewardSubmission, error)
	Upsert(ctx context.Context, submission *types.RewardSubmission) error
	DeleteByMessageID(ctx context.Context, messageID uint64) error
}
