package redis

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/bookwyrm/bookwyrm/internal/database/types"
	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	submissionKeyPrefix = "reward:submission:"
	submissionIndexKey  = "reward:submissions"
	gameKeyPrefix       = "game:"
)

// SubmissionStore keeps reward submissions as JSON documents in Redis.
// An index set lists the tracked message IDs so FindAll avoids SCAN.
type SubmissionStore struct {
	client rueidis.Client
	logger *zap.Logger
}

// NewSubmissionStore creates a store on the given client.
func NewSubmissionStore(client rueidis.Client, logger *zap.Logger) *SubmissionStore {
	return &SubmissionStore{
		client: client,
		logger: logger.Named("redis_store"),
	}
}

func submissionKey(messageID uint64) string {
	return submissionKeyPrefix + strconv.FormatUint(messageID, 10)
}

// FindByMessageID retrieves the submission tracked for a message.
func (s *SubmissionStore) FindByMessageID(ctx context.Context, messageID uint64) (*types.RewardSubmission, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(submissionKey(messageID)).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, fmt.Errorf("%w: message %d", types.ErrSubmissionNotFound, messageID)
		}
		return nil, fmt.Errorf("failed to get reward submission: %w", err)
	}

	var submission types.RewardSubmission
	if err := sonic.Unmarshal(data, &submission); err != nil {
		return nil, fmt.Errorf("failed to decode reward submission %d: %w", messageID, err)
	}

	return &submission, nil
}

// FindAll retrieves every tracked submission ordered by message ID.
// Index entries whose document has vanished are skipped.
func (s *SubmissionStore) FindAll(ctx context.Context) ([]*types.RewardSubmission, error) {
	members, err := s.client.Do(ctx, s.client.B().Smembers().Key(submissionIndexKey).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to list reward submissions: %w", err)
	}

	if len(members) == 0 {
		return []*types.RewardSubmission{}, nil
	}

	ids := make([]uint64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			s.logger.Warn("Skipping malformed index entry", zap.String("member", member))
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = submissionKey(id)
	}

	values, err := s.client.Do(ctx, s.client.B().Mget().Key(keys...).Build()).ToArray()
	if err != nil {
		return nil, fmt.Errorf("failed to get reward submissions: %w", err)
	}

	submissions := make([]*types.RewardSubmission, 0, len(values))
	for i, value := range values {
		data, err := value.AsBytes()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				s.logger.Warn("Index references a missing submission", zap.Uint64("messageID", ids[i]))
				continue
			}
			return nil, fmt.Errorf("failed to read reward submission %d: %w", ids[i], err)
		}

		var submission types.RewardSubmission
		if err := sonic.Unmarshal(data, &submission); err != nil {
			return nil, fmt.Errorf("failed to decode reward submission %d: %w", ids[i], err)
		}
		submissions = append(submissions, &submission)
	}

	return submissions, nil
}

// Upsert writes the submission document and its index entry in one transaction.
func (s *SubmissionStore) Upsert(ctx context.Context, submission *types.RewardSubmission) error {
	data, err := sonic.Marshal(submission)
	if err != nil {
		return fmt.Errorf("failed to encode reward submission: %w", err)
	}

	id := strconv.FormatUint(submission.MessageID, 10)
	err = s.transaction(ctx,
		s.client.B().Set().Key(submissionKeyPrefix+id).Value(rueidis.BinaryString(data)).Build(),
		s.client.B().Sadd().Key(submissionIndexKey).Member(id).Build(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reward submission: %w", err)
	}

	return nil
}

// DeleteByMessageID removes the submission and its index entry in one transaction.
// Deleting an untracked message is not an error.
func (s *SubmissionStore) DeleteByMessageID(ctx context.Context, messageID uint64) error {
	id := strconv.FormatUint(messageID, 10)
	err := s.transaction(ctx,
		s.client.B().Del().Key(submissionKeyPrefix+id).Build(),
		s.client.B().Srem().Key(submissionIndexKey).Member(id).Build(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete reward submission: %w", err)
	}

	return nil
}

// transaction runs cmds inside MULTI/EXEC so readers never see the document
// without its index entry or the other way around.
func (s *SubmissionStore) transaction(ctx context.Context, cmds ...rueidis.Completed) error {
	batch := make(rueidis.Commands, 0, len(cmds)+2)
	batch = append(batch, s.client.B().Multi().Build())
	batch = append(batch, cmds...)
	batch = append(batch, s.client.B().Exec().Build())

	resps := s.client.DoMulti(ctx, batch...)
	for _, resp := range resps[:len(resps)-1] {
		if err := resp.Error(); err != nil {
			return err
		}
	}

	results, err := resps[len(resps)-1].ToArray()
	if err != nil {
		return err
	}

	for _, result := range results {
		if err := result.Error(); err != nil {
			return err
		}
	}

	return nil
}

// SaveGame stores a game posting document.
func (s *SubmissionStore) SaveGame(ctx context.Context, game *types.Game) error {
	data, err := sonic.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to encode game: %w", err)
	}

	key := gameKeyPrefix + strconv.FormatUint(game.MessageID, 10)
	if err := s.client.Do(ctx, s.client.B().Set().Key(key).Value(rueidis.BinaryString(data)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}

	return nil
}
