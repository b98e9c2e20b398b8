package redis_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bookwyrm/bookwyrm/internal/database/types"
	"github.com/bookwyrm/bookwyrm/internal/database/types/enum"
	"github.com/bookwyrm/bookwyrm/internal/redis"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupStore(t *testing.T) (*redis.SubmissionStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return redis.NewSubmissionStore(client, zap.NewNop()), mr
}

func TestSubmissionStore_UpsertAndFind(t *testing.T) {
	t.Parallel()
	store, _ := setupStore(t)
	ctx := t.Context()

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	sub := types.NewRewardSubmission("Wyrm's Hoard", 10, 500, now)
	sub.AddVote(types.Vote{Author: 11, Opinion: enum.OpinionUpvote, Timestamp: now})

	require.NoError(t, store.Upsert(ctx, sub))

	got, err := store.FindByMessageID(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, "Wyrm's Hoard", got.QuestTitle)
	assert.Equal(t, uint64(10), got.Author)
	require.Len(t, got.Votes, 1)
	assert.Equal(t, enum.OpinionUpvote, got.Votes[0].Opinion)

	// Upsert replaces the document
	got.AddVote(types.Vote{Author: 12, Opinion: enum.OpinionDownvote, Timestamp: now})
	require.NoError(t, store.Upsert(ctx, got))

	again, err := store.FindByMessageID(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, types.VoteTally{Upvotes: 1, Downvotes: 1}, again.Tally())

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSubmissionStore_NotFound(t *testing.T) {
	t.Parallel()
	store, _ := setupStore(t)

	_, err := store.FindByMessageID(t.Context(), 404)
	require.ErrorIs(t, err, types.ErrSubmissionNotFound)
}

func TestSubmissionStore_FindAll(t *testing.T) {
	t.Parallel()
	store, mr := setupStore(t)
	ctx := t.Context()

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	now := time.Now()
	for _, id := range []uint64{30, 10, 20} {
		require.NoError(t, store.Upsert(ctx, types.NewRewardSubmission("Quest", 1, id, now)))
	}

	// A document removed behind the store's back is skipped
	mr.Del("reward:submission:20")

	all, err = store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(10), all[0].MessageID)
	assert.Equal(t, uint64(30), all[1].MessageID)
}

func TestSubmissionStore_Delete(t *testing.T) {
	t.Parallel()
	store, mr := setupStore(t)
	ctx := t.Context()

	require.NoError(t, store.Upsert(ctx, types.NewRewardSubmission("Gone", 1, 77, time.Now())))
	require.NoError(t, store.DeleteByMessageID(ctx, 77))

	_, err := store.FindByMessageID(ctx, 77)
	require.ErrorIs(t, err, types.ErrSubmissionNotFound)
	assert.False(t, mr.Exists("reward:submission:77"))

	members, err := mr.Members("reward:submissions")
	if err == nil {
		assert.NotContains(t, members, "77")
	}

	// Deleting twice is fine
	require.NoError(t, store.DeleteByMessageID(ctx, 77))
}

func TestSubmissionStore_SaveGame(t *testing.T) {
	t.Parallel()
	store, mr := setupStore(t)

	game := types.NewGame("Into the Mire", 5, 900, time.Now())
	require.NoError(t, store.SaveGame(t.Context(), game))

	data, err := mr.Get("game:900")
	require.NoError(t, err)
	assert.Contains(t, data, `"title":"Into the Mire"`)
	assert.Contains(t, data, `"players":[]`)
}

func TestSubmissionStore_UpsertWritesIndexTogether(t *testing.T) {
	t.Parallel()
	store, mr := setupStore(t)
	ctx := t.Context()

	require.NoError(t, store.Upsert(ctx, types.NewRewardSubmission("Paired", 1, 42, time.Now())))

	assert.True(t, mr.Exists("reward:submission:42"))
	member, err := mr.IsMember("reward:submissions", "42")
	require.NoError(t, err)
	assert.True(t, member)

	require.NoError(t, store.DeleteByMessageID(ctx, 42))

	assert.False(t, mr.Exists("reward:submission:42"))
	assert.False(t, mr.Exists("reward:submissions"))
}

func TestSubmissionStore_UpsertReportsQueuedFailure(t *testing.T) {
	t.Parallel()
	store, mr := setupStore(t)

	// SADD against a string key fails inside EXEC
	require.NoError(t, mr.Set("reward:submissions", "not a set"))

	err := store.Upsert(t.Context(), types.NewRewardSubmission("Broken", 1, 43, time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WRONGTYPE")
}
