package types_test

import (
	"testing"
	"time"

	"github.com/bookwyrm/bookwyrm/internal/database/types"
	"github.com/bookwyrm/bookwyrm/internal/database/types/enum"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewardSubmission_VoteAccounting(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	sub := types.NewRewardSubmission("The Sunken Vault", 1, 100, now)

	sub.AddVote(types.Vote{Author: 2, Opinion: enum.OpinionUpvote, Timestamp: now})
	sub.AddVote(types.Vote{Author: 2, Opinion: enum.OpinionUpvote, Timestamp: now})
	sub.AddVote(types.Vote{Author: 3, Opinion: enum.OpinionDownvote, Timestamp: now})
	sub.AddVote(types.Vote{Author: 4, Opinion: enum.OpinionComment, Timestamp: now})

	assert.Equal(t, types.VoteTally{Upvotes: 2, Downvotes: 1, Comments: 1}, sub.Tally())

	// Only the first matching vote goes away
	assert.True(t, sub.RemoveVote(2, enum.OpinionUpvote))
	assert.Equal(t, types.VoteTally{Upvotes: 1, Downvotes: 1, Comments: 1}, sub.Tally())

	// Wrong opinion for the author
	assert.False(t, sub.RemoveVote(3, enum.OpinionUpvote))
	assert.False(t, sub.RemoveVote(99, enum.OpinionComment))
	assert.Len(t, sub.Votes, 3)

	assert.True(t, sub.RemoveVote(3, enum.OpinionDownvote))
	assert.Equal(t, types.VoteTally{Upvotes: 1, Downvotes: 0, Comments: 1}, sub.Tally())
}

func TestRewardSubmission_RemoveVoteKeepsOrder(t *testing.T) {
	t.Parallel()

	now := time.Now()
	sub := types.NewRewardSubmission("Order", 1, 100, now)
	sub.AddVote(types.Vote{Author: 1, Opinion: enum.OpinionUpvote, Timestamp: now})
	sub.AddVote(types.Vote{Author: 2, Opinion: enum.OpinionComment, Timestamp: now})
	sub.AddVote(types.Vote{Author: 3, Opinion: enum.OpinionDownvote, Timestamp: now})

	require.True(t, sub.RemoveVote(2, enum.OpinionComment))
	require.Len(t, sub.Votes, 2)
	assert.Equal(t, uint64(1), sub.Votes[0].Author)
	assert.Equal(t, uint64(3), sub.Votes[1].Author)
}

func TestRewardSubmission_MarkEdited(t *testing.T) {
	t.Parallel()

	submitted := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	sub := types.NewRewardSubmission("Edits", 1, 100, submitted)
	assert.False(t, sub.WasEdited())

	edited := submitted.Add(time.Hour)
	sub.MarkEdited(edited)
	assert.True(t, sub.WasEdited())
	assert.Equal(t, edited, sub.TimeLastEdited)

	// A skewed clock never moves the edit before the submission
	sub.MarkEdited(submitted.Add(-time.Hour))
	assert.Equal(t, submitted, sub.TimeLastEdited)
}

func TestRewardSubmission_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	submitted := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	edited := submitted.Add(3 * time.Hour)

	sub := types.NewRewardSubmission("Goblin Market", 42, 1234567890123456789, submitted)
	sub.MarkEdited(edited)
	sub.AddVote(types.Vote{Author: 7, Opinion: enum.OpinionUpvote, Timestamp: edited})
	sub.AddVote(types.Vote{Author: 8, Opinion: enum.OpinionDownvote, Timestamp: edited})
	sub.AddVote(types.Vote{Author: 9, Opinion: enum.OpinionComment, Timestamp: edited})

	data, err := sonic.Marshal(sub)
	require.NoError(t, err)

	// Opinions are stored as plain integers
	assert.Contains(t, string(data), `"opinion":-1`)
	assert.Contains(t, string(data), `"opinion":0`)
	assert.Contains(t, string(data), `"opinion":1`)
	assert.Contains(t, string(data), `"message_id":1234567890123456789`)

	var decoded types.RewardSubmission
	require.NoError(t, sonic.Unmarshal(data, &decoded))

	assert.Equal(t, sub.QuestTitle, decoded.QuestTitle)
	assert.Equal(t, sub.Author, decoded.Author)
	assert.Equal(t, sub.MessageID, decoded.MessageID)
	assert.True(t, sub.TimeSubmitted.Equal(decoded.TimeSubmitted))
	assert.True(t, sub.TimeLastEdited.Equal(decoded.TimeLastEdited))
	require.Len(t, decoded.Votes, 3)
	for i, vote := range sub.Votes {
		assert.Equal(t, vote.Author, decoded.Votes[i].Author)
		assert.Equal(t, vote.Opinion, decoded.Votes[i].Opinion)
		assert.True(t, vote.Timestamp.Equal(decoded.Votes[i].Timestamp))
	}
	assert.Equal(t, sub.Tally(), decoded.Tally())
}

func TestRewardSubmission_RejectsUnknownOpinion(t *testing.T) {
	t.Parallel()

	data := []byte(`{"title":"Bad","time_submitted":"2026-10-18T09:30:00Z",` +
		`"time_last_edited":"2026-10-18T09:30:00Z","author":1,"message_id":2,` +
		`"votes":[{"author":3,"opinion":5,"timestamp":"2026-10-18T09:30:00Z"}]}`)

	var decoded types.RewardSubmission
	require.Error(t, sonic.Unmarshal(data, &decoded))
}
