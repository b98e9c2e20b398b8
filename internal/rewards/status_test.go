package rewards_test

import (
	"testing"
	"time"

	"github.com/bookwyrm/bookwyrm/internal/database/types"
	"github.com/bookwyrm/bookwyrm/internal/rewards"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	settled := now.Add(-48 * time.Hour)

	tests := []struct {
		name       string
		tally      types.VoteTally
		wantStatus rewards.Status
		wantCaveat bool
		wantDesc   string
	}{
		{
			name:       "clean approval",
			tally:      types.VoteTally{Upvotes: 5},
			wantStatus: rewards.StatusCanReward,
			wantDesc:   "can reward",
		},
		{
			name:       "ratio met with downvote",
			tally:      types.VoteTally{Upvotes: 3, Downvotes: 1},
			wantStatus: rewards.StatusCanReward,
			wantCaveat: true,
			wantDesc:   "can reward*",
		},
		{
			name:       "ratio missed",
			tally:      types.VoteTally{Upvotes: 2, Downvotes: 1},
			wantStatus: rewards.StatusNeedsDiscussion,
			wantDesc:   "needs discussion",
		},
		{
			name:       "no votes",
			tally:      types.VoteTally{},
			wantStatus: rewards.StatusNeedsDiscussion,
			wantDesc:   "needs discussion",
		},
		{
			name:       "comment with upvotes",
			tally:      types.VoteTally{Upvotes: 4, Comments: 1},
			wantStatus: rewards.StatusCanReward,
			wantCaveat: true,
			wantDesc:   "can reward*",
		},
		{
			name:       "only comments",
			tally:      types.VoteTally{Comments: 2},
			wantStatus: rewards.StatusNeedsDiscussion,
			wantDesc:   "needs discussion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := rewards.Evaluate(now, settled, tt.tally)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantCaveat, got.Caveat)
			assert.False(t, got.Cooling)
			assert.Equal(t, tt.wantDesc, got.Describe(now))

			// Same inputs, same answer
			assert.Equal(t, got, rewards.Evaluate(now, settled, tt.tally))
		})
	}
}

func TestEvaluate_Cooldown(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	edited := now.Add(-19 * time.Hour)

	got := rewards.Evaluate(now, edited, types.VoteTally{Upvotes: 2})
	assert.Equal(t, rewards.StatusCanReward, got.Status)
	assert.True(t, got.Cooling)
	assert.Equal(t, edited.Add(rewards.EditCooldown), got.EligibleAt)
	assert.Equal(t, "can reward in 5 hours", got.Describe(now))

	caveat := rewards.Evaluate(now, edited, types.VoteTally{Upvotes: 3, Downvotes: 1})
	assert.Equal(t, "can reward in 5 hours*", caveat.Describe(now))

	// Cooldown does not change a discussion verdict
	discuss := rewards.Evaluate(now, edited, types.VoteTally{Downvotes: 1})
	assert.Equal(t, "needs discussion", discuss.Describe(now))

	// Exactly at the end of the cooldown the submission is settled
	settled := rewards.Evaluate(edited.Add(rewards.EditCooldown), edited, types.VoteTally{Upvotes: 1})
	assert.False(t, settled.Cooling)
}
