package rewards

import (
	"time"

	"github.com/bookwyrm/bookwyrm/internal/database/types"
	"github.com/bookwyrm/bookwyrm/internal/utils"
)

// EditCooldown is how long a submission must stay unedited before it can be rewarded.
const EditCooldown = 24 * time.Hour

// approvalRatio is the minimum upvotes per downvote once a submission has friction.
const approvalRatio = 3

// Status is the reward eligibility of a submission.
type Status int

const (
	StatusNeedsDiscussion Status = iota
	StatusCanReward
)

func (s Status) String() string {
	if s == StatusCanReward {
		return "can reward"
	}
	return "needs discussion"
}

// Eligibility is the derived reward status of a submission at a point in time.
type Eligibility struct {
	Status Status
	// Caveat is set when the submission can be rewarded despite downvotes or comments.
	Caveat bool
	// EligibleAt is the end of the edit cooldown.
	EligibleAt time.Time
	// Cooling is set while the edit cooldown has not yet passed.
	Cooling bool
}

// Evaluate derives the eligibility from the last edit time and vote tally.
// It is a pure function of its inputs.
func Evaluate(now, lastEdited time.Time, tally types.VoteTally) Eligibility {
	e := Eligibility{
		Status:     StatusNeedsDiscussion,
		EligibleAt: lastEdited.Add(EditCooldown),
	}
	e.Cooling = now.Before(e.EligibleAt)

	if tally.Downvotes > 0 || tally.Comments > 0 || tally.Upvotes == 0 {
		if tally.Upvotes > 0 && tally.Upvotes >= approvalRatio*tally.Downvotes {
			e.Status = StatusCanReward
			e.Caveat = true
		}
		return e
	}

	e.Status = StatusCanReward
	return e
}

// EvaluateSubmission derives the eligibility of a stored submission.
func EvaluateSubmission(now time.Time, submission *types.RewardSubmission) Eligibility {
	return Evaluate(now, submission.TimeLastEdited, submission.Tally())
}

// Describe renders the status line, e.g. "can reward in 5 hours*".
func (e Eligibility) Describe(now time.Time) string {
	if e.Status != StatusCanReward {
		return e.Status.String()
	}

	desc := e.Status.String()
	if e.Cooling {
		desc += " " + utils.FormatTimeUntil(e.EligibleAt, now)
	}
	if e.Caveat {
		desc += "*"
	}
	return desc
}
