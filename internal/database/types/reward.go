package types

import (
	"errors"
	"time"

	"github.com/bookwyrm/bookwyrm/internal/database/types/enum"
)

// ErrSubmissionNotFound is returned when no reward submission is stored for a message.
var ErrSubmissionNotFound = errors.New("reward submission not found")

// Vote is a single reaction-based vote on a reward submission.
// Votes are never modified once created; changing a vote removes it and adds a new one.
type Vote struct {
	Author    uint64       `json:"author"`
	Opinion   enum.Opinion `json:"opinion"`
	Timestamp time.Time    `json:"timestamp"`
}

// VoteTally holds the vote counts of a submission.
type VoteTally struct {
	Upvotes   int
	Downvotes int
	Comments  int
}

// RewardSubmission is a quest reward request posted in the rewards channel.
// It is keyed by the ID of the message that was posted.
type RewardSubmission struct {
	QuestTitle     string    `bun:"title,notnull"            json:"title"`
	TimeSubmitted  time.Time `bun:"time_submitted,notnull"   json:"time_submitted"`
	TimeLastEdited time.Time `bun:"time_last_edited,notnull" json:"time_last_edited"`
	Author         uint64    `bun:"author,notnull"           json:"author"`
	MessageID      uint64    `bun:"message_id,pk"            json:"message_id"`
	Votes          []Vote    `bun:"votes,type:jsonb,notnull" json:"votes"`
}

// NewRewardSubmission creates an untouched submission with no votes.
func NewRewardSubmission(title string, author, messageID uint64, now time.Time) *RewardSubmission {
	return &RewardSubmission{
		QuestTitle:     title,
		TimeSubmitted:  now,
		TimeLastEdited: now,
		Author:         author,
		MessageID:      messageID,
		Votes:          []Vote{},
	}
}

// AddVote appends a vote. Duplicate votes are kept.
func (s *RewardSubmission) AddVote(vote Vote) {
	s.Votes = append(s.Votes, vote)
}

// RemoveVote removes the first vote by the author with the given opinion.
// Returns false if no such vote exists.
func (s *RewardSubmission) RemoveVote(author uint64, opinion enum.Opinion) bool {
	for i, vote := range s.Votes {
		if vote.Author == author && vote.Opinion == opinion {
			s.Votes = append(s.Votes[:i], s.Votes[i+1:]...)
			return true
		}
	}
	return false
}

// Tally counts the votes by opinion.
func (s *RewardSubmission) Tally() VoteTally {
	var tally VoteTally
	for _, vote := range s.Votes {
		switch vote.Opinion {
		case enum.OpinionUpvote:
			tally.Upvotes++
		case enum.OpinionDownvote:
			tally.Downvotes++
		case enum.OpinionComment:
			tally.Comments++
		}
	}
	return tally
}

// MarkEdited records an edit of the source message.
// The edit time never goes before the submission time.
func (s *RewardSubmission) MarkEdited(now time.Time) {
	if now.Before(s.TimeSubmitted) {
		now = s.TimeSubmitted
	}
	s.TimeLastEdited = now
}

// WasEdited reports whether the source message was edited after submission.
func (s *RewardSubmission) WasEdited() bool {
	return !s.TimeLastEdited.Equal(s.TimeSubmitted)
}
