package enum

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownOpinion indicates a stored opinion value outside of -1, 0 and 1.
var ErrUnknownOpinion = errors.New("unknown opinion")

// Opinion represents how a voter feels about a reward submission.
// The integer values are part of the persisted format and must not change.
//
//go:generate go tool enumer -type=Opinion -trimprefix=Opinion
type Opinion int

const (
	// OpinionDownvote marks a vote against rewarding the submission.
	OpinionDownvote Opinion = -1
	// OpinionComment marks a request for discussion.
	OpinionComment Opinion = 0
	// OpinionUpvote marks a vote in favor of rewarding the submission.
	OpinionUpvote Opinion = 1
)

// OpinionFromInt maps a stored integer back to its opinion.
func OpinionFromInt(v int) (Opinion, error) {
	if !Opinion(v).IsAOpinion() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownOpinion, v)
	}
	return Opinion(v), nil
}

// Int returns the storage encoding of the opinion.
func (o Opinion) Int() int {
	return int(o)
}

// Emoji returns the emoji used to cast this opinion.
func (o Opinion) Emoji() string {
	switch o {
	case OpinionDownvote:
		return "👎"
	case OpinionComment:
		return "✋"
	case OpinionUpvote:
		return "👍"
	default:
		return "❔"
	}
}

// MarshalJSON encodes the opinion as its integer value.
func (o Opinion) MarshalJSON() ([]byte, error) {
	if _, err := OpinionFromInt(int(o)); err != nil {
		return nil, err
	}
	return strconv.AppendInt(nil, int64(o), 10), nil
}

// UnmarshalJSON decodes an integer opinion, rejecting unknown values.
func (o *Opinion) UnmarshalJSON(data []byte) error {
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownOpinion, data)
	}

	opinion, err := OpinionFromInt(v)
	if err != nil {
		return err
	}

	*o = opinion
	return nil
}
