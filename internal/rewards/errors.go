package rewards

import (
	"errors"

	"github.com/bookwyrm/bookwyrm/internal/database/types"
)

var (
	// ErrInvalidTemplate indicates a post that does not follow the reward submission template.
	ErrInvalidTemplate = errors.New("invalid reward submission template")
	// ErrNotOwner indicates an owner-only operation requested by someone else.
	ErrNotOwner = errors.New("only bot owners can do that")
	// ErrSubmissionNotFound indicates a message that is not tracked as a reward submission.
	ErrSubmissionNotFound = types.ErrSubmissionNotFound
)
