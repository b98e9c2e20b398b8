package rewards

import "github.com/bookwyrm/bookwyrm/internal/database/types/enum"

// voteEmoji maps reaction emoji to the vote they cast.
var voteEmoji = map[string]enum.Opinion{ //nolint:gochecknoglobals // -
	"\U0001f44d": enum.OpinionUpvote,   // thumbs up
	"\u270b":     enum.OpinionComment,  // raised hand
	"\U0001f44e": enum.OpinionDownvote, // thumbs down
}

// OpinionForEmoji returns the opinion cast by reacting with the emoji.
func OpinionForEmoji(emoji string) (enum.Opinion, bool) {
	opinion, ok := voteEmoji[emoji]
	return opinion, ok
}
