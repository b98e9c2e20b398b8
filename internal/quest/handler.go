package quest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookwyrm/bookwyrm/internal/database/types"
	"go.uber.org/zap"
)

var (
	// ErrTimeout indicates the author never answered the title prompt.
	ErrTimeout = errors.New("Timed out waiting for the game title.") //nolint:staticcheck // shown to users as is
	// ErrEmptyTitle indicates a prompt reply with nothing usable in it.
	ErrEmptyTitle = errors.New("The game title cannot be empty.") //nolint:staticcheck // shown to users as is
	// errNotAQuest indicates the author said the post is not a game posting.
	errNotAQuest = errors.New("not a quest posting")
)

// DefaultPromptTimeout bounds the wait for a title reply.
const DefaultPromptTimeout = 10 * time.Minute

// Posting is a message seen in a quest channel.
type Posting struct {
	MessageID   uint64
	ChannelID   uint64
	AuthorID    uint64
	AuthorIsBot bool
	Content     string
	Timestamp   time.Time
}

// Messenger is the chat output used by the title prompt.
type Messenger interface {
	SendText(ctx context.Context, channelID uint64, content string) (uint64, error)
	DeleteMessage(ctx context.Context, channelID, messageID uint64) error
	SendDirect(ctx context.Context, userID uint64, content string) error
}

// Store persists tracked game postings.
type Store interface {
	SaveGame(ctx context.Context, game *types.Game) error
}

// Handler tracks game postings in the quest channels.
type Handler struct {
	channels  map[uint64]struct{}
	waiter    *Waiter
	messenger Messenger
	store     Store
	timeout   time.Duration
	logger    *zap.Logger
}

// NewHandler creates a handler watching the given channels.
func NewHandler(
	channelIDs []uint64, waiter *Waiter, messenger Messenger, store Store, timeout time.Duration, logger *zap.Logger,
) *Handler {
	channels := make(map[uint64]struct{}, len(channelIDs))
	for _, id := range channelIDs {
		channels[id] = struct{}{}
	}

	if timeout <= 0 {
		timeout = DefaultPromptTimeout
	}

	return &Handler{
		channels:  channels,
		waiter:    waiter,
		messenger: messenger,
		store:     store,
		timeout:   timeout,
		logger:    logger.Named("quest"),
	}
}

// Watches reports whether postings in the channel are tracked.
func (h *Handler) Watches(channelID uint64) bool {
	_, ok := h.channels[channelID]
	return ok
}

// HandlePosting tracks a game posting, asking the author for the title when it is missing.
// May block for up to the prompt timeout.
func (h *Handler) HandlePosting(ctx context.Context, post Posting) error {
	if !h.Watches(post.ChannelID) || post.AuthorIsBot || !IsCandidate(post.Content) {
		return nil
	}

	title, err := h.resolveTitle(ctx, post)
	switch {
	case errors.Is(err, errNotAQuest):
		h.logger.Debug("Author dismissed the title prompt", zap.Uint64("messageID", post.MessageID))
		return nil
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrEmptyTitle):
		return h.messenger.SendDirect(ctx, post.AuthorID, fmt.Sprintf(
			"An error occurred parsing your game post:\n%s\nThe post will not be tracked automatically.", err))
	case err != nil:
		return err
	}

	created := post.Timestamp
	if created.IsZero() {
		created = time.Now()
	}

	if err := h.store.SaveGame(ctx, types.NewGame(title, post.AuthorID, post.MessageID, created)); err != nil {
		return fmt.Errorf("failed to save game posting: %w", err)
	}

	h.logger.Info("Tracking game posting",
		zap.Uint64("messageID", post.MessageID),
		zap.Uint64("dm", post.AuthorID),
		zap.String("title", title))

	return nil
}

// resolveTitle reads the title from the posting or prompts the author for it.
func (h *Handler) resolveTitle(ctx context.Context, post Posting) (string, error) {
	if title, ok := ParseTitle(post.Content); ok {
		return title, nil
	}

	// Listen before prompting so a fast answer is not lost
	pending := h.waiter.Register(post.ChannelID, post.AuthorID)
	defer pending.Cancel()

	promptID, err := h.messenger.SendText(ctx, post.ChannelID, fmt.Sprintf(
		"<@%d> - I couldn't find the title of that quest posting. What's the title? "+
			"(Send it as a message here, or send `bad bot` if this isn't a quest posting.)", post.AuthorID))
	if err != nil {
		return "", fmt.Errorf("failed to prompt for title: %w", err)
	}

	reply, waitErr := pending.Await(ctx, h.timeout)

	// Prompt and answer are cleaned up from the channel either way
	if err := h.messenger.DeleteMessage(ctx, post.ChannelID, promptID); err != nil {
		h.logger.Warn("Failed to delete title prompt", zap.Error(err))
	}
	if waitErr != nil {
		return "", waitErr
	}
	if err := h.messenger.DeleteMessage(ctx, reply.ChannelID, reply.MessageID); err != nil {
		h.logger.Warn("Failed to delete title reply", zap.Error(err))
	}

	if strings.EqualFold(reply.Content, "bad bot") {
		return "", errNotAQuest
	}

	title := cleanReply(reply.Content)
	if title == "" {
		return "", ErrEmptyTitle
	}

	return title, nil
}
