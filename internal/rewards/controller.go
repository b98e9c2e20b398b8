package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookwyrm/bookwyrm/internal/database/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const ackEmoji = "\U0001f44d"

const templateGuide = "Please make sure to follow this template: ```\n" +
	"QUEST TITLE\nLevels: X, Y, Z...\n\nMore info and submission details\n" +
	"```Here's the message you posted:"

// MessageCreate is a new post seen in a guild channel.
type MessageCreate struct {
	MessageID uint64
	ChannelID uint64
	AuthorID  uint64
	Content   string
	Timestamp time.Time
}

// Reaction is a reaction added to or removed from a message.
type Reaction struct {
	MessageID uint64
	UserID    uint64
	Emoji     string
}

// UntrackRequest asks to stop tracking a submission.
// The acknowledgment reaction goes on the command message.
type UntrackRequest struct {
	CallerID         uint64
	ChannelID        uint64
	CommandMessageID uint64
	MessageID        uint64
}

// Controller drives the lifecycle of reward submissions from chat events.
// Every read-modify-write of a submission runs under a per-message lock.
type Controller struct {
	store     Store
	sink      Sink
	locks     *KeyedMutex
	channelID uint64
	owners    map[uint64]struct{}
	clock     func() time.Time
	tracer    trace.Tracer
	logger    *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the time source.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// NewController creates a controller tracking submissions posted in the rewards channel.
func NewController(
	store Store, sink Sink, channelID uint64, ownerIDs []uint64, logger *zap.Logger, opts ...Option,
) *Controller {
	owners := make(map[uint64]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = struct{}{}
	}

	c := &Controller{
		store:     store,
		sink:      sink,
		locks:     NewKeyedMutex(),
		channelID: channelID,
		owners:    owners,
		clock:     time.Now,
		tracer:    otel.Tracer("bookwyrm/rewards"),
		logger:    logger.Named("rewards"),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ChannelID returns the rewards channel.
func (c *Controller) ChannelID() uint64 {
	return c.channelID
}

// IsOwner reports whether the user may run owner-only operations.
func (c *Controller) IsOwner(userID uint64) bool {
	_, ok := c.owners[userID]
	return ok
}

// HandleMessageCreate tracks a new post in the rewards channel.
// Posts that do not follow the template are sent back to the author and deleted.
func (c *Controller) HandleMessageCreate(ctx context.Context, msg MessageCreate) (err error) {
	if msg.ChannelID != c.channelID {
		return nil
	}

	ctx, span := c.startSpan(ctx, "rewards.create", msg.MessageID)
	defer func() { endSpan(span, err) }()

	tmpl, err := ParseTemplate(msg.Content)
	if err != nil {
		var tmplErr *TemplateError
		if errors.As(err, &tmplErr) {
			return c.reject(ctx, msg, tmplErr)
		}
		return err
	}

	submitted := msg.Timestamp
	if submitted.IsZero() {
		submitted = c.clock()
	}
	submission := types.NewRewardSubmission(tmpl.Title, msg.AuthorID, msg.MessageID, submitted)

	created, err := c.create(ctx, submission)
	if err != nil || !created {
		return err
	}

	c.logger.Info("Tracking reward submission",
		zap.Uint64("messageID", msg.MessageID),
		zap.Uint64("author", msg.AuthorID),
		zap.String("title", tmpl.Title),
		zap.Ints("levels", tmpl.Levels))

	return c.notify(ctx, msg.AuthorID,
		fmt.Sprintf("Okay! I'm now tracking a reward submission for %s.", submission.QuestTitle))
}

// create stores a new submission. A redelivered create event leaves the
// existing submission and its votes untouched.
func (c *Controller) create(ctx context.Context, submission *types.RewardSubmission) (bool, error) {
	unlock := c.locks.Lock(submission.MessageID)
	defer unlock()

	_, err := c.store.FindByMessageID(ctx, submission.MessageID)
	switch {
	case err == nil:
		c.logger.Debug("Reward submission already tracked", zap.Uint64("messageID", submission.MessageID))
		return false, nil
	case !errors.Is(err, ErrSubmissionNotFound):
		return false, err
	}

	if err := c.store.Upsert(ctx, submission); err != nil {
		return false, fmt.Errorf("failed to track reward submission: %w", err)
	}

	return true, nil
}

// reject guides the author through the template and removes the post.
func (c *Controller) reject(ctx context.Context, msg MessageCreate, tmplErr *TemplateError) error {
	c.logger.Debug("Rejected reward submission",
		zap.Uint64("messageID", msg.MessageID),
		zap.Uint64("author", msg.AuthorID),
		zap.String("reason", tmplErr.Reason))

	reason := ""
	if tmplErr.Reason != "" {
		reason = tmplErr.Reason + "\n"
	}

	var errs []error
	if err := c.sink.SendDirect(ctx, msg.AuthorID,
		"I could not track your reward submission.\n"+reason+templateGuide); err != nil {
		errs = append(errs, fmt.Errorf("failed to send template guide: %w", err))
	}
	if err := c.sink.SendDirect(ctx, msg.AuthorID, "```\n"+msg.Content+"\n```"); err != nil {
		errs = append(errs, fmt.Errorf("failed to send original content: %w", err))
	}

	// The post goes away even if the author has DMs closed
	if err := c.sink.DeleteMessage(ctx, msg.ChannelID, msg.MessageID); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete rejected submission: %w", err))
	}

	return errors.Join(errs...)
}

// HandleMessageEdit records an edit of a tracked post.
func (c *Controller) HandleMessageEdit(ctx context.Context, messageID uint64) (err error) {
	ctx, span := c.startSpan(ctx, "rewards.edit", messageID)
	defer func() { endSpan(span, err) }()

	submission, err := c.mutate(ctx, messageID, func(s *types.RewardSubmission) bool {
		s.MarkEdited(c.clock())
		return true
	})
	if err != nil {
		return err
	}

	return c.notify(ctx, submission.Author,
		fmt.Sprintf("I have tracked an update to %s!", submission.QuestTitle))
}

// HandleMessageDelete stops tracking a post removed from the channel.
func (c *Controller) HandleMessageDelete(ctx context.Context, messageID uint64) (err error) {
	ctx, span := c.startSpan(ctx, "rewards.delete", messageID)
	defer func() { endSpan(span, err) }()

	submission, err := c.untrack(ctx, messageID)
	if err != nil {
		return err
	}

	return c.notify(ctx, submission.Author,
		fmt.Sprintf("I have untracked rewards submissions for %s.", submission.QuestTitle))
}

// HandleReactionAdd casts a vote on a tracked post.
func (c *Controller) HandleReactionAdd(ctx context.Context, reaction Reaction) (err error) {
	ctx, span := c.startSpan(ctx, "rewards.vote_add", reaction.MessageID)
	defer func() { endSpan(span, err) }()

	opinion, known := OpinionForEmoji(reaction.Emoji)

	submission, err := c.mutate(ctx, reaction.MessageID, func(s *types.RewardSubmission) bool {
		if !known {
			return false
		}
		s.AddVote(types.Vote{Author: reaction.UserID, Opinion: opinion, Timestamp: c.clock()})
		return true
	})
	if err != nil {
		return err
	}

	if !known {
		return c.notify(ctx, reaction.UserID, fmt.Sprintf("I'm not sure how to interpret %s.", reaction.Emoji))
	}

	c.logger.Debug("Tracked vote",
		zap.Uint64("messageID", reaction.MessageID),
		zap.Uint64("voter", reaction.UserID),
		zap.Stringer("opinion", opinion))

	return c.notify(ctx, reaction.UserID, fmt.Sprintf("Tracked your vote on %s!", submission.QuestTitle))
}

// HandleReactionRemove withdraws a vote on a tracked post.
// Unknown emoji and reactions without a matching vote are ignored.
func (c *Controller) HandleReactionRemove(ctx context.Context, reaction Reaction) (err error) {
	ctx, span := c.startSpan(ctx, "rewards.vote_remove", reaction.MessageID)
	defer func() { endSpan(span, err) }()

	opinion, known := OpinionForEmoji(reaction.Emoji)

	var removed bool
	submission, err := c.mutate(ctx, reaction.MessageID, func(s *types.RewardSubmission) bool {
		removed = known && s.RemoveVote(reaction.UserID, opinion)
		return removed
	})
	if err != nil || !removed {
		return err
	}

	c.logger.Debug("Removed vote",
		zap.Uint64("messageID", reaction.MessageID),
		zap.Uint64("voter", reaction.UserID),
		zap.Stringer("opinion", opinion))

	return c.notify(ctx, reaction.UserID, fmt.Sprintf("Removed your vote on %s!", submission.QuestTitle))
}

// Untrack force-deletes a submission on behalf of an owner and acknowledges the command.
func (c *Controller) Untrack(ctx context.Context, req UntrackRequest) (err error) {
	ctx, span := c.startSpan(ctx, "rewards.untrack", req.MessageID)
	defer func() { endSpan(span, err) }()

	if !c.IsOwner(req.CallerID) {
		return ErrNotOwner
	}

	if _, err := c.untrack(ctx, req.MessageID); err != nil {
		return err
	}

	if err := c.sink.AddReaction(ctx, req.ChannelID, req.CommandMessageID, ackEmoji); err != nil {
		return fmt.Errorf("failed to acknowledge untrack: %w", err)
	}

	return nil
}

// ForceUntrack deletes a submission without notifying anyone.
// Used by operator tooling outside of chat.
func (c *Controller) ForceUntrack(ctx context.Context, messageID uint64) (*types.RewardSubmission, error) {
	return c.untrack(ctx, messageID)
}

// untrack loads and deletes a submission, returning what was removed.
func (c *Controller) untrack(ctx context.Context, messageID uint64) (*types.RewardSubmission, error) {
	unlock := c.locks.Lock(messageID)
	defer unlock()

	submission, err := c.store.FindByMessageID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if err := c.store.DeleteByMessageID(ctx, messageID); err != nil {
		return nil, fmt.Errorf("failed to untrack reward submission: %w", err)
	}

	c.logger.Info("Untracked reward submission",
		zap.Uint64("messageID", messageID),
		zap.String("title", submission.QuestTitle))

	return submission, nil
}

// mutate reloads a submission, applies fn and persists the result if fn reports a change.
func (c *Controller) mutate(
	ctx context.Context, messageID uint64, fn func(*types.RewardSubmission) bool,
) (*types.RewardSubmission, error) {
	unlock := c.locks.Lock(messageID)
	defer unlock()

	submission, err := c.store.FindByMessageID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if !fn(submission) {
		return submission, nil
	}

	if err := c.store.Upsert(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to save reward submission: %w", err)
	}

	return submission, nil
}

func (c *Controller) notify(ctx context.Context, userID uint64, content string) error {
	if err := c.sink.SendDirect(ctx, userID, content); err != nil {
		return fmt.Errorf("failed to notify user %d: %w", userID, err)
	}
	return nil
}

func (c *Controller) startSpan(ctx context.Context, name string, messageID uint64) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("message.id", fmt.Sprint(messageID)),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
