package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bookwyrm/bookwyrm/internal/onboarding"
	"github.com/bookwyrm/bookwyrm/internal/quest"
	"github.com/bookwyrm/bookwyrm/internal/rewards"
	"github.com/bookwyrm/bookwyrm/internal/setup/config"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// Stores holds the persistence the bot handlers need.
type Stores struct {
	Submissions rewards.Store
	Games       quest.Store
}

// Bot routes gateway events to the reward, quest and onboarding handlers.
// Every event is handled in its own goroutine so a slow handler such as a
// title prompt never holds up the gateway.
type Bot struct {
	client     bot.Client
	sink       *Sink
	controller *rewards.Controller
	digester   *rewards.Digester
	commands   *Commands
	waiter     *quest.Waiter
	quests     *quest.Handler
	onboarding *onboarding.Handler
	prefix     string
	handlers   conc.WaitGroup
	ctx        context.Context //nolint:containedctx // cancelled on Close to stop in-flight handlers
	cancel     context.CancelFunc
	logger     *zap.Logger
}

// New creates the Discord client and wires the handlers to it.
func New(cfg *config.BotConfig, stores Stores, logger *zap.Logger) (*Bot, error) {
	ctx, cancel := context.WithCancel(context.Background())

	b := &Bot{
		prefix: cfg.Discord.Prefix,
		ctx:    ctx,
		cancel: cancel,
		logger: logger.Named("bot"),
	}

	client, err := disgo.New(cfg.Discord.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMessageReactions,
				gateway.IntentMessageContent,
				gateway.IntentDirectMessages,
			),
		),
		bot.WithRestClientConfigOpts(RESTOptions(cfg)...),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnGuildMessageCreate:         b.handleMessageCreate,
			OnGuildMessageUpdate:         b.handleMessageUpdate,
			OnGuildMessageDelete:         b.handleMessageDelete,
			OnGuildMessageReactionAdd:    b.handleReactionAdd,
			OnGuildMessageReactionRemove: b.handleReactionRemove,
		}),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	b.client = client
	b.sink = NewSink(client.Rest())
	b.controller = rewards.NewController(stores.Submissions, b.sink, cfg.Rewards.ChannelID, cfg.Discord.OwnerIDs, logger)
	b.digester = NewDigester(cfg, stores.Submissions, b.sink, logger)
	b.commands = NewCommands(b.controller, b.digester, b.sink)
	b.waiter = quest.NewWaiter()
	b.quests = quest.NewHandler(cfg.Quest.ChannelIDs, b.waiter, b.sink, stores.Games,
		time.Duration(cfg.Quest.PromptTimeout)*time.Second, logger)
	b.onboarding = onboarding.NewHandler(cfg.Onboarding.ChannelID, cfg.Onboarding.Trigger,
		cfg.Onboarding.RoleIDs, b.sink, logger)

	return b, nil
}

// RESTOptions bounds every REST request by the configured timeout.
func RESTOptions(cfg *config.BotConfig) []rest.ConfigOpt {
	return []rest.ConfigOpt{
		rest.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Millisecond,
		}),
	}
}

// NewDigester creates the rewards digester from the bot configuration.
func NewDigester(cfg *config.BotConfig, store rewards.Store, sink rewards.Sink, logger *zap.Logger) *rewards.Digester {
	return rewards.NewDigester(store, sink, rewards.DigestConfig{
		GuildID:             cfg.Discord.GuildID,
		RewardsChannelID:    cfg.Rewards.ChannelID,
		DiscussionChannelID: cfg.Rewards.DiscussionChannelID,
		RolesToPing:         cfg.Rewards.RolesToPing,
	}, logger)
}

// Digester returns the digester used by the bot.
func (b *Bot) Digester() *rewards.Digester {
	return b.digester
}

// Start opens the gateway connection.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")
	return b.client.OpenGateway(ctx)
}

// Close stops in-flight handlers, waits for them and closes the gateway.
func (b *Bot) Close(ctx context.Context) {
	b.logger.Info("Closing bot")
	b.cancel()
	b.handlers.Wait()
	b.client.Close(ctx)
}

// dispatch runs fn in a tracked goroutine, recovering panics and reporting errors.
func (b *Bot) dispatch(event string, messageID snowflake.ID, fn func(ctx context.Context) error) {
	b.handlers.Go(func() {
		start := time.Now()

		var catcher panics.Catcher
		catcher.Try(func() {
			b.report(event, messageID, fn(b.ctx))
		})

		if r := catcher.Recovered(); r != nil {
			b.logger.Error("Panic in event handler",
				zap.String("event", event),
				zap.Uint64("messageID", uint64(messageID)),
				zap.Any("panic", r.Value),
				zap.ByteString("stack", r.Stack))
		}

		b.logger.Debug("Event handled",
			zap.String("event", event),
			zap.Uint64("messageID", uint64(messageID)),
			zap.Duration("duration", time.Since(start)))
	})
}

// report logs a handler failure. Untracked messages are expected and only warned about.
func (b *Bot) report(event string, messageID snowflake.ID, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	fields := []zap.Field{
		zap.String("event", event),
		zap.Uint64("messageID", uint64(messageID)),
		zap.Error(err),
	}

	if errors.Is(err, rewards.ErrSubmissionNotFound) {
		b.logger.Warn("Event referenced an untracked submission", fields...)
		return
	}

	b.logger.Error("Failed to handle event", fields...)
}

func (b *Bot) handleMessageCreate(event *events.GuildMessageCreate) {
	msg := event.Message
	if msg.Author.Bot {
		return
	}

	// A reply to a pending title prompt is consumed by the prompt
	if b.waiter.Deliver(quest.Reply{
		MessageID: uint64(msg.ID),
		ChannelID: uint64(event.ChannelID),
		AuthorID:  uint64(msg.Author.ID),
		Content:   msg.Content,
	}) {
		return
	}

	if name, args, ok := ParseCommand(b.prefix, msg.Content); ok {
		if !b.commands.Known(name) {
			return
		}

		b.dispatch("command."+name, msg.ID, func(ctx context.Context) error {
			return b.commands.Run(ctx, Invocation{
				Name:      name,
				Args:      args,
				MessageID: uint64(msg.ID),
				ChannelID: uint64(event.ChannelID),
				CallerID:  uint64(msg.Author.ID),
			})
		})
		return
	}

	switch {
	case uint64(event.ChannelID) == b.controller.ChannelID():
		b.dispatch("rewards.create", msg.ID, func(ctx context.Context) error {
			return b.controller.HandleMessageCreate(ctx, rewards.MessageCreate{
				MessageID: uint64(msg.ID),
				ChannelID: uint64(event.ChannelID),
				AuthorID:  uint64(msg.Author.ID),
				Content:   msg.Content,
				Timestamp: msg.CreatedAt,
			})
		})

	case b.quests.Watches(uint64(event.ChannelID)):
		b.dispatch("quest.posting", msg.ID, func(ctx context.Context) error {
			return b.quests.HandlePosting(ctx, quest.Posting{
				MessageID:   uint64(msg.ID),
				ChannelID:   uint64(event.ChannelID),
				AuthorID:    uint64(msg.Author.ID),
				AuthorIsBot: msg.Author.Bot,
				Content:     msg.Content,
				Timestamp:   msg.CreatedAt,
			})
		})

	default:
		b.dispatch("onboarding", msg.ID, func(ctx context.Context) error {
			return b.onboarding.HandleMessage(ctx, onboarding.Message{
				GuildID:     uint64(event.GuildID),
				ChannelID:   uint64(event.ChannelID),
				AuthorID:    uint64(msg.Author.ID),
				AuthorRoles: memberRoles(msg.Member),
				Content:     msg.Content,
			})
		})
	}
}

func (b *Bot) handleMessageUpdate(event *events.GuildMessageUpdate) {
	if !b.inRewardsChannel(event.ChannelID) {
		return
	}

	b.dispatch("rewards.edit", event.MessageID, func(ctx context.Context) error {
		return b.controller.HandleMessageEdit(ctx, uint64(event.MessageID))
	})
}

func (b *Bot) handleMessageDelete(event *events.GuildMessageDelete) {
	if !b.inRewardsChannel(event.ChannelID) {
		return
	}

	b.dispatch("rewards.delete", event.MessageID, func(ctx context.Context) error {
		return b.controller.HandleMessageDelete(ctx, uint64(event.MessageID))
	})
}

func (b *Bot) handleReactionAdd(event *events.GuildMessageReactionAdd) {
	reaction, ok := b.rewardsReaction(event.GenericGuildMessageReaction)
	if !ok {
		return
	}

	b.dispatch("rewards.reaction_add", event.MessageID, func(ctx context.Context) error {
		return b.controller.HandleReactionAdd(ctx, reaction)
	})
}

func (b *Bot) handleReactionRemove(event *events.GuildMessageReactionRemove) {
	reaction, ok := b.rewardsReaction(event.GenericGuildMessageReaction)
	if !ok {
		return
	}

	b.dispatch("rewards.reaction_remove", event.MessageID, func(ctx context.Context) error {
		return b.controller.HandleReactionRemove(ctx, reaction)
	})
}

// rewardsReaction converts a reaction in the rewards channel.
// Reactions by the bot itself, such as command acknowledgments, are skipped.
func (b *Bot) rewardsReaction(event *events.GenericGuildMessageReaction) (rewards.Reaction, bool) {
	if !b.inRewardsChannel(event.ChannelID) || event.UserID == b.client.ID() {
		return rewards.Reaction{}, false
	}

	var emoji string
	if event.Emoji.Name != nil {
		emoji = *event.Emoji.Name
	}

	return rewards.Reaction{
		MessageID: uint64(event.MessageID),
		UserID:    uint64(event.UserID),
		Emoji:     emoji,
	}, true
}

func (b *Bot) inRewardsChannel(channelID snowflake.ID) bool {
	return uint64(channelID) == b.controller.ChannelID()
}

func memberRoles(member *discord.Member) []uint64 {
	if member == nil {
		return nil
	}

	roles := make([]uint64, 0, len(member.RoleIDs))
	for _, id := range member.RoleIDs {
		roles = append(roles, uint64(id))
	}
	return roles
}
