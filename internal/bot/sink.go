package bot

import (
	"context"
	"fmt"

	"github.com/bookwyrm/bookwyrm/internal/rewards"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// Sink sends bot output through the Discord REST API.
// It serves the rewards, quest and onboarding handlers.
type Sink struct {
	rest rest.Rest
}

// NewSink creates a sink on top of a REST client.
func NewSink(r rest.Rest) *Sink {
	return &Sink{rest: r}
}

// SendDirect opens a DM channel with the user and posts the content there.
func (s *Sink) SendDirect(ctx context.Context, userID uint64, content string) error {
	channel, err := s.rest.CreateDMChannel(snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}

	_, err = s.rest.CreateMessage(channel.ID(), discord.NewMessageCreateBuilder().
		SetContent(content).
		SetAllowedMentions(&discord.AllowedMentions{}).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to send DM: %w", err)
	}

	return nil
}

// Send posts a message with embeds to a channel.
// Only the roles listed in MentionRoles can be pinged.
func (s *Sink) Send(ctx context.Context, channelID uint64, msg *rewards.Message) error {
	embeds := make([]discord.Embed, 0, len(msg.Embeds))
	for _, e := range msg.Embeds {
		embeds = append(embeds, buildEmbed(e))
	}

	roles := make([]snowflake.ID, 0, len(msg.MentionRoles))
	for _, id := range msg.MentionRoles {
		roles = append(roles, snowflake.ID(id))
	}

	_, err := s.rest.CreateMessage(snowflake.ID(channelID), discord.NewMessageCreateBuilder().
		SetContent(msg.Content).
		SetEmbeds(embeds...).
		SetAllowedMentions(&discord.AllowedMentions{Roles: roles}).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to send message to channel %d: %w", channelID, err)
	}

	return nil
}

// SendText posts plain text to a channel and returns the new message ID.
func (s *Sink) SendText(ctx context.Context, channelID uint64, content string) (uint64, error) {
	message, err := s.rest.CreateMessage(snowflake.ID(channelID), discord.NewMessageCreateBuilder().
		SetContent(content).
		SetAllowedMentions(&discord.AllowedMentions{}).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to send message to channel %d: %w", channelID, err)
	}

	return uint64(message.ID), nil
}

// DeleteMessage removes a message from a channel.
func (s *Sink) DeleteMessage(ctx context.Context, channelID, messageID uint64) error {
	if err := s.rest.DeleteMessage(snowflake.ID(channelID), snowflake.ID(messageID), rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("failed to delete message %d: %w", messageID, err)
	}
	return nil
}

// AddReaction reacts to a message with a unicode emoji.
func (s *Sink) AddReaction(ctx context.Context, channelID, messageID uint64, emoji string) error {
	if err := s.rest.AddReaction(snowflake.ID(channelID), snowflake.ID(messageID), emoji, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("failed to react to message %d: %w", messageID, err)
	}
	return nil
}

// AddMemberRole grants a guild role to a member.
func (s *Sink) AddMemberRole(ctx context.Context, guildID, userID, roleID uint64) error {
	return s.rest.AddMemberRole(snowflake.ID(guildID), snowflake.ID(userID), snowflake.ID(roleID), rest.WithCtx(ctx))
}

func buildEmbed(e rewards.Embed) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(e.Title).
		SetDescription(e.Description)

	for _, field := range e.Fields {
		builder.AddField(field.Name, field.Value, field.Inline)
	}

	if e.Footer != "" {
		builder.SetFooterText(e.Footer)
	}

	return builder.Build()
}
