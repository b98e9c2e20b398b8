package rewards

import "context"

// Sink delivers output to the chat platform.
type Sink interface {
	// SendDirect sends a private message to a user.
	SendDirect(ctx context.Context, userID uint64, content string) error
	// Send posts a message to a channel.
	Send(ctx context.Context, channelID uint64, msg *Message) error
	// DeleteMessage removes a message from a channel.
	DeleteMessage(ctx context.Context, channelID, messageID uint64) error
	// AddReaction reacts to a message with a unicode emoji.
	AddReaction(ctx context.Context, channelID, messageID uint64, emoji string) error
}

// Message is a channel message with optional embeds.
type Message struct {
	Content string
	Embeds  []Embed
	// MentionRoles lists the roles allowed to be pinged by Content.
	MentionRoles []uint64
}

// Embed is a titled block of fields.
type Embed struct {
	Title       string
	Description string
	Fields      []Field
	Footer      string
}

// Field is a single named entry of an embed.
type Field struct {
	Name   string
	Value  string
	Inline bool
}
