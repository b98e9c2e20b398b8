package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookwyrm/bookwyrm/internal/rewards"
	"github.com/disgoorg/snowflake/v2"
)

// Command names understood after the prefix.
const (
	CommandRewards      = "rewards"
	CommandDebugUntrack = "debug_untrack"
)

// ErrMissingArgument indicates a command invoked without a required argument.
var ErrMissingArgument = errors.New("missing argument")

// Invocation is a parsed prefix command.
type Invocation struct {
	Name      string
	Args      []string
	MessageID uint64
	ChannelID uint64
	CallerID  uint64
}

// ParseCommand splits a message into a command name and its arguments.
// Returns false if the content does not start with the prefix.
func ParseCommand(prefix, content string) (string, []string, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}

	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}

	return fields[0], fields[1:], true
}

// Replier posts plain text replies to a channel.
type Replier interface {
	SendText(ctx context.Context, channelID uint64, content string) (uint64, error)
}

// Commands runs prefix commands against the rewards handlers.
type Commands struct {
	controller *rewards.Controller
	digester   *rewards.Digester
	replier    Replier
}

// NewCommands creates the command set.
func NewCommands(controller *rewards.Controller, digester *rewards.Digester, replier Replier) *Commands {
	return &Commands{
		controller: controller,
		digester:   digester,
		replier:    replier,
	}
}

// Known reports whether the command exists.
func (c *Commands) Known(name string) bool {
	switch name {
	case CommandRewards, CommandDebugUntrack:
		return true
	default:
		return false
	}
}

// Run executes a command. Failures are reported back in the invoking channel.
func (c *Commands) Run(ctx context.Context, inv Invocation) error {
	err := c.run(ctx, inv)
	if err == nil {
		return nil
	}

	if _, sendErr := c.replier.SendText(ctx, inv.ChannelID, "Error: "+err.Error()); sendErr != nil {
		return errors.Join(err, sendErr)
	}

	return err
}

func (c *Commands) run(ctx context.Context, inv Invocation) error {
	switch inv.Name {
	case CommandRewards:
		return c.digester.Deliver(ctx, rewards.DigestOptions{
			Destination: inv.ChannelID,
			NoPing:      true,
		})

	case CommandDebugUntrack:
		if len(inv.Args) == 0 {
			return fmt.Errorf("%w: message id", ErrMissingArgument)
		}

		messageID, err := snowflake.Parse(inv.Args[0])
		if err != nil {
			return fmt.Errorf("invalid message id %q: %w", inv.Args[0], err)
		}

		return c.controller.Untrack(ctx, rewards.UntrackRequest{
			CallerID:         inv.CallerID,
			ChannelID:        inv.ChannelID,
			CommandMessageID: inv.MessageID,
			MessageID:        uint64(messageID),
		})
	}

	return nil
}
