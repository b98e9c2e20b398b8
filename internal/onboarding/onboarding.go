package onboarding

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// RoleAssigner grants guild roles.
type RoleAssigner interface {
	AddMemberRole(ctx context.Context, guildID, userID, roleID uint64) error
}

// Message is a post seen in the rolling channel.
type Message struct {
	GuildID     uint64
	ChannelID   uint64
	AuthorID    uint64
	AuthorRoles []uint64
	Content     string
}

// Handler gives new players their roles once they roll a character.
type Handler struct {
	channelID uint64
	trigger   string
	roleIDs   []uint64
	assigner  RoleAssigner
	logger    *zap.Logger
}

// NewHandler creates a handler watching channelID for messages starting with trigger.
func NewHandler(channelID uint64, trigger string, roleIDs []uint64, assigner RoleAssigner, logger *zap.Logger) *Handler {
	return &Handler{
		channelID: channelID,
		trigger:   trigger,
		roleIDs:   roleIDs,
		assigner:  assigner,
		logger:    logger.Named("onboarding"),
	}
}

// HandleMessage assigns every configured role the author does not have yet.
func (h *Handler) HandleMessage(ctx context.Context, msg Message) error {
	if msg.ChannelID != h.channelID || h.trigger == "" || !strings.HasPrefix(msg.Content, h.trigger) {
		return nil
	}

	var assigned []uint64
	for _, roleID := range h.roleIDs {
		if slices.Contains(msg.AuthorRoles, roleID) {
			continue
		}

		if err := h.assigner.AddMemberRole(ctx, msg.GuildID, msg.AuthorID, roleID); err != nil {
			return fmt.Errorf("failed to assign role %d to %d: %w", roleID, msg.AuthorID, err)
		}
		assigned = append(assigned, roleID)
	}

	if len(assigned) > 0 {
		h.logger.Info("Assigned player roles",
			zap.Uint64("userID", msg.AuthorID),
			zap.Uint64s("roles", assigned))
	}

	return nil
}
