package rewards

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bookwyrm/bookwyrm/internal/database/types"
	"github.com/bookwyrm/bookwyrm/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DigestTitle is the title of the first digest page.
const DigestTitle = "Daily Rewards Update"

// Platform limits for a single embed.
const (
	maxEmbedFields     = 25
	maxEmbedCharacters = 6000
	maxFieldName       = 256
	maxFieldValue      = 1024
)

// DigestConfig holds the identifiers the digest needs.
type DigestConfig struct {
	GuildID             uint64
	RewardsChannelID    uint64
	DiscussionChannelID uint64
	RolesToPing         []uint64
}

// DigestOptions overrides where a single digest goes.
type DigestOptions struct {
	// Destination replaces the discussion channel when non-zero.
	Destination uint64
	// NoPing suppresses the role mentions.
	NoPing bool
}

// Digester summarizes every open submission.
type Digester struct {
	store   Store
	sink    Sink
	cfg     DigestConfig
	clock   func() time.Time
	printer *message.Printer
	logger  *zap.Logger
}

// NewDigester creates a digester reading from the store and posting through the sink.
func NewDigester(store Store, sink Sink, cfg DigestConfig, logger *zap.Logger, opts ...DigestOption) *Digester {
	d := &Digester{
		store:   store,
		sink:    sink,
		cfg:     cfg,
		clock:   time.Now,
		printer: message.NewPrinter(language.English),
		logger:  logger.Named("digest"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DigestOption configures a Digester.
type DigestOption func(*Digester)

// WithDigestClock replaces the time source.
func WithDigestClock(clock func() time.Time) DigestOption {
	return func(d *Digester) {
		d.clock = clock
	}
}

// Deliver renders the digest and posts it, one message per page.
// Only the first page pings the configured roles.
func (d *Digester) Deliver(ctx context.Context, opts DigestOptions) error {
	submissions, err := d.store.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load reward submissions: %w", err)
	}

	destination := d.cfg.DiscussionChannelID
	if opts.Destination != 0 {
		destination = opts.Destination
	}

	pages := RenderDigest(submissions, d.clock(), d.cfg.GuildID, d.cfg.RewardsChannelID, d.printer)

	for i, page := range pages {
		msg := &Message{Embeds: []Embed{page}}
		if i == 0 && !opts.NoPing && len(d.cfg.RolesToPing) > 0 {
			msg.Content = rolePings(d.cfg.RolesToPing)
			msg.MentionRoles = d.cfg.RolesToPing
		}

		if err := d.sink.Send(ctx, destination, msg); err != nil {
			return fmt.Errorf("failed to send digest page %d/%d: %w", i+1, len(pages), err)
		}
	}

	d.logger.Info("Delivered rewards digest",
		zap.Int("submissions", len(submissions)),
		zap.Int("pages", len(pages)),
		zap.Uint64("channelID", destination),
		zap.Bool("ping", !opts.NoPing))

	return nil
}

// RenderDigest builds the digest pages. The first page carries the title and count line.
func RenderDigest(
	submissions []*types.RewardSubmission, now time.Time, guildID, channelID uint64, p *message.Printer,
) []Embed {
	first := Embed{
		Title:       DigestTitle,
		Description: countLine(len(submissions), p),
	}

	pages := []Embed{first}
	size := embedSize(first)

	for _, submission := range submissions {
		field := Field{
			Name:  truncate(submission.QuestTitle, maxFieldName),
			Value: truncate(renderBlock(submission, now, guildID, channelID), maxFieldValue),
		}
		fieldSize := utf8.RuneCountInString(field.Name) + utf8.RuneCountInString(field.Value)

		page := &pages[len(pages)-1]
		if len(page.Fields) >= maxEmbedFields || size+fieldSize > maxEmbedCharacters {
			pages = append(pages, Embed{})
			page = &pages[len(pages)-1]
			size = 0
		}

		page.Fields = append(page.Fields, field)
		size += fieldSize
	}

	return pages
}

// renderBlock describes one submission.
func renderBlock(submission *types.RewardSubmission, now time.Time, guildID, channelID uint64) string {
	tally := submission.Tally()
	eligibility := Evaluate(now, submission.TimeLastEdited, tally)

	lines := []string{
		fmt.Sprintf("<@%d>", submission.Author),
		"**Submitted**: " + utils.FormatTimeAgo(submission.TimeSubmitted, now),
	}
	if submission.WasEdited() {
		lines = append(lines, "**Last Edited**: "+utils.FormatTimeAgo(submission.TimeLastEdited, now))
	}

	lines = append(lines,
		fmt.Sprintf("**Votes**: %d :thumbsup: | %d :thumbsdown: | %d :raised_hand:",
			tally.Upvotes, tally.Downvotes, tally.Comments),
		"**Status**: "+eligibility.Describe(now),
		fmt.Sprintf("[Jump to Post](%s)", Permalink(guildID, channelID, submission.MessageID)),
	)

	return strings.Join(lines, "\n")
}

// Permalink links to a message in a guild channel.
func Permalink(guildID, channelID, messageID uint64) string {
	return fmt.Sprintf("https://discord.com/channels/%d/%d/%d", guildID, channelID, messageID)
}

func countLine(n int, p *message.Printer) string {
	switch n {
	case 0:
		return "There are no open reward submissions."
	case 1:
		return "There is 1 open reward submission."
	default:
		return p.Sprintf("There are %d open reward submissions.", n)
	}
}

func rolePings(roles []uint64) string {
	pings := make([]string, len(roles))
	for i, role := range roles {
		pings[i] = fmt.Sprintf("<@&%d>", role)
	}
	return strings.Join(pings, " ")
}

func embedSize(e Embed) int {
	return utf8.RuneCountInString(e.Title) + utf8.RuneCountInString(e.Description) +
		utf8.RuneCountInString(e.Footer)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
