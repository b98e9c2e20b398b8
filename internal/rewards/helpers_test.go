package rewards_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bookwyrm/bookwyrm/internal/redis"
	"github.com/bookwyrm/bookwyrm/internal/rewards"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	rewardsChannel = 1000
	guildID        = 2000
	ownerID        = 9
)

var errSinkDown = errors.New("sink down")

type directMessage struct {
	UserID  uint64
	Content string
}

type channelMessage struct {
	ChannelID uint64
	Message   *rewards.Message
}

type reaction struct {
	ChannelID uint64
	MessageID uint64
	Emoji     string
}

// fakeSink records everything sent to the chat platform.
type fakeSink struct {
	mu        sync.Mutex
	dms       []directMessage
	sent      []channelMessage
	deleted   []uint64
	reactions []reaction
	failDMs   bool
}

func (s *fakeSink) SendDirect(_ context.Context, userID uint64, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDMs {
		return errSinkDown
	}
	s.dms = append(s.dms, directMessage{UserID: userID, Content: content})
	return nil
}

func (s *fakeSink) Send(_ context.Context, channelID uint64, msg *rewards.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, channelMessage{ChannelID: channelID, Message: msg})
	return nil
}

func (s *fakeSink) DeleteMessage(_ context.Context, _, messageID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, messageID)
	return nil
}

func (s *fakeSink) AddReaction(_ context.Context, channelID, messageID uint64, emoji string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reactions = append(s.reactions, reaction{ChannelID: channelID, MessageID: messageID, Emoji: emoji})
	return nil
}

func (s *fakeSink) DMs() []directMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]directMessage(nil), s.dms...)
}

func (s *fakeSink) Sent() []channelMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]channelMessage(nil), s.sent...)
}

func (s *fakeSink) LastDM() directMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dms) == 0 {
		return directMessage{}
	}
	return s.dms[len(s.dms)-1]
}

// fixedClock is a settable time source.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newStore creates a Redis backed store on a private miniredis instance.
func newStore(t *testing.T) rewards.Store {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return redis.NewSubmissionStore(client, zap.NewNop())
}

type harness struct {
	store      rewards.Store
	sink       *fakeSink
	clock      *fixedClock
	controller *rewards.Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store: newStore(t),
		sink:  &fakeSink{},
		clock: &fixedClock{now: time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)},
	}
	h.controller = rewards.NewController(h.store, h.sink, rewardsChannel, []uint64{ownerID},
		zap.NewNop(), rewards.WithClock(h.clock.Now))

	return h
}

// post tracks a valid submission and clears the resulting DM.
func (h *harness) post(t *testing.T, messageID, authorID uint64, title string) {
	t.Helper()

	err := h.controller.HandleMessageCreate(t.Context(), rewards.MessageCreate{
		MessageID: messageID,
		ChannelID: rewardsChannel,
		AuthorID:  authorID,
		Content:   title + "\nLevels: 3, 4\n\nWe rescued the caravan.",
		Timestamp: h.clock.Now(),
	})
	require.NoError(t, err)

	h.sink.mu.Lock()
	h.sink.dms = nil
	h.sink.mu.Unlock()
}
