package quest_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bookwyrm/bookwyrm/internal/database/types"
	"github.com/bookwyrm/bookwyrm/internal/quest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const questChannel = 77

type fakeMessenger struct {
	mu      sync.Mutex
	texts   []string
	deleted []uint64
	dms     []string
	nextID  uint64
	sent    chan struct{}
	onSend  func()
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 5000, sent: make(chan struct{}, 10)}
}

func (m *fakeMessenger) SendText(_ context.Context, _ uint64, content string) (uint64, error) {
	m.mu.Lock()
	m.texts = append(m.texts, content)
	m.nextID++
	id := m.nextID
	onSend := m.onSend
	m.mu.Unlock()

	if onSend != nil {
		onSend()
	}
	m.sent <- struct{}{}
	return id, nil
}

func (m *fakeMessenger) DeleteMessage(_ context.Context, _, messageID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) SendDirect(_ context.Context, _ uint64, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dms = append(m.dms, content)
	return nil
}

type fakeGameStore struct {
	mu    sync.Mutex
	games []*types.Game
}

func (s *fakeGameStore) SaveGame(_ context.Context, game *types.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games = append(s.games, game)
	return nil
}

func newHandler(timeout time.Duration) (*quest.Handler, *quest.Waiter, *fakeMessenger, *fakeGameStore) {
	waiter := quest.NewWaiter()
	messenger := newFakeMessenger()
	store := &fakeGameStore{}
	handler := quest.NewHandler([]uint64{questChannel}, waiter, messenger, store, timeout, zap.NewNop())
	return handler, waiter, messenger, store
}

func TestHandlePosting_TitleInPost(t *testing.T) {
	t.Parallel()
	handler, _, messenger, store := newHandler(time.Second)

	err := handler.HandlePosting(t.Context(), quest.Posting{
		MessageID: 1, ChannelID: questChannel, AuthorID: 10,
		Content: "[Curse of Strahd] one-shot\nFriday 8pm",
	})
	require.NoError(t, err)

	require.Len(t, store.games, 1)
	assert.Equal(t, "Curse of Strahd", store.games[0].Title)
	assert.Equal(t, uint64(10), store.games[0].DM)
	assert.Empty(t, store.games[0].Players)
	assert.Nil(t, store.games[0].Time)
	assert.Empty(t, messenger.texts)
}

func TestHandlePosting_Ignored(t *testing.T) {
	t.Parallel()
	handler, _, messenger, store := newHandler(time.Second)
	ctx := t.Context()

	require.NoError(t, handler.HandlePosting(ctx, quest.Posting{ChannelID: questChannel + 1, Content: "[A]\nb"}))
	require.NoError(t, handler.HandlePosting(ctx, quest.Posting{ChannelID: questChannel, AuthorIsBot: true, Content: "[A]\nb"}))
	require.NoError(t, handler.HandlePosting(ctx, quest.Posting{ChannelID: questChannel, Content: "[A] b"}))
	require.NoError(t, handler.HandlePosting(ctx, quest.Posting{ChannelID: questChannel, Content: "<@&1>\n<@2>"}))

	assert.Empty(t, store.games)
	assert.Empty(t, messenger.texts)
}

func TestHandlePosting_PromptReply(t *testing.T) {
	t.Parallel()
	handler, waiter, messenger, store := newHandler(time.Second)

	done := make(chan error, 1)
	go func() {
		done <- handler.HandlePosting(t.Context(), quest.Posting{
			MessageID: 2, ChannelID: questChannel, AuthorID: 10,
			Content: "Join my game\nSaturday",
		})
	}()

	<-messenger.sent

	// Someone else talking does not answer the prompt
	assert.False(t, waiter.Deliver(quest.Reply{MessageID: 90, ChannelID: questChannel, AuthorID: 11, Content: "hi"}))

	require.Eventually(t, func() bool {
		return waiter.Deliver(quest.Reply{MessageID: 91, ChannelID: questChannel, AuthorID: 10, Content: "[Hoard of the Dragon Queen]"})
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, <-done)

	require.Len(t, store.games, 1)
	assert.Equal(t, "Hoard of the Dragon Queen", store.games[0].Title)

	messenger.mu.Lock()
	defer messenger.mu.Unlock()
	require.Len(t, messenger.texts, 1)
	assert.Contains(t, messenger.texts[0], "<@10> - I couldn't find the title of that quest posting.")
	assert.ElementsMatch(t, []uint64{5001, 91}, messenger.deleted)
}

func TestHandlePosting_ReplyBeforePromptReturns(t *testing.T) {
	t.Parallel()
	handler, waiter, messenger, store := newHandler(time.Second)

	// The author answers while the prompt is still being sent
	delivered := false
	messenger.onSend = func() {
		delivered = waiter.Deliver(quest.Reply{MessageID: 93, ChannelID: questChannel, AuthorID: 10, Content: "Tomb of Annihilation"})
	}

	err := handler.HandlePosting(t.Context(), quest.Posting{
		MessageID: 5, ChannelID: questChannel, AuthorID: 10, Content: "fast one\ntonight",
	})
	require.NoError(t, err)

	assert.True(t, delivered)
	require.Len(t, store.games, 1)
	assert.Equal(t, "Tomb of Annihilation", store.games[0].Title)
	assert.ElementsMatch(t, []uint64{5001, 93}, messenger.deleted)
}

func TestHandlePosting_BadBot(t *testing.T) {
	t.Parallel()
	handler, waiter, messenger, store := newHandler(time.Second)

	done := make(chan error, 1)
	go func() {
		done <- handler.HandlePosting(t.Context(), quest.Posting{
			MessageID: 3, ChannelID: questChannel, AuthorID: 10, Content: "lunch?\nanyone",
		})
	}()

	<-messenger.sent
	require.Eventually(t, func() bool {
		return waiter.Deliver(quest.Reply{MessageID: 92, ChannelID: questChannel, AuthorID: 10, Content: "Bad Bot"})
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, <-done)

	assert.Empty(t, store.games)
	messenger.mu.Lock()
	defer messenger.mu.Unlock()
	assert.Empty(t, messenger.dms)
}

func TestHandlePosting_Timeout(t *testing.T) {
	t.Parallel()
	handler, _, messenger, store := newHandler(20 * time.Millisecond)

	err := handler.HandlePosting(t.Context(), quest.Posting{
		MessageID: 4, ChannelID: questChannel, AuthorID: 10, Content: "no title\nhere",
	})
	require.NoError(t, err)

	assert.Empty(t, store.games)
	messenger.mu.Lock()
	defer messenger.mu.Unlock()
	assert.Equal(t, []string{"An error occurred parsing your game post:\n" +
		"Timed out waiting for the game title.\nThe post will not be tracked automatically."}, messenger.dms)
	assert.Equal(t, []uint64{5001}, messenger.deleted)
}

func TestWaiter_ContextCanceled(t *testing.T) {
	t.Parallel()
	waiter := quest.NewWaiter()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := waiter.Wait(ctx, 1, 2, time.Minute)
	require.ErrorIs(t, err, context.Canceled)

	// Nothing is left waiting
	assert.False(t, waiter.Deliver(quest.Reply{ChannelID: 1, AuthorID: 2}))
}

func TestWaiter_RegisterKeepsEarlyReply(t *testing.T) {
	t.Parallel()
	waiter := quest.NewWaiter()

	pending := waiter.Register(1, 2)
	require.True(t, waiter.Deliver(quest.Reply{MessageID: 3, ChannelID: 1, AuthorID: 2, Content: "early"}))

	reply, err := pending.Await(t.Context(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "early", reply.Content)
}

func TestWaiter_Cancel(t *testing.T) {
	t.Parallel()
	waiter := quest.NewWaiter()

	pending := waiter.Register(1, 2)
	pending.Cancel()
	pending.Cancel()

	assert.False(t, waiter.Deliver(quest.Reply{ChannelID: 1, AuthorID: 2}))
}
