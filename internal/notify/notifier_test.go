package notify

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	chatID   int64
	text     string
	keyboard bool
}

type fakeTelegram struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeTelegram) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) SendWithInlineKeyboard(chatID int64, text string, _ tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, keyboard: true})
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNotifierDelivers(t *testing.T) {
	logger := zerolog.New(io.Discard)
	tg := &fakeTelegram{}
	n := NewTelegramNotifier(tg, 1, 8, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)

	n.Notify("12345", "booking confirmed", "", "")

	waitFor(t, func() bool { return len(tg.messages()) == 1 })
	msg := tg.messages()[0]
	assert.Equal(t, int64(12345), msg.chatID)
	assert.Equal(t, "booking confirmed", msg.text)
	assert.False(t, msg.keyboard)
}

func TestNotifierInlineKeyboard(t *testing.T) {
	logger := zerolog.New(io.Discard)
	tg := &fakeTelegram{}
	n := NewTelegramNotifier(tg, 1, 8, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)

	n.Notify("777", "new booking", "Open", "https://example.com/bookings/1")

	waitFor(t, func() bool { return len(tg.messages()) == 1 })
	assert.True(t, tg.messages()[0].keyboard)
}

func TestNotifierInvalidTelegramID(t *testing.T) {
	logger := zerolog.New(io.Discard)
	tg := &fakeTelegram{}
	n := NewTelegramNotifier(tg, 1, 8, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)

	n.Notify("not-a-number", "hello", "", "")

	// Nothing should ever arrive; give workers a moment to prove it.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, tg.messages())
}

func TestNotifierQueueFullDrops(t *testing.T) {
	logger := zerolog.New(io.Discard)
	tg := &fakeTelegram{}
	// Workers are never started, so the queue fills up.
	n := NewTelegramNotifier(tg, 1, 2, &logger)

	n.Notify("1", "first", "", "")
	n.Notify("2", "second", "", "")
	n.Notify("3", "third", "", "") // dropped

	require.Len(t, n.queue, 2)
}

func TestNotifierStopsOnContextCancel(t *testing.T) {
	logger := zerolog.New(io.Discard)
	tg := &fakeTelegram{}
	n := NewTelegramNotifier(tg, 2, 8, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	n.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		n.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop after cancel")
	}
}

func TestNotifierDefaults(t *testing.T) {
	logger := zerolog.New(io.Discard)
	n := NewTelegramNotifier(&fakeTelegram{}, 0, 0, &logger)
	assert.Equal(t, 1, n.workers)
	assert.Equal(t, 64, cap(n.queue))
}
