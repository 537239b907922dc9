// Package notify отправляет Telegram-уведомления в фоне. Отправка не
// блокирует путь запроса: задача кладется в ограниченную очередь, при
// переполнении отбрасывается. Ошибки доставки логируются и глотаются,
// повторов нет.
package notify

import (
	"context"
	"strconv"
	"sync"

	"balemuya/internal/domain"
	"balemuya/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type notification struct {
	chatID     int64
	message    string
	buttonText string
	buttonURL  string
}

type TelegramNotifier struct {
	tg      domain.TelegramService
	queue   chan notification
	workers int
	logger  *zerolog.Logger
	wg      sync.WaitGroup
	once    sync.Once
}

func NewTelegramNotifier(tg domain.TelegramService, workers, queueSize int, logger *zerolog.Logger) *TelegramNotifier {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &TelegramNotifier{
		tg:      tg,
		queue:   make(chan notification, queueSize),
		workers: workers,
		logger:  logger,
	}
}

// Start запускает воркеры; останавливаются по ctx.
func (n *TelegramNotifier) Start(ctx context.Context) {
	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task := <-n.queue:
					n.deliver(task)
				}
			}
		}()
	}
}

// Wait блокируется до завершения воркеров после отмены контекста.
func (n *TelegramNotifier) Wait() {
	n.wg.Wait()
}

// Notify ставит уведомление в очередь. Никогда не блокирует и не
// возвращает ошибку: при переполнении очереди или кривом telegram_id
// уведомление отбрасывается с записью в лог.
func (n *TelegramNotifier) Notify(telegramID, message, buttonText, buttonURL string) {
	chatID, err := strconv.ParseInt(telegramID, 10, 64)
	if err != nil {
		n.logger.Error().Str("telegram_id", telegramID).Msg("notify: invalid telegram id, dropped")
		metrics.IncNotification("dropped")
		return
	}

	task := notification{chatID: chatID, message: message, buttonText: buttonText, buttonURL: buttonURL}
	select {
	case n.queue <- task:
	default:
		n.logger.Warn().Int64("chat_id", chatID).Msg("notify: queue full, notification dropped")
		metrics.IncNotification("dropped")
	}
}

func (n *TelegramNotifier) deliver(task notification) {
	var err error
	if task.buttonText != "" && task.buttonURL != "" {
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL(task.buttonText, task.buttonURL),
			),
		)
		_, err = n.tg.SendWithInlineKeyboard(task.chatID, task.message, keyboard)
	} else {
		_, err = n.tg.SendMessage(task.chatID, task.message)
	}

	if err != nil {
		n.logger.Error().Err(err).Int64("chat_id", task.chatID).Msg("notify: send error")
		metrics.IncNotification("failed")
		return
	}
	metrics.IncNotification("sent")
}
