package service

import (
	"balemuya/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TelegramService struct {
	bot domain.TelegramSender
}

func NewTelegramService(bot domain.TelegramSender) *TelegramService {
	return &TelegramService{bot: bot}
}

func (s *TelegramService) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	return s.bot.Send(msg)
}

func (s *TelegramService) SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	return s.bot.Send(msg)
}
