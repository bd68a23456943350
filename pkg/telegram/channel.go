// Package telegram delivers due reminders to a linked Telegram chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/focusdesk/pkg/db"
	"github.com/smith3v/focusdesk/pkg/logger"
	"github.com/smith3v/focusdesk/pkg/notify"
	"github.com/smith3v/focusdesk/pkg/settings"
)

// Sender abstracts message delivery so tests do not need a live bot.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type BotSender struct {
	B *bot.Bot
}

func (s BotSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := s.B.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

type ChatLookup interface {
	Preferences(ctx context.Context, userID string) (settings.Preferences, error)
}

// Channel sends to the chat stored in the user's settings. Users without a
// linked chat are skipped and count as zero attempts.
type Channel struct {
	sender Sender
	chats  ChatLookup
}

func NewChannel(sender Sender, chats ChatLookup) *Channel {
	return &Channel{sender: sender, chats: chats}
}

func (c *Channel) Name() string {
	return "telegram"
}

func (c *Channel) Notify(ctx context.Context, reminder db.Reminder, payload *notify.Payload) (notify.Result, error) {
	prefs, err := c.chats.Preferences(ctx, reminder.UserID)
	if errors.Is(err, settings.ErrNotFound) {
		return notify.Result{}, nil
	}
	if err != nil {
		return notify.Result{}, err
	}
	if prefs.TelegramChatID == 0 {
		return notify.Result{}, nil
	}

	if err := c.sender.SendMessage(ctx, prefs.TelegramChatID, FormatMessage(payload)); err != nil {
		logger.Error("telegram delivery failed", "user_id", reminder.UserID, "chat_id", prefs.TelegramChatID, "error", err)
		return notify.Result{Attempted: 1}, nil
	}
	return notify.Result{Attempted: 1, Succeeded: 1}, nil
}

func FormatMessage(payload *notify.Payload) string {
	if payload == nil {
		return ""
	}
	return strings.TrimSpace(payload.Title + "\n" + payload.Body)
}

// HandleStart replies with the chat id the user has to store in settings to
// receive reminders here.
func HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleStart")
		return
	}
	chatID := update.Message.Chat.ID
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("Your chat id is %d. Add it to your settings to get reminders in this chat.", chatID),
	})
	if err != nil {
		logger.Error("failed to answer /start", "chat_id", chatID, "error", err)
	}
}
