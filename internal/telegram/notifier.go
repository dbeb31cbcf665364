package telegram

import (
	"context"
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/infra"
	"github.com/fraolBatole/AuraLab/internal/jobs"
)

// chatDirectory remembers which chat an account talks in. For private chats
// the chat id equals the account id, which doubles as the fallback.
type chatDirectory struct {
	mu    sync.RWMutex
	chats map[int64]int64
}

func newChatDirectory() *chatDirectory {
	return &chatDirectory{chats: make(map[int64]int64)}
}

func (d *chatDirectory) remember(accountID, chatID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chats[accountID] = chatID
}

func (d *chatDirectory) chatFor(accountID int64) int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if chatID, ok := d.chats[accountID]; ok {
		return chatID
	}
	return accountID
}

// Notifier sends replies through the Telegram Bot API.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chats  *chatDirectory
	logger infra.Logger

	mu      sync.Mutex
	lastMsg map[int64]int
}

func newNotifier(api *tgbotapi.BotAPI, chats *chatDirectory, logger infra.Logger) *Notifier {
	return &Notifier{api: api, chats: chats, logger: logger, lastMsg: make(map[int64]int)}
}

func (n *Notifier) Reply(ctx context.Context, accountID int64, text string) error {
	msg := tgbotapi.NewMessage(n.chats.chatFor(accountID), text)
	sent, err := n.api.Send(msg)
	if err != nil {
		return err
	}
	n.rememberMessage(accountID, sent.MessageID)
	return nil
}

// EditReply rewrites the account's most recent plain reply. It fails when no
// reply has been sent yet so callers fall back to a fresh message.
func (n *Notifier) EditReply(ctx context.Context, accountID int64, text string) error {
	n.mu.Lock()
	messageID, ok := n.lastMsg[accountID]
	n.mu.Unlock()
	if !ok {
		return errors.New("telegram: no reply to edit")
	}
	edit := tgbotapi.NewEditMessageText(n.chats.chatFor(accountID), messageID, text)
	_, err := n.api.Send(edit)
	return err
}

func (n *Notifier) rememberMessage(accountID int64, messageID int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastMsg[accountID] = messageID
}

func (n *Notifier) ReplyWithChoices(ctx context.Context, accountID int64, text string, choices []jobs.Choice) error {
	msg := tgbotapi.NewMessage(n.chats.chatFor(accountID), text)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, c := range choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data)))
	}
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err := n.api.Send(msg)
	return err
}

func (n *Notifier) ReplyWithMedia(ctx context.Context, accountID int64, kind domain.Kind, data []byte, format string) error {
	chatID := n.chats.chatFor(accountID)
	if kind == domain.KindVideo {
		upload := tgbotapi.NewVideoUpload(chatID, tgbotapi.FileBytes{Name: "video.mp4", Bytes: data})
		_, err := n.api.Send(upload)
		return err
	}
	upload := tgbotapi.NewPhotoUpload(chatID, tgbotapi.FileBytes{Name: "image.png", Bytes: data})
	_, err := n.api.Send(upload)
	return err
}

var (
	_ jobs.Notifier       = (*Notifier)(nil)
	_ jobs.ChoiceNotifier = (*Notifier)(nil)
	_ jobs.ReplyEditor    = (*Notifier)(nil)
)
