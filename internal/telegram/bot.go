package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/google/uuid"

	"github.com/fraolBatole/AuraLab/internal/conversation"
	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/i18n"
	"github.com/fraolBatole/AuraLab/internal/infra"
	"github.com/fraolBatole/AuraLab/internal/session"
	"github.com/fraolBatole/AuraLab/internal/storage"
)

// AccountStore is the persistence surface needed for first-contact
// provisioning and contact refresh.
type AccountStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	UpdateContact(ctx context.Context, id int64, firstName, username string, chatID int64) error
}

// Canceller stops an account's live generation job.
type Canceller interface {
	Cancel(accountID int64) bool
}

// Config wires the bot's collaborators.
type Config struct {
	Token    string
	Router   *conversation.Router
	Sessions *session.Store
	Accounts AccountStore
	Jobs     Canceller
	Store    *storage.FileStore
	Ledger   BalanceReader
	Logger   infra.Logger
}

// BalanceReader exposes the counters the welcome message reports.
type BalanceReader interface {
	Balances(ctx context.Context, id int64) (imageCredits, videoCredits int)
}

// Bot translates Telegram updates into conversation events and drives the
// router. One goroutine per update, in the transport's manner; ordering per
// account is enforced by the router's serialization, not here.
type Bot struct {
	api      *tgbotapi.BotAPI
	router   *conversation.Router
	sessions *session.Store
	accounts AccountStore
	jobs     Canceller
	store    *storage.FileStore
	ledger   BalanceReader
	logger   infra.Logger

	chats      *chatDirectory
	notifier   *Notifier
	httpClient *http.Client
}

func NewBot(cfg Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	chats := newChatDirectory()
	return &Bot{
		api:        api,
		router:     cfg.Router,
		sessions:   cfg.Sessions,
		accounts:   cfg.Accounts,
		jobs:       cfg.Jobs,
		store:      cfg.Store,
		ledger:     cfg.Ledger,
		logger:     cfg.Logger,
		chats:      chats,
		notifier:   newNotifier(api, chats, cfg.Logger),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Notifier returns the reply sink bound to this bot's API connection.
func (b *Bot) Notifier() *Notifier {
	return b.notifier
}

// Run consumes the long-poll update stream until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("telegram: updates channel: %w", err)
	}
	b.logger.Info().Str("bot", b.api.Self.UserName).Msg("telegram: listening for updates")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("telegram: update handler panicked")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || !msg.Chat.IsPrivate() {
		return
	}
	accountID := int64(msg.From.ID)
	b.chats.remember(accountID, msg.Chat.ID)

	firstContact, lang := b.ensureAccount(ctx, msg, accountID)

	if msg.IsCommand() {
		b.handleCommand(ctx, accountID, lang, msg.Command())
		return
	}
	if firstContact {
		return
	}

	if msg.Photo != nil && len(*msg.Photo) > 0 {
		b.handlePhoto(ctx, accountID, *msg.Photo)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if action, ok := menuActionFor(text); ok {
		b.router.Handle(ctx, accountID, conversation.MenuSelection{Action: action}, b.notifier)
		return
	}
	b.router.Handle(ctx, accountID, conversation.FreeText{Text: msg.Text}, b.notifier)
}

// ensureAccount provisions an account on first contact with the initial
// credit grants and a language detected from the client locale. It reports
// whether this update created the account.
func (b *Bot) ensureAccount(ctx context.Context, msg *tgbotapi.Message, accountID int64) (bool, string) {
	_, err := b.accounts.GetByID(ctx, accountID)
	if err == nil {
		if err := b.accounts.UpdateContact(ctx, accountID, msg.From.FirstName, msg.From.UserName, msg.Chat.ID); err != nil {
			b.logger.Warn().Err(err).Int64("account", accountID).Msg("telegram: contact refresh failed")
		}
		return false, b.sessions.Language(ctx, accountID)
	}
	if err != domain.ErrNotFound {
		b.logger.Error().Err(err).Int64("account", accountID).Msg("telegram: account lookup failed")
		return false, b.sessions.Language(ctx, accountID)
	}

	lang := i18n.Detect(msg.From.LanguageCode)
	account := &domain.Account{
		ID:         accountID,
		FirstName:  msg.From.FirstName,
		Username:   msg.From.UserName,
		ChatID:     msg.Chat.ID,
		Language:   lang,
		ImageRatio: domain.DefaultAspectRatio,
		VideoRatio: domain.DefaultAspectRatio,
	}
	if err := b.accounts.Create(ctx, account); err != nil {
		b.logger.Error().Err(err).Int64("account", accountID).Msg("telegram: account provisioning failed")
		return false, lang
	}
	b.sessions.SetLanguage(ctx, accountID, lang)
	b.logger.Info().Int64("account", accountID).Str("language", lang).Msg("telegram: account provisioned")

	b.sendWelcome(ctx, accountID, lang, msg.From.FirstName)
	return true, lang
}

func (b *Bot) handleCommand(ctx context.Context, accountID int64, lang, command string) {
	switch command {
	case "start":
		img, vid := b.ledger.Balances(ctx, accountID)
		b.sendKeyboard(accountID, lang, i18n.T(lang, "balance", img, vid))
	case "help":
		b.router.Handle(ctx, accountID, conversation.MenuSelection{Action: conversation.ActionHelp}, b.notifier)
	case "balance":
		b.router.Handle(ctx, accountID, conversation.MenuSelection{Action: conversation.ActionBalance}, b.notifier)
	case "settings":
		b.router.Handle(ctx, accountID, conversation.MenuSelection{Action: conversation.ActionSettings}, b.notifier)
	case "cancel":
		if b.jobs.Cancel(accountID) {
			b.send(accountID, i18n.T(lang, "generation_cancelled"))
		}
	}
}

func (b *Bot) handlePhoto(ctx context.Context, accountID int64, photos []tgbotapi.PhotoSize) {
	mode := b.sessions.Mode(accountID)
	if mode != session.ModeAwaitingImageReference && mode != session.ModeAwaitingVideoReference {
		// A photo outside a reference flow carries no meaning.
		return
	}

	largest := photos[len(photos)-1]
	data, err := b.downloadFile(ctx, largest.FileID)
	if err != nil {
		b.logger.Error().Err(err).Int64("account", accountID).Msg("telegram: photo download failed")
		b.send(accountID, i18n.T(b.sessions.Language(ctx, accountID), "generation_failed"))
		return
	}

	key, err := b.store.Write(ctx, storage.UploadKey(accountID, uuid.NewString()+".jpg"), data)
	if err != nil {
		b.logger.Error().Err(err).Int64("account", accountID).Msg("telegram: photo store failed")
		b.send(accountID, i18n.T(b.sessions.Language(ctx, accountID), "generation_failed"))
		return
	}

	b.router.Handle(ctx, accountID, conversation.ReferenceImageUploaded{Key: key}, b.notifier)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		return
	}
	accountID := int64(cb.From.ID)
	if cb.Message != nil {
		b.chats.remember(accountID, cb.Message.Chat.ID)
	}
	if _, err := b.api.AnswerCallbackQuery(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Debug().Err(err).Msg("telegram: callback ack failed")
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, "image_choice:"):
		b.router.Handle(ctx, accountID, conversation.ModeChoice{
			Kind:    domain.KindImage,
			Variant: domain.Variant(strings.TrimPrefix(data, "image_choice:")),
		}, b.notifier)
	case strings.HasPrefix(data, "video_choice:"):
		b.router.Handle(ctx, accountID, conversation.ModeChoice{
			Kind:    domain.KindVideo,
			Variant: domain.Variant(strings.TrimPrefix(data, "video_choice:")),
		}, b.notifier)
	case strings.HasPrefix(data, "preset:"):
		b.router.Handle(ctx, accountID, conversation.PresetSelected{ID: strings.TrimPrefix(data, "preset:")}, b.notifier)
	case strings.HasPrefix(data, "retry:"):
		b.router.Handle(ctx, accountID, conversation.Retry{PromptID: strings.TrimPrefix(data, "retry:")}, b.notifier)
	case strings.HasPrefix(data, "lang:"):
		lang := strings.TrimPrefix(data, "lang:")
		b.sessions.SetLanguage(ctx, accountID, lang)
		b.sendKeyboard(accountID, lang, i18n.T(lang, "language_set"))
	case strings.HasPrefix(data, "iratio:"):
		b.setRatio(ctx, accountID, domain.KindImage, strings.TrimPrefix(data, "iratio:"))
	case strings.HasPrefix(data, "vratio:"):
		b.setRatio(ctx, accountID, domain.KindVideo, strings.TrimPrefix(data, "vratio:"))
	}
}

func (b *Bot) setRatio(ctx context.Context, accountID int64, kind domain.Kind, raw string) {
	ratio := domain.AspectRatio(raw)
	lang := b.sessions.Language(ctx, accountID)
	ok := false
	if kind == domain.KindVideo {
		ok = b.sessions.SetVideoRatio(ctx, accountID, ratio)
	} else {
		ok = b.sessions.SetImageRatio(ctx, accountID, ratio)
	}
	if ok {
		b.send(accountID, i18n.T(lang, "ratio_set", raw))
	}
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch file status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (b *Bot) sendWelcome(ctx context.Context, accountID int64, lang, firstName string) {
	if firstName == "" {
		firstName = "there"
	}
	b.sendKeyboard(accountID, lang, i18n.T(lang, "welcome", firstName, domain.InitialImageCredits, domain.InitialVideoCredits))
}

func (b *Bot) send(accountID int64, text string) {
	if err := b.notifier.Reply(context.Background(), accountID, text); err != nil {
		b.logger.Warn().Err(err).Int64("account", accountID).Msg("telegram: send failed")
	}
}

// sendKeyboard sends text together with the persistent main menu.
func (b *Bot) sendKeyboard(accountID int64, lang, text string) {
	msg := tgbotapi.NewMessage(b.chats.chatFor(accountID), text)
	msg.ReplyMarkup = mainKeyboard(lang)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn().Err(err).Int64("account", accountID).Msg("telegram: send failed")
	}
}

func mainKeyboard(lang string) tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(i18n.T(lang, "btn_generate_image")),
			tgbotapi.NewKeyboardButton(i18n.T(lang, "btn_generate_video")),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(i18n.T(lang, "btn_balance")),
			tgbotapi.NewKeyboardButton(i18n.T(lang, "btn_help")),
			tgbotapi.NewKeyboardButton(i18n.T(lang, "btn_settings")),
		),
	)
}

// menuActionFor matches a message against the menu button labels in every
// supported language, so a stale keyboard keeps working after a language
// switch.
func menuActionFor(text string) (conversation.MenuAction, bool) {
	labels := map[string]conversation.MenuAction{
		"btn_generate_image": conversation.ActionGenerateImage,
		"btn_generate_video": conversation.ActionGenerateVideo,
		"btn_balance":        conversation.ActionBalance,
		"btn_help":           conversation.ActionHelp,
		"btn_settings":       conversation.ActionSettings,
	}
	for _, lang := range []string{i18n.LangEnglish, i18n.LangAmharic} {
		for key, action := range labels {
			if text == i18n.T(lang, key) {
				return action, true
			}
		}
	}
	return "", false
}
