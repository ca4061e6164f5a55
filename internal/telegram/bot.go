// Package telegram runs the clarification dialogue as a Telegram bot. Each
// chat has one session: a photo starts it, text asks questions or clarifies,
// and offered options arrive as inline keyboard buttons.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/scene-clarify/internal/dialogue"
	"github.com/ziadkadry99/scene-clarify/internal/llm"
	"github.com/ziadkadry99/scene-clarify/internal/logging"
	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	GetFileDirectURL(fileID string) (string, error)
}

const (
	helpText = "Send me a photo, then ask a question about it. " +
		"If the question could mean several things I'll ask which one you mean.\n\n" +
		"/onepass <question> answers straight away without clarifying\n" +
		"/reset forgets the current photo"
	noPhotoText    = "Send me a photo first."
	resetText      = "Okay, I've forgotten that photo."
	turnLimitText  = "That's as far as I can go with this photo. Send /reset or a new photo to start over."
	staleText      = "That option is no longer available. Ask your question again."
	extractingText = "Looking at the photo..."
	failureText    = "Something went wrong, please try again."
)

// Config configures a Bot.
type Config struct {
	PollTimeout int // long polling timeout in seconds
	Logger      *zap.Logger
}

// Bot answers Telegram updates with the dialogue service.
type Bot struct {
	api       API
	svc       *dialogue.Service
	extractor dialogue.SceneExtractor
	cfg       Config
	logger    *zap.Logger
	client    *http.Client
}

// New creates a bot. extractor is required to accept photos.
func New(api API, svc *dialogue.Service, extractor dialogue.SceneExtractor, cfg Config) *Bot {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30
	}
	return &Bot{
		api:       api,
		svc:       svc,
		extractor: extractor,
		cfg:       cfg,
		logger:    logging.OrNop(cfg.Logger).Named("telegram"),
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

// SessionID is the dialogue session that belongs to a chat.
func SessionID(chatID int64) string {
	return "tg-" + strconv.FormatInt(chatID, 10)
}

// Run long-polls for updates until ctx is cancelled. Updates are handled one
// at a time, in order.
func (b *Bot) Run(ctx context.Context) error {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = b.cfg.PollTimeout

		updates, err := b.api.GetUpdates(u)
		if err != nil {
			d := retryDelay(err)
			b.logger.Warn("polling failed", zap.Error(err), zap.Duration("retry_in", d))
			if !sleep(ctx, d) {
				return nil
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			b.Handle(ctx, upd)
		}

		if len(updates) == 0 && !sleep(ctx, 200*time.Millisecond) {
			return nil
		}
	}
}

// Handle processes a single update.
func (b *Bot) Handle(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message == nil || upd.Message.Chat == nil:
		return
	case upd.Message.IsCommand():
		b.handleCommand(ctx, upd.Message)
	case len(upd.Message.Photo) > 0:
		b.handlePhoto(ctx, upd.Message)
	case strings.TrimSpace(upd.Message.Text) != "":
		b.handleText(ctx, upd.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		b.send(chatID, helpText, nil)
	case "reset":
		if err := b.svc.EndSession(ctx, SessionID(chatID)); err != nil && !errors.Is(err, dialogue.ErrSessionNotFound) {
			b.fail(chatID, err)
			return
		}
		b.send(chatID, resetText, nil)
	case "onepass":
		question := strings.TrimSpace(msg.CommandArguments())
		if question == "" {
			b.send(chatID, "Usage: /onepass <question>", nil)
			return
		}
		b.turn(ctx, chatID, dialogue.TurnRequest{Mode: dialogue.ModeOnePass, Question: question})
	default:
		b.send(chatID, "Unknown command. Send /start for help.", nil)
	}
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if b.extractor == nil {
		b.send(chatID, "Photo analysis is not configured.", nil)
		return
	}
	b.send(chatID, extractingText, nil)

	// The last size is the largest.
	photo := msg.Photo[len(msg.Photo)-1]
	img, err := b.downloadPhoto(ctx, photo.FileID)
	if err != nil {
		b.fail(chatID, err)
		return
	}
	sceneJSON, err := b.extractor.Extract(ctx, img)
	if err != nil {
		b.fail(chatID, err)
		return
	}
	if _, err := b.svc.StartSessionWithID(ctx, SessionID(chatID), sceneJSON, img.DataURL()); err != nil {
		b.fail(chatID, err)
		return
	}

	if caption := strings.TrimSpace(msg.Caption); caption != "" {
		b.turn(ctx, chatID, dialogue.TurnRequest{Mode: dialogue.ModeIterative, Question: caption})
		return
	}
	b.send(chatID, sceneSummary(sceneJSON), nil)
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	sess, err := b.svc.Session(ctx, SessionID(chatID))
	if errors.Is(err, dialogue.ErrSessionNotFound) {
		b.send(chatID, noPhotoText, nil)
		return
	}
	if err != nil {
		b.fail(chatID, err)
		return
	}

	req := dialogue.TurnRequest{Mode: dialogue.ModeIterative}
	if awaitingChoice(sess) {
		req.Clarification = text
	} else {
		req.Question = text
	}
	b.turn(ctx, chatID, req)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Debug("callback ack failed", zap.Error(err))
	}
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	// Drop the keyboard so old options cannot be pressed twice.
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Debug("removing keyboard failed", zap.Error(err))
	}

	b.turn(ctx, chatID, dialogue.TurnRequest{Mode: dialogue.ModeIterative, OptionID: cb.Data})
}

// turn runs req against the chat's session and sends the reply.
func (b *Bot) turn(ctx context.Context, chatID int64, req dialogue.TurnRequest) {
	req.SessionID = SessionID(chatID)
	resp, err := b.svc.Turn(ctx, req)
	switch {
	case err == nil:
		text, markup := FormatReply(resp)
		b.send(chatID, text, markup)
	case errors.Is(err, dialogue.ErrSessionNotFound):
		b.send(chatID, noPhotoText, nil)
	case errors.Is(err, dialogue.ErrTurnLimit):
		b.send(chatID, turnLimitText, nil)
	case req.OptionID != "" && errors.Is(err, dialogue.ErrPrecondition):
		b.send(chatID, staleText, nil)
	default:
		b.fail(chatID, err)
	}
}

// FormatReply renders a turn as message text plus an optional keyboard with
// one button per offered option.
func FormatReply(resp *dialogue.TurnResponse) (string, *tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString(resp.Answer)
	if resp.Mode == dialogue.ModeOnePass {
		if resp.AmbiguityNote != "" {
			sb.WriteString("\n\n(" + resp.AmbiguityNote + ")")
		}
		return sb.String(), nil
	}
	if resp.FollowUpQuestion != "" {
		sb.WriteString("\n\n" + resp.FollowUpQuestion)
	}
	if len(resp.Options) == 0 {
		return sb.String(), nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(resp.Options))
	for _, opt := range resp.Options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(opt.Label, opt.ID),
		))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return sb.String(), &markup
}

// awaitingChoice reports whether the last turn offered referents to pick from.
func awaitingChoice(sess *dialogue.Session) bool {
	return sess.State.SelectedCandidate == nil && len(sess.Options) > 0
}

func sceneSummary(sceneJSON string) string {
	s, err := scene.Parse(sceneJSON)
	if err != nil || len(s.Objects) == 0 {
		return "I couldn't make out any objects, but you can still ask about the photo."
	}
	names := make([]string, 0, 5)
	for i, o := range s.Objects {
		if i == 5 {
			names = append(names, "...")
			break
		}
		names = append(names, o.Name)
	}
	return fmt.Sprintf("I can see %d object(s): %s. What would you like to know?",
		len(s.Objects), strings.Join(names, ", "))
}

func (b *Bot) downloadPhoto(ctx context.Context, fileID string) (llm.Image, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return llm.Image{}, fmt.Errorf("resolving photo: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return llm.Image{}, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return llm.Image{}, fmt.Errorf("downloading photo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return llm.Image{}, fmt.Errorf("downloading photo: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Image{}, fmt.Errorf("downloading photo: %w", err)
	}
	return llm.Image{MIMEType: llm.SniffMIME(data), Data: data}, nil
}

func (b *Bot) send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) fail(chatID int64, err error) {
	b.logger.Warn("update failed", zap.Int64("chat_id", chatID), zap.Error(err))
	b.send(chatID, failureText, nil)
}

// sleep waits for d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
