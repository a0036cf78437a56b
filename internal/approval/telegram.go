package approval

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	callbackApprove = "approve"
	callbackReject  = "reject"
)

// TelegramApprover surfaces proposed replies to an operator chat with an
// inline Approve/Reject keyboard. Replying to the review message substitutes
// the operator's text and approves. Reviews are serialized: one pending
// decision at a time, so callback routing stays unambiguous.
type TelegramApprover struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	timeout time.Duration
	logger  *zap.Logger
	updates tgbotapi.UpdatesChannel
	pending chan struct{}
}

func NewTelegramApprover(token string, chatID int64, timeout time.Duration, logger *zap.Logger) (*TelegramApprover, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create approval bot: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	approver := &TelegramApprover{
		api:     api,
		chatID:  chatID,
		timeout: timeout,
		logger:  logger,
		updates: api.GetUpdatesChan(u),
		pending: make(chan struct{}, 1),
	}
	return approver, nil
}

func (a *TelegramApprover) Review(ctx context.Context, mention models.Mention, decision models.Decision) (Verdict, error) {
	select {
	case a.pending <- struct{}{}:
		defer func() { <-a.pending }()
	case <-ctx.Done():
		return Verdict{}, ctx.Err()
	}

	sent, err := a.sendReviewMessage(mention, decision)
	if err != nil {
		return Verdict{}, err
	}

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Verdict{}, ctx.Err()
		case <-timer.C:
			a.logger.Warn("Approval timed out, rejecting reply",
				zap.String("mention", mention.Key().String()))
			a.notify("⏰ Review timed out, reply suppressed.")
			return Verdict{Approved: false, Text: decision.Text}, nil
		case update := <-a.updates:
			if verdict, done := a.handleUpdate(update, sent.MessageID, decision); done {
				return verdict, nil
			}
		}
	}
}

func (a *TelegramApprover) handleUpdate(update tgbotapi.Update, reviewMessageID int, decision models.Decision) (Verdict, bool) {
	if update.CallbackQuery != nil {
		callback := update.CallbackQuery
		if callback.Message == nil || callback.Message.MessageID != reviewMessageID {
			return Verdict{}, false
		}
		if _, err := a.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
			a.logger.Warn("Failed to answer callback query", zap.Error(err))
		}
		switch callback.Data {
		case callbackApprove:
			a.notify("✅ Reply approved.")
			return Verdict{Approved: true, Text: decision.Text}, true
		case callbackReject:
			a.notify("❌ Reply rejected.")
			return Verdict{Approved: false, Text: decision.Text}, true
		}
		return Verdict{}, false
	}

	// A reply to the review message substitutes the operator's own text.
	if update.Message != nil &&
		update.Message.ReplyToMessage != nil &&
		update.Message.ReplyToMessage.MessageID == reviewMessageID &&
		strings.TrimSpace(update.Message.Text) != "" {
		a.notify("✏️ Edited reply approved.")
		return Verdict{Approved: true, Text: strings.TrimSpace(update.Message.Text)}, true
	}

	return Verdict{}, false
}

func (a *TelegramApprover) sendReviewMessage(mention models.Mention, decision models.Decision) (tgbotapi.Message, error) {
	text := fmt.Sprintf("*New %s mention by* %s\n_%s_\n\n*Proposed reply \\(%s\\):*\n%s\n\nReply to this message to substitute your own text\\.",
		escapeMarkdown(string(mention.Platform)),
		escapeMarkdown(mention.Author),
		escapeMarkdown(truncate(mention.Content, 400)),
		escapeMarkdown(string(decision.Provenance)),
		escapeMarkdown(decision.Text))

	msg := tgbotapi.NewMessage(a.chatID, text)
	msg.ParseMode = "MarkdownV2"
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", callbackApprove),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", callbackReject),
		),
	)

	sent, err := a.api.Send(msg)
	if err != nil {
		return tgbotapi.Message{}, fmt.Errorf("failed to send review message: %w", err)
	}
	return sent, nil
}

func (a *TelegramApprover) notify(text string) {
	msg := tgbotapi.NewMessage(a.chatID, text)
	if _, err := a.api.Send(msg); err != nil {
		a.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", a.chatID))
	}
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	// Telegram rejects messages with invalid UTF-8, so never split a rune.
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// escapeMarkdown escapes special characters for MarkdownV2.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}
