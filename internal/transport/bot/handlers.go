package bot

import (
	"context"
	"errors"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gift-roulette-backend/internal/auth"
	"gift-roulette-backend/internal/common/logger"
	"gift-roulette-backend/internal/payment"
)

const startGreeting = "Привет! 🎁\n" +
	"Жми на кнопку ниже, чтобы открыть мини-приложение и забрать подарки."

func identityOf(u *models.User) *auth.User {
	return &auth.User{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func (b *Bot) startKeyboard() models.ReplyMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: b.miniAppButton, WebApp: &models.WebAppInfo{URL: b.miniAppURL}},
			},
		},
	}
}

// handleStart records the user's sighting and opens the mini-app.
func (b *Bot) handleStart(ctx context.Context, api *tgbot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	if err := b.ledger.UpsertUser(ctx, identityOf(update.Message.From)); err != nil {
		logger.Error().
			Err(err).
			Int64("user_id", update.Message.From.ID).
			Msg("start: user upsert failed")
	}

	params := &tgbot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   startGreeting,
	}
	if b.miniAppURL != "" {
		params.ReplyMarkup = b.startKeyboard()
	}
	if _, err := api.SendMessage(ctx, params); err != nil {
		logger.Error().
			Err(err).
			Int64("chat_id", update.Message.Chat.ID).
			Msg("start: greeting failed")
	}
}

// handleUpdate dispatches the payment-related updates the default
// handler receives: pre-checkout queries and successful payments.
func (b *Bot) handleUpdate(ctx context.Context, api *tgbot.Bot, update *models.Update) {
	switch {
	case update.PreCheckoutQuery != nil:
		b.handlePreCheckout(ctx, api, update.PreCheckoutQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		b.handleSuccessfulPayment(ctx, update.Message)
	}
}

func (b *Bot) handlePreCheckout(ctx context.Context, api *tgbot.Bot, q *models.PreCheckoutQuery) {
	logger.Info().
		Str("query_id", q.ID).
		Int64("user_id", q.From.ID).
		Str("currency", q.Currency).
		Int("total_amount", q.TotalAmount).
		Msg("pre-checkout query received")

	err := b.purchase.DecidePreCheckout(q.InvoicePayload, q.Currency, int64(q.TotalAmount), q.From.ID)

	params := &tgbot.AnswerPreCheckoutQueryParams{
		PreCheckoutQueryID: q.ID,
		OK:                 err == nil,
	}
	if err != nil {
		var rej *payment.RejectionError
		if errors.As(err, &rej) {
			params.ErrorMessage = rej.Message
		} else {
			params.ErrorMessage = "Некорректные данные платежа."
		}
		logger.Warn().
			Str("query_id", q.ID).
			Int64("user_id", q.From.ID).
			Str("reason", params.ErrorMessage).
			Msg("pre-checkout query rejected")
	}

	if _, err := api.AnswerPreCheckoutQuery(ctx, params); err != nil {
		logger.Error().
			Err(err).
			Str("query_id", q.ID).
			Msg("failed to answer pre-checkout query")
	}
}

func (b *Bot) handleSuccessfulPayment(ctx context.Context, msg *models.Message) {
	if msg.From == nil {
		return
	}

	sp := msg.SuccessfulPayment
	err := b.purchase.ConfirmPayment(ctx, sp.InvoicePayload, identityOf(msg.From), sp.TelegramPaymentChargeID)
	if err != nil {
		// Crediting failures must stay loud: a lost spend credit is
		// worse than a visible error.
		logger.Error().
			Err(err).
			Int64("user_id", msg.From.ID).
			Str("charge_id", sp.TelegramPaymentChargeID).
			Msg("failed to apply successful payment")
	}
}
