// Package bot runs the Telegram-facing side of the backend: the /start
// entry point and the payment callbacks (pre-checkout approval and the
// final successful-payment event) that drive the ledger.
package bot

import (
	"context"
	"errors"
	"fmt"

	tgbot "github.com/go-telegram/bot"

	"gift-roulette-backend/internal/service/ledger"
	"gift-roulette-backend/internal/service/purchase"
)

type Bot struct {
	api           *tgbot.Bot
	purchase      *purchase.Service
	ledger        *ledger.Service
	miniAppURL    string
	miniAppButton string
}

// New creates the bot around a long-polling client. Services are wired
// afterwards via Attach, which must happen before Start: the gateway the
// services need is built from this same client.
func New(token string) (*Bot, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is required")
	}

	b := &Bot{}
	api, err := tgbot.New(token, tgbot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	b.api = api

	api.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, b.handleStart)
	return b, nil
}

// Gateway exposes the outbound Telegram surface for the service layer.
func (b *Bot) Gateway() *Gateway {
	return NewGateway(b.api)
}

// Attach wires the services and mini-app settings the handlers use.
func (b *Bot) Attach(purchaseSvc *purchase.Service, ledgerSvc *ledger.Service, miniAppURL, miniAppButton string) {
	b.purchase = purchaseSvc
	b.ledger = ledgerSvc
	b.miniAppURL = miniAppURL
	b.miniAppButton = miniAppButton
}

// Start long-polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.api.Start(ctx)
}
