package bot

import (
	"context"
	"errors"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gift-roulette-backend/internal/payment"
)

// Gateway adapts the Telegram Bot API to the outbound surface the
// purchase flows consume, keeping the SDK out of the service layer.
type Gateway struct {
	api *tgbot.Bot
}

func NewGateway(api *tgbot.Bot) *Gateway {
	return &Gateway{api: api}
}

// CreateInvoiceLink issues a Telegram Stars invoice carrying the given
// payload token. Star invoices always have exactly one price row.
func (g *Gateway) CreateInvoiceLink(ctx context.Context, title, description, payloadToken string, amount int64) (string, error) {
	return g.api.CreateInvoiceLink(ctx, &tgbot.CreateInvoiceLinkParams{
		Title:       title,
		Description: description,
		Payload:     payloadToken,
		Currency:    payment.ExpectedCurrency,
		Prices: []models.LabeledPrice{
			{Label: fmt.Sprintf("%d ⭐", amount), Amount: int(amount)},
		},
	})
}

// SendGift transfers the gift with the given Telegram gift id to the user.
func (g *Gateway) SendGift(ctx context.Context, userID int64, giftID string) error {
	ok, err := g.api.SendGift(ctx, &tgbot.SendGiftParams{
		UserID: userID,
		GiftID: giftID,
	})
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("telegram declined the gift transfer")
	}
	return nil
}
