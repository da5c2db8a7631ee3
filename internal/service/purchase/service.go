// Package purchase implements the economic flows: issuing Stars
// invoices, deciding pre-checkout queries, crediting confirmed payments
// and delivering won gifts.
package purchase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"gift-roulette-backend/internal/auth"
	"gift-roulette-backend/internal/common/apperr"
	"gift-roulette-backend/internal/common/logger"
	"gift-roulette-backend/internal/gifts"
	"gift-roulette-backend/internal/payment"
)

var (
	ErrAmountNotAllowed = errors.New("amount is not sellable")
	ErrGiftNotSupported = errors.New("gift is not in the catalog")
)

// TelegramGateway is the outbound Telegram surface the flows need. The
// bot transport implements it; tests substitute fakes.
type TelegramGateway interface {
	CreateInvoiceLink(ctx context.Context, title, description, payloadToken string, amount int64) (string, error)
	SendGift(ctx context.Context, userID int64, giftID string) error
}

// Ledger is the slice of the ledger service the flows drive.
type Ledger interface {
	UpsertUser(ctx context.Context, user *auth.User) error
	RecordSighting(user *auth.User)
	CreditSpend(ctx context.Context, userID, amount int64) error
	RecordGiftDelivery(ctx context.Context, userID int64, giftKey, giftName string, spinPrice *int64) error
}

type Service struct {
	gateway        TelegramGateway
	ledger         Ledger
	allowedAmounts map[int64]struct{}
}

func New(gateway TelegramGateway, ledger Ledger, allowedAmounts map[int64]struct{}) *Service {
	return &Service{
		gateway:        gateway,
		ledger:         ledger,
		allowedAmounts: allowedAmounts,
	}
}

// CreateInvoice issues a Stars invoice link for the authenticated user.
// The payload ties the eventual payment back to this user and amount;
// the correlation id only serves log correlation later.
func (s *Service) CreateInvoice(ctx context.Context, user *auth.User, amount int64) (string, error) {
	if _, ok := s.allowedAmounts[amount]; !ok {
		return "", ErrAmountNotAllowed
	}

	s.ledger.RecordSighting(user)

	correlationID := uuid.NewString()
	token := payment.BuildPayload(amount, user.ID, payment.WithCorrelationID(correlationID))

	link, err := s.gateway.CreateInvoiceLink(ctx,
		"Random Gift",
		fmt.Sprintf("Покупка подарка за %d звезд.", amount),
		token,
		amount,
	)
	if err != nil {
		logger.Error().
			Err(err).
			Int64("user_id", user.ID).
			Int64("amount", amount).
			Str("correlation_id", correlationID).
			Msg("invoice creation failed")
		return "", apperr.Wrap(err, apperr.CodeTelegramAPI, "failed to create invoice link")
	}

	logger.Info().
		Int64("user_id", user.ID).
		Int64("amount", amount).
		Str("correlation_id", correlationID).
		Msg("invoice link created")
	return link, nil
}

// DecidePreCheckout answers whether a pending payment should go through.
// A nil return accepts; a *payment.RejectionError carries the message
// shown to the paying user.
func (s *Service) DecidePreCheckout(token, currency string, totalAmount, payerID int64) error {
	p, err := payment.ParsePayload(token)
	if err != nil {
		return &payment.RejectionError{Message: "Некорректные данные платежа."}
	}
	return payment.Validate(p, s.allowedAmounts, currency, payment.ExpectedCurrency, totalAmount, payerID)
}

// ConfirmPayment applies a successful payment to the ledger: the payer's
// profile is refreshed and the payload's user is credited with the
// payload's amount. chargeID is the platform's charge identifier, used
// as the correlation fallback.
func (s *Service) ConfirmPayment(ctx context.Context, token string, payer *auth.User, chargeID string) error {
	p, err := payment.ParsePayload(token)
	if err != nil {
		logger.Warn().
			Int64("payer_id", payer.ID).
			Msg("successful payment carried an invalid payload")
		return err
	}

	correlationID := p.CorrelationID
	if correlationID == "" {
		correlationID = chargeID
	}
	logger.Info().
		Int64("user_id", p.UserID).
		Int64("amount", p.Amount).
		Str("payload_id", p.ID).
		Str("correlation_id", correlationID).
		Msg("successful payment received")

	if err := s.ledger.UpsertUser(ctx, payer); err != nil {
		return err
	}
	return s.ledger.CreditSpend(ctx, p.UserID, p.Amount)
}

// AwardGift transfers the won gift to the user and records the WON and
// RECEIVED history pair. A failed transfer writes no history at all.
func (s *Service) AwardGift(ctx context.Context, user *auth.User, giftKey string, spinPrice *int64) error {
	gift, ok := gifts.Lookup(giftKey)
	if !ok {
		logger.Warn().Str("gift_key", giftKey).Msg("gift not supported")
		return ErrGiftNotSupported
	}

	if err := s.ledger.UpsertUser(ctx, user); err != nil {
		return err
	}

	if err := s.gateway.SendGift(ctx, user.ID, gift.GiftID); err != nil {
		logger.Error().
			Err(err).
			Int64("user_id", user.ID).
			Str("gift_key", giftKey).
			Str("gift_name", gift.Name).
			Msg("gift send failed")
		return apperr.Wrap(err, apperr.CodeTelegramAPI, "failed to send gift")
	}

	if err := s.ledger.RecordGiftDelivery(ctx, user.ID, giftKey, gift.Name, spinPrice); err != nil {
		return err
	}

	logger.Info().
		Int64("user_id", user.ID).
		Str("gift_key", giftKey).
		Str("gift_name", gift.Name).
		Str("gift_id", gift.GiftID).
		Msg("gift sent")
	return nil
}
