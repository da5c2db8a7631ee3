package purchase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gift-roulette-backend/internal/auth"
	"gift-roulette-backend/internal/payment"
)

var allowed = map[int64]struct{}{25: {}, 50: {}, 100: {}}

type fakeGateway struct {
	invoiceLink   string
	invoiceErr    error
	sentToken     string
	sentAmount    int64
	giftErr       error
	sentGiftID    string
	sentGiftCalls int
}

func (g *fakeGateway) CreateInvoiceLink(_ context.Context, _, _, payloadToken string, amount int64) (string, error) {
	g.sentToken = payloadToken
	g.sentAmount = amount
	if g.invoiceErr != nil {
		return "", g.invoiceErr
	}
	return g.invoiceLink, nil
}

func (g *fakeGateway) SendGift(_ context.Context, _ int64, giftID string) error {
	g.sentGiftCalls++
	g.sentGiftID = giftID
	return g.giftErr
}

type historyRow struct {
	userID    int64
	giftKey   string
	giftName  string
	spinPrice *int64
}

type fakeLedger struct {
	upserts    []int64
	sightings  []int64
	credits    map[int64]int64
	deliveries []historyRow
	upsertErr  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{credits: map[int64]int64{}}
}

func (l *fakeLedger) UpsertUser(_ context.Context, user *auth.User) error {
	if l.upsertErr != nil {
		return l.upsertErr
	}
	l.upserts = append(l.upserts, user.ID)
	return nil
}

func (l *fakeLedger) RecordSighting(user *auth.User) {
	l.sightings = append(l.sightings, user.ID)
}

func (l *fakeLedger) CreditSpend(_ context.Context, userID, amount int64) error {
	l.credits[userID] += amount
	return nil
}

func (l *fakeLedger) RecordGiftDelivery(_ context.Context, userID int64, giftKey, giftName string, spinPrice *int64) error {
	l.deliveries = append(l.deliveries, historyRow{userID: userID, giftKey: giftKey, giftName: giftName, spinPrice: spinPrice})
	return nil
}

func TestCreateInvoiceBuildsBoundPayload(t *testing.T) {
	gateway := &fakeGateway{invoiceLink: "https://t.me/invoice/test-link"}
	ledger := newFakeLedger()
	svc := New(gateway, ledger, allowed)

	link, err := svc.CreateInvoice(context.Background(), &auth.User{ID: 777}, 50)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/invoice/test-link", link)
	assert.Equal(t, int64(50), gateway.sentAmount)
	assert.Equal(t, []int64{777}, ledger.sightings)

	p, err := payment.ParsePayload(gateway.sentToken)
	require.NoError(t, err)
	assert.Equal(t, int64(50), p.Amount)
	assert.Equal(t, int64(777), p.UserID)
	assert.NotEmpty(t, p.CorrelationID, "invoices carry a correlation id for log matching")
}

func TestCreateInvoiceRejectsUnlistedAmount(t *testing.T) {
	gateway := &fakeGateway{}
	svc := New(gateway, newFakeLedger(), allowed)

	_, err := svc.CreateInvoice(context.Background(), &auth.User{ID: 777}, 51)
	assert.ErrorIs(t, err, ErrAmountNotAllowed)
	assert.Empty(t, gateway.sentToken)
}

func TestCreateInvoicePropagatesGatewayFailure(t *testing.T) {
	gateway := &fakeGateway{invoiceErr: errors.New("telegram down")}
	svc := New(gateway, newFakeLedger(), allowed)

	_, err := svc.CreateInvoice(context.Background(), &auth.User{ID: 777}, 50)
	assert.Error(t, err)
}

func TestDecidePreCheckoutAcceptsMatchingPayment(t *testing.T) {
	svc := New(&fakeGateway{}, newFakeLedger(), allowed)
	token := payment.BuildPayload(50, 777)

	assert.NoError(t, svc.DecidePreCheckout(token, "XTR", 50, 777))
}

func TestDecidePreCheckoutRejectsMismatchedPayer(t *testing.T) {
	svc := New(&fakeGateway{}, newFakeLedger(), allowed)
	token := payment.BuildPayload(50, 888)

	err := svc.DecidePreCheckout(token, "XTR", 50, 777)
	var rej *payment.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Платеж от другого пользователя.", rej.Message)
}

func TestDecidePreCheckoutRejectsUnparseablePayload(t *testing.T) {
	svc := New(&fakeGateway{}, newFakeLedger(), allowed)

	err := svc.DecidePreCheckout("not-json", "XTR", 50, 777)
	var rej *payment.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Некорректные данные платежа.", rej.Message)
}

func TestConfirmPaymentCreditsPayloadUser(t *testing.T) {
	ledger := newFakeLedger()
	svc := New(&fakeGateway{}, ledger, allowed)
	token := payment.BuildPayload(50, 777)

	payer := &auth.User{ID: 777, Username: "tester", FirstName: "Test"}
	require.NoError(t, svc.ConfirmPayment(context.Background(), token, payer, "charge-1"))

	assert.Equal(t, []int64{777}, ledger.upserts)
	assert.Equal(t, int64(50), ledger.credits[777])
}

func TestConfirmPaymentDropsInvalidPayload(t *testing.T) {
	ledger := newFakeLedger()
	svc := New(&fakeGateway{}, ledger, allowed)

	err := svc.ConfirmPayment(context.Background(), "not-json", &auth.User{ID: 777}, "charge-1")
	assert.ErrorIs(t, err, payment.ErrInvalidPayload)
	assert.Empty(t, ledger.upserts)
	assert.Empty(t, ledger.credits)
}

func TestAwardGiftDeliversAndRecordsHistory(t *testing.T) {
	gateway := &fakeGateway{}
	ledger := newFakeLedger()
	svc := New(gateway, ledger, allowed)
	spinPrice := int64(50)

	require.NoError(t, svc.AwardGift(context.Background(), &auth.User{ID: 777}, "rose", &spinPrice))

	assert.Equal(t, 1, gateway.sentGiftCalls)
	assert.Equal(t, "5168103777563050263", gateway.sentGiftID)
	require.Len(t, ledger.deliveries, 1)
	assert.Equal(t, historyRow{userID: 777, giftKey: "rose", giftName: "Rose", spinPrice: &spinPrice}, ledger.deliveries[0])
}

func TestAwardGiftRejectsUnknownKey(t *testing.T) {
	gateway := &fakeGateway{}
	ledger := newFakeLedger()
	svc := New(gateway, ledger, allowed)

	err := svc.AwardGift(context.Background(), &auth.User{ID: 777}, "unicorn", nil)
	assert.ErrorIs(t, err, ErrGiftNotSupported)
	assert.Zero(t, gateway.sentGiftCalls)
	assert.Empty(t, ledger.deliveries)
}

func TestAwardGiftWritesNoHistoryWhenSendFails(t *testing.T) {
	gateway := &fakeGateway{giftErr: errors.New("telegram down")}
	ledger := newFakeLedger()
	svc := New(gateway, ledger, allowed)

	err := svc.AwardGift(context.Background(), &auth.User{ID: 777}, "rose", nil)
	assert.Error(t, err)
	assert.Empty(t, ledger.deliveries, "failed transfer must leave zero history rows")
}
