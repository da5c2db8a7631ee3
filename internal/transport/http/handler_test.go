package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"gift-roulette-backend/internal/common/config"
	"gift-roulette-backend/internal/service/ledger"
	"gift-roulette-backend/internal/service/purchase"
	"gift-roulette-backend/internal/storage/sqlite"
	"gift-roulette-backend/internal/worker"
)

const testBotToken = "7342037359:AAGGLkqurGbvHNLazvRiX9v4TdC2T_Pc44w"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGateway struct {
	invoiceCalls int
	giftCalls    int
	giftErr      error
}

func (g *fakeGateway) CreateInvoiceLink(context.Context, string, string, string, int64) (string, error) {
	g.invoiceCalls++
	return "https://t.me/invoice/test-link", nil
}

func (g *fakeGateway) SendGift(context.Context, int64, string) error {
	g.giftCalls++
	return g.giftErr
}

type testEnv struct {
	router  *gin.Engine
	store   *sqlite.Store
	gateway *fakeGateway
	pool    *worker.Pool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pool := worker.NewPool()
	gateway := &fakeGateway{}

	ledgerSvc := ledger.New(store, nil, pool)
	purchaseSvc := purchase.New(gateway, ledgerSvc, config.AllowedPrices)
	handler := NewHandler(testBotToken, 24*time.Hour, config.AllowedPrices, ledgerSvc, purchaseSvc)

	return &testEnv{
		router:  NewRouter(handler, nil),
		store:   store,
		gateway: gateway,
		pool:    pool,
	}
}

func signedInitData(t *testing.T, userJSON string) string {
	t.Helper()
	now := time.Now()
	payload := map[string]string{"user": userJSON}
	hash := initdata.Sign(payload, testBotToken, now)

	q := url.Values{}
	q.Set("user", userJSON)
	q.Set("auth_date", strconv.FormatInt(now.Unix(), 10))
	q.Set("hash", hash)
	return q.Encode()
}

func (e *testEnv) do(t *testing.T, method, target, body, initData string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if initData != "" {
		req.Header.Set("X-Telegram-Init-Data", initData)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestInvoiceEndpointReturnsLink(t *testing.T) {
	env := newTestEnv(t)
	creds := signedInitData(t, `{"id":777,"username":"tester"}`)

	rec := env.do(t, http.MethodGet, "/api/invoice?amount=50", "", creds)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "https://t.me/invoice/test-link", body["invoice_link"])
	assert.Equal(t, "https://t.me/invoice/test-link", body["invoiceLink"])
	assert.Equal(t, 1, env.gateway.invoiceCalls)
}

func TestInvoiceEndpointRejectsNonNumericAmount(t *testing.T) {
	env := newTestEnv(t)
	creds := signedInitData(t, `{"id":777}`)

	rec := env.do(t, http.MethodGet, "/api/invoice?amount=not-a-number", "", creds)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_amount", decodeBody(t, rec)["error"])
}

func TestInvoiceEndpointRejectsUnlistedAmount(t *testing.T) {
	env := newTestEnv(t)
	creds := signedInitData(t, `{"id":777}`)

	rec := env.do(t, http.MethodGet, "/api/invoice?amount=51", "", creds)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_amount", decodeBody(t, rec)["error"])
	assert.Zero(t, env.gateway.invoiceCalls)
}

func TestInvoiceEndpointRejectsMissingInitData(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/invoice?amount=50", "", "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_init_data", decodeBody(t, rec)["error"])
}

func TestInvoiceEndpointRejectsForgedInitData(t *testing.T) {
	env := newTestEnv(t)
	creds := signedInitData(t, `{"id":777}`)
	forged := strings.Replace(creds, "777", "888", 1)

	rec := env.do(t, http.MethodGet, "/api/invoice?amount=50", "", forged)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_init_data", decodeBody(t, rec)["error"])
}

func TestInvoiceEndpointAcceptsInitDataFromQuery(t *testing.T) {
	env := newTestEnv(t)
	creds := signedInitData(t, `{"id":777}`)

	target := "/api/invoice?amount=50&init_data=" + url.QueryEscape(creds)
	rec := env.do(t, http.MethodGet, target, "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLeaderboardEndpointRanksBySpend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.AddSpentStars(ctx, 2, 100))
	require.NoError(t, env.store.AddSpentStars(ctx, 1, 100))
	require.NoError(t, env.store.AddSpentStars(ctx, 3, 50))

	creds := signedInitData(t, `{"id":777}`)
	rec := env.do(t, http.MethodGet, "/api/leaderboard?limit=2&offset=0", "", creds)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Leaderboard []sqlite.LeaderboardEntry `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Leaderboard, 2)
	assert.Equal(t, int64(1), body.Leaderboard[0].UserID)
	assert.Equal(t, int64(2), body.Leaderboard[1].UserID)
}

func TestLeaderboardEndpointRejectsBadPagination(t *testing.T) {
	env := newTestEnv(t)
	creds := signedInitData(t, `{"id":777}`)

	for _, target := range []string{
		"/api/leaderboard?limit=0",
		"/api/leaderboard?limit=101",
		"/api/leaderboard?offset=-1",
		"/api/leaderboard?limit=abc",
	} {
		rec := env.do(t, http.MethodGet, target, "", creds)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "invalid_pagination", decodeBody(t, rec)["error"], target)
	}
}

func TestHistoryEndpointIsScopedToCaller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.AddActionHistory(ctx, 777, sqlite.ActionWon, "rose", "Rose", nil))
	require.NoError(t, env.store.AddActionHistory(ctx, 888, sqlite.ActionWon, "cake", "Cake", nil))

	creds := signedInitData(t, `{"id":777}`)
	rec := env.do(t, http.MethodGet, "/api/history", "", creds)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		History []sqlite.ActionEntry `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.History, 1)
	assert.Equal(t, "rose", body.History[0].GiftKey)
}

func TestRouletteWinDeliversGiftAndRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	creds := signedInitData(t, `{"id":777}`)

	rec := env.do(t, http.MethodPost, "/api/roulette/win", `{"gift_key":"rose","spin_price":50}`, creds)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])
	assert.Equal(t, 1, env.gateway.giftCalls)

	entries, err := env.store.GetActionHistory(context.Background(), 777, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, sqlite.ActionReceived, entries[0].Type)
	assert.Equal(t, sqlite.ActionWon, entries[1].Type)
}

func TestRouletteWinRejectsUnknownGift(t *testing.T) {
	env := newTestEnv(t)
	creds := signedInitData(t, `{"id":777}`)

	rec := env.do(t, http.MethodPost, "/api/roulette/win", `{"gift_key":"unicorn"}`, creds)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "gift_not_supported", decodeBody(t, rec)["error"])
	assert.Zero(t, env.gateway.giftCalls)
}

func TestRouletteWinLeavesNoHistoryWhenSendFails(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.giftErr = errors.New("telegram down")
	creds := signedInitData(t, `{"id":777}`)

	rec := env.do(t, http.MethodPost, "/api/roulette/win", `{"gift_key":"rose"}`, creds)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "gift_send_failed", decodeBody(t, rec)["error"])

	entries, err := env.store.GetActionHistory(context.Background(), 777, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRouletteWinValidatesBodyTypes(t *testing.T) {
	env := newTestEnv(t)
	creds := signedInitData(t, `{"id":777}`)

	cases := []struct {
		name     string
		body     string
		wantCode string
	}{
		{name: "missing gift_key", body: `{}`, wantCode: "invalid_gift_key"},
		{name: "empty gift_key", body: `{"gift_key":""}`, wantCode: "invalid_gift_key"},
		{name: "numeric gift_key", body: `{"gift_key":42}`, wantCode: "invalid_gift_key"},
		{name: "zero spin_price", body: `{"gift_key":"rose","spin_price":0}`, wantCode: "invalid_spin_price"},
		{name: "negative spin_price", body: `{"gift_key":"rose","spin_price":-5}`, wantCode: "invalid_spin_price"},
		{name: "string spin_price", body: `{"gift_key":"rose","spin_price":"50"}`, wantCode: "invalid_spin_price"},
		{name: "numeric init_data", body: `{"gift_key":"rose","init_data":5}`, wantCode: "invalid_init_data"},
		{name: "broken json", body: `{"gift_key":`, wantCode: "invalid_json"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/roulette/win", tc.body, creds)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.wantCode, decodeBody(t, rec)["error"])
		})
	}
}
