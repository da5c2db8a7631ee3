// Package http exposes the mini-app API: invoice creation, leaderboard,
// gift history and roulette win reporting. Every route except /health
// requires verified Telegram init data; verification failures are
// answered uniformly so a client cannot probe which check failed.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gift-roulette-backend/internal/auth"
	"gift-roulette-backend/internal/common/apperr"
	"gift-roulette-backend/internal/common/logger"
	"gift-roulette-backend/internal/service/ledger"
	"gift-roulette-backend/internal/service/purchase"
)

type Handler struct {
	botToken       string
	initDataMaxAge time.Duration
	allowedAmounts map[int64]struct{}
	ledger         *ledger.Service
	purchase       *purchase.Service
}

func NewHandler(botToken string, initDataMaxAge time.Duration, allowedAmounts map[int64]struct{}, ledgerSvc *ledger.Service, purchaseSvc *purchase.Service) *Handler {
	return &Handler{
		botToken:       botToken,
		initDataMaxAge: initDataMaxAge,
		allowedAmounts: allowedAmounts,
		ledger:         ledgerSvc,
		purchase:       purchaseSvc,
	}
}

func jsonError(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}

// authenticate resolves init data from the X-Telegram-Init-Data header
// first, then from the route-specific fallback (query or body field),
// and verifies it. All failures collapse into one 401 body.
func (h *Handler) authenticate(c *gin.Context, fallback string) (*auth.User, bool) {
	raw := c.GetHeader("X-Telegram-Init-Data")
	if raw == "" {
		raw = fallback
	}
	if raw == "" {
		jsonError(c, http.StatusUnauthorized, "invalid_init_data")
		return nil, false
	}

	fields, err := auth.Verify(raw, h.botToken, h.initDataMaxAge)
	if err != nil {
		jsonError(c, http.StatusUnauthorized, "invalid_init_data")
		return nil, false
	}
	user, err := fields.User()
	if err != nil {
		jsonError(c, http.StatusUnauthorized, "invalid_init_data")
		return nil, false
	}
	return user, true
}

func pagination(c *gin.Context, defaultLimit int) (limit, offset int, ok bool) {
	limitRaw := c.DefaultQuery("limit", strconv.Itoa(defaultLimit))
	offsetRaw := c.DefaultQuery("offset", "0")

	limit, err := strconv.Atoi(limitRaw)
	if err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_pagination")
		return 0, 0, false
	}
	offset, err = strconv.Atoi(offsetRaw)
	if err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_pagination")
		return 0, 0, false
	}
	if limit < 1 || limit > 100 || offset < 0 {
		jsonError(c, http.StatusBadRequest, "invalid_pagination")
		return 0, 0, false
	}
	return limit, offset, true
}

// GetInvoice handles GET /api/invoice?amount=N.
func (h *Handler) GetInvoice(c *gin.Context) {
	amountRaw, ok := c.GetQuery("amount")
	if !ok {
		jsonError(c, http.StatusBadRequest, "invalid_amount")
		return
	}
	amount, err := strconv.ParseInt(amountRaw, 10, 64)
	if err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_amount")
		return
	}
	// Priced before authenticated: an unlisted amount is rejected even
	// when the credential itself would not pass.
	if _, allowed := h.allowedAmounts[amount]; !allowed {
		jsonError(c, http.StatusBadRequest, "invalid_amount")
		return
	}

	user, ok := h.authenticate(c, c.Query("init_data"))
	if !ok {
		return
	}

	link, err := h.purchase.CreateInvoice(c.Request.Context(), user, amount)
	switch {
	case errors.Is(err, purchase.ErrAmountNotAllowed):
		jsonError(c, http.StatusBadRequest, "invalid_amount")
		return
	case err != nil:
		jsonError(c, http.StatusInternalServerError, "invoice_creation_failed")
		return
	}

	// Оба варианта ключа — для совместимости с фронтендом
	c.JSON(http.StatusOK, gin.H{
		"invoice_link": link,
		"invoiceLink":  link,
	})
}

// GetLeaderboard handles GET /api/leaderboard.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	user, ok := h.authenticate(c, c.Query("init_data"))
	if !ok {
		return
	}
	limit, offset, ok := pagination(c, 50)
	if !ok {
		return
	}

	h.ledger.RecordSighting(user)

	entries, err := h.ledger.Leaderboard(c.Request.Context(), limit, offset)
	if err != nil {
		logger.Error().Err(err).Msg("leaderboard query failed")
		jsonError(c, http.StatusInternalServerError, "internal_error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": entries,
		"pagination":  gin.H{"limit": limit, "offset": offset},
	})
}

// GetActionHistory handles GET /api/history for the authenticated user.
func (h *Handler) GetActionHistory(c *gin.Context) {
	user, ok := h.authenticate(c, c.Query("init_data"))
	if !ok {
		return
	}
	limit, offset, ok := pagination(c, 100)
	if !ok {
		return
	}

	h.ledger.RecordSighting(user)

	entries, err := h.ledger.History(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		logger.Error().Err(err).Msg("action history query failed")
		jsonError(c, http.StatusInternalServerError, "internal_error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history":    entries,
		"pagination": gin.H{"limit": limit, "offset": offset},
	})
}

type winRequest struct {
	GiftKey   json.RawMessage `json:"gift_key"`
	SpinPrice json.RawMessage `json:"spin_price"`
	InitData  json.RawMessage `json:"init_data"`
}

// PostRouletteWin handles POST /api/roulette/win: the mini-app reports a
// roulette result and the backend transfers the gift before recording it.
func (h *Handler) PostRouletteWin(c *gin.Context) {
	var body winRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_json")
		return
	}

	var giftKey string
	if len(body.GiftKey) == 0 || json.Unmarshal(body.GiftKey, &giftKey) != nil || giftKey == "" {
		jsonError(c, http.StatusBadRequest, "invalid_gift_key")
		return
	}

	var bodyInitData string
	if len(body.InitData) > 0 && string(body.InitData) != "null" {
		if json.Unmarshal(body.InitData, &bodyInitData) != nil {
			jsonError(c, http.StatusBadRequest, "invalid_init_data")
			return
		}
	}

	var spinPrice *int64
	if len(body.SpinPrice) > 0 && string(body.SpinPrice) != "null" {
		// json.Number would also coerce a quoted number; only a bare
		// integer is a valid price.
		if body.SpinPrice[0] == '"' {
			jsonError(c, http.StatusBadRequest, "invalid_spin_price")
			return
		}
		var n json.Number
		if json.Unmarshal(body.SpinPrice, &n) != nil {
			jsonError(c, http.StatusBadRequest, "invalid_spin_price")
			return
		}
		v, err := n.Int64()
		if err != nil || v <= 0 {
			jsonError(c, http.StatusBadRequest, "invalid_spin_price")
			return
		}
		spinPrice = &v
	}

	user, ok := h.authenticate(c, bodyInitData)
	if !ok {
		return
	}

	err := h.purchase.AwardGift(c.Request.Context(), user, giftKey, spinPrice)
	switch {
	case errors.Is(err, purchase.ErrGiftNotSupported):
		jsonError(c, http.StatusBadRequest, "gift_not_supported")
		return
	case err != nil:
		if apperr.CodeOf(err) == apperr.CodeTelegramAPI {
			jsonError(c, http.StatusInternalServerError, "gift_send_failed")
			return
		}
		jsonError(c, http.StatusInternalServerError, "internal_error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
