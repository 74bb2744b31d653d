package handler

import (
	"math"
	"strconv"
	"time"

	"ecash-billing-engine/internal/adapter/http/dto"
	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"
	"ecash-billing-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles balance, token and history endpoints.
type WalletHandler struct{}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler() *WalletHandler {
	return &WalletHandler{}
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	balance, err := sess.Wallet().Balance(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		Total:  balance.Total,
		ByMint: balance.ByMint,
		Unit:   balance.Unit,
	})
}

// ListMints handles GET /api/v1/wallet/mints.
func (h *WalletHandler) ListMints(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	response.OK(c, dto.MintsResponse{Mints: sess.Wallet().Mints(c.Request.Context())})
}

// AddMint handles POST /api/v1/wallet/mints.
func (h *WalletHandler) AddMint(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req dto.AddMintRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := sess.Wallet().AddMint(c.Request.Context(), req.MintURL); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.MintsResponse{Mints: sess.Wallet().Mints(c.Request.Context())})
}

// Send handles POST /api/v1/wallet/send.
func (h *WalletHandler) Send(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req dto.SendRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := sess.Wallet().CreateToken(c.Request.Context(), req.MintURL, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.SendResponse{Token: token, Amount: req.Amount})
}

// Receive handles POST /api/v1/wallet/receive.
func (h *WalletHandler) Receive(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req dto.ReceiveRequest
	if !bindJSON(c, &req) {
		return
	}

	amount, err := sess.Wallet().Receive(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ReceiveResponse{Amount: amount})
}

// Reconcile handles POST /api/v1/wallet/reconcile.
func (h *WalletHandler) Reconcile(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req dto.ReconcileRequest
	if !bindJSON(c, &req) {
		return
	}

	removed, err := sess.Wallet().Reconcile(c.Request.Context(), req.MintURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ReconcileResponse{Removed: removed})
}

// GetSummary handles GET /api/v1/wallet/summary.
func (h *WalletHandler) GetSummary(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	period := c.DefaultQuery("period", "all")
	stats, err := sess.Reporting().GetSummary(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.SummaryResponse{
		Entries:       stats.Entries,
		TotalMinted:   stats.TotalMinted,
		TotalMelted:   stats.TotalMelted,
		TotalSent:     stats.TotalSent,
		TotalReceived: stats.TotalReceived,
		TotalSpent:    stats.TotalSpent,
		TotalRefunded: stats.TotalRefunded,
		TotalFees:     stats.TotalFees,
	})
}

// ListHistory handles GET /api/v1/wallet/history.
func (h *WalletHandler) ListHistory(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	params := ports.HistoryListParams{
		Page:     page,
		PageSize: pageSize,
	}

	if t := c.Query("type"); t != "" {
		typ := domain.HistoryType(t)
		if !typ.Valid() {
			response.Error(c, apperror.Validation("invalid history type"))
			return
		}
		params.Type = &typ
	}
	if f := c.Query("from"); f != "" {
		if v, err := strconv.ParseInt(f, 10, 64); err == nil {
			from := time.Unix(v, 0).UTC()
			params.From = &from
		}
	}
	if t := c.Query("to"); t != "" {
		if v, err := strconv.ParseInt(t, 10, 64); err == nil {
			to := time.Unix(v, 0).UTC()
			params.To = &to
		}
	}

	entries, total, err := sess.Reporting().ListHistory(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toHistoryResponse(&entries[i]))
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	response.OK(c, dto.HistoryListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}
