package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"ecash-billing-engine/internal/adapter/http/dto"
	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testMint = "https://mint.example.com"

func TestGetBalance(t *testing.T) {
	h := newHarness(t)
	h.wallet.EXPECT().Balance(gomock.Any()).Return(&ports.WalletBalance{
		Total:  21,
		ByMint: map[string]int64{testMint: 21},
		Unit:   "sat",
	}, nil)

	w := h.do(http.MethodGet, "/api/v1/wallet/balance", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.BalanceResponse
	decode(t, w, &resp)
	assert.Equal(t, int64(21), resp.Total)
	assert.Equal(t, int64(21), resp.ByMint[testMint])
	assert.Equal(t, "sat", resp.Unit)
}

func TestMints(t *testing.T) {
	h := newHarness(t)
	gomock.InOrder(
		h.wallet.EXPECT().AddMint(gomock.Any(), "https://other.example.com").Return(nil),
		h.wallet.EXPECT().Mints(gomock.Any()).Return([]string{testMint, "https://other.example.com"}),
	)

	w := h.do(http.MethodPost, "/api/v1/wallet/mints", dto.AddMintRequest{MintURL: " https://other.example.com\n"})

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp dto.MintsResponse
	decode(t, w, &resp)
	assert.Len(t, resp.Mints, 2)
}

func TestAddMint_RejectsNonHTTP(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/v1/wallet/mints", dto.AddMintRequest{MintURL: "file:///etc/passwd"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSend_Success(t *testing.T) {
	h := newHarness(t)
	h.wallet.EXPECT().CreateToken(gomock.Any(), "", int64(5)).Return("cashuAxyz", nil)

	w := h.do(http.MethodPost, "/api/v1/wallet/send", dto.SendRequest{Amount: 5})

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp dto.SendResponse
	decode(t, w, &resp)
	assert.Equal(t, "cashuAxyz", resp.Token)
	assert.Equal(t, int64(5), resp.Amount)
}

func TestSend_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient funds", apperror.ErrInsufficientFunds(), http.StatusPaymentRequired, "WAL_001"},
		{"unknown mint", apperror.ErrUnknownMint(testMint), http.StatusBadRequest, "WAL_006"},
		{"mint down", apperror.ErrMintUnavailable(context.DeadlineExceeded), http.StatusBadGateway, "MINT_001"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.wallet.EXPECT().CreateToken(gomock.Any(), testMint, int64(8)).Return("", tc.err)

			w := h.do(http.MethodPost, "/api/v1/wallet/send", dto.SendRequest{MintURL: testMint, Amount: 8})

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decode(t, w, nil).ErrorCode)
		})
	}
}

func TestSend_ValidationError(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/v1/wallet/send", dto.SendRequest{Amount: 0})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReceive_CompactsToken(t *testing.T) {
	h := newHarness(t)
	h.wallet.EXPECT().Receive(gomock.Any(), "cashuAeyJ0b2tlbiI6W119").Return(int64(7), nil)

	w := h.do(http.MethodPost, "/api/v1/wallet/receive", dto.ReceiveRequest{Token: "cashuAeyJ0b2tl\nbiI6W119\n"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.ReceiveResponse
	decode(t, w, &resp)
	assert.Equal(t, int64(7), resp.Amount)
}

func TestReceive_AlreadySpent(t *testing.T) {
	h := newHarness(t)
	h.wallet.EXPECT().Receive(gomock.Any(), gomock.Any()).Return(int64(0), apperror.ErrAlreadySpent(nil))

	w := h.do(http.MethodPost, "/api/v1/wallet/receive", dto.ReceiveRequest{Token: "cashuAeyJ0b2tlbiI6W119"})

	assert.Equal(t, "WAL_003", decode(t, w, nil).ErrorCode)
}

func TestReconcile(t *testing.T) {
	h := newHarness(t)
	h.wallet.EXPECT().Reconcile(gomock.Any(), testMint).Return(int64(4), nil)

	w := h.do(http.MethodPost, "/api/v1/wallet/reconcile", dto.ReconcileRequest{MintURL: testMint})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.ReconcileResponse
	decode(t, w, &resp)
	assert.Equal(t, int64(4), resp.Removed)
}

func TestListHistory_WithFilters(t *testing.T) {
	h := newHarness(t)
	now := time.Now().UTC().Truncate(time.Second)
	entry := domain.HistoryEntry{
		ID:           uuid.New(),
		Type:         domain.HistoryTypeSpent,
		Amount:       3,
		Timestamp:    now,
		Status:       domain.HistoryStatusSuccess,
		BalanceAfter: 18,
		Provider:     "https://api.provider.example",
		Model:        "m1",
	}
	h.reporting.EXPECT().ListHistory(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.HistoryListParams) ([]domain.HistoryEntry, int64, error) {
			require.NotNil(t, params.Type)
			assert.Equal(t, domain.HistoryTypeSpent, *params.Type)
			require.NotNil(t, params.From)
			assert.Equal(t, int64(1700000000), params.From.Unix())
			assert.Nil(t, params.To)
			assert.Equal(t, 2, params.Page)
			assert.Equal(t, 20, params.PageSize)
			return []domain.HistoryEntry{entry}, 21, nil
		},
	)

	w := h.do(http.MethodGet, "/api/v1/wallet/history?type=spent&from=1700000000&page=2&page_size=500", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.HistoryListResponse
	decode(t, w, &resp)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "spent", resp.Items[0].Type)
	assert.Equal(t, "m1", resp.Items[0].Model)
	assert.Equal(t, int64(21), resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
}

func TestListHistory_InvalidType(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/api/v1/wallet/history?type=topup", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSummary(t *testing.T) {
	h := newHarness(t)
	h.reporting.EXPECT().GetSummary(gomock.Any(), "week").Return(&ports.HistoryStats{
		Entries:     4,
		TotalMinted: 100,
		TotalSpent:  12,
		TotalFees:   2,
	}, nil)

	w := h.do(http.MethodGet, "/api/v1/wallet/summary?period=week", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.SummaryResponse
	decode(t, w, &resp)
	assert.Equal(t, int64(100), resp.TotalMinted)
	assert.Equal(t, int64(12), resp.TotalSpent)
	assert.Equal(t, int64(2), resp.TotalFees)
}

func TestGetSummary_InvalidPeriod(t *testing.T) {
	h := newHarness(t)
	h.reporting.EXPECT().GetSummary(gomock.Any(), "year").Return(nil, apperror.Validation("invalid period"))

	w := h.do(http.MethodGet, "/api/v1/wallet/summary?period=year", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
