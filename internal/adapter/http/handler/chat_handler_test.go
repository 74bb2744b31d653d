package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ecash-billing-engine/internal/adapter/http/dto"
	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testEndpoint = "https://api.provider.example"

func chatRequest(stream bool) dto.ChatCompletionRequest {
	return dto.ChatCompletionRequest{
		Endpoint: testEndpoint,
		Model:    "m1",
		Messages: []dto.ChatMessage{{Role: "user", Content: "hi <b>there</b>"}},
		Stream:   stream,
	}
}

func billingResult(raw string) *ports.BillingResult {
	var completion json.RawMessage
	if raw != "" {
		completion = json.RawMessage(raw)
	}
	return &ports.BillingResult{
		Response: &ports.ChatResponse{
			RequestID: "req-1",
			Model:     "m1",
			Content:   "hello",
			Usage:     domain.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
			Raw:       completion,
		},
		PreAllocated: 50,
		Refunded:     46,
		Spent:        4,
	}
}

func TestChatCompletions_JSON(t *testing.T) {
	h := newHarness(t)
	h.billing.EXPECT().Complete(gomock.Any(), ports.BillingRequest{
		Endpoint: testEndpoint,
		Chat: ports.ChatRequest{
			Model:    "m1",
			Messages: []ports.ChatMessage{{Role: "user", Content: "hi <b>there</b>"}},
		},
	}, gomock.Nil()).Return(billingResult(`{"id":"req-1"}`), nil)

	w := h.do(http.MethodPost, "/api/v1/chat/completions", chatRequest(false))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.ChatCompletionResponse
	env := decode(t, w, &resp)
	assert.Empty(t, env.Warnings)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, int64(5), resp.Usage.TotalTokens)
	assert.Equal(t, dto.BillingSummary{PreAllocated: 50, Refunded: 46, Spent: 4}, resp.Billing)
	assert.JSONEq(t, `{"id":"req-1"}`, string(resp.Completion))
}

func TestChatCompletions_Warnings(t *testing.T) {
	h := newHarness(t)
	result := billingResult(`{}`)
	result.Warnings = []string{"charged 12 sat, expected about 4 sat"}
	h.billing.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Nil()).Return(result, nil)

	w := h.do(http.MethodPost, "/api/v1/chat/completions", chatRequest(false))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, result.Warnings, decode(t, w, nil).Warnings)
}

func TestChatCompletions_ProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient balance", apperror.ErrInsufficientFunds(), http.StatusPaymentRequired, "WAL_001"},
		{"provider 402", apperror.ErrProviderInsufficient(testEndpoint, "r1"), http.StatusPaymentRequired, "PRV_002"},
		{"provider 5xx", apperror.ErrProviderStatus(testEndpoint, "r2", 503), http.StatusBadGateway, "PRV_004"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.billing.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Nil()).Return(nil, tc.err)

			w := h.do(http.MethodPost, "/api/v1/chat/completions", chatRequest(false))

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decode(t, w, nil).ErrorCode)
		})
	}
}

func TestChatCompletions_ValidationError(t *testing.T) {
	h := newHarness(t)
	req := chatRequest(false)
	req.Endpoint = "not a url"

	w := h.do(http.MethodPost, "/api/v1/chat/completions", req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatCompletions_Stream(t *testing.T) {
	h := newHarness(t)
	h.billing.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Not(gomock.Nil())).DoAndReturn(
		func(_ context.Context, req ports.BillingRequest, onDelta ports.DeltaFunc) (*ports.BillingResult, error) {
			assert.True(t, req.Chat.Stream)
			require.NoError(t, onDelta([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n")))
			require.NoError(t, onDelta([]byte("data: [DONE]\n\n")))
			return billingResult(""), nil
		},
	)

	w := h.do(http.MethodPost, "/api/v1/chat/completions", chatRequest(true))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "data: {\"choices\""))
	assert.Contains(t, body, "data: [DONE]\n\n")
	assert.Contains(t, body, "event:billing")
	assert.Contains(t, body, `"spent":4`)
	assert.Less(t, strings.Index(body, "[DONE]"), strings.Index(body, "event:billing"))
}

func TestChatCompletions_StreamFailsBeforeFirstChunk(t *testing.T) {
	h := newHarness(t)
	h.billing.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, apperror.ErrPayloadTooLarge(testEndpoint, "r3"))

	w := h.do(http.MethodPost, "/api/v1/chat/completions", chatRequest(true))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "PRV_003", decode(t, w, nil).ErrorCode)
}

func TestChatCompletions_StreamFailsMidway(t *testing.T) {
	h := newHarness(t)
	h.billing.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ ports.BillingRequest, onDelta ports.DeltaFunc) (*ports.BillingResult, error) {
			require.NoError(t, onDelta([]byte("data: {}\n\n")))
			return nil, apperror.ErrRefundFailed(testEndpoint, context.DeadlineExceeded)
		},
	)

	w := h.do(http.MethodPost, "/api/v1/chat/completions", chatRequest(true))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "event:error")
	assert.Contains(t, w.Body.String(), "PRV_005")
}

func TestEvents_Stream(t *testing.T) {
	h := newHarness(t)
	events := make(chan domain.Event, 1)
	var unsubscribed atomic.Bool
	h.events.EXPECT().Subscribe().Return((<-chan domain.Event)(events), func() { unsubscribed.Store(true) })
	events <- domain.ProofsChanged{MintURL: testMint, Balance: 21}

	srv := httptest.NewServer(h.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events?access_token="+testToken, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if strings.HasPrefix(scanner.Text(), "data:") {
			break
		}
	}
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "event:proofs_changed", lines[len(lines)-2])
	assert.Contains(t, lines[len(lines)-1], `"balance":21`)

	cancel()
	assert.Eventually(t, unsubscribed.Load, time.Second, 10*time.Millisecond)
}
