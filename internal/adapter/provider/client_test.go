package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(nil, Config{Timeout: 5 * time.Second}, zerolog.Nop())
}

func chat(stream bool) ports.ChatRequest {
	return ports.ChatRequest{
		Model:    "m1",
		Messages: []ports.ChatMessage{{Role: "user", Content: "hi"}},
		Stream:   stream,
	}
}

func TestClient_Complete_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer cashuAtoken", r.Header.Get("Authorization"))
		var req ports.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "m1", req.Model)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "req-1")
		fmt.Fprint(w, `{"id":"cmpl-1","model":"m1","choices":[{"message":{"content":"hello"}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`)
	}))
	defer srv.Close()

	resp, err := newTestClient().Complete(context.Background(), srv.URL+"/", "cashuAtoken", chat(false), nil)
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, domain.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}, resp.Usage)
	assert.Contains(t, string(resp.Raw), "cmpl-1")
}

func TestClient_Complete_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range []string{
			`{"id":"cmpl-2","model":"m1","choices":[{"delta":{"content":"hel"}}]}`,
			`{"id":"cmpl-2","model":"m1","choices":[{"delta":{"content":"lo"}}]}`,
			`{"id":"cmpl-2","model":"m1","choices":[],"usage":{"prompt_tokens":4,"completion_tokens":2,"total_tokens":6}}`,
			`[DONE]`,
		} {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	var relayed []string
	resp, err := newTestClient().Complete(context.Background(), srv.URL, "tok", chat(true), func(chunk []byte) error {
		relayed = append(relayed, string(chunk))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "cmpl-2", resp.RequestID)
	assert.Equal(t, int64(4), resp.Usage.PromptTokens)
	require.Len(t, relayed, 4)
	assert.Equal(t, "data: [DONE]\n\n", relayed[3])
	assert.Empty(t, resp.Raw)
}

func TestClient_Complete_StreamRelayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
	}))
	defer srv.Close()

	gone := errors.New("client went away")
	_, err := newTestClient().Complete(context.Background(), srv.URL, "tok", chat(true), func([]byte) error { return gone })
	assert.ErrorIs(t, err, gone)
}

func TestClient_Complete_StatusError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusRequestEntityTooLarge, http.StatusBadGateway} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Request-Id", "req-9")
				w.WriteHeader(status)
				fmt.Fprint(w, `{"error":"nope"}`)
			}))
			defer srv.Close()

			_, err := newTestClient().Complete(context.Background(), srv.URL, "tok", chat(false), nil)
			var perr *ports.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, status, perr.StatusCode)
			assert.Equal(t, "req-9", perr.RequestID)
			assert.Contains(t, perr.Body, "nope")
		})
	}
}

func TestClient_Complete_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := newTestClient().Complete(context.Background(), srv.URL, "tok", chat(false), nil)
	require.Error(t, err)
	var perr *ports.ProviderError
	assert.False(t, errors.As(err, &perr))
}

func TestClient_Complete_Canceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	// runs before srv.Close, which waits for the handler
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := newTestClient().Complete(ctx, srv.URL, "tok", chat(false), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Refund(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"fresh token", `{"token":"cashuAfresh"}`, "cashuAfresh"},
		{"nothing left", `{"token":""}`, ""},
		{"empty body", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1/wallet/refund", r.URL.Path)
				assert.Equal(t, "Bearer spent-token", r.Header.Get("Authorization"))
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			got, err := newTestClient().Refund(context.Background(), srv.URL, "spent-token")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Refund_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient().Refund(context.Background(), srv.URL, "tok")
	var perr *ports.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusInternalServerError, perr.StatusCode)
}

func TestClient_Models(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":[
			{"id":"m1","sats_pricing":{"prompt":0.0015,"completion":"0.002","max_cost":41.2}},
			{"id":"free"}
		]}`)
	}))
	defer srv.Close()

	models, err := newTestClient().Models(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "m1", models[0].ID)
	assert.Equal(t, int64(42), models[0].MaxCost)
	assert.True(t, models[0].PromptPrice.Equal(decimal.RequireFromString("0.0015")))
	assert.True(t, models[0].CompletionPrice.Equal(decimal.RequireFromString("0.002")))
	assert.Zero(t, models[1].MaxCost)
	assert.False(t, models[1].HasTokenPrices())
}
