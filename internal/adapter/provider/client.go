package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	maxErrorBody    = 64 << 10
	maxResponseBody = 16 << 20
	maxEventLine    = 1 << 20
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the provider client settings.
type Config struct {
	RefundPath string
	Timeout    time.Duration
}

// Client calls pay-per-request inference providers that take an ecash token
// as bearer credential.
type Client struct {
	http       HTTPClient
	refundPath string
	log        zerolog.Logger
}

var _ ports.InferenceProvider = (*Client)(nil)

// NewClient creates a provider client. A nil httpClient gets a default client
// bounded by cfg.Timeout.
func NewClient(httpClient HTTPClient, cfg Config, log zerolog.Logger) *Client {
	if cfg.RefundPath == "" {
		cfg.RefundPath = "/v1/wallet/refund"
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{http: httpClient, refundPath: cfg.RefundPath, log: log}
}

type completionChoice struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message,omitempty"`
	Delta *struct {
		Content string `json:"content"`
	} `json:"delta,omitempty"`
}

type completionBody struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []completionChoice `json:"choices"`
	Usage   *domain.Usage      `json:"usage,omitempty"`
}

// Complete posts a chat completion. Streamed responses are relayed chunk by
// chunk to onDelta while content and usage are accumulated.
func (c *Client) Complete(ctx context.Context, baseURL, token string, req ports.ChatRequest, onDelta ports.DeltaFunc) (*ports.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	resp, err := c.send(ctx, http.MethodPost, baseURL, "/v1/chat/completions", token, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	requestID := resp.Header.Get("X-Request-Id")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, providerError(resp, requestID)
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		out, err := c.readStream(resp.Body, onDelta)
		if err != nil {
			return nil, err
		}
		if out.RequestID == "" {
			out.RequestID = requestID
		}
		return out, nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read completion: %w", err)
	}
	var parsed completionBody
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	out := &ports.ChatResponse{
		RequestID: requestID,
		Model:     parsed.Model,
		Raw:       raw,
	}
	if out.RequestID == "" {
		out.RequestID = parsed.ID
	}
	if len(parsed.Choices) > 0 && parsed.Choices[0].Message != nil {
		out.Content = parsed.Choices[0].Message.Content
	}
	if parsed.Usage != nil {
		out.Usage = *parsed.Usage
	}
	return out, nil
}

func (c *Client) readStream(body io.Reader, onDelta ports.DeltaFunc) (*ports.ChatResponse, error) {
	out := &ports.ChatResponse{}
	var content strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64<<10), maxEventLine)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if onDelta != nil {
			if err := onDelta([]byte(line + "\n\n")); err != nil {
				return nil, fmt.Errorf("relay chunk: %w", err)
			}
		}
		if data == "[DONE]" {
			break
		}

		var chunk completionBody
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.log.Debug().Err(err).Msg("skipping undecodable stream chunk")
			continue
		}
		if out.RequestID == "" {
			out.RequestID = chunk.ID
		}
		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		for _, ch := range chunk.Choices {
			if ch.Delta != nil {
				content.WriteString(ch.Delta.Content)
			}
		}
		if chunk.Usage != nil {
			out.Usage = *chunk.Usage
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	out.Content = content.String()
	return out, nil
}

type refundResponse struct {
	Token string `json:"token"`
}

// Refund exchanges the unconsumed part of token for a fresh token.
func (c *Client) Refund(ctx context.Context, baseURL, token string) (string, error) {
	resp, err := c.send(ctx, http.MethodPost, baseURL, c.refundPath, token, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", providerError(resp, resp.Header.Get("X-Request-Id"))
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("read refund: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}
	var parsed refundResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode refund: %w", err)
	}
	return parsed.Token, nil
}

type modelsResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Pricing *struct {
			Prompt     decimal.Decimal `json:"prompt"`
			Completion decimal.Decimal `json:"completion"`
			MaxCost    decimal.Decimal `json:"max_cost"`
		} `json:"sats_pricing,omitempty"`
	} `json:"data"`
}

// Models lists the models of a provider with their declared prices.
func (c *Client) Models(ctx context.Context, baseURL string) ([]domain.ModelPricing, error) {
	resp, err := c.send(ctx, http.MethodGet, baseURL, "/v1/models", "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providerError(resp, resp.Header.Get("X-Request-Id"))
	}
	var parsed modelsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}

	models := make([]domain.ModelPricing, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		mp := domain.ModelPricing{ID: m.ID}
		if m.Pricing != nil {
			mp.PromptPrice = m.Pricing.Prompt
			mp.CompletionPrice = m.Pricing.Completion
			mp.MaxCost = m.Pricing.MaxCost.Ceil().IntPart()
		}
		models = append(models, mp)
	}
	return models, nil
}

func (c *Client) send(ctx context.Context, method, baseURL, path, token string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(baseURL, "/")+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.log.Debug().
		Str("provider", baseURL).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("provider request")
	return resp, nil
}

func providerError(resp *http.Response, requestID string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &ports.ProviderError{
		StatusCode: resp.StatusCode,
		RequestID:  requestID,
		Body:       string(raw),
	}
}
