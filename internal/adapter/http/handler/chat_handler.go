package handler

import (
	"errors"
	"net/http"

	"ecash-billing-engine/internal/adapter/http/dto"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"
	"ecash-billing-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ChatHandler relays paid inference calls.
type ChatHandler struct {
	log zerolog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(log zerolog.Logger) *ChatHandler {
	return &ChatHandler{log: log}
}

// Completions handles POST /api/v1/chat/completions. Streamed calls relay the
// provider's event stream as is and finish with a "billing" event; errors
// after the stream started arrive as an "error" event.
func (h *ChatHandler) Completions(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req dto.ChatCompletionRequest
	if !bindJSON(c, &req) {
		return
	}
	breq := ports.BillingRequest{Endpoint: req.Endpoint, Chat: toChatRequest(req)}

	if !req.Stream {
		result, err := sess.Billing().Complete(c.Request.Context(), breq, nil)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OKWithWarnings(c, toChatResponse(result, true), result.Warnings)
		return
	}

	streaming := false
	relay := func(chunk []byte) error {
		if !streaming {
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
			streaming = true
		}
		if _, err := c.Writer.Write(chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	result, err := sess.Billing().Complete(c.Request.Context(), breq, relay)
	if !streaming {
		// Failed before the first chunk, or the provider answered with JSON.
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OKWithWarnings(c, toChatResponse(result, true), result.Warnings)
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Str("endpoint", req.Endpoint).Msg("stream failed after relay started")
		c.SSEvent("error", streamError(err))
		c.Writer.Flush()
		return
	}
	c.SSEvent("billing", gin.H{
		"request_id": result.Response.RequestID,
		"billing":    toChatResponse(result, false).Billing,
		"warnings":   result.Warnings,
	})
	c.Writer.Flush()
}

func toChatRequest(req dto.ChatCompletionRequest) ports.ChatRequest {
	msgs := make([]ports.ChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = ports.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return ports.ChatRequest{
		Model:       req.Model,
		Messages:    msgs,
		Stream:      req.Stream,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}

func toChatResponse(result *ports.BillingResult, withRaw bool) dto.ChatCompletionResponse {
	out := dto.ChatCompletionResponse{
		Billing: dto.BillingSummary{
			PreAllocated: result.PreAllocated,
			Refunded:     result.Refunded,
			Spent:        result.Spent,
		},
	}
	if resp := result.Response; resp != nil {
		out.RequestID = resp.RequestID
		out.Model = resp.Model
		out.Content = resp.Content
		out.Usage = dto.UsageResponse{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
		if withRaw {
			out.Completion = resp.Raw
		}
	}
	return out
}

func streamError(err error) gin.H {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return gin.H{"error_code": appErr.Code, "message": appErr.Message}
	}
	return gin.H{"error_code": "SYS_000", "message": "Internal server error"}
}
