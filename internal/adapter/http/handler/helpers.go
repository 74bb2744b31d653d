package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ecash-billing-engine/internal/adapter/http/dto"
	"ecash-billing-engine/internal/adapter/http/middleware"
	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"
	"ecash-billing-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

// currentSession returns the session attached by SessionAuth.
func currentSession(c *gin.Context) (ports.Session, bool) {
	v, ok := c.Get(middleware.CtxSession)
	if !ok {
		response.Error(c, apperror.ErrSessionNotFound())
		return nil, false
	}
	sess, ok := v.(ports.Session)
	if !ok {
		response.Error(c, apperror.ErrSessionNotFound())
		return nil, false
	}
	return sess, true
}

// bindJSON decodes the body into v, sanitizes it and only then validates, so
// line-wrapped tokens and invoices are checked in their compacted form.
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := json.NewDecoder(c.Request.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperror.ErrRequestTooLarge())
		} else {
			response.Error(c, apperror.Validation("invalid JSON body"))
		}
		return false
	}
	dto.SanitizeStruct(v)
	if err := binding.Validator.ValidateStruct(v); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	return true
}

func invoiceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid invoice id"))
		return uuid.Nil, false
	}
	return id, true
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toInvoiceResponse(inv *domain.StoredInvoice) dto.InvoiceResponse {
	return dto.InvoiceResponse{
		ID:             inv.ID.String(),
		Kind:           string(inv.Kind),
		MintURL:        inv.MintURL,
		QuoteID:        inv.QuoteID,
		PaymentRequest: inv.PaymentRequest,
		Amount:         inv.Amount,
		Fee:            inv.Fee,
		State:          string(inv.State),
		CreatedAt:      formatTime(inv.CreatedAt),
		ExpiresAt:      formatTimePtr(inv.ExpiresAt),
		PaidAt:         formatTimePtr(inv.PaidAt),
		IssuedAt:       formatTimePtr(inv.IssuedAt),
		CheckedAt:      formatTimePtr(inv.CheckedAt),
	}
}

func toHistoryResponse(e *domain.HistoryEntry) dto.HistoryEntryResponse {
	return dto.HistoryEntryResponse{
		ID:           e.ID.String(),
		Type:         string(e.Type),
		Amount:       e.Amount,
		Fee:          e.Fee,
		Status:       string(e.Status),
		BalanceAfter: e.BalanceAfter,
		MintURL:      e.MintURL,
		Provider:     e.Provider,
		Model:        e.Model,
		RequestID:    e.RequestID,
		Message:      e.Message,
		Timestamp:    formatTime(e.Timestamp),
	}
}
