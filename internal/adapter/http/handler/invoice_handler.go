package handler

import (
	"strings"

	"ecash-billing-engine/internal/adapter/http/dto"
	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceHandler handles Lightning invoice endpoints.
type InvoiceHandler struct{}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler() *InvoiceHandler {
	return &InvoiceHandler{}
}

// CreateMint handles POST /api/v1/invoices/mint.
func (h *InvoiceHandler) CreateMint(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req dto.CreateMintInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := sess.Invoices().CreateMintInvoice(c.Request.Context(), req.MintURL, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toInvoiceResponse(inv))
}

// CreateMelt handles POST /api/v1/invoices/melt.
func (h *InvoiceHandler) CreateMelt(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req dto.CreateMeltInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}
	pr := strings.TrimPrefix(strings.ToLower(req.PaymentRequest), "lightning:")

	inv, err := sess.Invoices().CreateMeltInvoice(c.Request.Context(), req.MintURL, pr)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toInvoiceResponse(inv))
}

// List handles GET /api/v1/invoices.
func (h *InvoiceHandler) List(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	invoices, err := sess.Invoices().List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	state := domain.InvoiceState(strings.ToUpper(c.Query("state")))
	kind := domain.InvoiceKind(c.Query("kind"))
	items := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		if state != "" && invoices[i].State != state {
			continue
		}
		if kind != "" && invoices[i].Kind != kind {
			continue
		}
		items = append(items, toInvoiceResponse(&invoices[i]))
	}
	response.OK(c, dto.InvoiceListResponse{Items: items, Total: len(items)})
}

// Get handles GET /api/v1/invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	h.withInvoice(c, func(svc ports.InvoiceService, id uuid.UUID) (*domain.StoredInvoice, error) {
		return svc.Get(c.Request.Context(), id)
	})
}

// Check handles POST /api/v1/invoices/:id/check.
func (h *InvoiceHandler) Check(c *gin.Context) {
	h.withInvoice(c, func(svc ports.InvoiceService, id uuid.UUID) (*domain.StoredInvoice, error) {
		return svc.Check(c.Request.Context(), id)
	})
}

// Claim handles POST /api/v1/invoices/:id/claim.
func (h *InvoiceHandler) Claim(c *gin.Context) {
	h.withInvoice(c, func(svc ports.InvoiceService, id uuid.UUID) (*domain.StoredInvoice, error) {
		return svc.Claim(c.Request.Context(), id)
	})
}

// Pay handles POST /api/v1/invoices/:id/pay.
func (h *InvoiceHandler) Pay(c *gin.Context) {
	h.withInvoice(c, func(svc ports.InvoiceService, id uuid.UUID) (*domain.StoredInvoice, error) {
		return svc.PayMeltInvoice(c.Request.Context(), id)
	})
}

// Watch handles POST /api/v1/invoices/:id/watch.
func (h *InvoiceHandler) Watch(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	if err := sess.Invoices().Watch(id); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"id": id.String(), "watching": true})
}

// Unwatch handles DELETE /api/v1/invoices/:id/watch.
func (h *InvoiceHandler) Unwatch(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	sess.Invoices().Unwatch(id)
	response.OK(c, gin.H{"id": id.String(), "watching": false})
}

func (h *InvoiceHandler) withInvoice(c *gin.Context, op func(ports.InvoiceService, uuid.UUID) (*domain.StoredInvoice, error)) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	inv, err := op(sess.Invoices(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toInvoiceResponse(inv))
}
