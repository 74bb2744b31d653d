package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records rejected financial requests. Successful operations are
// audited by the services themselves, which know the amounts involved.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		// Rate limit rejections are logged by the limiter.
		if status == http.StatusTooManyRequests {
			return
		}

		resourceType := resourceForRoute(c.FullPath(), c.Request.Method)
		if resourceType == "" {
			return
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"error_code": c.GetString(response.CtxErrorCode),
			"request_id": c.GetString(response.CtxRequestID),
			"client_ip":  c.ClientIP(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			Owner:        c.GetString(CtxIdentity),
			Action:       domain.AuditActionRejected,
			ResourceType: resourceType,
			ResourceID:   c.Param("id"),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func resourceForRoute(route, method string) string {
	if method != http.MethodPost {
		return ""
	}
	switch route {
	case "/api/v1/wallet/send", "/api/v1/wallet/receive", "/api/v1/wallet/reconcile":
		return "wallet"
	case "/api/v1/invoices/mint", "/api/v1/invoices/melt", "/api/v1/invoices/:id/pay":
		return "invoice"
	case "/api/v1/chat/completions":
		return "billing"
	}
	return ""
}
