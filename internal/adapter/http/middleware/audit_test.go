package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports/mocks"
	"ecash-billing-engine/pkg/apperror"
	"ecash-billing-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuditLog_RejectedPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, log *domain.AuditLog) {
			assert.Equal(t, domain.AuditActionRejected, log.Action)
			assert.Equal(t, "invoice", log.ResourceType)
			assert.Equal(t, "inv-1", log.ResourceID)
			assert.Equal(t, "alice", log.Owner)

			var details map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(log.Details), &details))
			assert.Equal(t, "WAL_001", details["error_code"])
			assert.Equal(t, float64(http.StatusPaymentRequired), details["status"])
		},
	)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/invoices/:id/pay", func(c *gin.Context) {
		c.Set(CtxIdentity, "alice")
		response.Error(c, apperror.ErrInsufficientFunds())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/invoices/inv-1/pay", nil))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestAuditLog_SkipsSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No expectations: Log must not be called
	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/wallet/send", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/wallet/send", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditLog_SkipsNonFinancialRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.GET("/api/v1/wallet/balance", func(c *gin.Context) {
		response.Error(c, apperror.ErrSessionNotFound())
	})
	r.POST("/api/v1/wallet/send", func(c *gin.Context) {
		response.Error(c, apperror.ErrRateLimitExceeded())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/wallet/send", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestResourceForRoute(t *testing.T) {
	tests := []struct {
		route    string
		method   string
		resource string
	}{
		{"/api/v1/wallet/send", "POST", "wallet"},
		{"/api/v1/wallet/receive", "POST", "wallet"},
		{"/api/v1/invoices/mint", "POST", "invoice"},
		{"/api/v1/invoices/:id/pay", "POST", "invoice"},
		{"/api/v1/chat/completions", "POST", "billing"},
		{"/api/v1/invoices/:id", "GET", ""},
		{"/api/v1/session/login", "POST", ""},
		{"/unknown", "POST", ""},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.resource, resourceForRoute(tc.route, tc.method), "route=%s method=%s", tc.route, tc.method)
	}
}
