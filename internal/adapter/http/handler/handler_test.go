package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testToken     = "tok"
	testSessionID = "sess-1"
)

// harness wires the full router over mocked session collaborators. Every
// request made through do() is authenticated as "alice".
type harness struct {
	router    *gin.Engine
	sessions  *mocks.MockSessionManager
	wallet    *mocks.MockWalletService
	invoices  *mocks.MockInvoiceService
	billing   *mocks.MockBillingService
	reporting *mocks.MockReportingService
	events    *mocks.MockEventSubscriber

	deps RouterDeps
}

func newHarness(t *testing.T, checkers ...ports.HealthChecker) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	h := &harness{
		sessions:  mocks.NewMockSessionManager(ctrl),
		wallet:    mocks.NewMockWalletService(ctrl),
		invoices:  mocks.NewMockInvoiceService(ctrl),
		billing:   mocks.NewMockBillingService(ctrl),
		reporting: mocks.NewMockReportingService(ctrl),
		events:    mocks.NewMockEventSubscriber(ctrl),
	}

	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate(testToken).Return(&ports.TokenClaims{Identity: "alice", SessionID: testSessionID}, nil).AnyTimes()
	tokenSvc.EXPECT().Validate(gomock.Not(testToken)).Return(nil, errors.New("token is malformed")).AnyTimes()

	sess := mocks.NewMockSession(ctrl)
	sess.EXPECT().ID().Return(testSessionID).AnyTimes()
	sess.EXPECT().Identity().Return("alice").AnyTimes()
	sess.EXPECT().Wallet().Return(h.wallet).AnyTimes()
	sess.EXPECT().Invoices().Return(h.invoices).AnyTimes()
	sess.EXPECT().Billing().Return(h.billing).AnyTimes()
	sess.EXPECT().Reporting().Return(h.reporting).AnyTimes()
	sess.EXPECT().Events().Return(h.events).AnyTimes()
	h.sessions.EXPECT().Get("alice").Return(sess, nil).AnyTimes()

	h.deps = RouterDeps{
		Sessions:       h.sessions,
		TokenSvc:       tokenSvc,
		HealthCheckers: checkers,
		EventKeepAlive: 20 * time.Millisecond,
		Logger:         zerolog.Nop(),
	}
	h.router = SetupRouter(h.deps)
	return h
}

// with rebuilds the router after mod adjusts its deps.
func (h *harness) with(mod func(*RouterDeps)) *harness {
	deps := h.deps
	mod(&deps)
	h.router = SetupRouter(deps)
	return h
}

func (h *harness) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	return h.doWithToken(method, path, body, testToken)
}

func (h *harness) doWithToken(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// envelope decodes a success or error envelope.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	Warnings  []string        `json:"warnings"`
	ErrorCode string          `json:"error_code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}
