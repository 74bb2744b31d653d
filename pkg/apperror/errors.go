package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so callers can write errors.Is(err, apperror.ErrAlreadySpent()).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err is (or wraps) an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// ---- Wallet & ledger (WAL) ----

const (
	CodeInsufficientFunds = "WAL_001"
	CodeNoExactChange     = "WAL_002"
	CodeAlreadySpent      = "WAL_003"
	CodeInvalidToken      = "WAL_004"
	CodeInvalidAmount     = "WAL_005"
	CodeUnknownMint       = "WAL_006"
)

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance", http.StatusPaymentRequired)
}

func ErrNoExactChange() *AppError {
	return New(CodeNoExactChange, "No exact combination of proofs for amount", http.StatusConflict)
}

func ErrAlreadySpent(err error) *AppError {
	return Wrap(CodeAlreadySpent, "Proofs already spent", http.StatusConflict, err)
}

func ErrInvalidToken(err error) *AppError {
	return Wrap(CodeInvalidToken, "Invalid ecash token", http.StatusBadRequest, err)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Invalid amount", http.StatusBadRequest)
}

func ErrUnknownMint(mintURL string) *AppError {
	return New(CodeUnknownMint, fmt.Sprintf("Mint %s is not trusted by this wallet", mintURL), http.StatusBadRequest)
}

// ---- Mint gateway (MINT) ----

const (
	CodeMintUnavailable     = "MINT_001"
	CodeMintRejected        = "MINT_002"
	CodeQuoteNotPaid        = "MINT_003"
	CodeQuoteAlreadyIssued  = "MINT_004"
	CodeQuoteExpired        = "MINT_005"
	CodeFeeNotConverged     = "MINT_006"
	CodeMintOutputsConflict = "MINT_007"
)

func ErrMintUnavailable(err error) *AppError {
	return Wrap(CodeMintUnavailable, "Mint unreachable", http.StatusBadGateway, err)
}

func ErrMintRejected(detail string) *AppError {
	return New(CodeMintRejected, "Mint rejected request: "+detail, http.StatusBadGateway)
}

func ErrQuoteNotPaid() *AppError {
	return New(CodeQuoteNotPaid, "Quote has not been paid", http.StatusConflict)
}

func ErrQuoteAlreadyIssued() *AppError {
	return New(CodeQuoteAlreadyIssued, "Proofs already issued for quote", http.StatusConflict)
}

func ErrQuoteExpired() *AppError {
	return New(CodeQuoteExpired, "Quote expired", http.StatusGone)
}

func ErrFeeNotConverged() *AppError {
	return New(CodeFeeNotConverged, "Input fee did not converge for selection", http.StatusConflict)
}

func ErrMintOutputsConflict() *AppError {
	return New(CodeMintOutputsConflict, "Outputs already signed by mint", http.StatusConflict)
}

// ---- Invoices (INV) ----

const CodeInvoiceNotFound = "INV_001"

func ErrInvoiceNotFound(id string) *AppError {
	return New(CodeInvoiceNotFound, fmt.Sprintf("Invoice %s not found", id), http.StatusNotFound)
}

func ErrInvalidTransition(from, to string) *AppError {
	return New("INV_002", fmt.Sprintf("Invoice cannot move from %s to %s", from, to), http.StatusConflict)
}

func ErrDuplicateQuote(quoteID string) *AppError {
	return New("INV_003", fmt.Sprintf("Quote %s already tracked", quoteID), http.StatusConflict)
}

// ---- Inference provider (PRV) ----

const (
	CodeProviderAuth         = "PRV_001"
	CodeProviderInsufficient = "PRV_002"
	CodePayloadTooLarge      = "PRV_003"
	CodeProviderError        = "PRV_004"
	CodeRefundFailed         = "PRV_005"
)

func ErrProviderAuth(provider, requestID string) *AppError {
	return New(CodeProviderAuth, providerMessage("Provider rejected payment token", provider, requestID), http.StatusUnauthorized)
}

func ErrProviderInsufficient(provider, requestID string) *AppError {
	return New(CodeProviderInsufficient, providerMessage("Insufficient balance for request", provider, requestID), http.StatusPaymentRequired)
}

func ErrPayloadTooLarge(provider, requestID string) *AppError {
	return New(CodePayloadTooLarge, providerMessage("Request payload too large", provider, requestID), http.StatusRequestEntityTooLarge)
}

func ErrProviderStatus(provider, requestID string, status int) *AppError {
	return New(CodeProviderError, providerMessage(fmt.Sprintf("Provider returned status %d", status), provider, requestID), http.StatusBadGateway)
}

func ErrProviderUnavailable(provider string, err error) *AppError {
	return Wrap(CodeProviderError, providerMessage("Provider unreachable", provider, ""), http.StatusBadGateway, err)
}

func ErrRefundFailed(provider string, err error) *AppError {
	return Wrap(CodeRefundFailed, providerMessage("Refund failed", provider, ""), http.StatusBadGateway, err)
}

func providerMessage(msg, provider, requestID string) string {
	if provider != "" {
		msg += " (provider " + provider
		if requestID != "" {
			msg += ", request " + requestID
		}
		msg += ")"
	}
	return msg
}

// ---- Sessions (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid identity", http.StatusUnauthorized)
}

func ErrSessionNotFound() *AppError {
	return New("AUTH_002", "No active wallet session", http.StatusUnauthorized)
}

func ErrInvalidSessionToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrRequestTooLarge() *AppError {
	return New("SYS_004", "Request body too large", http.StatusRequestEntityTooLarge)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a WAL_005-style validation error.
func Validation(message string) *AppError {
	return New(CodeInvalidAmount, message, http.StatusBadRequest)
}
