package dto

import "encoding/json"

// LoginRequest opens a wallet session for an identity.
type LoginRequest struct {
	Identity string `json:"identity" binding:"required,max=128"`
}

// LoginResponse carries the session token.
type LoginResponse struct {
	Identity string `json:"identity"`
	Token    string `json:"token"`
	Expiry   int64  `json:"expiry"` // Unix timestamp
}

// AddMintRequest registers a mint with the wallet.
type AddMintRequest struct {
	MintURL string `json:"mint_url" binding:"required,safe_url" sanitize:"compact"`
}

// SendRequest creates a token worth exactly Amount.
type SendRequest struct {
	MintURL string `json:"mint_url" binding:"omitempty,safe_url" sanitize:"compact"`
	Amount  int64  `json:"amount" binding:"required,gt=0"`
}

// SendResponse holds the serialized token to hand out.
type SendResponse struct {
	Token  string `json:"token"`
	Amount int64  `json:"amount"`
}

// ReceiveRequest redeems a token into the wallet.
type ReceiveRequest struct {
	Token string `json:"token" binding:"required,ecash_token" sanitize:"compact"`
}

// ReceiveResponse reports the value credited after fees.
type ReceiveResponse struct {
	Amount int64 `json:"amount"`
}

// ReconcileRequest checks proof states at one mint.
type ReconcileRequest struct {
	MintURL string `json:"mint_url" binding:"omitempty,safe_url" sanitize:"compact"`
}

// ReconcileResponse reports the value of proofs found spent.
type ReconcileResponse struct {
	Removed int64 `json:"removed"`
}

// BalanceResponse is the derived wallet balance.
type BalanceResponse struct {
	Total  int64            `json:"total"`
	ByMint map[string]int64 `json:"by_mint"`
	Unit   string           `json:"unit"`
}

// MintsResponse lists the wallet's mints.
type MintsResponse struct {
	Mints []string `json:"mints"`
}

// CreateMintInvoiceRequest asks a mint for a Lightning invoice to fund the wallet.
type CreateMintInvoiceRequest struct {
	MintURL string `json:"mint_url" binding:"omitempty,safe_url" sanitize:"compact"`
	Amount  int64  `json:"amount" binding:"required,gt=0"`
}

// CreateMeltInvoiceRequest quotes paying an outgoing Lightning invoice.
type CreateMeltInvoiceRequest struct {
	MintURL        string `json:"mint_url" binding:"omitempty,safe_url" sanitize:"compact"`
	PaymentRequest string `json:"payment_request" binding:"required,bolt11" sanitize:"compact"`
}

// InvoiceResponse is the response body for a stored invoice.
type InvoiceResponse struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"`
	MintURL        string  `json:"mint_url"`
	QuoteID        string  `json:"quote_id"`
	PaymentRequest string  `json:"payment_request"`
	Amount         int64   `json:"amount"`
	Fee            *int64  `json:"fee,omitempty"`
	State          string  `json:"state"`
	CreatedAt      string  `json:"created_at"`
	ExpiresAt      *string `json:"expires_at,omitempty"`
	PaidAt         *string `json:"paid_at,omitempty"`
	IssuedAt       *string `json:"issued_at,omitempty"`
	CheckedAt      *string `json:"checked_at,omitempty"`
}

// InvoiceListResponse wraps the invoice list.
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Total int               `json:"total"`
}

// HistoryEntryResponse is one history record.
type HistoryEntryResponse struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Amount       int64  `json:"amount"`
	Fee          int64  `json:"fee,omitempty"`
	Status       string `json:"status"`
	BalanceAfter int64  `json:"balance_after"`
	MintURL      string `json:"mint_url,omitempty"`
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	Message      string `json:"message,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// HistoryListResponse wraps paginated history.
type HistoryListResponse struct {
	Items      []HistoryEntryResponse `json:"items"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
}

// SummaryResponse is the response for wallet totals.
type SummaryResponse struct {
	Entries       int64 `json:"entries"`
	TotalMinted   int64 `json:"total_minted"`
	TotalMelted   int64 `json:"total_melted"`
	TotalSent     int64 `json:"total_sent"`
	TotalReceived int64 `json:"total_received"`
	TotalSpent    int64 `json:"total_spent"`
	TotalRefunded int64 `json:"total_refunded"`
	TotalFees     int64 `json:"total_fees"`
}

// ChatMessage is one turn of a chat.
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant tool"`
	Content string `json:"content"`
}

// ChatCompletionRequest is a paid inference call. Endpoint is the provider
// base URL.
type ChatCompletionRequest struct {
	Endpoint    string        `json:"endpoint" binding:"required,safe_url" sanitize:"compact"`
	Model       string        `json:"model" binding:"required,max=200,safe_id"`
	Messages    []ChatMessage `json:"messages" binding:"required,min=1,dive"`
	Stream      bool          `json:"stream"`
	MaxTokens   *int          `json:"max_tokens,omitempty" binding:"omitempty,gt=0"`
	Temperature *float64      `json:"temperature,omitempty" binding:"omitempty,gte=0,lte=2"`
}

// BillingSummary reports what an inference call cost.
type BillingSummary struct {
	PreAllocated int64 `json:"pre_allocated"`
	Refunded     int64 `json:"refunded"`
	Spent        int64 `json:"spent"`
}

// UsageResponse is the provider-reported token usage.
type UsageResponse struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// ChatCompletionResponse is a completed, reconciled inference call.
type ChatCompletionResponse struct {
	RequestID  string          `json:"request_id"`
	Model      string          `json:"model"`
	Content    string          `json:"content"`
	Usage      UsageResponse   `json:"usage"`
	Billing    BillingSummary  `json:"billing"`
	Completion json.RawMessage `json:"completion,omitempty"`
}
