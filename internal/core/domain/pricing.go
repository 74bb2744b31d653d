package domain

import "github.com/shopspring/decimal"

// ModelPricing is the provider-declared price of one model.
type ModelPricing struct {
	ID              string          `json:"id"`
	MaxCost         int64           `json:"max_cost"` // upper bound per request, 0 when undeclared
	PromptPrice     decimal.Decimal `json:"prompt_price"`
	CompletionPrice decimal.Decimal `json:"completion_price"`
}

// Usage is the token accounting a provider reports for one completion.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// HasCounters reports whether the provider returned any usage.
func (u Usage) HasCounters() bool {
	return u.PromptTokens > 0 || u.CompletionTokens > 0
}

// ExpectedCost returns what the usage should cost at the declared prices.
func (m ModelPricing) ExpectedCost(u Usage) decimal.Decimal {
	prompt := m.PromptPrice.Mul(decimal.NewFromInt(u.PromptTokens))
	completion := m.CompletionPrice.Mul(decimal.NewFromInt(u.CompletionTokens))
	return prompt.Add(completion)
}

// HasTokenPrices reports whether per-token prices were declared.
func (m ModelPricing) HasTokenPrices() bool {
	return m.PromptPrice.IsPositive() || m.CompletionPrice.IsPositive()
}
