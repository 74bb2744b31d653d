package service

import (
	"sort"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/pkg/apperror"
)

// FeeFunc returns the mint's input fee for spending proofs.
type FeeFunc func(domain.Proofs) int64

// Selector finds subsets of proofs that pay an amount exactly.
type Selector struct {
	maxFeeIterations int
	maxDPAmount      int64
}

// NewSelector creates a selector. maxFeeIterations caps the fee convergence
// loop; targets above maxDPAmount are never run through the DP.
func NewSelector(maxFeeIterations int, maxDPAmount int64) *Selector {
	if maxFeeIterations <= 0 {
		maxFeeIterations = 100
	}
	return &Selector{maxFeeIterations: maxFeeIterations, maxDPAmount: maxDPAmount}
}

// SelectExact returns proofs summing to exactly target. The DP walks amounts
// 0..target; dp[a] holds one multiset of denomination counts reaching a, built
// from the first ascending denomination whose count at dp[a-d] is still below
// its supply.
func (s *Selector) SelectExact(proofs domain.Proofs, target int64) (domain.Proofs, error) {
	if target <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if proofs.Sum() < target {
		return nil, apperror.ErrInsufficientFunds()
	}
	if s.maxDPAmount > 0 && target > s.maxDPAmount {
		return nil, apperror.ErrNoExactChange()
	}

	byDenom := make(map[int64]domain.Proofs)
	for _, p := range proofs.SortedByAmount() {
		if p.Amount <= target {
			byDenom[p.Amount] = append(byDenom[p.Amount], p)
		}
	}
	denoms := make([]int64, 0, len(byDenom))
	for d := range byDenom {
		denoms = append(denoms, d)
	}
	sort.Slice(denoms, func(i, j int) bool { return denoms[i] < denoms[j] })

	n := len(denoms)
	if n == 0 {
		return nil, apperror.ErrNoExactChange()
	}

	// counts is dp flattened: counts[a*n+i] is how many of denoms[i] reach a.
	counts := make([]int32, (target+1)*int64(n))
	reachable := make([]bool, target+1)
	reachable[0] = true

	for a := int64(1); a <= target; a++ {
		for i, d := range denoms {
			if d > a {
				break
			}
			prev := a - d
			if !reachable[prev] || int(counts[prev*int64(n)+int64(i)]) >= len(byDenom[d]) {
				continue
			}
			copy(counts[a*int64(n):(a+1)*int64(n)], counts[prev*int64(n):(prev+1)*int64(n)])
			counts[a*int64(n)+int64(i)]++
			reachable[a] = true
			break
		}
	}

	if !reachable[target] {
		return nil, apperror.ErrNoExactChange()
	}

	selected := make(domain.Proofs, 0)
	for i, d := range denoms {
		c := int(counts[target*int64(n)+int64(i)])
		selected = append(selected, byDenom[d][:c]...)
	}
	return selected, nil
}

// SelectWithFees returns proofs summing to exactly target plus the fee the
// mint charges to spend them. Because the fee depends on the selection and
// the selection on the fee, the required total is recomputed until it stops
// changing. The loop is capped; when it does not settle the caller gets
// ErrFeeNotConverged rather than an overpaying selection.
func (s *Selector) SelectWithFees(proofs domain.Proofs, target int64, fee FeeFunc) (domain.Proofs, int64, error) {
	if fee == nil {
		selected, err := s.SelectExact(proofs, target)
		return selected, 0, err
	}

	required := target
	for i := 0; i < s.maxFeeIterations; i++ {
		selected, err := s.SelectExact(proofs, required)
		if err != nil {
			return nil, 0, err
		}
		f := fee(selected)
		if target+f == required {
			return selected, f, nil
		}
		required = target + f
	}
	return nil, 0, apperror.ErrFeeNotConverged()
}

// SelectCovering returns a largest-first set of proofs whose value covers
// target plus its own input fee. It backs the swap fallback when no exact
// selection exists.
func (s *Selector) SelectCovering(proofs domain.Proofs, target int64, fee FeeFunc) (domain.Proofs, error) {
	if target <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	sorted := proofs.SortedByAmount()
	selected := make(domain.Proofs, 0)
	var sum int64
	for i := len(sorted) - 1; i >= 0; i-- {
		selected = append(selected, sorted[i])
		sum += sorted[i].Amount
		var f int64
		if fee != nil {
			f = fee(selected)
		}
		if sum >= target+f {
			return selected, nil
		}
	}
	return nil, apperror.ErrInsufficientFunds()
}
