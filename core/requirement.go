package core

import (
	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
)

// ComputeRequirement converts a price into the token count worth
// TargetUsdMicros at that price, floor-divided and clamped to the policy
// bounds. price is USD micros per whole token.
func (s *RequirementState) ComputeRequirement(price uint64) (uint64, error) {
	if price == 0 {
		return 0, DivisionByZero
	}

	raw := s.TargetUsdMicros / price

	if raw < s.MinTokens {
		return s.MinTokens, nil
	}
	if raw > s.MaxTokens {
		return s.MaxTokens, nil
	}
	return raw, nil
}

// ChangePercent measures how far candidate is from the current requirement,
// in whole signed percent truncated toward zero. A zero current requirement
// counts as a 100% change so the first real price always lands.
//
// Truncation is deliberate: a candidate one token away from a large current
// requirement floors to 0% and is suppressed even though the integer value
// moved. Downstream consumers depend on that cadence.
func (s *RequirementState) ChangePercent(candidate uint64) int64 {
	if s.CurrentRequirement == 0 {
		return 100
	}

	current := decimal.NewFromUint64(s.CurrentRequirement)
	diff := decimal.NewFromUint64(candidate).Sub(current)

	return diff.Mul(ONE_HUNDRED).Div(current).Truncate(0).IntPart()
}

// ApplyPrice runs one full recomputation step against the state in memory.
// It reports whether the state changed; the caller persists and emits only
// when it did. CurrentRequirement and LastUpdate move together or not at all.
func (s *RequirementState) ApplyPrice(clk clock.Clock, price uint64) (bool, error) {
	candidate, err := s.ComputeRequirement(price)
	if err != nil {
		return false, err
	}

	changePct := s.ChangePercent(candidate)
	if changePct < 0 {
		changePct = -changePct
	}
	if changePct < MATERIAL_CHANGE_PCT {
		return false, nil
	}

	s.CurrentRequirement = candidate
	s.LastUpdate = clk.Now().Unix()
	return true, nil
}

// MeetsRequirement is the verification predicate: a holder passes iff their
// balance is at least the live requirement.
func (s *RequirementState) MeetsRequirement(balance uint64) bool {
	return balance >= s.CurrentRequirement
}
