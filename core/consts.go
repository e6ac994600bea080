package core

import (
	"github.com/shopspring/decimal"
)

const (
	// USD amounts are fixed-point with six decimal places.
	USD_MICROS = 1_000_000

	// $15 worth of tokens is the value the requirement tracks.
	TARGET_USD_MICROS uint64 = 15_000_000

	// Bounds on the requirement regardless of price.
	MIN_REQUIREMENT_TOKENS uint64 = 100
	MAX_REQUIREMENT_TOKENS uint64 = 10_000

	// Seed requirement at initialization, assuming $0.02 per token.
	// Not derived from a live price.
	SEED_REQUIREMENT uint64 = 750

	ASSET_DECIMALS int32 = 9

	// Recomputed requirements within this percentage of the current
	// value are dropped instead of persisted.
	MATERIAL_CHANGE_PCT int64 = 1

	STATE_NAMESPACE = "requirement_state"
)

var (
	ONE_HUNDRED = decimal.NewFromInt(100)
)
