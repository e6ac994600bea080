package core

import (
	"context"
	"time"
)

type (
	// PriceOracle reports the current USD price of the governed asset.
	// Implementations return NoPriceFound when the feed has no usable
	// price; they never retry internally.
	PriceOracle interface {
		GetCurrentPrice(ctx context.Context, feedId string) (*Price, error)
	}

	Price struct {
		// Price is USD micros per whole token.
		Price     uint64    `json:"price"`
		Timestamp time.Time `json:"timestamp"`
	}
)

type OracleSetup uint8

const (
	PythOracle OracleSetup = iota
)

func (os OracleSetup) String() string {
	switch os {
	case PythOracle:
		return "Pyth"
	default:
		return "Unknown"
	}
}
