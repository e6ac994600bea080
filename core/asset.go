package core

import (
	"context"

	"github.com/gofrs/uuid"
)

type (
	// AssetService is the external ledger the policy delegates token
	// mechanics to. The core never mutates balances itself.
	AssetService interface {
		CreateAsset(ctx context.Context, decimals int32, mintAuthority uuid.UUID) (*Asset, error)
		// DeleteAsset removes an asset that never entered service. It is
		// compensation for a failed initialization, not lifecycle teardown.
		DeleteAsset(ctx context.Context, assetId uuid.UUID) error
		MintTo(ctx context.Context, assetId, holder uuid.UUID, amount uint64) error
		BalanceOf(ctx context.Context, assetId, holder uuid.UUID) (uint64, error)
		GetTokenAccount(ctx context.Context, assetId, holder uuid.UUID) (*TokenAccount, error)
	}

	Asset struct {
		Id            uuid.UUID `json:"id"`
		Decimals      int32     `json:"decimals"`
		MintAuthority uuid.UUID `json:"mintAuthority"`
		CreatedAt     int64     `json:"createdAt"`
	}

	TokenAccount struct {
		AssetId    uuid.UUID `json:"assetId"`
		Holder     uuid.UUID `json:"holder"`
		Amount     uint64    `json:"amount"`
		LastUpdate int64     `json:"lastUpdate"`
	}
)
