package core

import (
	"context"

	"github.com/barkalona/AISTM7/utils"
	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
)

type (
	RequirementStateStore interface {
		// CreateState persists a new state record. It fails with
		// AlreadyInitialized if a record already exists under the same key.
		CreateState(ctx context.Context, state *RequirementState) error
		GetState(ctx context.Context, id uuid.UUID) (*RequirementState, error)
		// UpdateState writes CurrentRequirement and LastUpdate together,
		// guarded by the record's version. It fails with
		// StateVersionConflict if another writer got there first.
		UpdateState(ctx context.Context, state *RequirementState) error
	}

	// RequirementState is the single policy record governing the minimum
	// balance requirement for one asset. Authority and AssetId are fixed at
	// creation; only CurrentRequirement and LastUpdate (and the version
	// counter guarding them) change afterwards.
	RequirementState struct {
		Id        uuid.UUID `json:"id"`
		Authority uuid.UUID `json:"authority"`
		AssetId   uuid.UUID `json:"assetId"`

		TargetUsdMicros uint64 `json:"targetUsdMicros"`
		MinTokens       uint64 `json:"minTokens"`
		MaxTokens       uint64 `json:"maxTokens"`

		CurrentRequirement uint64 `json:"currentRequirement"`
		LastUpdate         int64  `json:"lastUpdate"`

		Version   int64 `json:"version"`
		CreatedAt int64 `json:"createdAt"`
	}
)

// StateKey derives the well-known identifier of the singleton state record.
// Re-deriving it is side-effect free, so any caller can resolve the record
// without coordination.
func StateKey() uuid.UUID {
	return uuid.FromStringOrNil(utils.GenUuidFromStrings(STATE_NAMESPACE))
}

func NewRequirementState(clk clock.Clock, authority, assetId uuid.UUID) *RequirementState {
	return &RequirementState{
		Id:        StateKey(),
		Authority: authority,
		AssetId:   assetId,

		TargetUsdMicros: TARGET_USD_MICROS,
		MinTokens:       MIN_REQUIREMENT_TOKENS,
		MaxTokens:       MAX_REQUIREMENT_TOKENS,

		CurrentRequirement: SEED_REQUIREMENT,

		CreatedAt: clk.Now().Unix(),
	}
}

func (s *RequirementState) Clone() *RequirementState {
	cloned := *s
	return &cloned
}
