package aistm7

import (
	"context"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/barkalona/AISTM7/core"
)

// Service wires the requirement policy to its collaborators: the state
// store, the price oracle, the asset ledger and the event sinks.
type Service struct {
	store  core.RequirementStateStore
	oracle core.PriceOracle
	assets core.AssetService
	sink   core.EventSink

	clk clock.Clock
	log core.Log
}

type OptionFunc func(s *Service)

func WithClock(clk clock.Clock) OptionFunc {
	return func(s *Service) {
		s.clk = clk
	}
}

func WithLogger(log core.Log) OptionFunc {
	return func(s *Service) {
		s.log = log
	}
}

func NewService(store core.RequirementStateStore, oracle core.PriceOracle, assets core.AssetService, sink core.EventSink, opts ...OptionFunc) *Service {
	s := &Service{
		store:  store,
		oracle: oracle,
		assets: assets,
		sink:   sink,
		clk:    clock.New(),
		log:    core.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize creates the policy state with its fixed constants and the seed
// requirement, creates the governed asset and mints initialSupply to the
// authority. Create-once: a second call fails with AlreadyInitialized.
func (s *Service) Initialize(ctx context.Context, authority uuid.UUID, initialSupply uint64) (*core.RequirementState, error) {
	if _, err := s.store.GetState(ctx, core.StateKey()); err == nil {
		return nil, core.AlreadyInitialized
	} else if !errors.Is(err, core.StateNotFound) {
		return nil, err
	}

	created, err := s.assets.CreateAsset(ctx, core.ASSET_DECIMALS, authority)
	if err != nil {
		return nil, err
	}

	state := core.NewRequirementState(s.clk, authority, created.Id)
	if err := s.store.CreateState(ctx, state); err != nil {
		// Lost the create-once race: the asset never entered service, so
		// take it back out rather than leaving a stray row.
		if cleanupErr := s.assets.DeleteAsset(ctx, created.Id); cleanupErr != nil {
			s.log.Warn().
				Err(cleanupErr).
				Str("asset", created.Id.String()).
				Msg("failed to clean up asset after lost initialization race")
		}
		return nil, err
	}

	if initialSupply > 0 {
		if err := s.assets.MintTo(ctx, created.Id, authority, initialSupply); err != nil {
			return nil, err
		}
	}

	s.log.Info().
		Str("state", state.Id.String()).
		Str("asset", created.Id.String()).
		Uint64("requirement", state.CurrentRequirement).
		Uint64("initialSupply", initialSupply).
		Msg("requirement policy initialized")

	return state, nil
}

// UpdateRequirement recomputes the requirement from the oracle's current
// price and persists it when the move is material. The caller must be the
// recorded authority; the guard runs before anything else touches state.
// Returns the state after the call and whether it changed.
func (s *Service) UpdateRequirement(ctx context.Context, caller uuid.UUID, feedId string) (*core.RequirementState, bool, error) {
	state, err := s.store.GetState(ctx, core.StateKey())
	if err != nil {
		return nil, false, err
	}

	if state.Authority != caller {
		return nil, false, core.Unauthorized
	}

	price, err := s.oracle.GetCurrentPrice(ctx, feedId)
	if err != nil {
		return nil, false, err
	}
	if price == nil {
		return nil, false, core.NoPriceFound
	}

	changed, err := state.ApplyPrice(s.clk, price.Price)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		s.log.Debug().
			Uint64("price", price.Price).
			Uint64("requirement", state.CurrentRequirement).
			Msg("requirement unchanged, move below threshold")
		return state, false, nil
	}

	if err := s.store.UpdateState(ctx, state); err != nil {
		return nil, false, err
	}

	// The requirement is committed at this point. A sink failure must not
	// turn a landed update into an error, so it is logged and swallowed.
	event := &core.RequirementUpdatedEvent{
		NewRequirement: state.CurrentRequirement,
		Price:          price.Price,
		Timestamp:      state.LastUpdate,
	}
	if err := s.sink.RequirementUpdated(ctx, event); err != nil {
		s.log.Error().
			Err(err).
			Uint64("requirement", state.CurrentRequirement).
			Msg("requirement update committed but event emission failed")
	}

	s.log.Info().
		Uint64("price", price.Price).
		Uint64("requirement", state.CurrentRequirement).
		Msg("requirement updated")

	return state, true, nil
}

// VerifyBalance reports whether holder's balance in the governed asset
// meets the live requirement. Read-only; it never recomputes.
func (s *Service) VerifyBalance(ctx context.Context, holder uuid.UUID) (bool, error) {
	state, err := s.store.GetState(ctx, core.StateKey())
	if err != nil {
		return false, err
	}

	account, err := s.assets.GetTokenAccount(ctx, state.AssetId, holder)
	if err != nil {
		return false, err
	}
	if account.AssetId != state.AssetId {
		return false, core.AssetMismatch
	}

	return state.MeetsRequirement(account.Amount), nil
}

// GetRequirement resolves the current policy state.
func (s *Service) GetRequirement(ctx context.Context) (*core.RequirementState, error) {
	return s.store.GetState(ctx, core.StateKey())
}
