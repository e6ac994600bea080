package store

import (
	"context"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/barkalona/AISTM7/core"
)

type (
	requirementState struct {
		Id        string `gorm:"primaryKey;size:36"`
		Authority string `gorm:"size:36;not null"`
		AssetId   string `gorm:"size:36;not null"`

		TargetUsdMicros uint64 `gorm:"not null"`
		MinTokens       uint64 `gorm:"not null"`
		MaxTokens       uint64 `gorm:"not null"`

		CurrentRequirement uint64 `gorm:"not null"`
		LastUpdate         int64  `gorm:"not null"`

		Version   int64 `gorm:"not null"`
		CreatedAt int64 `gorm:"autoCreateTime:false"`
	}

	requirementEvent struct {
		Id             int64  `gorm:"primaryKey;autoIncrement"`
		NewRequirement uint64 `gorm:"not null"`
		Price          uint64 `gorm:"not null"`
		Timestamp      int64  `gorm:"not null;index"`
		CreatedAt      int64  `gorm:"autoCreateTime:false"`
	}
)

func (requirementState) TableName() string { return "requirement_states" }
func (requirementEvent) TableName() string { return "requirement_events" }

// Store persists the requirement state and its audit trail. It implements
// core.RequirementStateStore and core.EventSink.
type Store struct {
	db  *gorm.DB
	clk clock.Clock
}

type OptionFunc func(s *Store)

func WithClock(clk clock.Clock) OptionFunc {
	return func(s *Store) {
		s.clk = clk
	}
}

func New(db *gorm.DB, opts ...OptionFunc) *Store {
	s := &Store{
		db:  db,
		clk: clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to postgres and migrates the schema.
func Open(dsn string, opts ...OptionFunc) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}

	s := New(db, opts...)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying connection so other gorm-backed components can
// share it.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&requirementState{}, &requirementEvent{})
}

func (s *Store) CreateState(ctx context.Context, state *core.RequirementState) error {
	err := s.db.WithContext(ctx).Create(stateToRow(state)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return core.AlreadyInitialized
		}
		return errors.Wrap(err, "create requirement state")
	}
	return nil
}

func (s *Store) GetState(ctx context.Context, id uuid.UUID) (*core.RequirementState, error) {
	var row requirementState
	err := s.db.WithContext(ctx).First(&row, "id = ?", id.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.StateNotFound
		}
		return nil, errors.Wrap(err, "get requirement state")
	}
	return rowToState(&row), nil
}

func (s *Store) UpdateState(ctx context.Context, state *core.RequirementState) error {
	result := s.db.WithContext(ctx).
		Model(&requirementState{}).
		Where("id = ? AND version = ?", state.Id.String(), state.Version).
		Updates(map[string]any{
			"current_requirement": state.CurrentRequirement,
			"last_update":         state.LastUpdate,
			"version":             state.Version + 1,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "update requirement state")
	}
	if result.RowsAffected == 0 {
		return core.StateVersionConflict
	}

	state.Version++
	return nil
}

func (s *Store) RequirementUpdated(ctx context.Context, event *core.RequirementUpdatedEvent) error {
	row := requirementEvent{
		NewRequirement: event.NewRequirement,
		Price:          event.Price,
		Timestamp:      event.Timestamp,
		CreatedAt:      s.clk.Now().Unix(),
	}
	return errors.Wrap(s.db.WithContext(ctx).Create(&row).Error, "append requirement event")
}

// ListEvents returns the newest events first, capped at limit.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]*core.RequirementUpdatedEvent, error) {
	var rows []requirementEvent
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list requirement events")
	}

	events := make([]*core.RequirementUpdatedEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, &core.RequirementUpdatedEvent{
			NewRequirement: row.NewRequirement,
			Price:          row.Price,
			Timestamp:      row.Timestamp,
		})
	}
	return events, nil
}

func (s *Store) Ping(ctx context.Context) error {
	db, err := s.db.WithContext(ctx).DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func stateToRow(state *core.RequirementState) *requirementState {
	return &requirementState{
		Id:                 state.Id.String(),
		Authority:          state.Authority.String(),
		AssetId:            state.AssetId.String(),
		TargetUsdMicros:    state.TargetUsdMicros,
		MinTokens:          state.MinTokens,
		MaxTokens:          state.MaxTokens,
		CurrentRequirement: state.CurrentRequirement,
		LastUpdate:         state.LastUpdate,
		Version:            state.Version,
		CreatedAt:          state.CreatedAt,
	}
}

func rowToState(row *requirementState) *core.RequirementState {
	return &core.RequirementState{
		Id:                 uuid.FromStringOrNil(row.Id),
		Authority:          uuid.FromStringOrNil(row.Authority),
		AssetId:            uuid.FromStringOrNil(row.AssetId),
		TargetUsdMicros:    row.TargetUsdMicros,
		MinTokens:          row.MinTokens,
		MaxTokens:          row.MaxTokens,
		CurrentRequirement: row.CurrentRequirement,
		LastUpdate:         row.LastUpdate,
		Version:            row.Version,
		CreatedAt:          row.CreatedAt,
	}
}
