package ledger

import (
	"context"
	"math"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/barkalona/AISTM7/core"
)

type (
	asset struct {
		Id            string `gorm:"primaryKey;size:36"`
		Decimals      int32  `gorm:"not null"`
		MintAuthority string `gorm:"size:36;not null"`
		CreatedAt     int64  `gorm:"autoCreateTime:false"`
	}

	tokenAccount struct {
		AssetId    string `gorm:"primaryKey;size:36"`
		Holder     string `gorm:"primaryKey;size:36"`
		Amount     uint64 `gorm:"not null"`
		LastUpdate int64  `gorm:"not null"`
	}
)

func (asset) TableName() string        { return "assets" }
func (tokenAccount) TableName() string { return "token_accounts" }

// Ledger is a gorm-backed core.AssetService. Minting upserts the holder's
// token account inside a transaction so concurrent mints never lose an
// increment.
type Ledger struct {
	db  *gorm.DB
	clk clock.Clock
}

type OptionFunc func(l *Ledger)

func WithClock(clk clock.Clock) OptionFunc {
	return func(l *Ledger) {
		l.clk = clk
	}
}

func New(db *gorm.DB, opts ...OptionFunc) *Ledger {
	l := &Ledger{
		db:  db,
		clk: clock.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Migrate() error {
	return l.db.AutoMigrate(&asset{}, &tokenAccount{})
}

func (l *Ledger) CreateAsset(ctx context.Context, decimals int32, mintAuthority uuid.UUID) (*core.Asset, error) {
	created := &core.Asset{
		Id:            uuid.Must(uuid.NewV4()),
		Decimals:      decimals,
		MintAuthority: mintAuthority,
		CreatedAt:     l.clk.Now().Unix(),
	}

	row := asset{
		Id:            created.Id.String(),
		Decimals:      created.Decimals,
		MintAuthority: created.MintAuthority.String(),
		CreatedAt:     created.CreatedAt,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, errors.Wrap(core.AssetCreationFailed, err.Error())
	}
	return created, nil
}

func (l *Ledger) DeleteAsset(ctx context.Context, assetId uuid.UUID) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&tokenAccount{}, "asset_id = ?", assetId.String()).Error; err != nil {
			return err
		}
		return tx.Delete(&asset{}, "id = ?", assetId.String()).Error
	})
}

func (l *Ledger) MintTo(ctx context.Context, assetId, holder uuid.UUID, amount uint64) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var mint asset
		if err := tx.First(&mint, "id = ?", assetId.String()).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return core.MintFailed
			}
			return err
		}

		var account tokenAccount
		err := tx.First(&account, "asset_id = ? AND holder = ?", assetId.String(), holder.String()).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			account = tokenAccount{
				AssetId: assetId.String(),
				Holder:  holder.String(),
			}
		}

		next, err := addAmount(account.Amount, amount)
		if err != nil {
			return err
		}
		account.Amount = next
		account.LastUpdate = l.clk.Now().Unix()

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "asset_id"}, {Name: "holder"}},
			UpdateAll: true,
		}).Create(&account).Error
	})
	if err != nil {
		if errors.Is(err, core.MintFailed) || errors.Is(err, core.MathOverflow) {
			return err
		}
		return errors.Wrap(core.MintFailed, err.Error())
	}
	return nil
}

func addAmount(current, delta uint64) (uint64, error) {
	if current > math.MaxUint64-delta {
		return 0, core.MathOverflow
	}
	return current + delta, nil
}

func (l *Ledger) BalanceOf(ctx context.Context, assetId, holder uuid.UUID) (uint64, error) {
	account, err := l.GetTokenAccount(ctx, assetId, holder)
	if err != nil {
		return 0, err
	}
	return account.Amount, nil
}

func (l *Ledger) GetTokenAccount(ctx context.Context, assetId, holder uuid.UUID) (*core.TokenAccount, error) {
	var row tokenAccount
	err := l.db.WithContext(ctx).
		First(&row, "asset_id = ? AND holder = ?", assetId.String(), holder.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.TokenAccountNotFound
		}
		return nil, errors.Wrap(err, "get token account")
	}

	return &core.TokenAccount{
		AssetId:    uuid.FromStringOrNil(row.AssetId),
		Holder:     uuid.FromStringOrNil(row.Holder),
		Amount:     row.Amount,
		LastUpdate: row.LastUpdate,
	}, nil
}
