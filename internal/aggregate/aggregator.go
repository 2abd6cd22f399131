package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"deltaLens/internal/metrics"
	"deltaLens/internal/model"
	"deltaLens/internal/registry"
	"deltaLens/internal/storage"
)

// Reader is the set of protocol reads one pass needs.
type Reader interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Liquidity(ctx context.Context, asset common.Address) (*big.Int, error)
	SupplyBalance(ctx context.Context, account, asset common.Address) (model.BalanceSplit, error)
	BorrowBalance(ctx context.Context, account, asset common.Address) (model.BalanceSplit, error)
	CollateralRatio(ctx context.Context) (*big.Int, error)
}

// History records accepted snapshots.
type History interface {
	Append(snapshot model.PoolSnapshot) error
}

// Config controls aggregation behavior.
type Config struct {
	ChainID     uint64
	Concurrency int
	History     History
	Metrics     *metrics.Metrics
}

// Aggregator reads account positions and persists them as a pool snapshot.
type Aggregator struct {
	cfg    Config
	reader Reader
	store  storage.SnapshotStore
	logger *zap.Logger
	now    func() time.Time
}

func NewAggregator(cfg Config, reader Reader, store storage.SnapshotStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	return &Aggregator{
		cfg:    cfg,
		reader: reader,
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one aggregation pass for account over assets and stores the
// result. Nothing is stored if any read fails.
func (a *Aggregator) Run(ctx context.Context, account common.Address, assets []registry.Asset) (model.PoolSnapshot, error) {
	if a.store == nil {
		return model.PoolSnapshot{}, fmt.Errorf("store is nil")
	}
	start := time.Now()

	seq, err := a.store.NextSequence(ctx)
	if err != nil {
		a.cfg.Metrics.ObservePass("error", time.Since(start))
		return model.PoolSnapshot{}, fmt.Errorf("allocate seq: %w", err)
	}

	positions, ratio, err := a.Collect(ctx, account, assets)
	if err != nil {
		a.cfg.Metrics.ObservePass("error", time.Since(start))
		return model.PoolSnapshot{}, err
	}

	pools := make([]model.Pool, 0, len(positions))
	for _, pos := range positions {
		pools = append(pools, BuildPool(pos, ratio))
	}

	snapshot := model.PoolSnapshot{
		SchemaVersion: model.SnapshotSchemaVersion,
		Seq:           seq,
		Account:       account.Hex(),
		ChainID:       a.cfg.ChainID,
		UpdatedAt:     a.now(),
		Pools:         pools,
	}

	if err := a.store.SavePools(ctx, snapshot); err != nil {
		if errors.Is(err, storage.ErrStaleSnapshot) {
			a.cfg.Metrics.ObserveStaleSnapshot()
			a.cfg.Metrics.ObservePass("stale", time.Since(start))
			a.logger.Warn("discarding superseded pass", zap.Uint64("seq", seq), zap.Error(err))
			return snapshot, err
		}
		a.cfg.Metrics.ObservePass("error", time.Since(start))
		return snapshot, fmt.Errorf("save pools: %w", err)
	}

	if a.cfg.History != nil {
		if err := a.cfg.History.Append(snapshot); err != nil {
			a.cfg.Metrics.ObservePass("error", time.Since(start))
			return snapshot, fmt.Errorf("append history: %w", err)
		}
	}

	a.cfg.Metrics.ObservePass("ok", time.Since(start))
	a.logger.Info("aggregation pass complete",
		zap.Uint64("seq", seq),
		zap.String("account", snapshot.Account),
		zap.Int("pools", len(pools)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return snapshot, nil
}

// Collect reads every asset concurrently and returns the positions in the
// order of assets, plus the collateral ratio read once for the pass.
func (a *Aggregator) Collect(ctx context.Context, account common.Address, assets []registry.Asset) ([]Position, *big.Int, error) {
	if a.reader == nil {
		return nil, nil, fmt.Errorf("reader is nil")
	}
	positions := make([]Position, len(assets))
	if len(assets) == 0 {
		return positions, new(big.Int), nil
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(a.cfg.Concurrency)

	var ratio *big.Int
	group.Go(func() error {
		value, err := a.reader.CollateralRatio(gctx)
		if err != nil {
			return fmt.Errorf("read collateral ratio: %w", err)
		}
		ratio = value
		return nil
	})

	for i, asset := range assets {
		group.Go(func() error {
			pos, err := a.readPosition(gctx, account, asset)
			if err != nil {
				return fmt.Errorf("read %s: %w", asset.Symbol, err)
			}
			positions[i] = pos
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, nil, err
	}
	return positions, ratio, nil
}

func (a *Aggregator) readPosition(ctx context.Context, account common.Address, asset registry.Asset) (Position, error) {
	pos := Position{Asset: asset}
	var err error

	if pos.Balance, err = a.reader.BalanceOf(ctx, asset.Address, account); err != nil {
		return Position{}, err
	}
	if pos.Supply, err = a.reader.SupplyBalance(ctx, account, asset.Address); err != nil {
		return Position{}, err
	}
	if pos.Borrow, err = a.reader.BorrowBalance(ctx, account, asset.Address); err != nil {
		return Position{}, err
	}
	if pos.Liquidity, err = a.reader.Liquidity(ctx, asset.Address); err != nil {
		return Position{}, err
	}

	a.logger.Debug("position read",
		zap.String("asset", asset.Symbol),
		zap.String("balance", pos.Balance.String()),
	)
	return pos, nil
}
