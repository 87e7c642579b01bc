// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package lending implements the accounting core of a collateralized lending
// pool: share-denominated deposits and borrows per asset, borrow authorization
// against oracle prices, and liquidation of under-collateralized positions.
package lending

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/lending/interest"
	"github.com/luxfi/lending/oracle"
	"github.com/luxfi/lending/state"
	"github.com/luxfi/lending/utils/timer/mockable"
)

const (
	opCreatePool     = "create_pool"
	opCreatePosition = "create_position"
	opMint           = "mint"
	opDeposit        = "deposit"
	opWithdraw       = "withdraw"
	opBorrow         = "borrow"
	opRepay          = "repay"
	opLiquidate      = "liquidate"
)

// Engine is the lending protocol engine. Every mutating operation runs
// against its own diff of the ledger and either commits in full or leaves the
// ledger untouched.
type Engine struct {
	config  Config
	ledger  *state.Ledger
	oracle  oracle.Oracle
	clock   *mockable.Clock
	log     log.Logger
	metrics *engineMetrics
	locks   *lockSet
}

// New returns an engine keeping its ledger in db.
func New(
	config Config,
	db database.Database,
	priceOracle oracle.Oracle,
	clock *mockable.Clock,
	logger log.Logger,
	registerer metric.Registerer,
) (*Engine, error) {
	if err := config.Verify(); err != nil {
		return nil, err
	}
	metrics, err := newMetrics(registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return &Engine{
		config:  config,
		ledger:  state.New(db),
		oracle:  priceOracle,
		clock:   clock,
		log:     logger,
		metrics: metrics,
		locks:   newLockSet(),
	}, nil
}

// execute runs fn on a fresh diff while holding keys and commits the diff if
// fn succeeds.
func (e *Engine) execute(op string, keys []string, fn func(diff *state.Diff, now int64) error) error {
	unlock := e.locks.Lock(keys...)
	defer unlock()

	diff := e.ledger.NewDiff()
	defer diff.Abort()

	err := fn(diff, e.clock.Unix())
	if err == nil {
		err = diff.Commit()
	}
	e.metrics.observe(op, err)
	if err != nil {
		e.log.Warn("lending operation failed",
			log.String("op", op),
			log.Err(err),
		)
		return err
	}
	return nil
}

// CreatePool creates the pool for config.Asset. Creating a pool that already
// exists returns the existing pool unchanged.
func (e *Engine) CreatePool(config PoolConfig) (*state.Pool, error) {
	if err := config.Verify(); err != nil {
		return nil, err
	}
	rate, err := interest.PerSecondRate(e.config.AnnualInterestRateBps)
	if err != nil {
		return nil, err
	}

	var pool *state.Pool
	err = e.execute(opCreatePool, []string{poolKey(config.Asset)}, func(diff *state.Diff, now int64) error {
		existing, err := diff.GetPool(config.Asset)
		switch {
		case err == nil:
			pool = existing
			return nil
		case !errors.Is(err, database.ErrNotFound):
			return err
		}

		pool = &state.Pool{
			Asset:                  config.Asset,
			LiquidationThreshold:   config.LiquidationThreshold,
			MaxLTV:                 config.MaxLTV,
			LiquidationCloseFactor: config.LiquidationCloseFactor,
			LiquidationBonus:       config.LiquidationBonus,
			InterestRate:           rate,
			LastUpdated:            now,
		}
		if err := diff.PutPool(pool); err != nil {
			return err
		}
		e.log.Info("created lending pool",
			log.Stringer("asset", config.Asset),
			log.Uint64("interestRate", rate),
		)
		return nil
	})
	return pool, err
}

// CreatePosition creates the position of owner. Creating a position that
// already exists returns the existing position unchanged.
func (e *Engine) CreatePosition(owner ids.ShortID, referenceAsset ids.ID) (*state.Position, error) {
	var position *state.Position
	err := e.execute(opCreatePosition, []string{positionKey(owner)}, func(diff *state.Diff, _ int64) error {
		existing, err := diff.GetPosition(owner)
		switch {
		case err == nil:
			position = existing
			return nil
		case !errors.Is(err, database.ErrNotFound):
			return err
		}

		position = &state.Position{
			Owner:          owner,
			ReferenceAsset: referenceAsset,
		}
		position.SetHolding(state.Holding{Asset: referenceAsset})
		if err := diff.PutPosition(position); err != nil {
			return err
		}
		e.log.Info("created lending position",
			log.Stringer("owner", owner),
			log.Stringer("referenceAsset", referenceAsset),
		)
		return nil
	})
	return position, err
}

// GetPool returns the committed pool for asset.
func (e *Engine) GetPool(asset ids.ID) (*state.Pool, error) {
	return getPool(e.ledger, asset)
}

// GetPosition returns the committed position of owner.
func (e *Engine) GetPosition(owner ids.ShortID) (*state.Position, error) {
	return getPosition(e.ledger, owner)
}

// Balance returns the committed balance of asset held by account.
func (e *Engine) Balance(account ids.ShortID, asset ids.ID) (uint64, error) {
	return e.ledger.GetBalance(account, asset)
}

// Mint credits amount of asset to account. It funds accounts outside of the
// lending flows, for example at genesis or in simulations.
func (e *Engine) Mint(account ids.ShortID, asset ids.ID, amount uint64) error {
	return e.execute(opMint, []string{poolKey(asset)}, func(diff *state.Diff, _ int64) error {
		return diff.Mint(account, asset, amount)
	})
}

func getPool(r state.Reader, asset ids.ID) (*state.Pool, error) {
	pool, err := r.GetPool(asset)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, asset)
	}
	return pool, err
}

func getPosition(r state.Reader, owner ids.ShortID) (*state.Position, error) {
	position, err := r.GetPosition(owner)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, owner)
	}
	return position, err
}

// price returns the price of asset if it is fresh and precise enough.
func (e *Engine) price(ctx context.Context, asset ids.ID) (uint64, error) {
	p, err := e.oracle.GetPrice(ctx, asset, e.config.MaxPriceAge)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch price of %s: %w", asset, err)
	}
	if p.Value == 0 {
		return 0, fmt.Errorf("%w: %s", oracle.ErrZeroPrice, asset)
	}
	if err := oracle.VerifyConfidence(p, e.config.MaxConfidenceBps); err != nil {
		return 0, fmt.Errorf("price of %s: %w", asset, err)
	}
	return p.Value, nil
}
