// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/lending/lending"
	"github.com/luxfi/lending/oracle"
	"github.com/luxfi/lending/utils/timer/mockable"
)

var (
	errUnexpectedSuccess = errors.New("step succeeded but was expected to fail")
	errAlreadyRun        = errors.New("runner already replayed a scenario")
)

// Runner replays a scenario against a fresh in-memory ledger.
type Runner struct {
	config     lending.Config
	log        log.Logger
	registerer metric.Registerer
	clock      *mockable.Clock

	engine *lending.Engine
	// setPrice publishes a scenario price to the oracle read by engine.
	setPrice func(asset ids.ID, price uint64)
	assets   []string
	accounts []string
}

func NewRunner(config lending.Config, logger log.Logger, registerer metric.Registerer) (*Runner, error) {
	if err := config.Verify(); err != nil {
		return nil, err
	}
	clock := &mockable.Clock{}
	clock.Set(time.Unix(0, 0))
	return &Runner{
		config:     config,
		log:        logger,
		registerer: registerer,
		clock:      clock,
	}, nil
}

// newOracle returns the oracle selected by s along with the function that
// publishes prices to it.
func (r *Runner) newOracle(s *Scenario) (oracle.Oracle, func(ids.ID, uint64), error) {
	if s.Oracle != OracleTWAP {
		feed := oracle.NewFeed(r.clock)
		return feed, feed.SetPrice, nil
	}

	window := s.Window
	if window == 0 {
		window = oracle.DefaultTWAPWindow
	}
	twap, err := oracle.NewTWAP(r.clock, window)
	if err != nil {
		return nil, nil, err
	}
	r.log.Info("serving time-weighted prices",
		log.Stringer("window", twap.Window()),
	)
	return twap, twap.RecordNow, nil
}

// Run applies every step of s in order and reports the final ledger. It stops
// at the first step whose outcome differs from what the scenario expects.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Report, error) {
	if r.engine != nil {
		return nil, errAlreadyRun
	}
	r.clock.Set(time.Unix(s.Start, 0))

	priceOracle, setPrice, err := r.newOracle(s)
	if err != nil {
		return nil, err
	}
	r.engine, err = lending.New(r.config, memdb.New(), priceOracle, r.clock, r.log, r.registerer)
	if err != nil {
		return nil, err
	}
	r.setPrice = setPrice

	for _, asset := range s.Assets {
		config, err := asset.poolConfig()
		if err != nil {
			return nil, err
		}
		if _, err := r.engine.CreatePool(config); err != nil {
			return nil, fmt.Errorf("failed to create pool %s: %w", asset.Name, err)
		}
		r.setPrice(config.Asset, asset.Price)
		r.assets = append(r.assets, asset.Name)
	}

	report := &Report{Oracle: cmp.Or(s.Oracle, OracleFeed)}
	for i, step := range s.Steps {
		result, err := r.apply(ctx, step)
		switch {
		case err != nil && !step.Fails:
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		case err == nil && step.Fails:
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, errUnexpectedSuccess)
		case err != nil:
			result.Error = err.Error()
		}
		r.log.Debug("applied scenario step",
			log.Int("index", i),
			log.String("op", step.Op),
		)
		report.Steps = append(report.Steps, result)
	}

	if err := r.snapshot(report); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Runner) apply(ctx context.Context, step Step) (StepResult, error) {
	result := StepResult{
		Op:      step.Op,
		Account: step.Account,
		Asset:   step.Asset,
		Amount:  step.Amount,
	}

	// Names were checked by Verify.
	asset, _ := assetID(step.Asset)
	account, _ := accountID(step.Account)
	if step.Account != "" && !slices.Contains(r.accounts, step.Account) {
		r.accounts = append(r.accounts, step.Account)
	}

	switch step.Op {
	case OpPosition:
		_, err := r.engine.CreatePosition(account, asset)
		return result, err
	case OpMint:
		return result, r.engine.Mint(account, asset, step.Amount)
	case OpPrice:
		result.Amount = step.Price
		r.setPrice(asset, step.Price)
		return result, nil
	case OpAdvance:
		r.clock.Advance(step.Duration)
		return result, nil
	case OpDeposit:
		return result, r.engine.Deposit(account, asset, step.Amount)
	case OpWithdraw:
		return result, r.engine.Withdraw(ctx, account, asset, step.Amount)
	case OpBorrow:
		collateral, _ := assetID(step.Collateral)
		return result, r.engine.Borrow(ctx, account, collateral, asset, step.Amount)
	case OpRepay:
		return result, r.engine.Repay(account, asset, step.Amount)
	case OpLiquidate:
		collateral, _ := assetID(step.Collateral)
		liquidator, _ := accountID(step.Liquidator)
		if !slices.Contains(r.accounts, step.Liquidator) {
			r.accounts = append(r.accounts, step.Liquidator)
		}
		event, err := r.engine.Liquidate(ctx, liquidator, account, collateral, asset)
		if err != nil {
			return result, err
		}
		result.Amount = event.DebtRepaid
		result.Liquidation = &Liquidation{
			Liquidator:       step.Liquidator,
			Collateral:       step.Collateral,
			DebtRepaid:       event.DebtRepaid,
			CollateralSeized: event.CollateralSeized,
			LiquidatorBonus:  event.LiquidatorBonus,
			HealthFactor:     event.HealthFactor,
		}
		return result, nil
	default:
		return result, fmt.Errorf("%w: %q", errUnknownOp, step.Op)
	}
}

func (r *Runner) snapshot(report *Report) error {
	report.Time = r.clock.Unix()

	assets := slices.Sorted(slices.Values(r.assets))
	for _, name := range assets {
		id, _ := assetID(name)
		pool, err := r.engine.GetPool(id)
		if err != nil {
			return err
		}
		report.Pools = append(report.Pools, PoolReport{
			Asset:         name,
			Deposits:      pool.Deposits.Amount,
			DepositShares: pool.Deposits.Shares,
			Borrows:       pool.Borrows.Amount,
			BorrowShares:  pool.Borrows.Shares,
			LastUpdated:   pool.LastUpdated,
		})
	}

	for _, name := range slices.Sorted(slices.Values(r.accounts)) {
		owner, _ := accountID(name)
		account := AccountReport{Account: name}

		position, err := r.engine.GetPosition(owner)
		switch {
		case errors.Is(err, lending.ErrPositionNotFound):
		case err != nil:
			return err
		}

		for _, assetName := range assets {
			asset, _ := assetID(assetName)
			balance, err := r.engine.Balance(owner, asset)
			if err != nil {
				return err
			}

			entry := AccountAsset{
				Asset:   assetName,
				Balance: balance,
			}
			if position != nil {
				holding := position.Holding(asset)
				entry.Deposited = holding.Deposit.Amount
				entry.Borrowed = holding.Borrow.Amount
			}
			if entry != (AccountAsset{Asset: assetName}) {
				account.Assets = append(account.Assets, entry)
			}
		}
		report.Accounts = append(report.Accounts, account)
	}
	return nil
}
