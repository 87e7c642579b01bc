// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lending/interest"
	"github.com/luxfi/lending/state"
	"github.com/luxfi/lending/utils/units"
)

var bpsDenominator = uint256.NewInt(units.BasisPoints)

// value returns amount * price without loss of precision.
func value(amount, price uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(price))
}

// scaleBps returns v * bps without loss of precision. v must be at most 128
// bits wide.
func scaleBps(v *uint256.Int, bps uint64) *uint256.Int {
	return new(uint256.Int).Mul(v, uint256.NewInt(bps))
}

// accruedDeposit returns the deposit of holding grown at the pool's rate since
// the position's last deposit.
func accruedDeposit(pool *state.Pool, position *state.Position, holding state.Holding, now int64) (uint64, error) {
	return accrue(holding.Deposit.Amount, pool.InterestRate, position.LastDepositUpdate, now)
}

// accruedDebt returns the borrowed principal of holding grown at the pool's
// rate since the position's last borrow.
func accruedDebt(pool *state.Pool, position *state.Position, holding state.Holding, now int64) (uint64, error) {
	return accrue(holding.Borrow.Amount, pool.InterestRate, position.LastBorrowUpdate, now)
}

// settleDebt folds the interest accrued on every borrowed principal of
// position into that principal and restarts the position's borrow accrual at
// now.
func settleDebt(r state.Reader, position *state.Position, now int64) error {
	for i, holding := range position.Holdings {
		if holding.Borrow.IsEmpty() {
			continue
		}
		pool, err := getPool(r, holding.Asset)
		if err != nil {
			return err
		}
		debt, err := accruedDebt(pool, position, holding, now)
		if err != nil {
			return err
		}
		position.Holdings[i].Borrow.Amount = debt
	}
	position.LastBorrowUpdate = now
	return nil
}

func accrue(amount, rate uint64, last, now int64) (uint64, error) {
	if amount == 0 {
		return 0, nil
	}
	elapsed, err := interest.Elapsed(now, last)
	if err != nil {
		return 0, err
	}
	return interest.Accrue(amount, rate, elapsed)
}

// accrueBorrows grows the pool's borrowed bucket to now. Every borrower of a
// pool shares the one interest curve.
func accrueBorrows(pool *state.Pool, now int64) error {
	elapsed, err := interest.Elapsed(now, pool.LastUpdated)
	if err != nil {
		return err
	}
	accrued, err := interest.Accrue(pool.Borrows.Amount, pool.InterestRate, elapsed)
	if err != nil {
		return err
	}
	pool.Borrows.Amount = accrued
	pool.LastUpdated = now
	return nil
}

// owed returns the debt of holding on the pool's interest curve.
func owed(pool *state.Pool, holding state.Holding) (uint64, error) {
	if holding.Borrow.Shares == 0 {
		return 0, nil
	}
	return pool.Borrows.Value(holding.Borrow.Shares)
}

// verifyHealthy returns ErrHealthFactorTooLow if the risk-adjusted value of
// every deposit of position is below the value of its debt after a withdrawal
// of asset. Only the immutable risk parameters of pools other than the locked
// ones are read.
//
// The withdrawn asset and every borrowed asset must be priced. A deposit-only
// holding of another asset that can not be priced counts as no collateral.
func (e *Engine) verifyHealthy(ctx context.Context, r state.Reader, position *state.Position, asset ids.ID, now int64) error {
	if !position.HasDebt() {
		return nil
	}

	var (
		collateral = new(uint256.Int)
		debt       = new(uint256.Int)
	)
	for _, holding := range position.Holdings {
		if holding.Deposit.IsEmpty() && holding.Borrow.IsEmpty() {
			continue
		}
		pool, err := getPool(r, holding.Asset)
		if err != nil {
			return err
		}
		price, err := e.price(ctx, holding.Asset)
		if err != nil {
			if holding.Asset == asset || !holding.Borrow.IsEmpty() {
				return err
			}
			e.log.Debug("excluding unpriced collateral",
				log.Stringer("owner", position.Owner),
				log.Stringer("asset", holding.Asset),
				log.Err(err),
			)
			continue
		}

		deposit, err := accruedDeposit(pool, position, holding, now)
		if err != nil {
			return err
		}
		collateral.Add(collateral, scaleBps(value(deposit, price), pool.LiquidationThreshold))

		borrowed, err := accruedDebt(pool, position, holding, now)
		if err != nil {
			return err
		}
		debt.Add(debt, scaleBps(value(borrowed, price), units.BasisPoints))
	}
	if collateral.Lt(debt) {
		return ErrHealthFactorTooLow
	}
	return nil
}
