// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"context"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lending/shares"
	"github.com/luxfi/lending/state"
	"github.com/luxfi/lending/utils/math"
	"github.com/luxfi/lending/utils/units"
)

// Borrow lends amount of borrowAsset to owner against the owner's deposit of
// collateralAsset.
//
// The value of the requested amount, together with the owner's outstanding
// debt in borrowAsset, may not exceed the accrued collateral value scaled by
// the borrow pool's maximum LTV.
func (e *Engine) Borrow(
	ctx context.Context,
	owner ids.ShortID,
	collateralAsset ids.ID,
	borrowAsset ids.ID,
	amount uint64,
) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if collateralAsset == borrowAsset {
		return ErrSameAsset
	}

	keys := []string{poolKey(collateralAsset), poolKey(borrowAsset), positionKey(owner)}
	return e.execute(opBorrow, keys, func(diff *state.Diff, now int64) error {
		collateralPool, err := getPool(diff, collateralAsset)
		if err != nil {
			return err
		}
		borrowPool, err := getPool(diff, borrowAsset)
		if err != nil {
			return err
		}
		position, err := getPosition(diff, owner)
		if err != nil {
			return err
		}
		// Accrual restarts at now, so interest owed on earlier loans becomes
		// principal first.
		if err := settleDebt(diff, position, now); err != nil {
			return err
		}

		collateral, err := accruedDeposit(collateralPool, position, position.Holding(collateralAsset), now)
		if err != nil {
			return err
		}
		collateralPrice, err := e.price(ctx, collateralAsset)
		if err != nil {
			return err
		}
		borrowPrice, err := e.price(ctx, borrowAsset)
		if err != nil {
			return err
		}

		holding := position.Holding(borrowAsset)
		requested, err := math.Add(holding.Borrow.Amount, amount)
		if err != nil {
			return err
		}

		// requested * borrowPrice <= collateral * collateralPrice * maxLTV
		borrowable := scaleBps(value(collateral, collateralPrice), borrowPool.MaxLTV)
		requestedValue := scaleBps(value(requested, borrowPrice), units.BasisPoints)
		if requestedValue.Gt(borrowable) {
			return ErrOverBorrowableAmount
		}

		// Interest owed before this loan belongs to the existing borrowers.
		if err := accrueBorrows(borrowPool, now); err != nil {
			return err
		}
		borrows, minted, err := borrowPool.Borrows.Deposit(amount)
		if err != nil {
			return err
		}
		if minted == 0 {
			return ErrDustAmount
		}
		holding.Borrow, err = holding.Borrow.Add(amount, minted)
		if err != nil {
			return err
		}

		borrowPool.Borrows = borrows
		position.SetHolding(holding)

		if err := diff.Transfer(state.CustodyAccount(borrowAsset), owner, borrowAsset, amount); err != nil {
			return err
		}
		if err := putRecords(diff, position, borrowPool); err != nil {
			return err
		}

		e.log.Debug("borrowed",
			log.Stringer("owner", owner),
			log.Stringer("collateralAsset", collateralAsset),
			log.Stringer("borrowAsset", borrowAsset),
			log.Uint64("amount", amount),
			log.Uint64("shares", minted),
		)
		return nil
	})
}

// Repay moves amount of asset from owner to the pool to pay down the owner's
// debt. Paying more than is owed fails with ErrOverRepay.
func (e *Engine) Repay(owner ids.ShortID, asset ids.ID, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}

	keys := []string{poolKey(asset), positionKey(owner)}
	return e.execute(opRepay, keys, func(diff *state.Diff, now int64) error {
		pool, err := getPool(diff, asset)
		if err != nil {
			return err
		}
		position, err := getPosition(diff, owner)
		if err != nil {
			return err
		}

		if err := accrueBorrows(pool, now); err != nil {
			return err
		}
		holding := position.Holding(asset)
		burned, err := repayDebt(pool, &holding, amount)
		if err != nil {
			return err
		}
		position.SetHolding(holding)

		if err := diff.Transfer(owner, state.CustodyAccount(asset), asset, amount); err != nil {
			return err
		}
		if err := putRecords(diff, position, pool); err != nil {
			return err
		}

		e.log.Debug("repaid",
			log.Stringer("owner", owner),
			log.Stringer("asset", asset),
			log.Uint64("amount", amount),
			log.Uint64("shares", burned),
		)
		return nil
	})
}

// repayDebt pays amount of the holding's debt against a pool accrued to now
// and returns the shares burned. The holding's principal shrinks in
// proportion to the fraction of the debt repaid.
func repayDebt(pool *state.Pool, holding *state.Holding, amount uint64) (uint64, error) {
	debt, err := owed(pool, *holding)
	if err != nil {
		return 0, err
	}
	if amount > debt {
		return 0, ErrOverRepay
	}

	burned := holding.Borrow.Shares
	principal := holding.Borrow.Amount
	if amount < debt {
		burned, err = shares.ForAmount(amount, pool.Borrows.Amount, pool.Borrows.Shares)
		if err != nil {
			return 0, err
		}
		if burned >= holding.Borrow.Shares {
			return 0, ErrArithmeticUnderflow
		}
		principal, err = math.MulDiv(holding.Borrow.Amount, amount, debt)
		if err != nil {
			return 0, err
		}
		// The principal of a partially repaid loan never reaches zero.
		principal = min(principal, holding.Borrow.Amount-1)
	}

	borrows, err := pool.Borrows.Remove(amount, burned)
	if err != nil {
		return 0, err
	}
	borrow, err := holding.Borrow.Remove(principal, burned)
	if err != nil {
		return 0, err
	}
	pool.Borrows = borrows
	holding.Borrow = borrow
	return burned, nil
}
