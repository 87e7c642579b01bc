// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"context"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lending/shares"
	"github.com/luxfi/lending/state"
)

// Deposit moves amount of asset from owner into the pool and credits the
// position with newly minted deposit shares.
func (e *Engine) Deposit(owner ids.ShortID, asset ids.ID, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}

	keys := []string{poolKey(asset), positionKey(owner)}
	return e.execute(opDeposit, keys, func(diff *state.Diff, now int64) error {
		pool, err := getPool(diff, asset)
		if err != nil {
			return err
		}
		position, err := getPosition(diff, owner)
		if err != nil {
			return err
		}

		deposits, minted, err := pool.Deposits.Deposit(amount)
		if err != nil {
			return err
		}
		if minted == 0 {
			return ErrDustAmount
		}
		holding := position.Holding(asset)
		holding.Deposit, err = holding.Deposit.Add(amount, minted)
		if err != nil {
			return err
		}

		pool.Deposits = deposits
		position.SetHolding(holding)
		position.LastDepositUpdate = now

		if err := diff.Transfer(owner, state.CustodyAccount(asset), asset, amount); err != nil {
			return err
		}
		if err := putRecords(diff, position, pool); err != nil {
			return err
		}

		e.log.Debug("deposited",
			log.Stringer("owner", owner),
			log.Stringer("asset", asset),
			log.Uint64("amount", amount),
			log.Uint64("shares", minted),
		)
		return nil
	})
}

// Withdraw moves amount of asset from the pool back to owner and burns the
// matching deposit shares. A position carrying debt must remain healthy
// afterwards.
func (e *Engine) Withdraw(ctx context.Context, owner ids.ShortID, asset ids.ID, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}

	keys := []string{poolKey(asset), positionKey(owner)}
	return e.execute(opWithdraw, keys, func(diff *state.Diff, now int64) error {
		pool, err := getPool(diff, asset)
		if err != nil {
			return err
		}
		position, err := getPosition(diff, owner)
		if err != nil {
			return err
		}

		holding := position.Holding(asset)
		if amount > holding.Deposit.Amount {
			return ErrInsufficientFunds
		}
		burned, err := removeDeposit(pool, &holding, amount)
		if err != nil {
			return err
		}
		position.SetHolding(holding)

		if err := e.verifyHealthy(ctx, diff, position, asset, now); err != nil {
			return err
		}
		if err := diff.Transfer(state.CustodyAccount(asset), owner, asset, amount); err != nil {
			return err
		}
		if err := putRecords(diff, position, pool); err != nil {
			return err
		}

		e.log.Debug("withdrew",
			log.Stringer("owner", owner),
			log.Stringer("asset", asset),
			log.Uint64("amount", amount),
			log.Uint64("shares", burned),
		)
		return nil
	})
}

// removeDeposit takes amount out of both the pool's and the holding's deposit
// buckets at the pool's share price and returns the shares burned. Removing
// the whole holding burns all of its shares.
func removeDeposit(pool *state.Pool, holding *state.Holding, amount uint64) (uint64, error) {
	burned := holding.Deposit.Shares
	if amount < holding.Deposit.Amount {
		var err error
		burned, err = shares.ForAmount(amount, pool.Deposits.Amount, pool.Deposits.Shares)
		if err != nil {
			return 0, err
		}
		// A partial withdrawal may not consume every share of the holding.
		if burned >= holding.Deposit.Shares {
			return 0, ErrArithmeticUnderflow
		}
	}

	deposits, err := pool.Deposits.Remove(amount, burned)
	if err != nil {
		return 0, err
	}
	deposit, err := holding.Deposit.Remove(amount, burned)
	if err != nil {
		return 0, err
	}
	pool.Deposits = deposits
	holding.Deposit = deposit
	return burned, nil
}

func putRecords(diff *state.Diff, position *state.Position, pools ...*state.Pool) error {
	for _, pool := range pools {
		if err := pool.Verify(); err != nil {
			return err
		}
		if err := diff.PutPool(pool); err != nil {
			return err
		}
	}
	return diff.PutPosition(position)
}
