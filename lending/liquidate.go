// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"context"
	"fmt"
	stdmath "math"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lending/state"
	"github.com/luxfi/lending/utils/math"
	"github.com/luxfi/lending/utils/units"
)

// HealthFactorOne is a health factor of exactly 1. Positions below it can be
// liquidated.
const HealthFactorOne uint64 = units.Wad

var healthFactorScale = uint256.NewInt(HealthFactorOne)

// LiquidationEvent records a completed liquidation.
type LiquidationEvent struct {
	Liquidator      ids.ShortID `json:"liquidator"`
	Borrower        ids.ShortID `json:"borrower"`
	CollateralAsset ids.ID      `json:"collateralAsset"`
	DebtAsset       ids.ID      `json:"debtAsset"`
	// DebtRepaid is paid by the liquidator in DebtAsset.
	DebtRepaid uint64 `json:"debtRepaid"`
	// CollateralSeized is paid to the liquidator in CollateralAsset and
	// includes LiquidatorBonus.
	CollateralSeized uint64 `json:"collateralSeized"`
	LiquidatorBonus  uint64 `json:"liquidatorBonus"`
	// HealthFactor is the borrower's health factor before liquidation,
	// scaled by HealthFactorOne.
	HealthFactor uint64 `json:"healthFactor"`
	Timestamp    int64  `json:"timestamp"`
}

// pairValuation is the value of a position's collateral and debt for one
// collateral/borrow asset pair.
type pairValuation struct {
	collateralPrice uint64
	borrowPrice     uint64
	debt            uint64
	// riskAdjustedCollateral is collateral value scaled by the collateral
	// pool's liquidation threshold, in basis points.
	riskAdjustedCollateral *uint256.Int
	// debtValue is scaled by the basis point denominator to compare against
	// riskAdjustedCollateral.
	debtValue *uint256.Int
}

func (v *pairValuation) healthy() bool {
	return v.debt == 0 || !v.riskAdjustedCollateral.Lt(v.debtValue)
}

// healthFactor returns the ratio of risk-adjusted collateral to debt scaled by
// HealthFactorOne, saturating at the largest uint64.
func (v *pairValuation) healthFactor() uint64 {
	if v.debtValue.IsZero() {
		return stdmath.MaxUint64
	}
	hf, err := math.MulDiv256(v.riskAdjustedCollateral, healthFactorScale, v.debtValue)
	if err != nil || !hf.IsUint64() {
		return stdmath.MaxUint64
	}
	return hf.Uint64()
}

func (e *Engine) valuePair(
	ctx context.Context,
	collateralPool *state.Pool,
	borrowPool *state.Pool,
	position *state.Position,
	now int64,
) (*pairValuation, error) {
	collateralPrice, err := e.price(ctx, collateralPool.Asset)
	if err != nil {
		return nil, err
	}
	borrowPrice, err := e.price(ctx, borrowPool.Asset)
	if err != nil {
		return nil, err
	}
	collateral, err := accruedDeposit(collateralPool, position, position.Holding(collateralPool.Asset), now)
	if err != nil {
		return nil, err
	}
	debt, err := accruedDebt(borrowPool, position, position.Holding(borrowPool.Asset), now)
	if err != nil {
		return nil, err
	}
	return &pairValuation{
		collateralPrice:        collateralPrice,
		borrowPrice:            borrowPrice,
		debt:                   debt,
		riskAdjustedCollateral: scaleBps(value(collateral, collateralPrice), collateralPool.LiquidationThreshold),
		debtValue:              scaleBps(value(debt, borrowPrice), units.BasisPoints),
	}, nil
}

// HealthFactor returns the health factor of owner's debt in borrowAsset
// against its collateral in collateralAsset, scaled by HealthFactorOne. A
// position without debt reports the largest uint64.
func (e *Engine) HealthFactor(
	ctx context.Context,
	owner ids.ShortID,
	collateralAsset ids.ID,
	borrowAsset ids.ID,
) (uint64, error) {
	keys := []string{poolKey(collateralAsset), poolKey(borrowAsset), positionKey(owner)}
	unlock := e.locks.Lock(keys...)
	defer unlock()

	collateralPool, err := getPool(e.ledger, collateralAsset)
	if err != nil {
		return 0, err
	}
	borrowPool, err := getPool(e.ledger, borrowAsset)
	if err != nil {
		return 0, err
	}
	position, err := getPosition(e.ledger, owner)
	if err != nil {
		return 0, err
	}
	valuation, err := e.valuePair(ctx, collateralPool, borrowPool, position, e.clock.Unix())
	if err != nil {
		return 0, err
	}
	return valuation.healthFactor(), nil
}

// Liquidate closes part of owner's under-collateralized debt in borrowAsset.
// The liquidator repays at most the borrow pool's close factor of the debt and
// receives the equivalent collateralAsset plus the collateral pool's bonus.
func (e *Engine) Liquidate(
	ctx context.Context,
	liquidator ids.ShortID,
	owner ids.ShortID,
	collateralAsset ids.ID,
	borrowAsset ids.ID,
) (*LiquidationEvent, error) {
	if collateralAsset == borrowAsset {
		return nil, ErrSameAsset
	}

	var event *LiquidationEvent
	keys := []string{poolKey(collateralAsset), poolKey(borrowAsset), positionKey(owner)}
	err := e.execute(opLiquidate, keys, func(diff *state.Diff, now int64) error {
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

		valuation, err := e.valuePair(ctx, collateralPool, borrowPool, position, now)
		if err != nil {
			return err
		}
		if valuation.healthy() {
			return ErrNotUnderCollateralized
		}

		// Repay part of the debt on behalf of the owner.
		if err := accrueBorrows(borrowPool, now); err != nil {
			return err
		}
		debtHolding := position.Holding(borrowAsset)
		closeAmount, err := math.MulDiv(valuation.debt, borrowPool.LiquidationCloseFactor, units.BasisPoints)
		if err != nil {
			return err
		}
		poolDebt, err := owed(borrowPool, debtHolding)
		if err != nil {
			return err
		}
		closeAmount = min(closeAmount, poolDebt)
		if closeAmount == 0 {
			return ErrDustAmount
		}
		if _, err := repayDebt(borrowPool, &debtHolding, closeAmount); err != nil {
			return err
		}
		position.SetHolding(debtHolding)

		// Pay out the equivalent collateral plus the bonus.
		equivalent, err := math.MulDiv(closeAmount, valuation.borrowPrice, valuation.collateralPrice)
		if err != nil {
			return err
		}
		bonus, err := math.MulDiv(equivalent, collateralPool.LiquidationBonus, units.BasisPoints)
		if err != nil {
			return err
		}
		payout, err := math.Add(equivalent, bonus)
		if err != nil {
			return err
		}
		collateralHolding := position.Holding(collateralAsset)
		if payout > collateralHolding.Deposit.Amount {
			payout = collateralHolding.Deposit.Amount
			bonus = payout - min(equivalent, payout)
		}
		if payout > 0 {
			if _, err := removeDeposit(collateralPool, &collateralHolding, payout); err != nil {
				return err
			}
			position.SetHolding(collateralHolding)
		}

		if err := diff.Transfer(liquidator, state.CustodyAccount(borrowAsset), borrowAsset, closeAmount); err != nil {
			return err
		}
		if err := diff.Transfer(state.CustodyAccount(collateralAsset), liquidator, collateralAsset, payout); err != nil {
			return err
		}
		if err := putRecords(diff, position, collateralPool, borrowPool); err != nil {
			return err
		}

		event = &LiquidationEvent{
			Liquidator:       liquidator,
			Borrower:         owner,
			CollateralAsset:  collateralAsset,
			DebtAsset:        borrowAsset,
			DebtRepaid:       closeAmount,
			CollateralSeized: payout,
			LiquidatorBonus:  bonus,
			HealthFactor:     valuation.healthFactor(),
			Timestamp:        now,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to liquidate %s: %w", owner, err)
	}

	e.metrics.liquidated(event)
	e.log.Info("liquidated position",
		log.Stringer("liquidator", liquidator),
		log.Stringer("borrower", owner),
		log.Uint64("debtRepaid", event.DebtRepaid),
		log.Uint64("collateralSeized", event.CollateralSeized),
		log.Uint64("healthFactor", event.HealthFactor),
	)
	return event, nil
}
