// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/luxfi/ids"

	"github.com/luxfi/lending/shares"
)

// Pool is the per-asset record of everything deposited into and borrowed out
// of the pool, together with the pool's risk parameters.
type Pool struct {
	Asset ids.ID `serialize:"true" json:"asset"`

	// Deposits is never accrued. Borrows accrues continuously at InterestRate.
	Deposits shares.Bucket `serialize:"true" json:"deposits"`
	Borrows  shares.Bucket `serialize:"true" json:"borrows"`

	// Fractions in basis points.
	LiquidationThreshold   uint64 `serialize:"true" json:"liquidationThreshold"`
	MaxLTV                 uint64 `serialize:"true" json:"maxLTV"`
	LiquidationCloseFactor uint64 `serialize:"true" json:"liquidationCloseFactor"`
	LiquidationBonus       uint64 `serialize:"true" json:"liquidationBonus"`

	// InterestRate is the per-second continuously compounded borrow rate
	// scaled by units.Wad.
	InterestRate uint64 `serialize:"true" json:"interestRate"`
	// LastUpdated is the unix second at which Borrows was last accrued.
	LastUpdated int64 `serialize:"true" json:"lastUpdated"`
}

// Verify checks that both buckets are internally consistent.
func (p *Pool) Verify() error {
	if err := p.Deposits.Verify(); err != nil {
		return fmt.Errorf("deposits of pool %s: %w", p.Asset, err)
	}
	if err := p.Borrows.Verify(); err != nil {
		return fmt.Errorf("borrows of pool %s: %w", p.Asset, err)
	}
	return nil
}

// Holding is a position's stake in a single pool.
type Holding struct {
	Asset   ids.ID        `serialize:"true" json:"asset"`
	Deposit shares.Bucket `serialize:"true" json:"deposit"`
	// Borrow.Amount is the principal borrowed. It is not accrued.
	Borrow shares.Bucket `serialize:"true" json:"borrow"`
}

// Position is the per-principal record of holdings across pools.
type Position struct {
	Owner          ids.ShortID `serialize:"true" json:"owner"`
	ReferenceAsset ids.ID      `serialize:"true" json:"referenceAsset"`
	// Holdings is sorted by asset and holds at most one entry per asset.
	Holdings []Holding `serialize:"true" json:"holdings"`

	LastDepositUpdate int64 `serialize:"true" json:"lastDepositUpdate"`
	LastBorrowUpdate  int64 `serialize:"true" json:"lastBorrowUpdate"`
}

func compareHolding(h Holding, asset ids.ID) int {
	return bytes.Compare(h.Asset[:], asset[:])
}

// Holding returns the holding for asset. A position that never touched the
// asset reports an empty holding.
func (p *Position) Holding(asset ids.ID) Holding {
	i, ok := slices.BinarySearchFunc(p.Holdings, asset, compareHolding)
	if !ok {
		return Holding{Asset: asset}
	}
	return p.Holdings[i]
}

// SetHolding inserts or replaces the holding for h.Asset.
func (p *Position) SetHolding(h Holding) {
	i, ok := slices.BinarySearchFunc(p.Holdings, h.Asset, compareHolding)
	if ok {
		p.Holdings[i] = h
		return
	}
	p.Holdings = slices.Insert(p.Holdings, i, h)
}

// HasDebt reports whether any holding carries borrowed principal.
func (p *Position) HasDebt() bool {
	for _, h := range p.Holdings {
		if !h.Borrow.IsEmpty() {
			return true
		}
	}
	return false
}
