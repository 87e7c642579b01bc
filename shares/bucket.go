// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shares

import (
	"errors"

	"github.com/luxfi/lending/utils/math"
)

var ErrInconsistentBucket = errors.New("bucket amount and shares disagree on emptiness")

// Bucket is an amount of an asset together with the shares issued against it.
// Pools hold one bucket per side of the book and positions hold the matching
// per-owner buckets.
type Bucket struct {
	Amount uint64 `serialize:"true" json:"amount"`
	Shares uint64 `serialize:"true" json:"shares"`
}

// IsEmpty reports whether no amount is held.
func (b Bucket) IsEmpty() bool {
	return b.Amount == 0
}

// Verify checks that the bucket holds shares exactly when it holds an amount.
func (b Bucket) Verify() error {
	if (b.Amount == 0) != (b.Shares == 0) {
		return ErrInconsistentBucket
	}
	return nil
}

// Add returns the bucket after crediting amount and shares.
func (b Bucket) Add(amount, shares uint64) (Bucket, error) {
	newAmount, err := math.Add(b.Amount, amount)
	if err != nil {
		return Bucket{}, err
	}
	newShares, err := math.Add(b.Shares, shares)
	if err != nil {
		return Bucket{}, err
	}
	return Bucket{
		Amount: newAmount,
		Shares: newShares,
	}, nil
}

// Remove returns the bucket after debiting amount and shares.
func (b Bucket) Remove(amount, shares uint64) (Bucket, error) {
	newAmount, err := math.Sub(b.Amount, amount)
	if err != nil {
		return Bucket{}, err
	}
	newShares, err := math.Sub(b.Shares, shares)
	if err != nil {
		return Bucket{}, err
	}
	return Bucket{
		Amount: newAmount,
		Shares: newShares,
	}, nil
}

// Deposit mints shares for amount and returns the updated bucket along with
// the number of shares minted.
func (b Bucket) Deposit(amount uint64) (Bucket, uint64, error) {
	minted, err := ForDeposit(amount, b.Amount, b.Shares)
	if err != nil {
		return Bucket{}, 0, err
	}
	next, err := b.Add(amount, minted)
	return next, minted, err
}

// Value returns the amount of the bucket claimed by shares.
func (b Bucket) Value(shares uint64) (uint64, error) {
	return ToAmount(shares, b.Amount, b.Shares)
}
