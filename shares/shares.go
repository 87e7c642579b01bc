// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package shares converts between asset amounts and the shares that represent
// a pro-rata claim on a pooled bucket.
//
// All conversions truncate toward zero so that rounding never favors the
// holder of the shares over the pool.
package shares

import (
	"github.com/luxfi/lending/utils/math"
)

// ForDeposit returns the number of shares minted for adding amount to a bucket
// currently holding totalAmount backed by totalShares.
//
// The first deposit into an empty bucket mints shares 1:1.
func ForDeposit(amount, totalAmount, totalShares uint64) (uint64, error) {
	if totalAmount == 0 {
		return amount, nil
	}
	return math.MulDiv(amount, totalShares, totalAmount)
}

// ForAmount returns the number of shares that must be burned to remove amount
// from a bucket.
func ForAmount(amount, totalAmount, totalShares uint64) (uint64, error) {
	return math.MulDiv(amount, totalShares, totalAmount)
}

// ToAmount returns the amount of the bucket claimed by shares.
func ToAmount(shares, totalAmount, totalShares uint64) (uint64, error) {
	return math.MulDiv(shares, totalAmount, totalShares)
}
