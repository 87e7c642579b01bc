// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package interest implements continuously compounded interest accrual in
// deterministic fixed-point arithmetic.
package interest

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/luxfi/lending/utils/math"
	"github.com/luxfi/lending/utils/units"
)

// maxWholeExponent bounds the integer part of the exponent. Any non-zero
// principal grown by e^65 no longer fits in 64 bits.
const maxWholeExponent = 64

var (
	ErrInvalidTimestamp = errors.New("elapsed time is negative")

	// ray is the internal precision of the exponential.
	ray = uint256.MustFromDecimal("1000000000000000000000000000")
	// eRay is floor(e * ray).
	eRay = uint256.MustFromDecimal("2718281828459045235360287471")
	// wadToRay lifts a rate scaled by units.Wad to ray precision.
	wadToRay = uint256.NewInt(1_000_000_000)
)

// Elapsed returns the seconds between last and now. A clock that moved
// backwards is reported as ErrInvalidTimestamp.
func Elapsed(now, last int64) (int64, error) {
	if now < last {
		return 0, ErrInvalidTimestamp
	}
	return now - last, nil
}

// PerSecondRate converts an annual rate in basis points to a continuously
// compounded per-second rate scaled by units.Wad.
func PerSecondRate(annualBps uint64) (uint64, error) {
	return math.MulDiv(annualBps, units.Wad/units.BasisPoints, units.SecondsPerYear)
}

// Accrue returns floor(principal * e^(ratePerSecond * elapsed)) where
// ratePerSecond is scaled by units.Wad and elapsed is in seconds.
//
// The result is monotonically non-decreasing in elapsed and never below
// principal.
func Accrue(principal, ratePerSecond uint64, elapsed int64) (uint64, error) {
	if elapsed < 0 {
		return 0, ErrInvalidTimestamp
	}
	if principal == 0 || ratePerSecond == 0 || elapsed == 0 {
		return principal, nil
	}

	// x = rate * elapsed in ray precision. rate and elapsed both fit in 64
	// bits and wadToRay in 30, so the product cannot exceed 256 bits.
	x := new(uint256.Int).Mul(uint256.NewInt(ratePerSecond), uint256.NewInt(uint64(elapsed)))
	x.Mul(x, wadToRay)

	whole, frac := new(uint256.Int).DivMod(x, ray, new(uint256.Int))
	if !whole.IsUint64() || whole.Uint64() > maxWholeExponent {
		return 0, math.ErrOverflow
	}

	factor, err := math.MulDiv256(powE(whole.Uint64()), expFraction(frac), ray)
	if err != nil {
		return 0, err
	}
	accrued, err := math.MulDiv256(uint256.NewInt(principal), factor, ray)
	if err != nil {
		return 0, err
	}
	if !accrued.IsUint64() {
		return 0, math.ErrOverflow
	}
	return accrued.Uint64(), nil
}

// powE returns e^n in ray precision, rounding down after every multiplication.
// n is at most maxWholeExponent so every intermediate fits in 256 bits.
func powE(n uint64) *uint256.Int {
	p := new(uint256.Int).Set(ray)
	for range n {
		p.MulDivOverflow(p, eRay, ray)
	}
	return p
}

// expFraction returns e^f in ray precision for 0 <= f < 1 by summing the
// Taylor series with every term rounded down. The sum is strictly below e, so
// it never exceeds eRay.
func expFraction(f *uint256.Int) *uint256.Int {
	var (
		sum     = new(uint256.Int).Set(ray)
		term    = new(uint256.Int).Set(ray)
		divisor = new(uint256.Int)
	)
	for k := uint64(1); ; k++ {
		divisor.Mul(ray, uint256.NewInt(k))
		term.MulDivOverflow(term, f, divisor)
		if term.IsZero() {
			return sum
		}
		sum.Add(sum, term)
	}
}
