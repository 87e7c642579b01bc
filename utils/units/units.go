// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package units

// Fixed-point denominators used by the ledger.
const (
	// BasisPoints is the denominator of every fractional risk parameter.
	// 10_000 basis points is 100%.
	BasisPoints uint64 = 10_000

	// Wad scales per-second interest rates: a rate of Wad is 100% per second.
	Wad uint64 = 1_000_000_000_000_000_000

	// SecondsPerYear uses a 365 day year.
	SecondsPerYear uint64 = 365 * 24 * 60 * 60
)
