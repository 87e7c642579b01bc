// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package interest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	safemath "github.com/luxfi/lending/utils/math"
	"github.com/luxfi/lending/utils/units"
)

const year = int64(units.SecondsPerYear)

func TestPerSecondRate(t *testing.T) {
	require := require.New(t)

	rate, err := PerSecondRate(500)
	require.NoError(err)
	require.Equal(uint64(1_585_489_599), rate)

	rate, err = PerSecondRate(0)
	require.NoError(err)
	require.Zero(rate)
}

func TestAccrue(t *testing.T) {
	fivePercent, err := PerSecondRate(500)
	require.NoError(t, err)

	tests := []struct {
		name        string
		principal   uint64
		rate        uint64
		elapsed     int64
		expected    uint64
		expectedErr error
	}{
		{
			name:      "zero elapsed",
			principal: 1_000,
			rate:      fivePercent,
			elapsed:   0,
			expected:  1_000,
		},
		{
			name:      "zero rate",
			principal: 1_000,
			rate:      0,
			elapsed:   year,
			expected:  1_000,
		},
		{
			name:      "zero principal",
			principal: 0,
			rate:      fivePercent,
			elapsed:   year,
			expected:  0,
		},
		{
			name:      "one year at five percent",
			principal: 1_000_000_000,
			rate:      fivePercent,
			elapsed:   year,
			expected:  1_051_271_096,
		},
		{
			name:      "interest below one unit truncates",
			principal: 1_000,
			rate:      fivePercent,
			elapsed:   86_400,
			expected:  1_000,
		},
		{
			name:      "ten years small principal",
			principal: 100,
			rate:      fivePercent,
			elapsed:   10 * year,
			expected:  164,
		},
		{
			name:      "e",
			principal: 1_000_000_000_000_000_000,
			rate:      units.Wad,
			elapsed:   1,
			expected:  2_718_281_828_459_045_235,
		},
		{
			name:      "e squared",
			principal: 1_000_000,
			rate:      units.Wad,
			elapsed:   2,
			expected:  7_389_056,
		},
		{
			name:      "largest whole exponent that fits",
			principal: 1,
			rate:      units.Wad,
			elapsed:   44,
			expected:  12_851_600_114_359_308_275,
		},
		{
			name:        "result overflows",
			principal:   1,
			rate:        units.Wad,
			elapsed:     45,
			expectedErr: safemath.ErrOverflow,
		},
		{
			name:        "exponent overflows",
			principal:   1,
			rate:        math.MaxUint64,
			elapsed:     math.MaxInt64,
			expectedErr: safemath.ErrOverflow,
		},
		{
			name:        "negative elapsed",
			principal:   1_000,
			rate:        fivePercent,
			elapsed:     -1,
			expectedErr: ErrInvalidTimestamp,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			accrued, err := Accrue(test.principal, test.rate, test.elapsed)
			require.ErrorIs(err, test.expectedErr)
			require.Equal(test.expected, accrued)
		})
	}
}

func TestAccrueMonotone(t *testing.T) {
	require := require.New(t)

	// 0.3 per second crosses several whole exponents within the range.
	const rate = 300_000_000_000_000_000

	previous := uint64(0)
	for elapsed := int64(0); elapsed <= 100; elapsed++ {
		accrued, err := Accrue(1_000, rate, elapsed)
		require.NoError(err)
		require.GreaterOrEqual(accrued, previous)
		require.GreaterOrEqual(accrued, uint64(1_000))
		previous = accrued
	}
}

func TestAccrueDeterministic(t *testing.T) {
	require := require.New(t)

	first, err := Accrue(123_456_789, 1_585_489_599, 3*year+17)
	require.NoError(err)
	second, err := Accrue(123_456_789, 1_585_489_599, 3*year+17)
	require.NoError(err)
	require.Equal(first, second)
}

func TestElapsed(t *testing.T) {
	require := require.New(t)

	elapsed, err := Elapsed(100, 40)
	require.NoError(err)
	require.Equal(int64(60), elapsed)

	_, err = Elapsed(40, 100)
	require.ErrorIs(err, ErrInvalidTimestamp)
}

func BenchmarkAccrue(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Accrue(1_000_000_000, 1_585_489_599, year)
	}
}
