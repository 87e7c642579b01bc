// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/lending/utils/units"
)

// DefaultConfig is the engine configuration used when none is provided.
var DefaultConfig = Config{
	MaxPriceAge:           100 * time.Second,
	MaxConfidenceBps:      0,
	AnnualInterestRateBps: 500,
}

// Config tunes the engine.
type Config struct {
	// MaxPriceAge is the oldest price the engine accepts.
	MaxPriceAge time.Duration `json:"maxPriceAge"`
	// MaxConfidenceBps rejects prices whose confidence interval is wider
	// than this many basis points of the price. Zero disables the check.
	MaxConfidenceBps uint64 `json:"maxConfidenceBps"`
	// AnnualInterestRateBps is the borrow rate given to newly created pools.
	AnnualInterestRateBps uint64 `json:"annualInterestRateBps"`
}

// ParseConfig parses a JSON config on top of DefaultConfig. Empty input
// yields DefaultConfig.
func ParseConfig(configBytes []byte) (Config, error) {
	if len(configBytes) == 0 {
		return DefaultConfig, nil
	}

	config := DefaultConfig
	if err := json.Unmarshal(configBytes, &config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config %s: %w", string(configBytes), err)
	}
	return config, config.Verify()
}

// Verify checks the config for values the engine cannot operate with.
func (c Config) Verify() error {
	if c.MaxPriceAge <= 0 {
		return fmt.Errorf("%w: maxPriceAge must be positive, got %s", ErrInvalidPoolConfig, c.MaxPriceAge)
	}
	if c.MaxConfidenceBps > units.BasisPoints {
		return fmt.Errorf("%w: maxConfidenceBps %d exceeds %d", ErrInvalidPoolConfig, c.MaxConfidenceBps, units.BasisPoints)
	}
	return nil
}

// PoolConfig holds the risk parameters of a pool. Fractions are in basis
// points.
type PoolConfig struct {
	Asset                  ids.ID `json:"asset"`
	LiquidationThreshold   uint64 `json:"liquidationThreshold"`
	MaxLTV                 uint64 `json:"maxLTV"`
	LiquidationCloseFactor uint64 `json:"liquidationCloseFactor"`
	LiquidationBonus       uint64 `json:"liquidationBonus"`
}

// DefaultPoolConfig returns the risk parameters used for a typical asset.
func DefaultPoolConfig(asset ids.ID) PoolConfig {
	return PoolConfig{
		Asset:                  asset,
		LiquidationThreshold:   8_500, // 85%
		MaxLTV:                 8_000, // 80%
		LiquidationCloseFactor: 5_000, // 50%
		LiquidationBonus:       500,   // 5%
	}
}

// Verify rejects parameters that would make a pool either unusable or
// immediately liquidatable after a maximal borrow.
func (c PoolConfig) Verify() error {
	switch {
	case c.Asset == ids.Empty:
		return fmt.Errorf("%w: missing asset", ErrInvalidPoolConfig)
	case c.LiquidationThreshold == 0 || c.LiquidationThreshold > units.BasisPoints:
		return fmt.Errorf("%w: liquidation threshold %d out of range", ErrInvalidPoolConfig, c.LiquidationThreshold)
	case c.MaxLTV > c.LiquidationThreshold:
		return fmt.Errorf("%w: max LTV %d exceeds liquidation threshold %d", ErrInvalidPoolConfig, c.MaxLTV, c.LiquidationThreshold)
	case c.LiquidationCloseFactor == 0 || c.LiquidationCloseFactor > units.BasisPoints:
		return fmt.Errorf("%w: close factor %d out of range", ErrInvalidPoolConfig, c.LiquidationCloseFactor)
	case c.LiquidationBonus > units.BasisPoints:
		return fmt.Errorf("%w: liquidation bonus %d out of range", ErrInvalidPoolConfig, c.LiquidationBonus)
	default:
		return nil
	}
}
