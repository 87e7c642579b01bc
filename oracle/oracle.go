// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oracle provides asset prices to the lending engine.
//
//go:generate go run go.uber.org/mock/mockgen -package=${GOPACKAGE}mock -destination=${GOPACKAGE}mock/oracle.go -mock_names=Oracle=Oracle . Oracle
package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/lending/utils/math"
	"github.com/luxfi/lending/utils/units"
)

var (
	ErrStalePrice     = errors.New("price is older than the maximum age")
	ErrNoPrice        = errors.New("no price published for asset")
	ErrZeroPrice      = errors.New("asset price is zero")
	ErrPriceUncertain = errors.New("price confidence interval is too wide")
)

// Price is a published price of one unit of an asset.
//
// Prices of every asset are quoted in the same reference currency and at the
// same scale, so only their ratios are meaningful to the ledger.
type Price struct {
	Value uint64
	// Confidence is the half-width of the confidence interval around Value,
	// in the same units as Value.
	Confidence  uint64
	PublishTime time.Time
}

// Age returns how long ago the price was published, as observed at now.
func (p Price) Age(now time.Time) time.Duration {
	return max(now.Sub(p.PublishTime), 0)
}

// Oracle reports the latest price of an asset.
type Oracle interface {
	// GetPrice returns ErrStalePrice if the latest price of asset is older
	// than maxAge.
	GetPrice(ctx context.Context, asset ids.ID, maxAge time.Duration) (Price, error)
}

// VerifyConfidence returns ErrPriceUncertain if the confidence interval of p
// exceeds maxBps basis points of its value. A zero maxBps accepts every price.
func VerifyConfidence(p Price, maxBps uint64) error {
	if maxBps == 0 {
		return nil
	}
	limit, err := math.MulDiv(p.Value, maxBps, units.BasisPoints)
	if err != nil {
		return err
	}
	if p.Confidence > limit {
		return ErrPriceUncertain
	}
	return nil
}
