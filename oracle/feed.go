// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/lending/utils/timer/mockable"
)

var _ Oracle = (*Feed)(nil)

// Feed is an in-memory oracle that serves the latest published price of each
// asset.
type Feed struct {
	clock *mockable.Clock

	mu     sync.RWMutex
	prices map[ids.ID]Price
}

// NewFeed returns an empty feed that measures price age with clock.
func NewFeed(clock *mockable.Clock) *Feed {
	return &Feed{
		clock:  clock,
		prices: make(map[ids.ID]Price),
	}
}

// SetPrice publishes value for asset at the current time with no confidence
// interval.
func (f *Feed) SetPrice(asset ids.ID, value uint64) {
	f.Publish(asset, Price{
		Value:       value,
		PublishTime: f.clock.Time(),
	})
}

// Publish replaces the latest price of asset.
func (f *Feed) Publish(asset ids.ID, price Price) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prices[asset] = price
}

func (f *Feed) GetPrice(_ context.Context, asset ids.ID, maxAge time.Duration) (Price, error) {
	f.mu.RLock()
	price, ok := f.prices[asset]
	f.mu.RUnlock()

	switch {
	case !ok:
		return Price{}, ErrNoPrice
	case price.Value == 0:
		return Price{}, ErrZeroPrice
	case price.Age(f.clock.Time()) > maxAge:
		return Price{}, ErrStalePrice
	default:
		return price, nil
	}
}
