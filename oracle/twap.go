// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"

	"github.com/luxfi/lending/utils/timer/mockable"
)

var (
	ErrInvalidWindow = errors.New("TWAP window must be positive")

	// DefaultTWAPWindow is the default averaging window.
	DefaultTWAPWindow = 30 * time.Minute

	// MaxObservations is the maximum number of observations kept per asset.
	MaxObservations = 1000

	_ Oracle = (*TWAP)(nil)
)

// Observation is a single observed price.
type Observation struct {
	Price     uint64
	Timestamp time.Time
}

// TWAP serves the time-weighted average price of each asset over a rolling
// window. Staleness is judged by the most recent observation, so an asset
// whose feed stopped is rejected even though its average is still defined.
type TWAP struct {
	clock  *mockable.Clock
	window time.Duration

	mu           sync.RWMutex
	observations map[ids.ID][]Observation
}

// NewTWAP returns a TWAP oracle averaging over window.
func NewTWAP(clock *mockable.Clock, window time.Duration) (*TWAP, error) {
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	return &TWAP{
		clock:        clock,
		window:       window,
		observations: make(map[ids.ID][]Observation),
	}, nil
}

// Record adds an observation for asset. Zero prices and observations older
// than the latest one are ignored.
func (t *TWAP) Record(asset ids.ID, price uint64, timestamp time.Time) {
	if price == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	obs := t.observations[asset]
	if n := len(obs); n > 0 && timestamp.Before(obs[n-1].Timestamp) {
		return
	}
	obs = append(obs, Observation{
		Price:     price,
		Timestamp: timestamp,
	})
	t.observations[asset] = prune(obs, timestamp.Add(-2*t.window))
}

// RecordNow adds an observation for asset at the current time.
func (t *TWAP) RecordNow(asset ids.ID, price uint64) {
	t.Record(asset, price, t.clock.Time())
}

// prune drops observations at or before cutoff and caps the history length.
func prune(obs []Observation, cutoff time.Time) []Observation {
	start := 0
	for start < len(obs)-1 && !obs[start].Timestamp.After(cutoff) {
		start++
	}
	start = max(start, len(obs)-MaxObservations)
	if start == 0 {
		return obs
	}
	return append(obs[:0], obs[start:]...)
}

// ObservationCount returns the number of observations kept for asset.
func (t *TWAP) ObservationCount(asset ids.ID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.observations[asset])
}

// Window returns the averaging window.
func (t *TWAP) Window() time.Duration {
	return t.window
}

func (t *TWAP) GetPrice(_ context.Context, asset ids.ID, maxAge time.Duration) (Price, error) {
	now := t.clock.Time()

	t.mu.RLock()
	defer t.mu.RUnlock()

	obs := t.observations[asset]
	if len(obs) == 0 {
		return Price{}, ErrNoPrice
	}
	last := obs[len(obs)-1]
	if max(now.Sub(last.Timestamp), 0) > maxAge {
		return Price{}, ErrStalePrice
	}

	return Price{
		Value:       average(obs, now.Add(-t.window), now),
		PublishTime: last.Timestamp,
	}, nil
}

// average returns the time-weighted average of obs over (start, end]. Each
// observation holds until the next one. obs must be non-empty.
func average(obs []Observation, start, end time.Time) uint64 {
	var (
		weighted = new(uint256.Int)
		total    uint64
		term     = new(uint256.Int)
	)
	for i, o := range obs {
		from := o.Timestamp
		if from.Before(start) {
			from = start
		}
		to := end
		if i+1 < len(obs) && obs[i+1].Timestamp.Before(end) {
			to = obs[i+1].Timestamp
		}
		secs := int64(to.Sub(from) / time.Second)
		if secs <= 0 {
			continue
		}
		term.Mul(uint256.NewInt(o.Price), uint256.NewInt(uint64(secs)))
		weighted.Add(weighted, term)
		total += uint64(secs)
	}
	if total == 0 {
		return obs[len(obs)-1].Price
	}
	return weighted.Div(weighted, uint256.NewInt(total)).Uint64()
}
