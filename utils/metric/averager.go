// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utilmetric

import (
	"errors"

	"github.com/luxfi/metric"
)

type Averager interface {
	Observe(float64)
}

type averager struct {
	count metric.Counter
	sum   metric.Gauge
}

// NewAverager registers a count and a sum metric under name so that the mean
// of the observations can be derived from them.
func NewAverager(name, desc string, registerer metric.Registerer) (Averager, error) {
	a := &averager{
		count: metric.NewCounter(metric.CounterOpts{
			Name: name + "_count",
			Help: "Total # of observations of " + desc,
		}),
		sum: metric.NewGauge(metric.GaugeOpts{
			Name: name + "_sum",
			Help: "Sum of " + desc,
		}),
	}

	err := errors.Join(
		registerer.Register(metric.AsCollector(a.count)),
		registerer.Register(metric.AsCollector(a.sum)),
	)
	return a, err
}

func (a *averager) Observe(v float64) {
	a.count.Inc()
	a.sum.Add(v)
}
