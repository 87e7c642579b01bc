// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"errors"

	"github.com/luxfi/metric"

	utilmetric "github.com/luxfi/lending/utils/metric"
	"github.com/luxfi/lending/utils/units"
)

const opLabel = "op"

var opLabels = []string{opLabel}

type engineMetrics struct {
	ops              metric.CounterVec
	failures         metric.CounterVec
	liquidations     metric.Counter
	collateralSeized metric.Counter
	healthFactor     utilmetric.Averager
}

func newMetrics(registerer metric.Registerer) (*engineMetrics, error) {
	m := &engineMetrics{
		ops: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "lending_ops",
				Help: "number of committed lending operations",
			},
			opLabels,
		),
		failures: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "lending_op_failures",
				Help: "number of lending operations that failed and were discarded",
			},
			opLabels,
		),
		liquidations: metric.NewCounter(metric.CounterOpts{
			Name: "lending_liquidations",
			Help: "number of liquidations executed",
		}),
		collateralSeized: metric.NewCounter(metric.CounterOpts{
			Name: "lending_collateral_seized",
			Help: "units of collateral transferred to liquidators",
		}),
	}

	healthFactor, err := utilmetric.NewAverager(
		"lending_liquidation_health_factor",
		"health factors of liquidated positions",
		registerer,
	)
	m.healthFactor = healthFactor

	err = errors.Join(
		err,
		registerer.Register(metric.AsCollector(m.ops)),
		registerer.Register(metric.AsCollector(m.failures)),
		registerer.Register(metric.AsCollector(m.liquidations)),
		registerer.Register(metric.AsCollector(m.collateralSeized)),
	)
	return m, err
}

func (m *engineMetrics) observe(op string, err error) {
	labels := metric.Labels{opLabel: op}
	if err != nil {
		m.failures.With(labels).Inc()
		return
	}
	m.ops.With(labels).Inc()
}

func (m *engineMetrics) liquidated(event *LiquidationEvent) {
	m.liquidations.Inc()
	m.collateralSeized.Add(float64(event.CollateralSeized))
	m.healthFactor.Observe(float64(event.HealthFactor) / float64(units.Wad))
}
