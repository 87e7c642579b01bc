// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/luxfi/ids"

	"github.com/luxfi/lending/lending"
	"github.com/luxfi/lending/oracle"
)

const (
	OpPosition  = "position"
	OpMint      = "mint"
	OpPrice     = "price"
	OpAdvance   = "advance"
	OpDeposit   = "deposit"
	OpWithdraw  = "withdraw"
	OpBorrow    = "borrow"
	OpRepay     = "repay"
	OpLiquidate = "liquidate"

	OracleFeed = "feed"
	OracleTWAP = "twap"
)

var (
	errUnknownOp      = errors.New("unknown op")
	errUnknownAsset   = errors.New("unknown asset")
	errDuplicateAsset = errors.New("duplicate asset")
	errMissingField   = errors.New("missing field")
	errNameTooLong    = errors.New("name too long")
	errUnknownOracle  = errors.New("unknown oracle")
)

// Scenario is a scripted sequence of ledger operations.
type Scenario struct {
	// Start is the unix time the clock is set to before the first step.
	Start int64 `yaml:"start"`
	// Oracle selects how prices are served to the engine. Defaults to
	// OracleFeed.
	Oracle string `yaml:"oracle,omitempty"`
	// Window is the averaging window of OracleTWAP.
	Window time.Duration `yaml:"window,omitempty"`
	Assets []Asset       `yaml:"assets"`
	Steps  []Step        `yaml:"steps"`
}

// Asset declares a pool and its initial price.
type Asset struct {
	Name  string      `yaml:"name"`
	Price uint64      `yaml:"price"`
	Pool  *PoolParams `yaml:"pool,omitempty"`
}

// PoolParams overrides the default risk parameters of a pool.
type PoolParams struct {
	LiquidationThreshold   uint64 `yaml:"liquidationThreshold"`
	MaxLTV                 uint64 `yaml:"maxLTV"`
	LiquidationCloseFactor uint64 `yaml:"liquidationCloseFactor"`
	LiquidationBonus       uint64 `yaml:"liquidationBonus"`
}

type Step struct {
	Op         string        `yaml:"op"`
	Account    string        `yaml:"account,omitempty"`
	Asset      string        `yaml:"asset,omitempty"`
	Collateral string        `yaml:"collateral,omitempty"`
	Liquidator string        `yaml:"liquidator,omitempty"`
	Amount     uint64        `yaml:"amount,omitempty"`
	Price      uint64        `yaml:"price,omitempty"`
	Duration   time.Duration `yaml:"duration,omitempty"`
	// Fails marks a step that must be rejected by the engine.
	Fails bool `yaml:"fails,omitempty"`
}

// ParseScenario decodes a YAML scenario, rejecting unknown fields.
func ParseScenario(scenarioBytes []byte) (*Scenario, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(scenarioBytes))
	decoder.KnownFields(true)

	s := &Scenario{}
	if err := decoder.Decode(s); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	return s, s.Verify()
}

func (s *Scenario) Verify() error {
	switch s.Oracle {
	case "", OracleFeed:
	case OracleTWAP:
		if s.Window < 0 {
			return fmt.Errorf("%w: %s", oracle.ErrInvalidWindow, s.Window)
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownOracle, s.Oracle)
	}

	assets := make(map[string]struct{}, len(s.Assets))
	for _, asset := range s.Assets {
		if _, err := assetID(asset.Name); err != nil {
			return err
		}
		if _, ok := assets[asset.Name]; ok {
			return fmt.Errorf("%w: %s", errDuplicateAsset, asset.Name)
		}
		assets[asset.Name] = struct{}{}
	}

	for i, step := range s.Steps {
		if err := step.verify(assets); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

func (s Step) verify(assets map[string]struct{}) error {
	var (
		names     []string
		assetRefs []string
	)
	switch s.Op {
	case OpPosition, OpMint, OpDeposit, OpWithdraw, OpRepay:
		names = []string{s.Account}
		assetRefs = []string{s.Asset}
	case OpPrice:
		assetRefs = []string{s.Asset}
	case OpAdvance:
	case OpBorrow:
		names = []string{s.Account}
		assetRefs = []string{s.Collateral, s.Asset}
	case OpLiquidate:
		names = []string{s.Liquidator, s.Account}
		assetRefs = []string{s.Collateral, s.Asset}
	default:
		return fmt.Errorf("%w: %q", errUnknownOp, s.Op)
	}

	for _, name := range names {
		if _, err := accountID(name); err != nil {
			return err
		}
	}
	for _, name := range assetRefs {
		if name == "" {
			return fmt.Errorf("%w: asset of %s", errMissingField, s.Op)
		}
		if _, ok := assets[name]; !ok {
			return fmt.Errorf("%w: %s", errUnknownAsset, name)
		}
	}
	return nil
}

func (a Asset) poolConfig() (lending.PoolConfig, error) {
	id, err := assetID(a.Name)
	if err != nil {
		return lending.PoolConfig{}, err
	}
	if a.Pool == nil {
		return lending.DefaultPoolConfig(id), nil
	}
	return lending.PoolConfig{
		Asset:                  id,
		LiquidationThreshold:   a.Pool.LiquidationThreshold,
		MaxLTV:                 a.Pool.MaxLTV,
		LiquidationCloseFactor: a.Pool.LiquidationCloseFactor,
		LiquidationBonus:       a.Pool.LiquidationBonus,
	}, nil
}

// assetID maps a scenario asset name to the id it is pooled under.
func assetID(name string) (ids.ID, error) {
	var id ids.ID
	if err := nameInto(id[:], name); err != nil {
		return ids.Empty, err
	}
	return id, nil
}

// accountID maps a scenario account name to its principal.
func accountID(name string) (ids.ShortID, error) {
	var id ids.ShortID
	if err := nameInto(id[:], name); err != nil {
		return ids.ShortEmpty, err
	}
	return id, nil
}

func nameInto(dst []byte, name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name", errMissingField)
	case len(name) > len(dst):
		return fmt.Errorf("%w: %q exceeds %d bytes", errNameTooLong, name, len(dst))
	}
	copy(dst, name)
	return nil
}
