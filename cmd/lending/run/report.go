// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

type Report struct {
	Oracle   string          `json:"oracle"   yaml:"oracle"`
	Time     int64           `json:"time"     yaml:"time"`
	Steps    []StepResult    `json:"steps"    yaml:"steps"`
	Pools    []PoolReport    `json:"pools"    yaml:"pools"`
	Accounts []AccountReport `json:"accounts" yaml:"accounts"`
}

type StepResult struct {
	Op          string       `json:"op"                    yaml:"op"`
	Account     string       `json:"account,omitempty"     yaml:"account,omitempty"`
	Asset       string       `json:"asset,omitempty"       yaml:"asset,omitempty"`
	Amount      uint64       `json:"amount,omitempty"      yaml:"amount,omitempty"`
	Liquidation *Liquidation `json:"liquidation,omitempty" yaml:"liquidation,omitempty"`
	Error       string       `json:"error,omitempty"       yaml:"error,omitempty"`
}

type Liquidation struct {
	Liquidator       string `json:"liquidator"       yaml:"liquidator"`
	Collateral       string `json:"collateral"       yaml:"collateral"`
	DebtRepaid       uint64 `json:"debtRepaid"       yaml:"debtRepaid"`
	CollateralSeized uint64 `json:"collateralSeized" yaml:"collateralSeized"`
	LiquidatorBonus  uint64 `json:"liquidatorBonus"  yaml:"liquidatorBonus"`
	HealthFactor     uint64 `json:"healthFactor"     yaml:"healthFactor"`
}

type PoolReport struct {
	Asset         string `json:"asset"         yaml:"asset"`
	Deposits      uint64 `json:"deposits"      yaml:"deposits"`
	DepositShares uint64 `json:"depositShares" yaml:"depositShares"`
	Borrows       uint64 `json:"borrows"       yaml:"borrows"`
	BorrowShares  uint64 `json:"borrowShares"  yaml:"borrowShares"`
	LastUpdated   int64  `json:"lastUpdated"   yaml:"lastUpdated"`
}

type AccountReport struct {
	Account string         `json:"account" yaml:"account"`
	Assets  []AccountAsset `json:"assets"  yaml:"assets"`
}

type AccountAsset struct {
	Asset     string `json:"asset"     yaml:"asset"`
	Balance   uint64 `json:"balance"   yaml:"balance"`
	Deposited uint64 `json:"deposited" yaml:"deposited"`
	Borrowed  uint64 `json:"borrowed"  yaml:"borrowed"`
}

// Write renders the report in format.
func (r *Report) Write(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(r)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(r); err != nil {
			return err
		}
		return encoder.Close()
	case FormatTable:
		return r.writeTable(w)
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}

func (r *Report) writeTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "ORACLE\t%s\n\n", r.Oracle)
	fmt.Fprintln(tw, "STEP\tOP\tACCOUNT\tASSET\tAMOUNT\tRESULT")
	for i, step := range r.Steps {
		result := "ok"
		switch {
		case step.Error != "":
			result = step.Error
		case step.Liquidation != nil:
			result = fmt.Sprintf("seized %s %s (bonus %s)",
				amount(step.Liquidation.CollateralSeized),
				step.Liquidation.Collateral,
				amount(step.Liquidation.LiquidatorBonus),
			)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i, step.Op, step.Account, step.Asset, amount(step.Amount), result)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "POOL\tDEPOSITS\tSHARES\tBORROWS\tSHARES\tUPDATED")
	for _, pool := range r.Pools {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			pool.Asset,
			amount(pool.Deposits),
			amount(pool.DepositShares),
			amount(pool.Borrows),
			amount(pool.BorrowShares),
			pool.LastUpdated,
		)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "ACCOUNT\tASSET\tBALANCE\tDEPOSITED\tBORROWED")
	for _, account := range r.Accounts {
		for _, asset := range account.Assets {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				account.Account,
				asset.Asset,
				amount(asset.Balance),
				amount(asset.Deposited),
				amount(asset.Borrowed),
			)
		}
	}
	return tw.Flush()
}

func amount(v uint64) string {
	if v > math.MaxInt64 {
		return strconv.FormatUint(v, 10)
	}
	return humanize.Comma(int64(v))
}
