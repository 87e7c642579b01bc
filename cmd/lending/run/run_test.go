// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/lending/lending"
	"github.com/luxfi/lending/oracle"
)

const liquidationScenario = `
start: 1700000000
assets:
  - name: LUX
    price: 1
    pool:
      liquidationThreshold: 8000
      maxLTV: 8000
      liquidationCloseFactor: 5000
      liquidationBonus: 500
  - name: USD
    price: 7
steps:
  - {op: position, account: alice, asset: USD}
  - {op: mint, account: alice, asset: USD, amount: 1000}
  - {op: deposit, account: alice, asset: USD, amount: 1000}
  - {op: position, account: bob, asset: LUX}
  - {op: mint, account: bob, asset: LUX, amount: 100}
  - {op: deposit, account: bob, asset: LUX, amount: 100}
  - {op: borrow, account: bob, collateral: LUX, asset: USD, amount: 10}
  - {op: mint, account: carol, asset: USD, amount: 100}
  - {op: liquidate, liquidator: carol, account: bob, collateral: LUX, asset: USD, fails: true}
  - {op: price, asset: USD, price: 9}
  - {op: liquidate, liquidator: carol, account: bob, collateral: LUX, asset: USD}
`

func newRunner(t *testing.T) *Runner {
	runner, err := NewRunner(lending.DefaultConfig, log.NoLog{}, metric.NewRegistry())
	require.NoError(t, err)
	return runner
}

func runScenario(t *testing.T, input string) (*Report, error) {
	require := require.New(t)

	scenario, err := ParseScenario([]byte(input))
	require.NoError(err)
	return newRunner(t).Run(t.Context(), scenario)
}

func TestRunLiquidationScenario(t *testing.T) {
	require := require.New(t)

	report, err := runScenario(t, liquidationScenario)
	require.NoError(err)

	require.Len(report.Steps, 11)
	require.NotEmpty(report.Steps[8].Error)
	require.Equal(&Liquidation{
		Liquidator:       "carol",
		Collateral:       "LUX",
		DebtRepaid:       5,
		CollateralSeized: 47,
		LiquidatorBonus:  2,
		HealthFactor:     888_888_888_888_888_888,
	}, report.Steps[10].Liquidation)

	require.Equal(OracleFeed, report.Oracle)
	require.Equal(int64(1_700_000_000), report.Time)
	require.Equal([]PoolReport{
		{
			Asset:         "LUX",
			Deposits:      53,
			DepositShares: 53,
			LastUpdated:   1_700_000_000,
		},
		{
			Asset:         "USD",
			Deposits:      1_000,
			DepositShares: 1_000,
			Borrows:       5,
			BorrowShares:  5,
			LastUpdated:   1_700_000_000,
		},
	}, report.Pools)
	require.Equal([]AccountReport{
		{
			Account: "alice",
			Assets: []AccountAsset{
				{Asset: "USD", Deposited: 1_000},
			},
		},
		{
			Account: "bob",
			Assets: []AccountAsset{
				{Asset: "LUX", Deposited: 53},
				{Asset: "USD", Balance: 10, Borrowed: 5},
			},
		},
		{
			Account: "carol",
			Assets: []AccountAsset{
				{Asset: "LUX", Balance: 47},
				{Asset: "USD", Balance: 95},
			},
		},
	}, report.Accounts)
}

func TestRunInterestScenario(t *testing.T) {
	require := require.New(t)

	report, err := runScenario(t, `
start: 1700000000
assets:
  - {name: LUX, price: 100}
  - {name: USD, price: 1}
steps:
  - {op: position, account: alice, asset: USD}
  - {op: mint, account: alice, asset: USD, amount: 10000}
  - {op: deposit, account: alice, asset: USD, amount: 10000}
  - {op: position, account: bob, asset: LUX}
  - {op: mint, account: bob, asset: LUX, amount: 10}
  - {op: deposit, account: bob, asset: LUX, amount: 10}
  - {op: borrow, account: bob, collateral: LUX, asset: USD, amount: 400}
  - {op: advance, duration: 8760h}
  - {op: repay, account: bob, asset: USD, amount: 421, fails: true}
  - {op: mint, account: bob, asset: USD, amount: 20}
  - {op: repay, account: bob, asset: USD, amount: 420}
`)
	require.NoError(err)

	// A year at 5% grows 400 to 420.
	require.Equal(PoolReport{
		Asset:         "USD",
		Deposits:      10_000,
		DepositShares: 10_000,
		LastUpdated:   1_700_000_000 + 365*24*60*60,
	}, report.Pools[1])
	require.Equal([]AccountAsset{
		{Asset: "LUX", Deposited: 10},
	}, report.Accounts[1].Assets)
}

func TestRunTWAPScenario(t *testing.T) {
	require := require.New(t)

	report, err := runScenario(t, `
start: 1700000000
oracle: twap
window: 2m
assets:
  - name: LUX
    price: 1
    pool:
      liquidationThreshold: 8000
      maxLTV: 8000
      liquidationCloseFactor: 5000
      liquidationBonus: 500
  - name: USD
    price: 7
steps:
  - {op: position, account: alice, asset: USD}
  - {op: mint, account: alice, asset: USD, amount: 1000}
  - {op: deposit, account: alice, asset: USD, amount: 1000}
  - {op: position, account: bob, asset: LUX}
  - {op: mint, account: bob, asset: LUX, amount: 100}
  - {op: deposit, account: bob, asset: LUX, amount: 100}
  - {op: borrow, account: bob, collateral: LUX, asset: USD, amount: 10}
  - {op: mint, account: carol, asset: USD, amount: 100}
  - {op: advance, duration: 50s}
  - {op: price, asset: LUX, price: 1}
  - {op: price, asset: USD, price: 9}
  - {op: advance, duration: 50s}
  - {op: liquidate, liquidator: carol, account: bob, collateral: LUX, asset: USD, fails: true}
  - {op: price, asset: LUX, price: 1}
  - {op: price, asset: USD, price: 9}
  - {op: advance, duration: 100s}
  - {op: liquidate, liquidator: carol, account: bob, collateral: LUX, asset: USD}
`)
	require.NoError(err)
	require.Equal(OracleTWAP, report.Oracle)

	// Averaging $7 and $9 over the last 100 seconds prices the debt at $80,
	// which the collateral still covers.
	require.Contains(report.Steps[12].Error, lending.ErrNotUnderCollateralized.Error())

	// Once the window only spans $9 the position is liquidated.
	require.Equal(&Liquidation{
		Liquidator:       "carol",
		Collateral:       "LUX",
		DebtRepaid:       5,
		CollateralSeized: 47,
		LiquidatorBonus:  2,
		HealthFactor:     888_888_888_888_888_888,
	}, report.Steps[16].Liquidation)
	require.Equal(int64(1_700_000_200), report.Time)
}

func TestRunTwice(t *testing.T) {
	require := require.New(t)

	scenario, err := ParseScenario([]byte(liquidationScenario))
	require.NoError(err)

	runner := newRunner(t)
	_, err = runner.Run(t.Context(), scenario)
	require.NoError(err)
	_, err = runner.Run(t.Context(), scenario)
	require.ErrorIs(err, errAlreadyRun)
}

func TestRunStepOutcome(t *testing.T) {
	tests := []struct {
		name        string
		step        string
		expectedErr error
	}{
		{
			name:        "unexpected failure",
			step:        `{op: withdraw, account: alice, asset: LUX, amount: 1}`,
			expectedErr: lending.ErrPositionNotFound,
		},
		{
			name:        "unexpected success",
			step:        `{op: mint, account: alice, asset: LUX, amount: 1, fails: true}`,
			expectedErr: errUnexpectedSuccess,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := runScenario(t, `
assets: [{name: LUX, price: 1}]
steps: [`+test.step+`]
`)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectedErr error
	}{
		{
			name:        "unknown op",
			input:       `{assets: [{name: LUX}], steps: [{op: flashloan}]}`,
			expectedErr: errUnknownOp,
		},
		{
			name:        "unknown asset",
			input:       `{assets: [{name: LUX}], steps: [{op: mint, account: a, asset: USD}]}`,
			expectedErr: errUnknownAsset,
		},
		{
			name:        "missing collateral",
			input:       `{assets: [{name: LUX}], steps: [{op: borrow, account: a, asset: LUX}]}`,
			expectedErr: errMissingField,
		},
		{
			name:        "missing account",
			input:       `{assets: [{name: LUX}], steps: [{op: deposit, asset: LUX}]}`,
			expectedErr: errMissingField,
		},
		{
			name:        "duplicate asset",
			input:       `{assets: [{name: LUX}, {name: LUX}]}`,
			expectedErr: errDuplicateAsset,
		},
		{
			name:        "unknown oracle",
			input:       `{oracle: chainlink, assets: [{name: LUX}]}`,
			expectedErr: errUnknownOracle,
		},
		{
			name:        "negative twap window",
			input:       `{oracle: twap, window: -1m, assets: [{name: LUX}]}`,
			expectedErr: oracle.ErrInvalidWindow,
		},
		{
			name:        "account name too long",
			input:       `{assets: [{name: LUX}], steps: [{op: mint, account: abcdefghijklmnopqrstu, asset: LUX}]}`,
			expectedErr: errNameTooLong,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(test.input))
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestParseScenarioUnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`{assets: [{name: LUX, colour: red}]}`))
	require.Error(t, err)
}

func TestReportFormats(t *testing.T) {
	require := require.New(t)

	report, err := runScenario(t, liquidationScenario)
	require.NoError(err)

	var table bytes.Buffer
	require.NoError(report.Write(&table, FormatTable))
	require.Contains(table.String(), "ORACLE  feed")
	require.Contains(table.String(), "seized 47 LUX (bonus 2)")
	require.Contains(table.String(), "1,000")

	var jsonOut bytes.Buffer
	require.NoError(report.Write(&jsonOut, FormatJSON))
	var fromJSON Report
	require.NoError(json.Unmarshal(jsonOut.Bytes(), &fromJSON))
	require.Equal(report, &fromJSON)

	var yamlOut bytes.Buffer
	require.NoError(report.Write(&yamlOut, FormatYAML))
	var fromYAML Report
	require.NoError(yaml.Unmarshal(yamlOut.Bytes(), &fromYAML))
	require.Equal(report, &fromYAML)

	require.ErrorIs(report.Write(&bytes.Buffer{}, "xml"), errUnknownFormat)
}

func TestCommand(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "scenario.yaml")
	require.NoError(os.WriteFile(scenarioPath, []byte(liquidationScenario), 0o600))
	configPath := filepath.Join(dir, "config.json")
	require.NoError(os.WriteFile(configPath, []byte(`{"maxPriceAge":60000000000}`), 0o600))

	var out bytes.Buffer
	cmd := Command()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--" + ScenarioKey, scenarioPath,
		"--" + ConfigKey, configPath,
		"--" + FormatKey, FormatJSON,
	})
	require.NoError(cmd.Execute())

	var report Report
	require.NoError(json.Unmarshal(out.Bytes(), &report))
	require.Len(report.Steps, 11)
	require.Equal(uint64(47), report.Steps[10].Liquidation.CollateralSeized)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectedErr error
	}{
		{
			name:        "missing scenario",
			args:        []string{},
			expectedErr: errMissingScenario,
		},
		{
			name:        "unknown format",
			args:        []string{"--" + ScenarioKey, "s.yaml", "--" + FormatKey, "xml"},
			expectedErr: errUnknownFormat,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cmd := Command()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(test.args)
			require.ErrorIs(t, cmd.Execute(), test.expectedErr)
		})
	}
}
