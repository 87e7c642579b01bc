// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/log"
	"github.com/luxfi/metric"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Replays a scenario against an in-memory ledger",
		RunE:  runFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func runFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	config, err := ParseFlags(flags, args)
	if err != nil {
		return err
	}

	scenarioBytes, err := os.ReadFile(config.ScenarioPath)
	if err != nil {
		return fmt.Errorf("failed to read scenario: %w", err)
	}
	scenario, err := ParseScenario(scenarioBytes)
	if err != nil {
		return err
	}

	runner, err := NewRunner(config.Engine, log.NewLogger("lending"), metric.NewRegistry())
	if err != nil {
		return err
	}
	report, err := runner.Run(c.Context(), scenario)
	if err != nil {
		return err
	}
	return report.Write(c.OutOrStdout(), config.Format)
}
