// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luxfi/lending/cmd/lending/run"
)

func main() {
	cmd := &cobra.Command{
		Use:   "lending",
		Short: "Lending ledger tooling",
	}
	cmd.AddCommand(run.Command())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "command failed %v\n", err)
		cancel()
		os.Exit(1)
	}
}
