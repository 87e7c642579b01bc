// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/luxfi/lending/lending"
)

const (
	ScenarioKey = "scenario"
	ConfigKey   = "config"
	FormatKey   = "format"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var (
	errMissingScenario = errors.New("missing scenario file")
	errUnknownFormat   = errors.New("unknown output format")
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(ScenarioKey, "", "YAML scenario to replay (required)")
	flags.String(ConfigKey, "", "JSON engine config file")
	flags.String(FormatKey, FormatTable, "Output format (table, json, yaml)")
}

type Config struct {
	ScenarioPath string
	Engine       lending.Config
	Format       string
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	scenarioPath, err := flags.GetString(ScenarioKey)
	if err != nil {
		return nil, err
	}
	if scenarioPath == "" {
		return nil, errMissingScenario
	}

	configPath, err := flags.GetString(ConfigKey)
	if err != nil {
		return nil, err
	}

	var configBytes []byte
	if configPath != "" {
		configBytes, err = os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	engineConfig, err := lending.ParseConfig(configBytes)
	if err != nil {
		return nil, err
	}

	format, err := flags.GetString(FormatKey)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	return &Config{
		ScenarioPath: scenarioPath,
		Engine:       engineConfig,
		Format:       format,
	}, nil
}
