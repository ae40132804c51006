// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the slr-engine CLI.
// Each review stage is a subcommand (query, gather, screen, classify,
// score) working on runs kept in a local SQLite store; run chains them.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/slr-engine/internal/logging"
	"github.com/pdiddy/slr-engine/internal/secrets"
	"github.com/pdiddy/slr-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the effective configuration: defaults, then the config file
	// and SLR_ENGINE_* environment, then flags.
	cfg types.Config

	// logger is built from cfg.Log before any subcommand runs.
	logger = zap.NewNop()

	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets secrets.Secrets

	shutdownTracing func(context.Context) error
)

// rootCmd is the base command for the slr-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "slr-engine",
	Short: "Systematic literature review pipeline over arXiv",
	Long: `slr-engine runs the search and screening half of a systematic literature
review. The review session file (review.yaml) holds the topic, the curated
PICOC facet terms, the screening policy, and the quality checklist.

The stages are subcommands: query builds the Boolean search, gather fetches
matching arXiv records, screen deduplicates and applies the rule filters,
classify asks a language model for include/exclude decisions, and score
rates the survivors against the quality checklist. Every stage reads the
previous stage's records from the store and writes its own; run chains
them all.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}

		l, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}

		if cfg.Tracing.Enabled {
			shutdown, err := logging.InitTracing(os.Stderr)
			if err != nil {
				return err
			}
			shutdownTracing = shutdown
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTracing != nil {
			if err := shutdownTracing(cmd.Context()); err != nil {
				return err
			}
		}
		_ = logger.Sync()
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./slr-engine.yaml or ~/.config/slr-engine/slr-engine.yaml)")
	pf.String("session", "review.yaml", "review session file")
	pf.String("db", "", "SQLite store path (default from store.path)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("trace", false, "print OpenTelemetry spans to stderr")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("slr-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "slr-engine"))
		}
	}

	viper.SetEnvPrefix("SLR_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// Unset by default, so setDefaults does not register it.
	_ = viper.BindEnv("quality.threshold")

	if err := setDefaults(types.DefaultConfig()); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid default config:", err)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key of def with viper so that environment
// variables resolve for keys the config file does not mention.
func setDefaults(def types.Config) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return err
	}
	for k, v := range m {
		viper.SetDefault(k, v)
	}
	return nil
}

// loadConfig decodes viper's merged settings over the defaults and
// applies the persistent flags that were set explicitly.
func loadConfig(cmd *cobra.Command) error {
	c := types.DefaultConfig()
	if err := viper.Unmarshal(&c); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		c.Store.Path, _ = flags.GetString("db")
	}
	if flags.Changed("log-level") {
		c.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("trace") {
		c.Tracing.Enabled, _ = flags.GetBool("trace")
	}
	cfg = c
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
