// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/UniversoExpandido2018/UE-1/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the login server CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loginserver",
		Short: "UE-1 login server",
		Long: `The UE-1 login server authenticates game clients, enforces account
policy, and issues the session tokens used to join a cluster.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd(nil))
	cmd.AddCommand(NewMigrateCmd(nil))
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration that serve would use, after merging the config
file and flags. Secrets are redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg.Redacted()); err != nil {
				return err //nolint:wrapcheck // encoder errors are self-describing
			}
			return enc.Close() //nolint:wrapcheck // encoder errors are self-describing
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}
