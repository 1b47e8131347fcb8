package commands

import (
	"context"

	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"

	"github.com/groundwork-sh/groundwork/internal/config"
	"github.com/groundwork-sh/groundwork/internal/doctor"
	"github.com/groundwork-sh/groundwork/internal/version"
	"github.com/groundwork-sh/groundwork/pkg/logx"
)

// examples:
// ./groundwork preflight
// ./groundwork setup
// ./groundwork setup --non-interactive --config /etc/groundwork/config.yaml
// ./groundwork version

var (
	// Used for flags.
	flagConfig         string
	flagNonInteractive bool

	rootCmd = &cobra.Command{
		Use:   "groundwork",
		Short: "Prepare a fresh Debian or Ubuntu host for service deployment",
		Long:  "Groundwork - prepare a fresh Debian or Ubuntu host for service deployment",
	}
)

// Execute executes the root command.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errorx.IllegalArgument.New("context is required")
	}

	cobra.OnInitialize(func() {
		initConfig(ctx)
	})

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", config.DefaultConfigFile, "config file path")
	setupCmd.Flags().BoolVar(&flagNonInteractive, "non-interactive", false, "never prompt, use configured values only")

	rootCmd.AddCommand(preflightCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(versionCmd)

	_, err := rootCmd.ExecuteContextC(ctx)
	if err != nil {
		return errorx.IllegalState.Wrap(err, "failed to execute command")
	}

	return nil
}

func initConfig(ctx context.Context) {
	cfg, err := config.Initialize(flagConfig)
	if err != nil {
		doctor.CheckErr(ctx, err)
	}

	logConfig := cfg.Log
	err = logx.WithConfig(&logConfig, nil)
	if err != nil {
		doctor.CheckErr(ctx, err)
	}

	logx.WithContext(ctx, map[string]string{
		"commit":  version.Commit(),
		"version": version.Number(),
	}).Debug().Msg("Initialized configuration")
}
