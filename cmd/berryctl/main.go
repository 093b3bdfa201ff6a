package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xelth-com/berrycheck/internal/app"
	"github.com/xelth-com/berrycheck/internal/buildinfo"
	"github.com/xelth-com/berrycheck/internal/config"
	"github.com/xelth-com/berrycheck/internal/logger"
)

var verbose bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "berryctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "berryctl",
		Short:        "Berrycheck administration CLI",
		Long:         `berryctl runs spreadsheet reconciliation and inspects templates against the configured database.`,
		Version:      buildinfo.String(),
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	cmd.AddCommand(
		newSyncCmd(),
		newTemplatesCmd(),
		newSeedCmd(),
	)
	return cmd
}

// withApp builds the application for the duration of one command
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	mode := "production"
	if verbose {
		mode = "development"
	}
	log, err := logger.New(mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile assignments with the Google Sheet",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Push pending assignments, then import new sheet rows",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app.App) error {
					summary, err := a.Sync.Run(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd, summary)
				})
			},
		},
		&cobra.Command{
			Use:   "load",
			Short: "Print the sheet rows",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app.App) error {
					loaded, err := a.Sync.Load(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd, loaded)
				})
			},
		},
	)
	return cmd
}

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect metric templates",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <commodity-code>",
			Short: "Print the active template of a commodity",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app.App) error {
					detail, err := a.Templates.GetActive(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd, detail)
				})
			},
		},
		&cobra.Command{
			Use:   "versions <commodity-code>",
			Short: "List every template version of a commodity",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app.App) error {
					versions, err := a.Templates.Versions(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd, versions)
				})
			},
		},
	)
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default commodities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Seed(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d commodities inserted\n", n)
				return nil
			})
		},
	}
}
