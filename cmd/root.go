// Package cmd defines and implements the CLI commands for the filmcrawl
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hollydata/filmcrawl/internal/app"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// skipAppAnnotation marks commands that must run without the service graph,
// such as config edits that should not create the data directory.
const skipAppAnnotation = "filmcrawl.skip-app"

var (
	cfgFile string
	silent  bool
)

// newApp is the application factory. It is a variable so tests can replace
// it with a factory that wires a temp store and a buffered sink.
var newApp = func(_ context.Context) (*app.App, error) {
	return app.New(app.Options{ConfigPath: cfgFile, Silent: silent})
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filmcrawl",
		Short: "Crawl film data sites and assemble movie datasets.",
		Long: `filmcrawl extracts per-film profiles from public film data sites,
persists one JSON record per film per source, and assembles the stored
profiles into flat CSV datasets for analysis.`,
		SilenceUsage: true,

		// Runs after flag parsing but before the subcommand's RunE; the
		// service graph is built here and injected through the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipAppAnnotation] == "true" {
				return nil
			}
			application, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, application))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if application, ok := cmd.Context().Value(appKey).(*app.App); ok && application != nil {
				application.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.filmcrawl.yaml)")
	cmd.PersistentFlags().BoolVar(&silent, "silent", false, "suppress per-title progress output")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newDatasetCmd())
	cmd.AddCommand(newTitlesCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newPurgeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	application, ok := ctx.Value(appKey).(*app.App)
	if !ok || application == nil {
		return nil, errors.New("application services not initialized")
	}
	return application, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
