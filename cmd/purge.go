package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newPurgeCmd creates the 'purge' command, removing zero-content records
// left behind by interrupted non-atomic writes of older tooling.
func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove empty profile records from the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			for _, src := range []string{"imdb", "metacritic", "united"} {
				removed, err := application.Store().PurgeEmpty(src)
				if err != nil {
					return fmt.Errorf("purge %s: %w", src, err)
				}
				cmd.Printf("%s: removed %d empty records\n", src, removed)
			}
			return nil
		},
	}
}
