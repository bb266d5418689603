package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// newTitlesCmd creates the 'titles' command, which prints the film titles
// for one year in list order.
func newTitlesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "titles <year>",
		Short: "List the film titles released in a year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[0])
			}
			application, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			titles, err := application.TitleLister().TitlesForYear(cmd.Context(), year)
			if err != nil {
				return fmt.Errorf("list titles for %d: %w", year, err)
			}
			for _, title := range titles {
				cmd.Println(title)
			}
			return nil
		},
	}
}
