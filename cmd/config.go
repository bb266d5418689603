package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hollydata/filmcrawl/internal/config"
)

// newConfigCmd creates the 'config' command group. Config edits run without
// the service graph so they never touch the data directory.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Inspect and edit filmcrawl configuration",
		Annotations: map[string]string{skipAppAnnotation: "true"},
	}
	cmd.AddCommand(newConfigSetDataDirCmd())
	return cmd
}

func newConfigSetDataDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "set-data-dir <dir>",
		Short:       "Persist the data directory into the config file",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipAppAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SetDataDir(cfgFile, args[0]); err != nil {
				return err
			}
			cmd.Printf("data directory set to %s\n", args[0])
			return nil
		},
	}
}
