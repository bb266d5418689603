package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hollydata/filmcrawl/internal/dataset"
)

// datasetSpecFor resolves the --source flag of 'dataset build' to a variant.
func datasetSpecFor(source string) (dataset.Spec, error) {
	switch source {
	case "imdb":
		return dataset.IMDBSpec(), nil
	case "metacritic":
		return dataset.MetacriticSpec(), nil
	case "united":
		return dataset.UnitedSpec(), nil
	default:
		return dataset.Spec{}, fmt.Errorf("unknown dataset source %q (want imdb, metacritic or united)", source)
	}
}

// newDatasetCmd creates the 'dataset' command group.
func newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Assemble stored profiles into CSV datasets",
	}
	cmd.AddCommand(newDatasetBuildCmd())
	cmd.AddCommand(newDatasetUniteCmd())
	return cmd
}

func newDatasetBuildCmd() *cobra.Command {
	var source string
	var out string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build one dataset variant from the stored profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			spec, err := datasetSpecFor(source)
			if err != nil {
				return err
			}
			outPath := out
			if outPath == "" {
				outPath = filepath.Join(application.Store().Root(), spec.Name+".csv")
			}
			rows, err := application.Assembler().Build(spec, outPath)
			if err != nil {
				return fmt.Errorf("build %s: %w", spec.Name, err)
			}
			cmd.Printf("%s: %d rows -> %s\n", spec.Name, rows, outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "united", "dataset variant: imdb, metacritic or united")
	cmd.Flags().StringVar(&out, "out", "", "output CSV path (default <data dir>/<variant>.csv)")
	return cmd
}

func newDatasetUniteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unite",
		Short: "Merge cross-source profiles and build the united dataset",
		Long: `Merges the profiles of every film present under all sources, persists
each merged record under the united source, and builds the united CSV
dataset.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			assembler := application.Assembler()
			spec := dataset.UnitedSpec()
			count, err := assembler.Unite(spec.Sources)
			if err != nil {
				return fmt.Errorf("unite profiles: %w", err)
			}
			outPath := filepath.Join(application.Store().Root(), spec.Name+".csv")
			rows, err := assembler.Build(spec, outPath)
			if err != nil {
				return fmt.Errorf("build %s: %w", spec.Name, err)
			}
			cmd.Printf("united %d profiles, %s: %d rows -> %s\n", count, spec.Name, rows, outPath)
			return nil
		},
	}
}
