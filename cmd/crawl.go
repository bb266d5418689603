package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hollydata/filmcrawl/internal/app"
	"github.com/hollydata/filmcrawl/internal/crawl"
)

// crawlSources expands the --source flag value into concrete source names.
func crawlSources(flag string) ([]string, error) {
	switch flag {
	case "all":
		return []string{"imdb", "metacritic"}, nil
	case "imdb", "metacritic":
		return []string{flag}, nil
	default:
		return nil, fmt.Errorf("unknown source %q (want imdb, metacritic or all)", flag)
	}
}

// newCrawlCmd creates the 'crawl' command group.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl film profiles into the local store",
		Long: `Extracts film profiles from the configured sources and persists one
JSON record per film per source. Films already present in the store are
skipped, so re-running a crawl is safe.`,
	}

	var source string
	cmd.PersistentFlags().StringVar(&source, "source", "all", "source to crawl: imdb, metacritic or all")

	cmd.AddCommand(newCrawlTitleCmd(&source))
	cmd.AddCommand(newCrawlFileCmd(&source))
	cmd.AddCommand(newCrawlYearCmd(&source))
	cmd.AddCommand(newCrawlYearsCmd(&source))
	return cmd
}

// forEachSource runs fn once per selected source and prints the per-source
// outcome summary.
func forEachSource(cmd *cobra.Command, sourceFlag string, fn func(application *app.App, c *crawl.Crawler) (crawl.Results, error)) error {
	application, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	selected, err := crawlSources(sourceFlag)
	if err != nil {
		return err
	}
	for _, src := range selected {
		crawler, err := application.Crawler(src)
		if err != nil {
			return err
		}
		results, err := fn(application, crawler)
		if err != nil {
			return fmt.Errorf("crawl %s: %w", src, err)
		}
		cmd.Printf("%s: %s\n", src, results)
	}
	return nil
}

func newCrawlTitleCmd(source *string) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "title <name>",
		Short: "Crawl a single film by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachSource(cmd, *source, func(_ *app.App, c *crawl.Crawler) (crawl.Results, error) {
				var results crawl.Results
				results.Add(c.CrawlTitle(cmd.Context(), args[0], year))
				return results, nil
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "release year hint for disambiguation (0 = none)")
	return cmd
}

func newCrawlFileCmd(source *string) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Crawl every film named in a newline-delimited file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachSource(cmd, *source, func(_ *app.App, c *crawl.Crawler) (crawl.Results, error) {
				return c.CrawlFile(cmd.Context(), args[0], year)
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "release year hint for disambiguation (0 = none)")
	return cmd
}

func newCrawlYearCmd(source *string) *cobra.Command {
	return &cobra.Command{
		Use:   "year <year>",
		Short: "Crawl every film released in a year",
		Long: `Obtains the title list for the year (cached under the data directory,
regenerated when absent) and crawls each title with the year as its
disambiguation hint.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[0])
			}
			return forEachSource(cmd, *source, func(_ *app.App, c *crawl.Crawler) (crawl.Results, error) {
				return c.CrawlYear(cmd.Context(), year)
			})
		},
	}
}

func newCrawlYearsCmd(source *string) *cobra.Command {
	return &cobra.Command{
		Use:   "years <from> <to>",
		Short: "Crawl every film released in an inclusive year range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[0])
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[1])
			}
			if to < from {
				return fmt.Errorf("year range %d-%d is reversed", from, to)
			}
			return forEachSource(cmd, *source, func(_ *app.App, c *crawl.Crawler) (crawl.Results, error) {
				return c.CrawlYears(cmd.Context(), from, to)
			})
		},
	}
}
