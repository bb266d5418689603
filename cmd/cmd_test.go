package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hollydata/filmcrawl/internal/config"
	"github.com/hollydata/filmcrawl/internal/dataset"
)

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// TestCrawlSources expands the --source flag values.
func TestCrawlSources(t *testing.T) {
	t.Parallel()

	all, err := crawlSources("all")
	require.NoError(t, err)
	require.Equal(t, []string{"imdb", "metacritic"}, all)

	one, err := crawlSources("metacritic")
	require.NoError(t, err)
	require.Equal(t, []string{"metacritic"}, one)

	_, err = crawlSources("rottentomatoes")
	require.ErrorContains(t, err, "unknown source")
}

// TestDatasetSpecFor maps flag values to dataset variants.
func TestDatasetSpecFor(t *testing.T) {
	t.Parallel()

	for flag, name := range map[string]string{
		"imdb":       dataset.IMDBSpec().Name,
		"metacritic": dataset.MetacriticSpec().Name,
		"united":     dataset.UnitedSpec().Name,
	} {
		spec, err := datasetSpecFor(flag)
		require.NoError(t, err)
		require.Equal(t, name, spec.Name)
	}

	_, err := datasetSpecFor("letterboxd")
	require.ErrorContains(t, err, "unknown dataset source")
}

// TestConfigSetDataDir runs the config command end to end without building
// the service graph, so the data directory must not be created.
func TestConfigSetDataDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfgPath := filepath.Join(home, "edit.yaml")
	dataDir := filepath.Join(home, "elsewhere")
	out, err := execute(t, "--config", cfgPath, "config", "set-data-dir", dataDir)
	require.NoError(t, err)
	require.Contains(t, out, "data directory set to "+dataDir)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, dataDir, cfg.Data.Dir)

	_, err = os.Stat(dataDir)
	require.True(t, os.IsNotExist(err), "config edits must not create the data dir")
}

// TestPurgeCommand wires a real app against a temp home and reports per
// source.
func TestPurgeCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, err := execute(t, "--silent", "purge")
	require.NoError(t, err)
	for _, src := range []string{"imdb", "metacritic", "united"} {
		require.Contains(t, out, src+": removed 0 empty records")
	}
}

// TestCrawlRejectsUnknownSource surfaces the flag error before any fetch.
func TestCrawlRejectsUnknownSource(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := execute(t, "--silent", "crawl", "title", "The Matrix", "--source", "rottentomatoes")
	require.ErrorContains(t, err, "unknown source")
}

// TestCrawlYearsRejectsReversedRange validates argument order up front.
func TestCrawlYearsRejectsReversedRange(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := execute(t, "--silent", "crawl", "years", "2003", "2001")
	require.Error(t, err)
}

// TestDatasetBuildEmptyStore builds an empty united dataset from a fresh
// store.
func TestDatasetBuildEmptyStore(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	out, err := execute(t, "--silent", "dataset", "build")
	require.NoError(t, err)
	require.Contains(t, out, "0 rows")

	csvPath := filepath.Join(home, "filmcrawl_data", dataset.UnitedSpec().Name+".csv")
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "key,name"))
}
