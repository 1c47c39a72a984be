// Package main provides the faq-import CLI: it fetches curated markdown
// documents and loads the parsed entries into the engine's data directory.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mueller-baumaschinen/answer-engine/internal/importer"
	"github.com/mueller-baumaschinen/answer-engine/internal/observability"
	"github.com/mueller-baumaschinen/answer-engine/internal/store"
)

var (
	sources []string
	files   []string
	dataDir string
	dryRun  bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "faq-import",
	Short: "Import FAQ entries into the answer engine",
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Fetch markdown sources and replace the stored entry set",
	Long: `import parses markdown documents where each "### heading" starts a
question and the following lines form the answer. Sources are fetched over
HTTP with retry on rate limits and server errors; local files can be mixed in
with --file. The parsed entries replace the current entry set atomically.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringArrayVarP(&sources, "source", "s", nil, "markdown source URL (repeatable)")
	importCmd.Flags().StringArrayVarP(&files, "file", "f", nil, "local markdown file (repeatable)")
	importCmd.Flags().StringVarP(&dataDir, "data-dir", "d", "./data", "engine data directory")
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and report without writing")
	importCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(importCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	if len(sources)+len(files) == 0 {
		return fmt.Errorf("at least one --source or --file is required")
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: "faq-import",
	})

	ctx := context.Background()
	fetcher := importer.NewFetcher(logger)

	var (
		entries    []store.Entry
		skipped    int
		duplicates int
	)

	bar := newBar(int64(len(sources)+len(files)), "importing sources")
	for _, url := range sources {
		data, err := fetcher.Fetch(ctx, url)
		if err != nil {
			return err
		}
		res := importer.ParseMarkdown(data)
		logger.Debug().Str("source", url).Int("entries", len(res.Entries)).Msg("source parsed")
		entries = append(entries, res.Entries...)
		skipped += res.Skipped
		duplicates += res.Duplicates
		bar.Add(1)
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		res := importer.ParseMarkdown(data)
		logger.Debug().Str("file", path).Int("entries", len(res.Entries)).Msg("file parsed")
		entries = append(entries, res.Entries...)
		skipped += res.Skipped
		duplicates += res.Duplicates
		bar.Add(1)
	}
	bar.Finish()

	// Cross-source duplicates keep the first occurrence too.
	before := len(entries)
	entries = store.DedupeEntries(entries)
	duplicates += before - len(entries)

	fmt.Printf("Parsed %d entries (%d skipped, %d duplicates)\n",
		len(entries), skipped, duplicates)

	if len(entries) == 0 {
		return fmt.Errorf("no entries found in the given sources")
	}

	if dryRun {
		fmt.Printf("Dry run: %d entries would be written to %s\n", len(entries), dataDir)
		return nil
	}

	fs, err := store.NewFileStore(dataDir)
	if err != nil {
		return fmt.Errorf("open data dir: %w", err)
	}
	if err := fs.ReplaceAll(ctx, entries); err != nil {
		return fmt.Errorf("write entries: %w", err)
	}

	fmt.Printf("✓ Wrote %d entries to %s\n", len(entries), dataDir)
	return nil
}

func newBar(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
}
