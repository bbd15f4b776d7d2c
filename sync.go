package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"genai-gallery/internal/database"
	"genai-gallery/internal/indexer"
	"genai-gallery/internal/logging"
	"genai-gallery/internal/startup"
)

func newSyncCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation pass and exit",
		Long: "Walks IMAGES_DIR once, brings the catalog in line with it and prints a summary.\n" +
			"The summary is a table on a terminal and JSON otherwise.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := runSync(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON || !isTerminal(out) {
				return writeJSON(out, res)
			}
			return writeResultTable(out, res)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func runSync(ctx context.Context) (indexer.Result, error) {
	config, err := startup.Load()
	if err != nil {
		return indexer.Result{}, err
	}
	if err := config.Resolve(); err != nil {
		return indexer.Result{}, err
	}
	if err := logging.Init(config.Logging()); err != nil {
		return indexer.Result{}, err
	}
	defer logging.Close()

	db, err := database.New(ctx, config.DBPath)
	if err != nil {
		return indexer.Result{}, fmt.Errorf("open catalog: %w", err)
	}
	defer db.Close()

	h, err := config.Hasher()
	if err != nil {
		return indexer.Result{}, err
	}

	rec, err := indexer.NewReconciler(db, indexer.Config{
		Root:     config.ImagesDir,
		Registry: config.Registry(),
		Hasher:   h,
		Walker:   indexer.WalkerConfig{Workers: config.HashWorkers, SkipHidden: true},
	})
	if err != nil {
		return indexer.Result{}, err
	}

	return rec.Run(ctx)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResultTable(w io.Writer, res indexer.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "RUN\t%s\n", res.RunID)
	fmt.Fprintf(tw, "DURATION\t%v\n", res.Duration)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "OUTCOME\tFILES")
	for _, row := range []struct {
		label string
		n     int
	}{
		{"scanned", res.Scanned},
		{"inserted", res.Inserted},
		{"moved", res.Moved},
		{"timestamp updated", res.Timestamps},
		{"evicted", res.Evicted},
		{"metadata backfilled", res.Backfilled},
		{"duplicates", res.Duplicates},
		{"unchanged", res.Unchanged},
		{"skipped", res.Skipped},
	} {
		fmt.Fprintf(tw, "%s\t%d\n", row.label, row.n)
	}
	return tw.Flush()
}
