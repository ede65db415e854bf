package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"exe-predictor/internal/report"
	"exe-predictor/internal/storage"
)

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := storage.New(historyDB)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(historyCodec)
	if err != nil {
		return err
	}
	return printRuns(os.Stdout, runs)
}

func printRuns(w io.Writer, runs []storage.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tCODEC\tMODEL\tACCURACY\tREGRET\tRUN")
	for _, run := range runs {
		var r report.Report
		if err := json.Unmarshal(run.Report, &r); err != nil {
			return fmt.Errorf("decode report of run %s: %w", run.RunID, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%.2f\t%s\n",
			run.At.UTC().Format(time.RFC3339), run.Codec, r.BestModel,
			float64(r.Accuracy), float64(r.ExpectedRegret), run.RunID)
	}
	return tw.Flush()
}
