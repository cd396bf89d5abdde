// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scanocr/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent document runs",
	Long: `History lists the outcomes of recent document runs, newest first, from
the run history database that "scanocr ocr" writes to.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := ledger.Open(historyPath())
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Recent(context.Background(), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatHistory(os.Stdout, runs, jsonOutput)
}

func formatHistory(w io.Writer, runs []ledger.Run, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-20s  %-30s  %-8s  %-5s  %-6s  %-9s  %s\n",
		"Started", "Document", "Status", "Pages", "Failed", "Duration", "Outputs")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, run := range runs {
		r := run.Result
		name := r.Document.Base
		if runes := []rune(name); len(runes) > 30 {
			name = string(runes[:27]) + "..."
		}
		var outputs []string
		for _, k := range r.Produced() {
			outputs = append(outputs, string(k))
		}
		fmt.Fprintf(w, "%-20s  %-30s  %-8s  %-5d  %-6d  %-9s  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), name, r.Status,
			r.Pages, len(r.FailedPages), r.Duration.Round(time.Second), strings.Join(outputs, ","))
	}

	fmt.Fprintf(w, "\n%d runs\n", len(runs))
	return nil
}

func init() {
	historyCmd.Flags().Int("limit", ledger.DefaultLimit, "maximum number of runs to list")
	historyCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(historyCmd)
}
