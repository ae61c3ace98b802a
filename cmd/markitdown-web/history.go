// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/markitdown-web/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent conversions",
	Long: `History lists recorded conversion outcomes, newest first. Outcomes from
superseded attempts are never recorded.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of entries")
	historyCmd.Flags().Bool("yaml", false, "print entries as YAML")
	historyCmd.Flags().Bool("stats", false, "print counts per outcome kind")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	stats, _ := cmd.Flags().GetBool("stats")

	store, err := history.Open(historyConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	switch {
	case stats:
		counts, err := store.Counts(ctx)
		if err != nil {
			return err
		}
		printCounts(w, counts)
		return nil
	case asYAML:
		return store.ExportYAML(ctx, w, limit)
	}

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	printHistory(w, entries)
	return nil
}

func printHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No conversions recorded.")
		return
	}

	fmt.Fprintf(w, "%-19s  %-30s  %-17s  %s\n", "When", "Source", "Outcome", "Result")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, e := range entries {
		result := e.Filename
		if !e.Succeeded() {
			result = e.Message
		}
		fmt.Fprintf(w, "%-19s  %-30s  %-17s  %s\n",
			e.ConvertedAt.Local().Format("2006-01-02 15:04:05"),
			truncate(e.SourceName, 30), e.Kind, truncate(result, 60))
	}
}

func printCounts(w io.Writer, counts map[string]int) {
	kinds := make([]string, 0, len(counts))
	total := 0
	for k, n := range counts {
		kinds = append(kinds, k)
		total += n
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "%-17s %d\n", k, counts[k])
	}
	fmt.Fprintf(w, "%-17s %d\n", "total", total)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
