package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mkamal/oa-harvest/internal/ledger"
	"github.com/mkamal/oa-harvest/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past harvest runs from the ledger",
	Long: `History lists recorded runs with their counters. With a run id it lists
that run's per-URL attempts in input order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("data-dir", "data", "base directory for the run-history ledger")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := ledger.NewStore(types.LedgerConfig{DataDir: dataDir, MaxResults: limit})
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}
		attempts, err := store.ListAttempts(cmd.Context(), runID)
		if err != nil {
			return err
		}
		if len(attempts) == 0 {
			fmt.Println("No attempts recorded for that run.")
			return nil
		}
		fmt.Printf("%-12s  %-10s  %s\n", "Status", "Bytes", "URL -> Filename")
		for _, a := range attempts {
			fmt.Printf("%-12s  %-10d  %s -> %s\n", a.Status, a.Bytes, a.URL, a.Filename)
		}
		return nil
	}

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	fmt.Printf("%-4s  %-20s  %-6s  %-9s  %s\n", "ID", "Started", "Total", "Succeeded", "Failed")
	for _, r := range runs {
		fmt.Printf("%-4d  %-20s  %-6d  %-9d  %d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Total, r.Succeeded, r.Failed)
	}
	return nil
}
