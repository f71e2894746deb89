package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mkamal/oa-harvest/internal/browser"
	"github.com/mkamal/oa-harvest/internal/harvest"
	"github.com/mkamal/oa-harvest/internal/ledger"
	"github.com/mkamal/oa-harvest/internal/records"
	"github.com/mkamal/oa-harvest/pkg/types"
)

const defaultWebDriverTimeout = 300 * time.Second

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run the batch browser acquisition over a works table",
	Long: `Fetch navigates the browser to each URL of the works table, watches the
download directory for a produced PDF, falls back to a manual save-page trigger
when no download starts, and waits (bounded) for a human to clear bot
challenges. It writes the updated table, the unresolved-URL list, a YAML run
report, and a ledger row.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("input", "oa_papers.csv", "input works CSV")
	fetchCmd.Flags().StringSlice("url", nil, "harvest these URLs instead of reading the input table")
	fetchCmd.Flags().String("download-dir", "downloads", "browser download directory")
	fetchCmd.Flags().String("webdriver", "http://localhost:9515", "WebDriver endpoint")
	fetchCmd.Flags().Bool("headless", false, "run the browser headless (challenges cannot be cleared by hand)")
	fetchCmd.Flags().Bool("no-jitter", false, "disable humanizing delays")
	fetchCmd.Flags().Bool("fail-closed", false, "treat a page-read failure during a challenge wait as blocked")
	fetchCmd.Flags().Duration("start-timeout", 0, "start-detection window (default 30s)")
	fetchCmd.Flags().Duration("stall-timeout", 0, "unchanged-size window before a download counts as stalled (default 2m)")
	fetchCmd.Flags().Duration("max-timeout", 0, "total wait budget per monitor run (default 10m)")
	fetchCmd.Flags().String("out", "oa_papers_with_filenames.csv", "output CSV with the downloaded_filename column")
	fetchCmd.Flags().String("unresolved", "unsuccessful_urls.txt", "output list of URLs with no attributable file")
	fetchCmd.Flags().String("report", "harvest_report.yaml", "output YAML run report")
	fetchCmd.Flags().String("data-dir", "data", "base directory for the run-history ledger")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	urlFlags, _ := cmd.Flags().GetStringSlice("url")
	downloadDir, _ := cmd.Flags().GetString("download-dir")
	endpoint, _ := cmd.Flags().GetString("webdriver")
	headless, _ := cmd.Flags().GetBool("headless")
	noJitter, _ := cmd.Flags().GetBool("no-jitter")
	failClosed, _ := cmd.Flags().GetBool("fail-closed")
	outPath, _ := cmd.Flags().GetString("out")
	unresolvedPath, _ := cmd.Flags().GetString("unresolved")
	reportPath, _ := cmd.Flags().GetString("report")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	var recs []types.WorkRecord
	urls := urlFlags
	if len(urls) == 0 {
		var err error
		recs, err = records.ReadWorks(input)
		if err != nil {
			return err
		}
		urls = records.URLs(recs)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs to harvest: provide --url or a non-empty input table")
	}

	cfg := types.DefaultHarvestConfig(downloadDir)
	cfg.ChallengeFailOpen = !failClosed
	if d, _ := cmd.Flags().GetDuration("start-timeout"); d > 0 {
		cfg.StartTimeout = d
	}
	if d, _ := cmd.Flags().GetDuration("stall-timeout"); d > 0 {
		cfg.StallTimeout = d
	}
	if d, _ := cmd.Flags().GetDuration("max-timeout"); d > 0 {
		cfg.MaxTimeout = d
	}
	if noJitter {
		cfg.PreNavDelay.Enabled = false
		cfg.SaveDelay.Enabled = false
		cfg.InterURLDelay.Enabled = false
	}

	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return fmt.Errorf("creating download directory: %w", err)
	}

	// The browser session is the one fatal dependency: without it no URL
	// can be attempted.
	driver, err := browser.NewRemote(
		&http.Client{Timeout: defaultWebDriverTimeout},
		types.BrowserConfig{
			Endpoint:    endpoint,
			DownloadDir: downloadDir,
			Headless:    headless,
		},
	)
	if err != nil {
		return err
	}
	defer driver.Shutdown()

	obs := &harvest.DirObserver{Dir: downloadDir, W: os.Stderr}
	started := time.Now()

	fmt.Printf("starting batch of %d URLs (download dir: %s)\n\n", len(urls), downloadDir)
	result := harvest.RunBatch(driver, obs, harvest.SystemClock(), cfg, urls, os.Stdout)

	fmt.Printf("\n%s, %s (total %d)\n",
		color.GreenString("%d succeeded", result.State.Succeeded),
		color.RedString("%d failed", result.State.Failed),
		result.State.Total)

	if recs != nil {
		records.ApplyMapping(recs, result.Mapping())
		if err := records.WriteWorks(outPath, recs, true); err != nil {
			return err
		}
		fmt.Printf("updated table saved to %s\n", outPath)
	}
	if err := records.WriteUnresolved(unresolvedPath, result.Unresolved()); err != nil {
		return err
	}
	if err := harvest.WriteReport(reportPath, started, result); err != nil {
		return err
	}

	// Ledger problems should not discard an otherwise finished run.
	if store, err := ledger.NewStore(types.LedgerConfig{DataDir: dataDir}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: ledger unavailable: %v\n", err)
	} else {
		defer store.Close()
		if _, err := store.RecordRun(cmd.Context(), started, result); err != nil {
			fmt.Fprintf(os.Stderr, "warning: recording run: %v\n", err)
		}
	}

	if result.State.Failed > 0 {
		return fmt.Errorf("%d of %d attempts failed", result.State.Failed, result.State.Total)
	}
	return nil
}
