package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/indexer"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the media tree once and write the catalog",
	Long: `Scan walks MEDIA_ROOT, hashes new or changed files and rewrites the
catalog and change cache inside INDEX_DIR.

Files that cannot be read are skipped and counted; the scan still
succeeds. The command exits non-zero only when the catalog cannot be
written or the scan is interrupted.`,
	Example: `  media-catalog scan
  MEDIA_ROOT=/data/media media-catalog scan
  media-catalog scan --config catalog.yaml --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			printWarning("\nScan interrupted, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	a, err := newApp(ctx, cfg, afero.NewOsFs(), 0)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	result, err := a.indexer.Index(ctx, database.TriggerCLI)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			printError("Scan cancelled; catalog left unchanged")
		} else {
			printError("Scan failed: %v", err)
		}
		return err
	}

	printScanSummary(result, time.Since(start))
	return nil
}

func printScanSummary(result *indexer.Result, elapsed time.Duration) {
	snap := result.Snapshot

	fmt.Println()
	printSuccess("Catalog updated: %s", cfg.SnapshotPath)
	printField("Files", "%d", snap.TotalFiles)
	printField("Size", "%.2f MiB", float64(snap.TotalSize)/(1024*1024))
	printField("Last updated", "%s", snap.LastUpdated)
	printField("Elapsed", "%v", elapsed.Round(time.Millisecond))
	printField("Cache hits", "%d", result.CacheHits)
	printField("Hashed", "%d", result.Hashed)
	printField("Evicted", "%d", result.Evicted)

	if failures := result.Failures(); failures > 0 {
		printWarning("  %d file(s) skipped: %d read, %d hash failures (see log)",
			failures, result.ReadFailures, result.HashFailures)
	}
	if result.CachePersistErr != nil {
		printWarning("  Change cache not saved: %v", result.CachePersistErr)
	}
}
