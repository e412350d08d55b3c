package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neilberkman/ccreplay/internal/core/engine"
)

var scanRebuild bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the logs and warm the snapshot cache",
	Long: `Walk the log directory, reconstruct every session, and cache the
results so later commands start instantly.

Running scan is never required: every command reconstructs on demand.
Use --rebuild after an upgrade to drop stale cache entries.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanRebuild, "rebuild", false, "Drop the cache and reconstruct every file")
}

func runScan(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	bar := newScanProgress(os.Stdout)

	var result *engine.ScanResult
	if scanRebuild {
		fmt.Println("Rebuilding cache...")
		result, err = eng.Rebuild(bar.update)
	} else {
		result, err = eng.Load(bar.update)
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	bar.finish()

	fmt.Printf("Scanned %d file(s) in %s\n", result.Files, result.Elapsed.Round(time.Millisecond))
	fmt.Printf("  Sessions:   %d\n", result.Sessions)
	fmt.Printf("  From cache: %d\n", result.FromCache)
	if result.Failed > 0 {
		fmt.Printf("  Failed:     %d\n", result.Failed)
	}

	return nil
}

// scanProgress draws an in-place progress bar, one redraw per finished
// file.
type scanProgress struct {
	writer    io.Writer
	startTime time.Time
	drew      bool
}

func newScanProgress(w io.Writer) *scanProgress {
	return &scanProgress{writer: w, startTime: time.Now()}
}

func (p *scanProgress) update(pr engine.Progress) {
	p.drew = true

	// Calculate progress percentage
	pct := float64(pr.Done) / float64(pr.Total) * 100

	// Draw progress bar (50 chars wide)
	barWidth := 50
	filled := int(float64(barWidth) * float64(pr.Done) / float64(pr.Total))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	// Truncate display text to fit terminal
	displayText := filepath.Base(pr.Path)
	if len(displayText) > 40 {
		displayText = displayText[:37] + "..."
	}

	// Calculate ETA
	elapsed := time.Since(p.startTime)
	rate := float64(pr.Done) / elapsed.Seconds()
	remaining := float64(pr.Total-pr.Done) / rate
	eta := time.Duration(remaining) * time.Second

	_, _ = fmt.Fprintf(p.writer, "\r[%s] %3.0f%% (%d/%d) ETA: %s | %-40s",
		bar, pct, pr.Done, pr.Total, eta.Round(time.Second), displayText)
}

func (p *scanProgress) finish() {
	if p.drew {
		_, _ = fmt.Fprintln(p.writer)
	}
}
