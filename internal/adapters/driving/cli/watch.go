package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hrdesk-labs/hrdesk/internal/logger"
)

// watchDebounce coalesces editor save bursts into one ingestion.
const watchDebounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a policy directory and re-ingest on change",
	Long: `Performs an initial ingestion of the directory, then re-ingests any
markdown or PDF policy file that is created or modified. Runs until
interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	dir := args[0]
	ctx := cmd.Context()

	report, err := a.ingest.IngestDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("initial ingestion failed: %w", err)
	}
	cmd.Printf("Ingested %d document(s), %d chunk(s). Watching %s...\n",
		report.Ingested, report.Chunks, dir)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	// Debounce timer per path.
	pending := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch strings.ToLower(filepath.Ext(event.Name)) {
			case ".md", ".pdf":
			default:
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			path := event.Name
			if timer, exists := pending[path]; exists {
				timer.Stop()
			}
			pending[path] = time.AfterFunc(watchDebounce, func() {
				ingestChanged(ctx, a, cmd, path)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}

func ingestChanged(ctx context.Context, a *app, cmd *cobra.Command, path string) {
	doc, err := a.ingest.IngestFile(ctx, path)
	if err != nil {
		cmd.PrintErrf("%s: %v\n", filepath.Base(path), err)
		return
	}
	cmd.Printf("Re-ingested %s (%s).\n", doc.PolicyID, filepath.Base(path))
}
