package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/logging"
	"github.com/matsen/citegraph/internal/pdf"
	"github.com/matsen/citegraph/internal/pipeline"
)

var (
	watchSettle      time.Duration
	watchConcurrency int
)

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 2*time.Second, "Quiet period after the last write before a file is processed")
	watchCmd.Flags().IntVarP(&watchConcurrency, "concurrency", "j", 2, "Number of documents processed at once")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Process documents as they appear in a directory",
	Long: `Watch a directory and run the pipeline on every supported document that
is created or rewritten there. A file is processed once it has been quiet
for the settle period. Stop with Ctrl-C.

Each processed document is printed as one JSON line.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	global := mustLoadGlobalConfig()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	dir, err := filepath.Abs(args[0])
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx, repoRoot, db, cfg, global)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	defer svc.Close()
	coord := newCoordinator(svc)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		exitWithError(ExitError, "creating watcher: %v", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		exitWithError(ExitError, "watching %s: %v", dir, err)
	}
	if err := os.Chdir(repoRoot); err != nil {
		exitWithError(ExitError, "changing to repository root: %v", err)
	}

	logger.Info("watching", logging.String("dir", dir))
	if humanOutput {
		fmt.Printf("Watching %s (Ctrl-C to stop)\n", dir)
	}

	return watchLoop(ctx, w, watchSettle, func(paths []string) {
		for i, p := range paths {
			paths[i] = repoRelative(repoRoot, p)
		}
		for _, r := range coord.RunBatch(ctx, paths, watchConcurrency) {
			reportWatched(r)
		}
	})
}

// watchLoop collects created and written files and hands them to process
// in batches once each has been quiet for settle.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, settle time.Duration, process func([]string)) error {
	if settle <= 0 {
		settle = time.Second
	}
	pending := make(map[string]time.Time)
	tick := time.NewTicker(settle / 4)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !pdf.Supported(ev.Name) || isHidden(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", logging.Err(err))

		case now := <-tick.C:
			ready := settled(pending, now, settle)
			if len(ready) > 0 {
				process(ready)
			}
		}
	}
}

// settled removes and returns the paths whose last event is at least
// settle old.
func settled(pending map[string]time.Time, now time.Time, settle time.Duration) []string {
	var ready []string
	for p, last := range pending {
		if now.Sub(last) >= settle {
			ready = append(ready, p)
			delete(pending, p)
		}
	}
	sort.Strings(ready)
	return ready
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return len(base) > 0 && base[0] == '.'
}

func reportWatched(r pipeline.Result) {
	if humanOutput {
		printResult(r)
		return
	}
	outputJSONLine(r)
}
