package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/pdf"
	"github.com/matsen/citegraph/internal/pipeline"
)

var processConcurrency int

func init() {
	processCmd.Flags().IntVarP(&processConcurrency, "concurrency", "j", 4, "Number of documents processed at once")
	rootCmd.AddCommand(processCmd)
}

var processCmd = &cobra.Command{
	Use:   "process <path>...",
	Short: "Extract citations, references and equations from documents",
	Long: `Run the extraction pipeline on each document and store the consolidated
record. Directories are walked for PDF, markdown and text files.

Exit codes:
  0  every document completed with no failed stages
  4  at least one document aborted or had a failed stage

Example:
  cg process papers/smith2020.pdf
  cg process -j 8 papers/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

// ProcessResponse is the JSON output of process.
type ProcessResponse struct {
	Processed  int               `json:"processed"`
	Completed  int               `json:"completed"`
	Incomplete int               `json:"incomplete"`
	Results    []pipeline.Result `json:"results"`
}

func runProcess(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	global := mustLoadGlobalConfig()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	paths, err := collectDocuments(args)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	for i, p := range paths {
		paths[i] = repoRelative(repoRoot, p)
	}
	// Stored paths are relative to the repository root.
	if err := os.Chdir(repoRoot); err != nil {
		exitWithError(ExitError, "changing to repository root: %v", err)
	}
	if len(paths) == 0 {
		exitWithError(ExitDataError, "no supported documents found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx, repoRoot, db, cfg, global)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	defer svc.Close()

	results := newCoordinator(svc).RunBatch(ctx, paths, processConcurrency)

	resp := ProcessResponse{Processed: len(results), Results: results}
	for _, r := range results {
		if complete(r) {
			resp.Completed++
		} else {
			resp.Incomplete++
		}
	}

	if humanOutput {
		for _, r := range results {
			printResult(r)
		}
		fmt.Printf("%d processed, %d completed, %d incomplete\n", resp.Processed, resp.Completed, resp.Incomplete)
	} else {
		outputJSON(resp)
	}

	if resp.Incomplete > 0 {
		svc.Close()
		logger.Sync()
		os.Exit(ExitIncomplete)
	}
	return nil
}

// complete reports whether a run finished with no failed stage.
func complete(r pipeline.Result) bool {
	if r.Status != pipeline.RunCompleted {
		return false
	}
	for _, s := range r.Stages {
		if s.Status == pipeline.StatusFailed {
			return false
		}
	}
	return true
}

// collectDocuments expands directories into the supported files beneath
// them. Explicit file arguments are kept as given.
func collectDocuments(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && p != arg && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !d.IsDir() && pdf.Supported(p) {
				paths = append(paths, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// repoRelative records documents inside the repository by their path
// relative to its root, and everything else by absolute path.
func repoRelative(repoRoot, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(repoRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return rel
}

func printResult(r pipeline.Result) {
	fmt.Printf("%s  [%s]\n", r.Path, r.Status)
	for _, s := range r.Stages {
		line := fmt.Sprintf("    %-24s %s", s.Name, s.Status)
		switch {
		case s.Error != "":
			line += ": " + s.Error
		case s.Reason != "":
			line += " (" + s.Reason + ")"
		}
		fmt.Println(line)
	}
	if m := r.Metadata; m != nil {
		fmt.Printf("    title: %s\n", truncateString(orDash(m.Title), DetailTitleMaxLen))
		fmt.Printf("    %d references, %d citations, %d equations\n",
			len(m.References), len(m.Citations), len(m.Equations))
		if m.NeedsReview {
			fmt.Println("    needs review")
		}
	}
	fmt.Println()
}
