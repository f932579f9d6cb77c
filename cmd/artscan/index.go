package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/artlens/orbmatch"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <dir>",
		Short: "Build an index of a reference directory",
		Long: `Extract the features of every reference image of a directory and report
what was indexed and skipped. Optionally write a snapshot of the index, or keep
watching the directory and rebuild on changes.`,
		Args: cobra.ExactArgs(1),
		RunE: runIndex,
	}

	cmd.Flags().String("snapshot", "", "Write the index to this snapshot file")
	cmd.Flags().Bool("watch", false, "Rebuild whenever the directory changes")
	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Debounce window for batching changes")
	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := args[0]
	snapshot, _ := cmd.Flags().GetString("snapshot")
	watch, _ := cmd.Flags().GetBool("watch")
	debounce, _ := cmd.Flags().GetDuration("debounce")
	options := cfg.MatchOptions(logger)

	build := func(ctx context.Context) error {
		index, report, err := orbmatch.BuildIndex(ctx, dir, options)
		if report != nil {
			printReport(cmd.OutOrStdout(), report)
		}
		if err != nil {
			return err
		}
		if snapshot != "" {
			if err := orbmatch.WriteSnapshot(snapshot, index); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot written to %s\n", snapshot)
		}
		return nil
	}

	if !watch {
		return build(cmd.Context())
	}

	// A failed build is reported but does not end the watch.
	if err := build(cmd.Context()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "index: %v\n", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes...\n", dir)
	return watchDir(cmd.Context(), dir, debounce, cmd.ErrOrStderr(), func() {
		if err := build(cmd.Context()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "index: %v\n", err)
		}
	})
}

func printReport(w io.Writer, report *orbmatch.BuildReport) {
	fmt.Fprintf(w, "Indexed %d references from %s\n", len(report.Indexed), report.Dir)
	for _, label := range report.Indexed {
		fmt.Fprintf(w, "  %s\n", label)
	}
	for _, skip := range report.SortedSkips() {
		fmt.Fprintf(w, "Skipped %s: %s\n", filepath.Base(skip.Path), skip.Reason)
	}
}

// watchDir calls rebuild after image files of dir change, at most once per
// debounce window, until ctx is done.
func watchDir(ctx context.Context, dir string, debounce time.Duration, errOut io.Writer, rebuild func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !orbmatch.IsImageFile(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if !pending {
				timer.Reset(debounce)
				pending = true
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(errOut, "watch error: %v\n", err)
		case <-timer.C:
			pending = false
			rebuild()
		}
	}
}
