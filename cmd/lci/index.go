package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci/internal/config"
	"github.com/standardbeagle/lci/internal/gitaccess"
	"github.com/standardbeagle/lci/internal/gitindex"
	"github.com/standardbeagle/lci/internal/historyindex"
	"github.com/standardbeagle/lci/internal/logging"
	"github.com/standardbeagle/lci/internal/repoaccess"
	"github.com/standardbeagle/lci/internal/watch"
)

var indexCommand = &cli.Command{
	Name:    "index",
	Aliases: []string{"i"},
	Usage:   "walk a repository's history and write a persisted index",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "branch",
			Usage: "branch tip to walk (overrides config)",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "path to write the index to (overrides config)",
		},
		&cli.BoolFlag{
			Name:  "metrics",
			Usage: "print Prometheus-format indexing metrics to stderr when done",
		},
		&cli.BoolFlag{
			Name:  "watch",
			Usage: "after the initial index, watch the working tree and reindex on change (also enabled by index.watch_mode in config)",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfigWithOverrides(c)
		if err != nil {
			return err
		}
		if branch := c.String("branch"); branch != "" {
			cfg.Repository.BranchTip = branch
		}
		outPath := cfg.Repository.IndexPath
		if out := c.String("out"); out != "" {
			outPath = out
		}

		repo, err := gitaccess.Open(cfg.Project.Root)
		if err != nil {
			return fmt.Errorf("open repository %s: %w", cfg.Project.Root, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Performance.IndexingTimeoutSec)*time.Second)
		if err := runIndexOnce(ctx, cfg, repo, outPath); err != nil {
			cancel()
			return err
		}
		cancel()

		if c.Bool("metrics") {
			if err := dumpMetrics(os.Stderr); err != nil {
				logging.Warn("failed to dump metrics", "error", err)
			}
		}

		if c.Bool("watch") || cfg.Index.WatchMode {
			return watchAndReindex(cfg, repo, outPath)
		}
		return nil
	},
}

func runIndexOnce(ctx context.Context, cfg *config.Config, repo repoaccess.Repository, outPath string) error {
	logging.Info("walking history", "root", cfg.Project.Root, "branch", cfg.Repository.BranchTip, "mode", cfg.Repository.Mode)

	result, err := historyindex.Walk(ctx, repo, cfg.Repository.BranchTip, historyindex.Options{
		Mode:            cfg.Repository.Mode,
		IgnoreUTF8Error: cfg.Repository.IgnoreUTF8Error,
		Exclude:         cfg.Exclude,
	})
	if err != nil {
		return fmt.Errorf("walk history: %w", err)
	}
	for _, walkErr := range result.Errors {
		logging.Warn("non-fatal indexing error", "error", walkErr)
	}

	idx, err := gitindex.Finalize(result)
	if err != nil {
		return fmt.Errorf("finalize index: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	if err := gitindex.Save(f, idx, cfg.Repository.IgnoreUTF8Error); err != nil {
		return fmt.Errorf("save index: %w", err)
	}

	logging.Info("index written", "path", outPath, "files", len(idx.FileIDToPath), "commits", len(idx.OrdinalToCommit))
	return nil
}

// watchAndReindex blocks, re-running runIndexOnce once per debounced
// burst of file system activity under cfg.Project.Root, until the
// process receives an interrupt or termination signal.
func watchAndReindex(cfg *config.Config, repo repoaccess.Repository, outPath string) error {
	debounce := time.Duration(cfg.Index.WatchDebounceMs) * time.Millisecond

	w, err := watch.New(cfg.Project.Root, cfg.Exclude, debounce)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info("watching for changes", "root", cfg.Project.Root, "debounce", debounce)

	for {
		select {
		case <-ctx.Done():
			logging.Info("watch stopped")
			return nil
		case <-w.Changed():
			reindexCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Performance.IndexingTimeoutSec)*time.Second)
			err := runIndexOnce(reindexCtx, cfg, repo, outPath)
			cancel()
			if err != nil {
				logging.Warn("reindex failed", "error", err)
			}
		}
	}
}
