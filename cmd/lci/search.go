package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci/internal/gitaccess"
	"github.com/standardbeagle/lci/internal/gitindex"
	"github.com/standardbeagle/lci/internal/searcher"
)

var searchCommand = &cli.Command{
	Name:      "search",
	Aliases:   []string{"s"},
	Usage:     "query a persisted index",
	ArgsUsage: "<query>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "regex",
			Aliases: []string{"E"},
			Usage:   "interpret the query as a regular expression",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "maximum number of hits",
			Value:   50,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "search deadline",
			Value: 10 * time.Second,
		},
		&cli.StringFlag{
			Name:  "index",
			Usage: "path to the persisted index (overrides config)",
		},
		&cli.BoolFlag{
			Name:  "metrics",
			Usage: "print Prometheus-format query metrics to stderr when done",
		},
	},
	Action: func(c *cli.Context) error {
		query := c.Args().First()
		if query == "" {
			return cli.Exit("a query is required", 1)
		}

		cfg, err := loadConfigWithOverrides(c)
		if err != nil {
			return err
		}
		indexPath := cfg.Repository.IndexPath
		if p := c.String("index"); p != "" {
			indexPath = p
		}

		f, err := os.Open(indexPath)
		if err != nil {
			return fmt.Errorf("open index %s: %w", indexPath, err)
		}
		defer f.Close()

		idx, err := gitindex.Load(f)
		if err != nil {
			return fmt.Errorf("load index: %w", err)
		}

		repo, err := gitaccess.Open(cfg.Project.Root)
		if err != nil {
			return fmt.Errorf("open repository %s: %w", cfg.Project.Root, err)
		}

		mode := searcher.ModePlain
		if c.Bool("regex") {
			mode = searcher.ModeRegex
		}

		s := searcher.New(idx, repo)
		hits, truncated, err := s.Search(context.Background(), searcher.Query{
			Text:     query,
			Mode:     mode,
			Limit:    c.Int("limit"),
			Deadline: time.Now().Add(c.Duration("timeout")),
		})
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		printHits(hits)
		if truncated {
			fmt.Fprintln(os.Stderr, "search deadline exceeded: results are partial")
		}

		if c.Bool("metrics") {
			if err := dumpMetrics(os.Stderr); err != nil {
				return fmt.Errorf("dump metrics: %w", err)
			}
		}
		return nil
	},
}

func printHits(hits []searcher.Hit) {
	for _, h := range hits {
		fmt.Printf("%s\n", h.FilePath)
		printDetail("  first", h.First)
		if h.Last != nil {
			printDetail("  last ", *h.Last)
		}
		fmt.Println()
	}
}

func printDetail(label string, d searcher.MatchDetail) {
	fmt.Printf("%s %s %s (%s)\n", label, d.CommitID[:min(8, len(d.CommitID))], d.CommitSummary, d.CommitDate.Format(time.RFC3339))
	for _, line := range d.Lines {
		fmt.Printf("    %d: %s\n", line.LineNumber+1, line.Content)
	}
}
