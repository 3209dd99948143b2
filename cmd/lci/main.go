package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci/internal/logging"
)

func main() {
	app := &cli.App{
		Name:  "lci",
		Usage: "git-history-aware code search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path",
				Value:   ".lci.kdl",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "repository root (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logging.SetLevel(logging.LevelDebug)
			}
			return nil
		},
		Commands: []*cli.Command{
			indexCommand,
			searchCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
