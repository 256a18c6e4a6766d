package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"
)

func main() {
	// set up a context that is canceled when a command is interrupted
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// set up a signal handler to cancel the context
	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-interrupt:
			fmt.Println()
			klog.Info("received interrupt signal")
			cancel()
		case <-ctx.Done():
		}

		// Allow any further SIGTERM or SIGINT to kill process
		signal.Stop(interrupt)
	}()

	app := &cli.App{
		Name:        "xray",
		Version:     GitCommit,
		Description: "CLI to import CommonCrawl WET archives into a local inverted index and search it with language-filtered multi-word queries.",
		Before: func(c *cli.Context) error {
			return nil
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "directory holding the index shards and catalog files",
				Value:   "/mnt/d/tmp/",
				EnvVars: []string{"XRAY_DATA_DIR"},
			},
		}, NewKlogFlagSet()...),
		Commands: []*cli.Command{
			newCmd_Import(),
			newCmd_Search(),
			newCmd_Interactive(),
			newCmd_Optimize(),
			newCmd_RebuildIndex(),
			newCmd_Stats(),
			newCmd_Version(),
		},
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.RunContext(ctx, os.Args); err != nil {
		klog.Error(err)
		os.Exit(1)
	}
}
