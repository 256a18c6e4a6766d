package main

import (
	"github.com/urfave/cli/v2"
)

func newCmd_Stats() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print statistics about the index.",
		Action: func(c *cli.Context) error {
			return cli.Exit("stats is not implemented", 1)
		},
	}
}
