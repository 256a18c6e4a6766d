package main

import (
	"github.com/urfave/cli/v2"

	"github.com/rpcpool/xray/optimize"
)

func newCmd_Optimize() *cli.Command {
	return &cli.Command{
		Name:        "optimize",
		Usage:       "Merge all indexed shards of each tag into consolidated shards.",
		Description: "K-way merge of every indexed shard, streamed in bounded-memory chunks of word positions. Requires exclusive access to the data directory.",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "number of word positions to merge per chunk",
				Value: optimize.DefaultChunkSize,
			},
		},
		Action: func(c *cli.Context) error {
			if err := optimize.Optimize(c.Context, c.String("data-dir"), c.Int("chunk-size")); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}
