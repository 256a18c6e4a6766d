package main

import (
	"github.com/urfave/cli/v2"

	"github.com/rpcpool/xray/optimize"
)

func newCmd_RebuildIndex() *cli.Command {
	return &cli.Command{
		Name:        "rebuild-index",
		Usage:       "Rebuild the indexed catalog from the shard files on disk.",
		Description: "Rewrites the indexed catalog from scratch off the indexed_*.xraystore files found under the data directory, promoting any _tmp shards left behind by a partial optimize run.",
		Action: func(c *cli.Context) error {
			if err := optimize.RebuildIndex(c.String("data-dir")); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}
