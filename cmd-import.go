package main

import (
	"time"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/rpcpool/xray/ingest"
	"github.com/rpcpool/xray/internal/humanize"
)

func newCmd_Import() *cli.Command {
	return &cli.Command{
		Name:        "import",
		Usage:       "Ingest WET archives into the index.",
		Description: "Ingest .wet and .wet.gz files (or directories of them) into the index, one chunk of files at a time. Each chunk writes one URL shard and one indexed shard per posting tag.",
		ArgsUsage:   "<sources...>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "number of input files to process per chunk",
				Value: ingest.DefaultChunkSize,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("import: no sources given", 1)
			}
			startedAt := time.Now()
			stats, err := ingest.Import(c.Context, c.String("data-dir"), c.Args().Slice(), c.Int("chunk-size"))
			if err != nil {
				return cli.Exit(err, 1)
			}
			metrics_documentsImported.Add(float64(stats.Documents))
			metrics_documentsDropped.Add(float64(stats.Dropped))
			metrics_shardsWritten.WithLabelValues("urls").Add(float64(stats.Chunks))
			metrics_shardsWritten.WithLabelValues("indexed").Add(float64(3 * stats.Chunks))
			klog.Infof("%d pages imported in %s (%d files, %d documents dropped)",
				stats.Documents, humanize.Duration(time.Since(startedAt)), stats.Files, stats.Dropped)
			return nil
		},
	}
}
