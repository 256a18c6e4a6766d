package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/rpcpool/xray/internal/humanize"
	"github.com/rpcpool/xray/langdetect"
	"github.com/rpcpool/xray/query"
)

func newCmd_Search() *cli.Command {
	return &cli.Command{
		Name:        "search",
		Usage:       "Run a single query and print the results.",
		Description: "Canonicalize the query words, intersect their postings with the selected language, and print the total hit count followed by the top-scoring URLs.",
		ArgsUsage:   "<query...>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "lang",
				Usage: "restrict results to this language (eng, spa, fra)",
				Value: langdetect.English,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("search: no query given", 1)
			}
			e, err := query.Open(c.String("data-dir"))
			if err != nil {
				return cli.Exit(err, 1)
			}
			res, err := e.Run(c.Args().Slice(), c.String("lang"))
			if err != nil {
				return cli.Exit(err, 1)
			}
			printResult(res)
			return nil
		},
	}
}

// printResult writes the query output contract to stdout: the hit count line,
// then one URL per line, top-scoring first. Everything else goes through klog.
func printResult(res query.Result) {
	metrics_queryDuration.Observe(res.Elapsed.Seconds())
	klog.V(1).Infof("performed query in %s", humanize.Duration(res.Elapsed))
	if !res.Matched {
		fmt.Println("no matches found")
		return
	}
	fmt.Printf("%d results\n", res.TotalHits)
	for _, m := range res.Top {
		fmt.Println(m.URL)
	}
}
