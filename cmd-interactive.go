package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/rpcpool/xray/langdetect"
	"github.com/rpcpool/xray/query"
)

func newCmd_Interactive() *cli.Command {
	return &cli.Command{
		Name:        "interactive",
		Usage:       "Read queries from stdin, one per line.",
		Description: "Each input line is run as a query. An 'exit' line or end of input terminates the session.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "lang",
				Usage: "restrict results to this language (eng, spa, fra)",
				Value: langdetect.English,
			},
		},
		Action: func(c *cli.Context) error {
			e, err := query.Open(c.String("data-dir"))
			if err != nil {
				return cli.Exit(err, 1)
			}
			lang := c.String("lang")

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" {
					break
				}
				res, err := e.Run(strings.Fields(line), lang)
				if err != nil {
					return cli.Exit(err, 1)
				}
				printResult(res)
			}

			// Exit immediately rather than letting the preloaded language
			// sets drain through the runtime on the way out.
			os.Exit(0)
			return nil
		},
	}
}
