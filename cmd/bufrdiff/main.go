// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Command bufrdiff reads two canonical XML table files and writes a
// differential table holding what changed between them, grounded in
// original_source/diff_tables.py.
package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/metdecode/bufr/bufrerr"
	"github.com/metdecode/bufr/table"
	"github.com/metdecode/bufr/tablesrc"
)

func main() {
	app := &cli.App{
		Name:      "bufrdiff",
		Usage:     "write the table holding the differences between two XML table versions",
		ArgsUsage: "A B",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "p", Aliases: []string{"prefix"}, Value: "diff_table", Usage: "prefix for the output file name"},
			&cli.StringFlag{Name: "d", Aliases: []string{"dir"}, Usage: "directory where the diff table is written"},
		},
		Action: runDiff,
	}
	os.Exit(run(app, os.Args))
}

func run(app *cli.App, args []string) int {
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(args)
	if err == nil {
		return 0
	}
	if ec, ok := err.(cli.ExitCoder); ok {
		return ec.ExitCode()
	}
	return bufrerr.ExitCode(err)
}

func runDiff(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return cli.Exit("bufrdiff: exactly two table-file arguments required (A B)", 2)
	}
	aPath, bPath := c.Args().Get(0), c.Args().Get(1)
	outDir := c.String("d")
	prefix := c.String("p")

	a, err := tablesrc.ReadXML(aPath)
	if err != nil {
		return err
	}
	b, err := tablesrc.ReadXML(bPath)
	if err != nil {
		return err
	}

	for _, bt := range b.All() {
		at, ok := a.Get(bt.Identity)
		if !ok {
			continue
		}
		diff := at.Diff(bt)
		outPath := filepath.Join(outDir, prefix+"_"+string(bt.Identity.Kind)+".xml")
		diffColl := table.NewCollection()
		diffColl.Put(diff)
		if err := tablesrc.WriteXML(diffColl, outPath); err != nil {
			return err
		}
	}
	return nil
}
