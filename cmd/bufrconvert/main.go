// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Command bufrconvert converts an NCEP flat-file text table into the
// canonical XML form, grounded in original_source/convert_tables.py.
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/metdecode/bufr/bufrerr"
	"github.com/metdecode/bufr/table"
	"github.com/metdecode/bufr/tablesrc"
)

func main() {
	app := &cli.App{
		Name:      "bufrconvert",
		Usage:     "convert an NCEP text table into the canonical XML form",
		ArgsUsage: "FILENAME",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "w", Aliases: []string{"wmo"}, Usage: "convert a WMO table (unsupported)"},
			&cli.BoolFlag{Name: "n", Aliases: []string{"ncep"}, Usage: "convert an NCEP table (default)"},
			&cli.StringFlag{Name: "d", Aliases: []string{"dir"}, Usage: "directory where the XML table is written"},
		},
		Action: runConvert,
	}
	os.Exit(run(app, os.Args))
}

// run is a thin wrapper so convert's non-bufrcli-table-loading flag set
// (it converts a single file, it does not consult a -d/-t source) still
// gets the shared exit-code contract.
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

func runConvert(c *cli.Context) error {
	if c.Bool("w") {
		return bufrerr.New(bufrerr.UnsupportedFeature, "bufrconvert", nil)
	}
	if c.Args().Len() != 1 {
		return cli.Exit("bufrconvert: exactly one FILENAME argument required", 2)
	}
	filename := c.Args().First()
	outDir := c.String("d")

	t, err := tablesrc.ReadNCEP(filename)
	if err != nil {
		return err
	}

	outPath := filepath.Join(outDir, tableFileName(t))
	coll := table.NewCollection()
	coll.Put(t)
	return tablesrc.WriteXML(coll, outPath)
}

func tableFileName(t *table.Table) string {
	parts := []string{"table", string(t.Identity.Kind)}
	parts = append(parts, itoa(int(t.Identity.Master)))
	if t.Identity.Center != 0 {
		parts = append(parts, itoa(int(t.Identity.Center)))
	}
	parts = append(parts, itoa(int(t.Identity.Version)))
	return strings.Join(parts, "_") + ".xml"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}
