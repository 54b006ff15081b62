// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Command bufrlookup prints an element definition and, for code/flag
// elements, its meaning rows, grounded in
// original_source/lookup_element.py.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/metdecode/bufr/bufrcli"
	"github.com/metdecode/bufr/bufrerr"
	"github.com/metdecode/bufr/table"
)

func main() {
	app := &cli.App{
		Name:      "bufrlookup",
		Usage:     "look up a BUFR element definition by mnemonic or F-X-Y",
		ArgsUsage: "FIELD",
		Flags: []cli.Flag{
			bufrcli.DirFlag, bufrcli.TablesFlag, bufrcli.ConfigFlag,
			&cli.IntFlag{Name: "m", Aliases: []string{"master-table"}, Value: 0, Usage: "master table ID to use"},
			&cli.IntFlag{Name: "o", Aliases: []string{"originating-center"}, Value: 0, Usage: "originating center ID to use"},
			&cli.IntFlag{Name: "v", Aliases: []string{"table-version"}, Value: -1, Usage: "BUFR table version to search (default: highest available)"},
			&cli.BoolFlag{Name: "n", Aliases: []string{"mnemonic"}, Usage: "interpret FIELD as a mnemonic (default)"},
			&cli.BoolFlag{Name: "i", Aliases: []string{"fxy"}, Usage: "interpret FIELD as F-X-Y instead of mnemonic"},
		},
		Action: runLookup,
	}
	os.Exit(bufrcli.Run(app, os.Args))
}

func runLookup(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("bufrlookup: exactly one FIELD argument required", 2)
	}
	field := c.Args().First()

	dir, tablesFile, err := bufrcli.ResolveTableSource(c)
	if err != nil {
		return err
	}
	coll, err := bufrcli.LoadTables(dir, tablesFile)
	if err != nil {
		return err
	}

	master := uint8(c.Int("m"))
	center := uint16(c.Int("o"))
	version := c.Int("v")
	if version < 0 {
		version = int(highestVersion(coll, table.KindB, master, center))
	}

	tableB := coll.ConstructTableVersion(table.KindB, uint8(version), master, center)
	tableF := coll.ConstructTableVersion(table.KindF, uint8(version), master, center)

	element, ok := findElement(tableB, field, c.Bool("i"))
	if !ok {
		return bufrerr.New(bufrerr.UnknownDescriptor, "bufrlookup", nil)
	}

	fmt.Println()
	fmt.Printf("%s %s scale=%d reference=%d width=%d unit=%q name=%q\n",
		element.FXY, element.Mnemonic, element.Scale, element.ReferenceValue,
		element.BitWidth, element.Unit, element.Name)

	if element.IsCodeTable() || element.IsFlagTable() {
		sub := tableF.FindFXY(element.FXY)
		for _, entry := range sub.Entries() {
			if entry.Kind != table.EntryCodeFlag {
				continue
			}
			cf := entry.CodeFlag
			if cf.HasCondition {
				fmt.Printf("    f=%d, x=%d, y=%d, value=%d\n", cf.CondF, cf.CondX, cf.CondY, cf.CondValue)
			}
			for _, row := range cf.Codes {
				fmt.Printf("        %5d = %s\n", row.Code, row.Meaning)
			}
		}
	}
	fmt.Println()
	return nil
}

func findElement(tableB *table.Table, field string, byFXY bool) (table.Element, bool) {
	for _, entry := range tableB.Entries() {
		if entry.Kind != table.EntryElement {
			continue
		}
		el := entry.Element
		if byFXY {
			if el.FXY.String() == field {
				return el, true
			}
			continue
		}
		if el.Mnemonic == field {
			return el, true
		}
	}
	return table.Element{}, false
}

func highestVersion(coll *table.Collection, kind table.TableKind, master uint8, center uint16) uint8 {
	var max uint8
	for _, t := range coll.All() {
		if t.Identity.Kind != kind || t.Identity.Master != master || t.Identity.Center != center {
			continue
		}
		if t.Identity.Version > max {
			max = t.Identity.Version
		}
	}
	return max
}
