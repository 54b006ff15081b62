// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Command bufrdump prints a human-readable envelope, descriptor, and
// expansion report for every message in a BUFR file, grounded in
// original_source/dump.py's BUFRFile.__str__ walk.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/metdecode/bufr/bitio"
	"github.com/metdecode/bufr/blog"
	"github.com/metdecode/bufr/bufrcli"
	"github.com/metdecode/bufr/bufrerr"
	"github.com/metdecode/bufr/decode"
	"github.com/metdecode/bufr/descriptor"
	"github.com/metdecode/bufr/message"
	"github.com/metdecode/bufr/table"
	"github.com/metdecode/bufr/value"
)

var log = blog.New("bufrdump: ")

func main() {
	log.LogMode(true)
	app := &cli.App{
		Name:      "bufrdump",
		Usage:     "print a human-readable report for every message in a BUFR file",
		ArgsUsage: "FILE",
		Flags:     []cli.Flag{bufrcli.DirFlag, bufrcli.TablesFlag, bufrcli.ConfigFlag},
		Action:    runDump,
	}
	os.Exit(bufrcli.Run(app, os.Args))
}

func runDump(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("bufrdump: exactly one FILE argument required", 2)
	}
	path := c.Args().First()

	dir, tablesFile, err := bufrcli.ResolveTableSource(c)
	if err != nil {
		return err
	}
	coll, err := bufrcli.LoadTables(dir, tablesFile)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return bufrerr.New(bufrerr.NoBUFRMessage, "bufrdump", err)
	}
	defer f.Close()

	scanner := message.NewScanner(f)
	seq := 0
	for {
		env, err := scanner.Next()
		if err != nil {
			if be, ok := err.(*bufrerr.Error); ok && be.Kind == bufrerr.NoBUFRMessage {
				break
			}
			return err
		}
		seq++
		if err := dumpMessage(seq, env, coll); err != nil {
			return err
		}
	}
	return nil
}

func dumpMessage(seq int, env *message.Envelope, coll *table.Collection) error {
	fields := log.WithField("seq", seq)

	edition := env.Edition()
	category, err := env.DataCategory()
	if err != nil {
		return err
	}
	masterVer, err := env.MasterTableVersion()
	if err != nil {
		return err
	}
	localVer, err := env.LocalTableVersion()
	if err != nil {
		return err
	}
	master, err := env.MasterTable()
	if err != nil {
		return err
	}
	center, err := env.OriginatingCenter()
	if err != nil {
		return err
	}

	compressed, err := env.Compressed()
	if err != nil {
		return err
	}
	if compressed {
		return bufrerr.New(bufrerr.UnsupportedFeature, "bufrdump", nil)
	}

	fmt.Printf("message %d: edition=%d category=%d master=%d center=%d master_version=%d local_version=%d\n",
		seq, edition, category, master, center, masterVer, localVer)

	descriptors, err := env.DataDescriptors()
	if err != nil {
		return err
	}
	fmt.Printf("  descriptors: %v\n", descriptors)

	tableB := coll.BuildMessageTables(table.KindB, uint8(masterVer), uint8(localVer), uint8(master), uint16(center))
	tableD := coll.BuildMessageTables(table.KindD, uint8(masterVer), uint8(localVer), uint8(master), uint16(center))
	tableF := coll.BuildMessageTables(table.KindF, uint8(masterVer), uint8(localVer), uint8(master), uint16(center))

	plan, diags := descriptor.Expand(descriptors, tableB, tableD)
	for _, d := range diags {
		fields.Warn("%s", d.String())
	}

	payload, err := env.DataSection()
	if err != nil {
		return err
	}
	cur := bitio.NewReader(payload)
	values, err := decode.DecodeSubset(cur, plan, tableF)
	if err != nil {
		return err
	}

	fmt.Println("  subset:")
	printValues(values, "    ")
	return nil
}

func printValues(values []any, indent string) {
	for _, v := range values {
		switch vv := v.(type) {
		case value.Value:
			data, ok := vv.Data()
			if !ok {
				fmt.Printf("%s%s = <missing>\n", indent, vv.Element().Mnemonic)
				continue
			}
			fmt.Printf("%s%s = %v\n", indent, vv.Element().Mnemonic, data)
		case decode.ReplicationGroup:
			fmt.Printf("%s%s: %d group(s)\n", indent, vv.FXY, len(vv.Groups))
			for i, g := range vv.Groups {
				fmt.Printf("%s  [%d]\n", indent, i)
				asAny := make([]any, len(g))
				for j, gv := range g {
					asAny[j] = gv
				}
				printValues(asAny, indent+"    ")
			}
		}
	}
}
