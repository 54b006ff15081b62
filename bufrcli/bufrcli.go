// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package bufrcli holds the flag/config plumbing shared by the four CLI
// front-ends (dump, convert_tables, diff_tables, lookup_element):
// -d/-t table-source flags, an optional -c YAML config file, table
// loading, and the exit-code shim that keeps every front-end's exit
// status on the 0/2/3/4 contract regardless of urfave/cli's own
// defaults.
package bufrcli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/metdecode/bufr/bufrerr"
	"github.com/metdecode/bufr/table"
	"github.com/metdecode/bufr/tablesrc"
)

// Config is the optional -c FILE contents: default values for the -d/-t
// flags so a user need not repeat them on every invocation.
type Config struct {
	TableDir   string `yaml:"table_dir"`
	TablesFile string `yaml:"tables_file"`
}

// LoadConfig reads and parses a YAML config file. A missing path is not
// an error at this layer — callers pass "" when -c was not given.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bufrerr.New(bufrerr.TableParseError, "bufrcli.LoadConfig", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, bufrerr.New(bufrerr.TableParseError, "bufrcli.LoadConfig", err)
	}
	return &cfg, nil
}

// DirFlag and TablesFlag and ConfigFlag are the shared flag definitions
// every front-end registers.
var (
	DirFlag = &cli.StringFlag{
		Name:    "d",
		Aliases: []string{"dir"},
		Usage:   "directory of NCEP/XML table files",
	}
	TablesFlag = &cli.StringFlag{
		Name:    "t",
		Aliases: []string{"tables"},
		Usage:   "explicit canonical tables.xml file",
	}
	ConfigFlag = &cli.StringFlag{
		Name:    "c",
		Aliases: []string{"config"},
		Usage:   "optional bufr.yaml config seeding -d/-t defaults",
	}
)

// ResolveTableSource picks the effective table directory and explicit
// tables file for a run, letting -d/-t override a loaded Config.
func ResolveTableSource(c *cli.Context) (dir, tablesFile string, err error) {
	cfg, err := LoadConfig(c.String(ConfigFlag.Name))
	if err != nil {
		return "", "", err
	}
	dir = c.String(DirFlag.Name)
	if dir == "" {
		dir = cfg.TableDir
	}
	tablesFile = c.String(TablesFlag.Name)
	if tablesFile == "" {
		tablesFile = cfg.TablesFile
	}
	return dir, tablesFile, nil
}

// LoadTables builds a *table.Collection from an explicit tables.xml
// path, or (if empty) from every regular file in dir — .xml/.xml.gz
// files loaded via tablesrc.ReadXML, every other file attempted as an
// NCEP flat file via tablesrc.ReadNCEP.
func LoadTables(dir, tablesFile string) (*table.Collection, error) {
	if tablesFile != "" {
		return tablesrc.ReadXML(tablesFile)
	}
	if dir == "" {
		return nil, bufrerr.New(bufrerr.TableParseError, "bufrcli.LoadTables", nil)
	}

	coll := table.NewCollection()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, bufrerr.New(bufrerr.TableParseError, "bufrcli.LoadTables", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		name := strings.ToLower(entry.Name())
		switch {
		case strings.HasSuffix(name, ".xml") || strings.HasSuffix(name, ".xml.gz"):
			sub, err := tablesrc.ReadXML(path)
			if err != nil {
				return nil, err
			}
			for _, t := range sub.All() {
				coll.Put(t)
			}
		default:
			t, err := tablesrc.ReadNCEP(path)
			if err != nil {
				return nil, err
			}
			coll.Put(t)
		}
	}
	return coll, nil
}

// Run executes app against args and returns the process exit code per
// spec §7 (0 success, 2 usage, 3 decode error, 4 table error),
// remapping urfave/cli's own usage-error exit code (1) and any
// unrecognized error to the documented contract.
func Run(app *cli.App, args []string) int {
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(args)
	if err == nil {
		return 0
	}
	if isUsageError(err) {
		return 2
	}
	if ec, ok := err.(cli.ExitCoder); ok {
		return ec.ExitCode()
	}
	return bufrerr.ExitCode(err)
}

func isUsageError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "flag provided but not defined") ||
		strings.Contains(msg, "Incorrect Usage") ||
		strings.HasPrefix(msg, "not enough arguments")
}
