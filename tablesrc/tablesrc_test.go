// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package tablesrc_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metdecode/bufr/table"
	"github.com/metdecode/bufr/tablesrc"
)

func TestWriteXMLThenReadXMLRoundTrips(t *testing.T) {
	coll := table.NewCollection()
	tb := table.New(table.Identity{Kind: table.KindB, Master: 0, Center: 7, Version: 19})
	tb.Append(table.Entry{Kind: table.EntryElement, Element: table.Element{
		FXY: table.FXY{F: 0, X: 1, Y: 1}, Scale: 0, ReferenceValue: 0,
		BitWidth: 7, Mnemonic: "WMOB", Name: "WMO BLOCK NUMBER",
	}})
	coll.Put(tb)

	dir := t.TempDir()
	path := filepath.Join(dir, "tables.xml")
	require.NoError(t, tablesrc.WriteXML(coll, path))

	got, err := tablesrc.ReadXML(path)
	require.NoError(t, err)

	roundTripped, ok := got.Get(table.Identity{Kind: table.KindB, Master: 0, Center: 7, Version: 19})
	require.True(t, ok)
	e, ok := roundTripped.Get(table.EntryID{FXY: table.FXY{F: 0, X: 1, Y: 1}})
	require.True(t, ok)
	assert.Equal(t, uint32(7), e.Element.BitWidth)
	assert.Equal(t, "WMOB", e.Element.Mnemonic)
}

func TestWriteXMLGzipRoundTrips(t *testing.T) {
	coll := table.NewCollection()
	tb := table.New(table.Identity{Kind: table.KindB, Master: 0, Center: 0, Version: 19})
	tb.Append(table.Entry{Kind: table.EntryElement, Element: table.Element{
		FXY: table.FXY{F: 0, X: 1, Y: 2}, BitWidth: 8, Mnemonic: "X",
	}})
	coll.Put(tb)

	dir := t.TempDir()
	path := filepath.Join(dir, "tables.xml.gz")
	require.NoError(t, tablesrc.WriteXML(coll, path))

	got, err := tablesrc.ReadXML(path)
	require.NoError(t, err)
	_, ok := got.Get(table.Identity{Kind: table.KindB, Master: 0, Center: 0, Version: 19})
	assert.True(t, ok)
}

func TestReadNCEPElementTable(t *testing.T) {
	content := strings.Join([]string{
		"Table B | 0 | 19",
		"# comment line",
		"",
		"0|01|001|0|0|7|Numeric|WMOB|WMO BLOCK NUMBER",
		"0|01|002|0|0|10|Numeric|WMOS|WMO STATION NUMBER",
		"END",
	}, "\n")

	dir := t.TempDir()
	path := filepath.Join(dir, "tableb.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tb, err := tablesrc.ReadNCEP(path)
	require.NoError(t, err)
	assert.Equal(t, table.KindB, tb.Identity.Kind)
	assert.EqualValues(t, 19, tb.Identity.Version)

	e, ok := tb.Get(table.EntryID{FXY: table.FXY{F: 0, X: 1, Y: 1}})
	require.True(t, ok)
	assert.Equal(t, "WMOB", e.Element.Mnemonic)
	assert.EqualValues(t, 7, e.Element.BitWidth)
}

func TestReadNCEPSequenceTableWithContinuations(t *testing.T) {
	content := strings.Join([]string{
		"Table D | 0 | 19",
		"3|01|001|SEQ1|station identification",
		">0|01|001|WMO block number",
		">0|01|002|WMO station number",
		"END",
	}, "\n")
	dir := t.TempDir()
	path := filepath.Join(dir, "tabled.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tb, err := tablesrc.ReadNCEP(path)
	require.NoError(t, err)

	e, ok := tb.Get(table.EntryID{FXY: table.FXY{F: 3, X: 1, Y: 1}})
	require.True(t, ok)
	require.Len(t, e.Sequence.Elements, 2)
	assert.Equal(t, uint32(0), e.Sequence.Elements[0].Index)
	assert.Equal(t, table.FXY{F: 0, X: 1, Y: 2}, e.Sequence.Elements[1].FXY)
}

func TestReadNCEPCodeTableWithCondition(t *testing.T) {
	content := strings.Join([]string{
		"Table F | 0 | 19",
		"0|08|023|FIRST_LAST|false|1|first record in message",
		"0|08|023|FIRST_LAST|false|2|last record in message|0-08-023=1",
		"END",
	}, "\n")
	dir := t.TempDir()
	path := filepath.Join(dir, "tablef.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tb, err := tablesrc.ReadNCEP(path)
	require.NoError(t, err)

	e, ok := tb.Get(table.EntryID{FXY: table.FXY{F: 0, X: 8, Y: 23}})
	require.True(t, ok)
	meaning, ok := e.CodeFlag.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "first record in message", meaning)
}

func TestReadNCEPRejectsMalformedHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a header\n"), 0o644))

	_, err := tablesrc.ReadNCEP(path)
	assert.Error(t, err)
}
