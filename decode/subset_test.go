// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package decode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metdecode/bufr/bitio"
	"github.com/metdecode/bufr/decode"
	"github.com/metdecode/bufr/descriptor"
	"github.com/metdecode/bufr/table"
	"github.com/metdecode/bufr/value"
)

func TestDecodeSubsetE1SingleElement(t *testing.T) {
	el := table.Element{FXY: table.FXY{F: 0, X: 1, Y: 1}, BitWidth: 7, Mnemonic: "WMOB"}
	plan := []descriptor.Node{descriptor.ElementDef{Element: el}}
	tableF := table.New(table.Identity{Kind: table.KindF})

	cur := bitio.NewReader([]byte{0b00000010})
	out, err := decode.DecodeSubset(cur, plan, tableF)
	require.NoError(t, err)
	require.Len(t, out, 1)

	n, ok := out[0].(value.Numeric)
	require.True(t, ok)
	data, present := n.Data()
	assert.True(t, present)
	assert.Equal(t, int64(1), data)
}

func TestDecodeSubsetE2FixedReplication(t *testing.T) {
	el := table.Element{FXY: table.FXY{F: 0, X: 1, Y: 2}, BitWidth: 7, Mnemonic: "X2"}
	plan := []descriptor.Node{
		descriptor.FixedReplication{FXY: table.FXY{F: 1, X: 1, Y: 1}, Count: 1, Body: []descriptor.Node{
			descriptor.ElementDef{Element: el},
		}},
	}
	tableF := table.New(table.Identity{Kind: table.KindF})
	cur := bitio.NewReader([]byte{0b00000010})

	out, err := decode.DecodeSubset(cur, plan, tableF)
	require.NoError(t, err)
	require.Len(t, out, 1)

	rep, ok := out[0].(decode.ReplicationGroup)
	require.True(t, ok)
	require.Len(t, rep.Groups, 1)
	require.Len(t, rep.Groups[0], 1)

	n := rep.Groups[0][0].(value.Numeric)
	data, _ := n.Data()
	assert.Equal(t, int64(1), data)
}

func TestDecodeSubsetE3DelayedReplication(t *testing.T) {
	countEl := table.Element{FXY: table.FXY{F: 0, X: 31, Y: 1}, BitWidth: 8, Mnemonic: "COUNT"}
	bodyEl := table.Element{FXY: table.FXY{F: 0, X: 1, Y: 2}, BitWidth: 8, Mnemonic: "BODY"}
	plan := []descriptor.Node{
		descriptor.DelayedReplication{
			FXY:          table.FXY{F: 1, X: 1, Y: 0},
			CountElement: countEl,
			Body:         []descriptor.Node{descriptor.ElementDef{Element: bodyEl}},
		},
	}
	tableF := table.New(table.Identity{Kind: table.KindF})
	// count=3, then 10, 20, 30
	cur := bitio.NewReader([]byte{3, 10, 20, 30})

	out, err := decode.DecodeSubset(cur, plan, tableF)
	require.NoError(t, err)
	require.Len(t, out, 1)

	rep, ok := out[0].(decode.ReplicationGroup)
	require.True(t, ok)
	require.Len(t, rep.Groups, 3)

	want := []int64{10, 20, 30}
	for i, g := range rep.Groups {
		require.Len(t, g, 1)
		n := g[0].(value.Numeric)
		data, _ := n.Data()
		assert.Equal(t, want[i], data)
	}
}

func TestDecodeSubsetE4CodeLookupUnresolved(t *testing.T) {
	el := table.Element{FXY: table.FXY{F: 0, X: 8, Y: 23}, BitWidth: 8, Unit: table.UnitCode, Mnemonic: "FLAG"}
	plan := []descriptor.Node{descriptor.ElementDef{Element: el}}

	tableF := table.New(table.Identity{Kind: table.KindF})
	cf := table.CodeFlag{FXY: el.FXY}
	cf.Append(table.CodeEntry{Code: 1, Meaning: "known"})
	tableF.Append(table.Entry{Kind: table.EntryCodeFlag, CodeFlag: cf})

	cur := bitio.NewReader([]byte{99}) // no Table F row for 99
	out, err := decode.DecodeSubset(cur, plan, tableF)
	require.NoError(t, err)
	require.Len(t, out, 1)

	v, ok := out[0].(value.CodeLookup)
	require.True(t, ok)
	data, present := v.Data()
	assert.False(t, present)
	assert.Nil(t, data)
	assert.False(t, v.Resolved())
}

func TestDecodeSubsetE6MissingValue(t *testing.T) {
	el := table.Element{FXY: table.FXY{F: 0, X: 1, Y: 1}, BitWidth: 16, Mnemonic: "M"}
	plan := []descriptor.Node{descriptor.ElementDef{Element: el}}
	tableF := table.New(table.Identity{Kind: table.KindF})

	cur := bitio.NewReader([]byte{0xFF, 0xFF})
	out, err := decode.DecodeSubset(cur, plan, tableF)
	require.NoError(t, err)
	require.Len(t, out, 1)

	m, ok := out[0].(value.Missing)
	require.True(t, ok)
	data, present := m.Data()
	assert.False(t, present)
	assert.Nil(t, data)
}

func TestDecodeSubsetConditionalCodeFlagSelection(t *testing.T) {
	witness := table.Element{FXY: table.FXY{F: 0, X: 8, Y: 23}, BitWidth: 8, Mnemonic: "WITNESS"}
	dependent := table.Element{FXY: table.FXY{F: 0, X: 9, Y: 1}, BitWidth: 8, Unit: table.UnitCode, Mnemonic: "DEP"}
	plan := []descriptor.Node{
		descriptor.ElementDef{Element: witness},
		descriptor.ElementDef{Element: dependent},
	}

	tableF := table.New(table.Identity{Kind: table.KindF})
	unconditional := table.CodeFlag{FXY: dependent.FXY}
	unconditional.Append(table.CodeEntry{Code: 5, Meaning: "default meaning"})
	tableF.Append(table.Entry{Kind: table.EntryCodeFlag, CodeFlag: unconditional})

	conditional := table.CodeFlag{
		FXY: dependent.FXY, HasCondition: true,
		CondF: 0, CondX: 8, CondY: 23, CondValue: 1,
	}
	conditional.Append(table.CodeEntry{Code: 5, Meaning: "conditioned meaning"})
	tableF.Append(table.Entry{Kind: table.EntryCodeFlag, CodeFlag: conditional})

	cur := bitio.NewReader([]byte{1, 5}) // witness == 1, dependent code == 5
	out, err := decode.DecodeSubset(cur, plan, tableF)
	require.NoError(t, err)
	require.Len(t, out, 2)

	v := out[1].(value.CodeLookup)
	data, present := v.Data()
	assert.True(t, present)
	assert.Equal(t, "conditioned meaning", data)
}
