// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package descriptor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metdecode/bufr/descriptor"
	"github.com/metdecode/bufr/table"
)

func elementEntry(x, y uint8, width uint32, mnemonic string) table.Entry {
	return table.Entry{Kind: table.EntryElement, Element: table.Element{
		FXY: table.FXY{F: 0, X: x, Y: y}, BitWidth: width, Mnemonic: mnemonic,
	}}
}

func TestExpandSingleElement(t *testing.T) {
	tb := table.New(table.Identity{Kind: table.KindB})
	tb.Append(elementEntry(1, 1, 7, "WMOB"))
	td := table.New(table.Identity{Kind: table.KindD})

	nodes, diags := descriptor.Expand([]table.FXY{{F: 0, X: 1, Y: 1}}, tb, td)
	require.Empty(t, diags)
	require.Len(t, nodes, 1)
	el, ok := nodes[0].(descriptor.ElementDef)
	require.True(t, ok)
	assert.Equal(t, "WMOB", el.Element.Mnemonic)
}

func TestExpandFixedReplicationE2(t *testing.T) {
	tb := table.New(table.Identity{Kind: table.KindB})
	tb.Append(elementEntry(1, 2, 7, "X2"))
	td := table.New(table.Identity{Kind: table.KindD})

	descriptors := []table.FXY{
		{F: 1, X: 1, Y: 1},
		{F: 0, X: 1, Y: 2},
	}
	nodes, diags := descriptor.Expand(descriptors, tb, td)
	require.Empty(t, diags)
	require.Len(t, nodes, 1)

	rep, ok := nodes[0].(descriptor.FixedReplication)
	require.True(t, ok)
	assert.Equal(t, 1, rep.Count)
	require.Len(t, rep.Body, 1)
	el, ok := rep.Body[0].(descriptor.ElementDef)
	require.True(t, ok)
	assert.Equal(t, "X2", el.Element.Mnemonic)
}

func TestExpandDelayedReplicationE3(t *testing.T) {
	tb := table.New(table.Identity{Kind: table.KindB})
	tb.Append(elementEntry(31, 1, 8, "COUNT"))
	tb.Append(elementEntry(1, 2, 16, "BODY"))
	td := table.New(table.Identity{Kind: table.KindD})

	descriptors := []table.FXY{
		{F: 1, X: 1, Y: 0},
		{F: 0, X: 31, Y: 1},
		{F: 0, X: 1, Y: 2},
	}
	nodes, diags := descriptor.Expand(descriptors, tb, td)
	require.Empty(t, diags)
	require.Len(t, nodes, 1)

	rep, ok := nodes[0].(descriptor.DelayedReplication)
	require.True(t, ok)
	assert.Equal(t, "COUNT", rep.CountElement.Mnemonic)
	require.Len(t, rep.Body, 1)
	el, ok := rep.Body[0].(descriptor.ElementDef)
	require.True(t, ok)
	assert.Equal(t, "BODY", el.Element.Mnemonic)
}

func TestExpandSequenceFlattensInline(t *testing.T) {
	tb := table.New(table.Identity{Kind: table.KindB})
	tb.Append(elementEntry(1, 1, 7, "A"))
	tb.Append(elementEntry(1, 2, 7, "B"))

	td := table.New(table.Identity{Kind: table.KindD})
	seq := table.Sequence{FXY: table.FXY{F: 3, X: 1, Y: 1}}
	seq.Append(table.SequenceElement{Index: 0, FXY: table.FXY{F: 0, X: 1, Y: 1}})
	seq.Append(table.SequenceElement{Index: 1, FXY: table.FXY{F: 0, X: 1, Y: 2}})
	td.Append(table.Entry{Kind: table.EntrySequence, Sequence: seq})

	nodes, diags := descriptor.Expand([]table.FXY{{F: 3, X: 1, Y: 1}}, tb, td)
	require.Empty(t, diags)
	require.Len(t, nodes, 2)
	a := nodes[0].(descriptor.ElementDef)
	b := nodes[1].(descriptor.ElementDef)
	assert.Equal(t, "A", a.Element.Mnemonic)
	assert.Equal(t, "B", b.Element.Mnemonic)
}

func TestExpandFixedReplicationCountIsXNotY(t *testing.T) {
	tb := table.New(table.Identity{Kind: table.KindB})
	tb.Append(elementEntry(1, 2, 7, "X2"))
	td := table.New(table.Identity{Kind: table.KindD})

	// 1-01-003: X=1 (one descriptor in the body, repeated X=1 times);
	// Y=3 must not be taken as the count.
	descriptors := []table.FXY{
		{F: 1, X: 1, Y: 3},
		{F: 0, X: 1, Y: 2},
	}
	nodes, diags := descriptor.Expand(descriptors, tb, td)
	require.Empty(t, diags)
	require.Len(t, nodes, 1)

	rep, ok := nodes[0].(descriptor.FixedReplication)
	require.True(t, ok)
	assert.Equal(t, 1, rep.Count)
	require.Len(t, rep.Body, 1)
}

func TestExpandResumesAfterReplicationBody(t *testing.T) {
	tb := table.New(table.Identity{Kind: table.KindB})
	tb.Append(elementEntry(1, 2, 7, "X2"))
	tb.Append(elementEntry(2, 3, 7, "TRAILING"))
	td := table.New(table.Identity{Kind: table.KindD})

	descriptors := []table.FXY{
		{F: 1, X: 1, Y: 1},
		{F: 0, X: 1, Y: 2},
		{F: 0, X: 2, Y: 3},
	}
	nodes, diags := descriptor.Expand(descriptors, tb, td)
	require.Empty(t, diags)
	require.Len(t, nodes, 2)

	_, ok := nodes[0].(descriptor.FixedReplication)
	require.True(t, ok)
	trailing, ok := nodes[1].(descriptor.ElementDef)
	require.True(t, ok)
	assert.Equal(t, "TRAILING", trailing.Element.Mnemonic)
}

func TestExpandUnknownElementSkippedWithDiagnostic(t *testing.T) {
	tb := table.New(table.Identity{Kind: table.KindB})
	td := table.New(table.Identity{Kind: table.KindD})

	nodes, diags := descriptor.Expand([]table.FXY{{F: 0, X: 9, Y: 9}}, tb, td)
	assert.Empty(t, nodes)
	require.Len(t, diags, 1)
	assert.Equal(t, descriptor.UnknownElement, diags[0].Kind)
}

func TestExpandOperatorSkipped(t *testing.T) {
	tb := table.New(table.Identity{Kind: table.KindB})
	tb.Append(elementEntry(1, 1, 7, "A"))
	td := table.New(table.Identity{Kind: table.KindD})

	nodes, diags := descriptor.Expand([]table.FXY{{F: 2, X: 1, Y: 1}, {F: 0, X: 1, Y: 1}}, tb, td)
	require.Len(t, nodes, 1)
	require.Len(t, diags, 1)
	assert.Equal(t, descriptor.OperatorSkipped, diags[0].Kind)
}
