// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package decode walks a descriptor expansion plan against a bit
// cursor, producing a tree of typed values while threading the
// conditional Table F lookup environment described in spec §4.6 and
// §9 ("Conditional code/flag resolution").
package decode

import (
	"github.com/metdecode/bufr/bitio"
	"github.com/metdecode/bufr/bufrerr"
	"github.com/metdecode/bufr/descriptor"
	"github.com/metdecode/bufr/table"
	"github.com/metdecode/bufr/value"
)

// Group is an ordered list of values produced by walking one
// replication cycle's body.
type Group []value.Value

// ReplicationGroup holds the N groups produced by a fixed or delayed
// replication node.
type ReplicationGroup struct {
	FXY    table.FXY
	Groups []Group
}

// conditionEnv maps a witnessed condition descriptor's identity to the
// most recently observed raw integer value, per spec §9's explicit
// side-channel design.
type conditionEnv map[table.FXY]int64

// DecodeSubset walks plan against cur, resolving Table F lookups
// against tableF, and returns the flat ordered list of values/groups
// produced — iterating the result yields leaves in the exact bit order
// they were decoded (spec §3 invariant on subset value trees).
func DecodeSubset(cur *bitio.Reader, plan []descriptor.Node, tableF *table.Table) ([]any, error) {
	env := make(conditionEnv)
	return decodeNodes(cur, plan, tableF, env)
}

func decodeNodes(cur *bitio.Reader, nodes []descriptor.Node, tableF *table.Table, env conditionEnv) ([]any, error) {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		switch node := n.(type) {
		case descriptor.ElementDef:
			v, err := decodeElement(cur, node.Element, tableF, env)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		case descriptor.FixedReplication:
			groups := make([]Group, 0, node.Count)
			for i := 0; i < node.Count; i++ {
				vals, err := decodeNodes(cur, node.Body, tableF, env)
				if err != nil {
					return nil, err
				}
				groups = append(groups, toGroup(vals))
			}
			out = append(out, ReplicationGroup{FXY: node.FXY, Groups: groups})
		case descriptor.DelayedReplication:
			countVal, err := decodeElement(cur, node.CountElement, tableF, env)
			if err != nil {
				return nil, err
			}
			n, ok := countVal.(value.Numeric)
			if !ok {
				return nil, bufrerr.New(bufrerr.BufferOverrun, "decode.DecodeSubset",
					nil)
			}
			data, _ := n.Data()
			count, _ := data.(int64)
			groups := make([]Group, 0, count)
			for i := int64(0); i < count; i++ {
				vals, err := decodeNodes(cur, node.Body, tableF, env)
				if err != nil {
					return nil, err
				}
				groups = append(groups, toGroup(vals))
			}
			out = append(out, ReplicationGroup{FXY: node.FXY, Groups: groups})
		}
	}
	return out, nil
}

func toGroup(vals []any) Group {
	g := make(Group, 0, len(vals))
	for _, v := range vals {
		if vv, ok := v.(value.Value); ok {
			g = append(g, vv)
		}
	}
	return g
}

// decodeElement reads el's bits from cur, resolves the correct typed
// Value, and threads the condition environment: every element's raw
// integer (Missing included) is recorded in env under its FXY before
// returning, so any later Table F condition can consult it.
func decodeElement(cur *bitio.Reader, el table.Element, tableF *table.Table, env conditionEnv) (value.Value, error) {
	raw, err := cur.ReadBytes(int(el.BitWidth))
	if err != nil {
		return nil, bufrerr.New(bufrerr.BufferOverrun, "decode.decodeElement", err)
	}

	if bitio.IsMissingBytes(raw, int(el.BitWidth)) {
		v := value.NewMissing(el)
		env[el.FXY] = rawInt(raw)
		return v, nil
	}

	env[el.FXY] = rawInt(raw)

	switch {
	case el.IsIA5():
		return value.NewString(el, raw), nil
	case el.IsCodeTable():
		cf := selectCodeFlag(tableF, el.FXY, false, env)
		return value.NewCodeLookup(el, raw, cf), nil
	case el.IsFlagTable():
		cf := selectCodeFlag(tableF, el.FXY, true, env)
		return value.NewFlagLookup(el, raw, cf), nil
	default:
		return value.NewNumeric(el, raw), nil
	}
}

// selectCodeFlag finds the Table F entry for fxy whose condition is
// either unconditional or matches the witness env currently holds,
// per spec §4.6/§9.
func selectCodeFlag(tableF *table.Table, fxy table.FXY, isFlag bool, env conditionEnv) *table.CodeFlag {
	sub := tableF.FindFXY(fxy)
	var unconditional *table.CodeFlag
	for _, entry := range sub.Entries() {
		if entry.Kind != table.EntryCodeFlag || entry.CodeFlag.IsFlag != isFlag {
			continue
		}
		cf := entry.CodeFlag
		if !cf.HasCondition {
			unconditional = &cf
			continue
		}
		if cf.Matches(map[table.FXY]int64(env)) {
			return &cf
		}
	}
	return unconditional
}

func rawInt(raw []byte) int64 {
	var v int64
	for _, b := range raw {
		v = v<<8 | int64(b)
	}
	return v
}
