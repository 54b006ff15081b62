// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package descriptor recursively resolves F-X-Y descriptor triples
// against Table B/D into a flat-but-replication-aware element plan,
// ready to be walked by the decode package against a bit cursor. See
// spec §4.4.
package descriptor

import (
	"fmt"

	"github.com/metdecode/bufr/table"
)

// Node is one entry in an expansion plan.
type Node interface {
	node()
}

// ElementDef is a terminal plan node resolved against Table B.
type ElementDef struct {
	Element table.Element
}

func (ElementDef) node() {}

// FixedReplication repeats Body Count times, Count taken verbatim from
// the F=1,Y>0 descriptor's X field, which doubles as the body length in
// descriptors.
type FixedReplication struct {
	FXY   table.FXY
	Count int
	Body  []Node
}

func (FixedReplication) node() {}

// DelayedReplication reads CountElement once at decode time to learn
// how many times to repeat Body.
type DelayedReplication struct {
	FXY          table.FXY
	CountElement table.Element
	Body         []Node
}

func (DelayedReplication) node() {}

// DiagnosticKind classifies a non-fatal condition surfaced during
// expansion.
type DiagnosticKind uint8

const (
	// UnknownElement means an F=0 descriptor had no Table B entry and
	// was silently dropped from the plan.
	UnknownElement DiagnosticKind = iota + 1
	// UnknownSequence means an F=3 descriptor had no Table D entry and
	// was silently dropped from the plan.
	UnknownSequence
	// OperatorSkipped means an F=2 operator descriptor was encountered;
	// operators are out of scope (spec Non-goals) and are skipped.
	OperatorSkipped
)

// Diagnostic records one non-fatal condition encountered while
// expanding descriptors.
type Diagnostic struct {
	Kind DiagnosticKind
	FXY  table.FXY
}

func (d Diagnostic) String() string {
	switch d.Kind {
	case UnknownElement:
		return fmt.Sprintf("unknown element %s", d.FXY)
	case UnknownSequence:
		return fmt.Sprintf("unknown sequence %s", d.FXY)
	case OperatorSkipped:
		return fmt.Sprintf("operator skipped %s", d.FXY)
	default:
		return fmt.Sprintf("unknown diagnostic for %s", d.FXY)
	}
}

// Expand resolves descriptors against tableB and tableD, returning a
// flat plan whose leaf order equals the pre-order flattening of
// replication/sequence bodies in the input (spec §8 invariant 3).
//
// F=0 descriptors missing from tableB, and F=3 descriptors missing
// from tableD, are skipped silently (each produces a Diagnostic); F=2
// operator descriptors are always skipped (Non-goal). Expand never
// touches a bit cursor — it is pure over the descriptor list and the
// two tables.
func Expand(descriptors []table.FXY, tableB, tableD *table.Table) ([]Node, []Diagnostic) {
	e := &expander{tableB: tableB, tableD: tableD}
	nodes := e.expand(descriptors)
	return nodes, e.diagnostics
}

type expander struct {
	tableB, tableD *table.Table
	diagnostics    []Diagnostic
}

func (e *expander) expand(descriptors []table.FXY) []Node {
	var out []Node
	i := 0
	for i < len(descriptors) {
		d := descriptors[i]
		switch d.F {
		case 0:
			if entry, ok := e.tableB.Get(table.EntryID{FXY: d}); ok && entry.Kind == table.EntryElement {
				out = append(out, ElementDef{Element: entry.Element})
			} else {
				e.diagnostics = append(e.diagnostics, Diagnostic{Kind: UnknownElement, FXY: d})
			}
			i++
		case 1:
			if d.Y == 0 {
				// Delayed replication: next descriptor is the count
				// element, then X following descriptors are the body.
				count := int(d.X)
				if i+1 >= len(descriptors) {
					i = len(descriptors)
					break
				}
				countNodes := e.expand(descriptors[i+1 : i+2])
				bodyEnd := min(i+2+count, len(descriptors))
				body := e.expand(descriptors[i+2 : bodyEnd])
				var countElement table.Element
				if len(countNodes) == 1 {
					if el, ok := countNodes[0].(ElementDef); ok {
						countElement = el.Element
					}
				}
				out = append(out, DelayedReplication{FXY: d, CountElement: countElement, Body: body})
				i = bodyEnd
			} else {
				count := int(d.X)
				bodyEnd := min(i+1+count, len(descriptors))
				body := e.expand(descriptors[i+1 : bodyEnd])
				out = append(out, FixedReplication{FXY: d, Count: int(d.X), Body: body})
				i = bodyEnd
			}
		case 2:
			e.diagnostics = append(e.diagnostics, Diagnostic{Kind: OperatorSkipped, FXY: d})
			i++
		case 3:
			entry, ok := e.tableD.Get(table.EntryID{FXY: d})
			if !ok || entry.Kind != table.EntrySequence {
				e.diagnostics = append(e.diagnostics, Diagnostic{Kind: UnknownSequence, FXY: d})
				i++
				continue
			}
			out = append(out, e.expand(entry.Sequence.Descriptors())...)
			i++
		default:
			i++
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
