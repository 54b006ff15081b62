// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package table holds the versioned Table A/B/D/F model: element
// definitions, sequence expansions, and code/flag meanings, keyed by
// composite identity, with the overlay and merge rules BUFR decoding
// depends on.
package table

import "fmt"

// TableKind names which of the eight BUFR table kinds (A, B, D, F and
// their X counterparts) an entry or Table belongs to. The "X" kinds are local extensions that overlay
// unconditionally, per spec §4.3.
type TableKind string

// The defined table kinds.
const (
	KindA  TableKind = "A"
	KindB  TableKind = "B"
	KindD  TableKind = "D"
	KindF  TableKind = "F"
	KindAX TableKind = "AX"
	KindBX TableKind = "BX"
	KindDX TableKind = "DX"
	KindFX TableKind = "FX"
)

// FXY is a BUFR descriptor triple (F, X, Y).
type FXY struct {
	F uint8
	X uint8
	Y uint8
}

func (d FXY) String() string {
	return fmt.Sprintf("%01d-%02d-%03d", d.F, d.X, d.Y)
}

// EntryID is the composite identity of one entry within a Table. Most
// entries only populate F/X/Y; CodeFlag entries additionally populate
// IsFlag and the four condition fields, per spec §3. EntryID is
// comparable and usable as a map key.
type EntryID struct {
	FXY
	IsFlag       bool
	HasCondition bool
	CondF        uint8
	CondX        uint8
	CondY        uint8
	CondValue    int64
}

// EntryKind distinguishes the four leaf/container shapes an Entry can
// hold (spec §9, "container vs leaf polymorphism").
type EntryKind uint8

// The defined entry kinds.
const (
	EntryElement EntryKind = iota + 1
	EntrySequence
	EntryCodeFlag
	EntryCategory
)

// Entry is a tagged union over the four things a Table can store: a
// Table A category, a Table B element, a Table D sequence, or a Table F
// code/flag definition. Only Sequence and CodeFlag are containers.
type Entry struct {
	Kind     EntryKind
	Category Category
	Element  Element
	Sequence Sequence
	CodeFlag CodeFlag
}

// ID returns the entry's composite identity regardless of kind.
func (e Entry) ID() EntryID {
	switch e.Kind {
	case EntryElement:
		return EntryID{FXY: e.Element.FXY}
	case EntrySequence:
		return EntryID{FXY: e.Sequence.FXY}
	case EntryCodeFlag:
		return EntryID{
			FXY:          e.CodeFlag.FXY,
			IsFlag:       e.CodeFlag.IsFlag,
			HasCondition: e.CodeFlag.HasCondition,
			CondF:        e.CodeFlag.CondF,
			CondX:        e.CodeFlag.CondX,
			CondY:        e.CodeFlag.CondY,
			CondValue:    e.CodeFlag.CondValue,
		}
	case EntryCategory:
		return EntryID{FXY: FXY{F: 0, X: 0, Y: e.Category.Code}}
	default:
		return EntryID{}
	}
}

// Category is a Table A entry: a data-category code and its description.
type Category struct {
	Code        uint8
	Description string
}

// Element is a Table B entry identified by (F=0, X, Y).
type Element struct {
	FXY
	Scale          int32
	ReferenceValue int64
	BitWidth       uint32
	Unit           string
	Mnemonic       string
	DescCode       string
	Name           string
}

// Unit values that switch decoding away from plain Numeric, per spec §3.
const (
	UnitIA5   = "CCITT IA5"
	UnitCode  = "Code table"
	UnitFlag  = "Flag table"
)

// IsIA5 reports whether the element decodes as an ASCII string.
func (e Element) IsIA5() bool { return e.Unit == UnitIA5 }

// IsCodeTable reports whether the element decodes via code-table lookup.
func (e Element) IsCodeTable() bool { return e.Unit == UnitCode }

// IsFlagTable reports whether the element decodes via flag-table lookup.
func (e Element) IsFlagTable() bool { return e.Unit == UnitFlag }

// Equal reports semantic equality per spec §4.3: identity plus the
// scale/reference/width/unit/mnemonic fields. Name and DescCode are
// informational and excluded, matching Table.Diff's field exclusions.
func (e Element) Equal(other Element) bool {
	return e.FXY == other.FXY &&
		e.Scale == other.Scale &&
		e.ReferenceValue == other.ReferenceValue &&
		e.BitWidth == other.BitWidth &&
		e.Unit == other.Unit &&
		e.Mnemonic == other.Mnemonic
}

// SequenceElement is one child of a Sequence, carrying the stable index
// attribute spec §3 requires.
type SequenceElement struct {
	Index uint32
	FXY
	Name string
}

// Sequence is a Table D entry identified by (F=3, X, Y): an ordered list
// of child descriptors.
type Sequence struct {
	FXY
	Mnemonic string
	DescCode string
	Name     string
	Elements []SequenceElement
}

// Descriptors returns the sequence's children as plain FXY triples, in
// index order.
func (s Sequence) Descriptors() []FXY {
	out := make([]FXY, len(s.Elements))
	for i, e := range s.Elements {
		out[i] = e.FXY
	}
	return out
}

// Append adds or replaces a child by its Index identity (spec §4.3
// "append replaces on identity collision" applied to sequence children),
// keeping Elements sorted by Index.
func (s *Sequence) Append(child SequenceElement) {
	for i, existing := range s.Elements {
		if existing.Index == child.Index {
			s.Elements[i] = child
			return
		}
	}
	s.Elements = append(s.Elements, child)
	sortSequenceElements(s.Elements)
}

func sortSequenceElements(elems []SequenceElement) {
	for i := 1; i < len(elems); i++ {
		for j := i; j > 0 && elems[j].Index < elems[j-1].Index; j-- {
			elems[j], elems[j-1] = elems[j-1], elems[j]
		}
	}
}

// CodeEntry is one row of a CodeFlag table: a code (or, for flag tables,
// a 1-based bit position counted from the MSB) and its meaning.
type CodeEntry struct {
	Code    int64
	Meaning string
}

// CodeFlag is a Table F entry: the composite-keyed code/flag meaning map
// described in spec §3, including its optional condition fields.
type CodeFlag struct {
	FXY
	Mnemonic     string
	IsFlag       bool
	HasCondition bool
	CondF        uint8
	CondX        uint8
	CondY        uint8
	CondValue    int64
	Codes        []CodeEntry
}

// Lookup returns the meaning for code, if present.
func (c CodeFlag) Lookup(code int64) (string, bool) {
	for _, row := range c.Codes {
		if row.Code == code {
			return row.Meaning, true
		}
	}
	return "", false
}

// Append adds or replaces a code row by its Code identity, keeping Codes
// sorted by code.
func (c *CodeFlag) Append(row CodeEntry) {
	for i, existing := range c.Codes {
		if existing.Code == row.Code {
			c.Codes[i] = row
			return
		}
	}
	c.Codes = append(c.Codes, row)
	sortCodeEntries(c.Codes)
}

func sortCodeEntries(rows []CodeEntry) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j].Code < rows[j-1].Code; j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}

// Matches reports whether this CodeFlag definition applies given the
// subset decoder's observed-condition environment: unconditional
// entries always match; conditional entries match only when env holds
// an observed value for (CondF, CondX, CondY) equal to CondValue.
func (c CodeFlag) Matches(env map[FXY]int64) bool {
	if !c.HasCondition {
		return true
	}
	v, ok := env[FXY{F: c.CondF, X: c.CondX, Y: c.CondY}]
	return ok && v == c.CondValue
}
