// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package table

import "sort"

// Identity is the four-tuple that keys a Table within a Collection:
// table kind, master table, originating center, and table version.
// Center and Version are plain values; a table with no center or
// version (e.g. the X overlays) uses 0 for it.
type Identity struct {
	Kind    TableKind
	Master  uint8
	Center  uint16
	Version uint8
}

// Table is a keyed map from entry identity to Entry. Appending a
// duplicate identity replaces the prior entry, except that appending a
// container entry (Sequence/CodeFlag) whose identity already exists
// merges children instead of replacing, per spec §4.3.
type Table struct {
	Identity Identity
	entries  map[EntryID]Entry
}

// New constructs an empty Table with the given identity.
func New(id Identity) *Table {
	return &Table{Identity: id, entries: make(map[EntryID]Entry)}
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Append inserts entry, replacing any existing entry with the same
// identity — unless both the existing and new entries are containers of
// the same kind, in which case their children are merged (existing
// children kept, new children appended/replacing by their own identity).
func (t *Table) Append(entry Entry) {
	id := entry.ID()
	existing, ok := t.entries[id]
	if !ok {
		t.entries[id] = entry
		return
	}
	switch entry.Kind {
	case EntrySequence:
		if existing.Kind == EntrySequence {
			merged := existing
			for _, child := range entry.Sequence.Elements {
				merged.Sequence.Append(child)
			}
			t.entries[id] = merged
			return
		}
	case EntryCodeFlag:
		if existing.Kind == EntryCodeFlag {
			merged := existing
			for _, row := range entry.CodeFlag.Codes {
				merged.CodeFlag.Append(row)
			}
			t.entries[id] = merged
			return
		}
	}
	t.entries[id] = entry
}

// Get returns the entry with the given identity, if present.
func (t *Table) Get(id EntryID) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[id]
	return e, ok
}

// Find returns a shallow subtable of every entry satisfying pred. The
// returned Table keeps the parent's own Identity, per spec §4.3.
func (t *Table) Find(pred func(EntryID) bool) *Table {
	out := New(t.Identity)
	for id, e := range t.entries {
		if pred(id) {
			out.entries[id] = e
		}
	}
	return out
}

// FindFXY is a convenience wrapper over Find for the common case of
// locating entries (of any kind) with a given F, X, Y.
func (t *Table) FindFXY(f FXY) *Table {
	return t.Find(func(id EntryID) bool { return id.FXY == f })
}

// sortedIDs returns the table's entry identities in composite order:
// is_flag (code tables before flag tables), f, x, y, then condition
// fields.
func (t *Table) sortedIDs() []EntryID {
	ids := make([]EntryID, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return idLess(ids[i], ids[j])
	})
	return ids
}

func idLess(a, b EntryID) bool {
	if a.IsFlag != b.IsFlag {
		return !a.IsFlag
	}
	if a.F != b.F {
		return a.F < b.F
	}
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	if a.CondF != b.CondF {
		return a.CondF < b.CondF
	}
	if a.CondX != b.CondX {
		return a.CondX < b.CondX
	}
	if a.CondY != b.CondY {
		return a.CondY < b.CondY
	}
	return a.CondValue < b.CondValue
}

// Iloc returns the n-th entry (0-based) in sorted-identity order.
func (t *Table) Iloc(n int) (Entry, bool) {
	ids := t.sortedIDs()
	if n < 0 || n >= len(ids) {
		return Entry{}, false
	}
	return t.entries[ids[n]], true
}

// Entries returns every entry in sorted-identity order.
func (t *Table) Entries() []Entry {
	ids := t.sortedIDs()
	out := make([]Entry, len(ids))
	for i, id := range ids {
		out[i] = t.entries[id]
	}
	return out
}

// IsEmpty reports whether the table has no entries.
func (t *Table) IsEmpty() bool { return t.Len() == 0 }

// Diff returns a Table with other's Identity containing every entry
// present in other but absent from t by identity, comparing only
// semantically-meaningful fields (name/desc_code excluded), per spec
// §4.3. For container entries present in both, the result holds the
// child-level differences.
func (t *Table) Diff(other *Table) *Table {
	result := New(other.Identity)
	for _, entry := range other.Entries() {
		switch entry.Kind {
		case EntrySequence:
			existing, ok := t.Get(entry.ID())
			if !ok || existing.Kind != EntrySequence {
				result.Append(entry)
				continue
			}
			diffSeq := diffSequenceChildren(existing.Sequence, entry.Sequence)
			if len(diffSeq.Elements) > 0 {
				result.Append(Entry{Kind: EntrySequence, Sequence: diffSeq})
			}
		case EntryCodeFlag:
			existing, ok := t.Get(entry.ID())
			if !ok || existing.Kind != EntryCodeFlag {
				result.Append(entry)
				continue
			}
			diffCF := diffCodeFlagChildren(existing.CodeFlag, entry.CodeFlag)
			if len(diffCF.Codes) > 0 {
				result.Append(Entry{Kind: EntryCodeFlag, CodeFlag: diffCF})
			}
		case EntryElement:
			if !t.hasEqualElement(entry.Element) {
				result.Append(entry)
			}
		default:
			if _, ok := t.Get(entry.ID()); !ok {
				result.Append(entry)
			}
		}
	}
	return result
}

func (t *Table) hasEqualElement(e Element) bool {
	existing, ok := t.Get(EntryID{FXY: e.FXY})
	return ok && existing.Kind == EntryElement && existing.Element.Equal(e)
}

func diffSequenceChildren(a, b Sequence) Sequence {
	out := Sequence{FXY: b.FXY, Mnemonic: b.Mnemonic, DescCode: b.DescCode, Name: b.Name}
	known := make(map[uint32]SequenceElement, len(a.Elements))
	for _, e := range a.Elements {
		known[e.Index] = e
	}
	for _, e := range b.Elements {
		if existing, ok := known[e.Index]; !ok || existing.FXY != e.FXY {
			out.Append(e)
		}
	}
	return out
}

func diffCodeFlagChildren(a, b CodeFlag) CodeFlag {
	out := CodeFlag{
		FXY: b.FXY, Mnemonic: b.Mnemonic, IsFlag: b.IsFlag,
		HasCondition: b.HasCondition, CondF: b.CondF, CondX: b.CondX,
		CondY: b.CondY, CondValue: b.CondValue,
	}
	known := make(map[int64]string, len(a.Codes))
	for _, row := range a.Codes {
		known[row.Code] = row.Meaning
	}
	for _, row := range b.Codes {
		if meaning, ok := known[row.Code]; !ok || meaning != row.Meaning {
			out.Append(row)
		}
	}
	return out
}
