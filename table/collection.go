// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package table

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Collection is a set of Tables keyed by Identity: no two tables may
// share the same (Kind, Master, Center, Version), per spec §3.
type Collection struct {
	mu     sync.RWMutex
	tables map[Identity]*Table

	cacheMu sync.Mutex
	cache   map[uint64]*Table
}

// NewCollection returns an empty Collection.
func NewCollection() *Collection {
	return &Collection{
		tables: make(map[Identity]*Table),
		cache:  make(map[uint64]*Table),
	}
}

// Put inserts or replaces the table with t's Identity.
func (c *Collection) Put(t *Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[t.Identity] = t
	c.cacheMu.Lock()
	c.cache = make(map[uint64]*Table)
	c.cacheMu.Unlock()
}

// Get returns the table with the given identity, if present.
func (c *Collection) Get(id Identity) (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[id]
	return t, ok
}

// All returns every table in the collection, in Identity order.
func (c *Collection) All() []*Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Table, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Identity, out[j].Identity
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Master != b.Master {
			return a.Master < b.Master
		}
		if a.Center != b.Center {
			return a.Center < b.Center
		}
		return a.Version < b.Version
	})
	return out
}

// ConstructTableVersion implements spec §4.3's construct_table_version:
// a synthetic Table built by starting empty at (kind, version, master,
// center) and appending, in order of increasing table_version, every
// source table matching (kind, master, center) whose version is >= the
// requested version. Because Append replaces on identity collision, the
// highest qualifying version is appended last and wins, leaving the
// result holding entries "as of" the requested version, with higher
// versions masking lower ones — see DESIGN.md "Overlay ordering".
//
// Results are memoized by a hash of the (kind, version, master, center)
// key since the operation is pure and may be repeated across many
// messages decoded against the same table set.
func (c *Collection) ConstructTableVersion(kind TableKind, version, master uint8, center uint16) *Table {
	key := cacheKey(kind, version, master, center)

	c.cacheMu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.cacheMu.Unlock()
		return cached
	}
	c.cacheMu.Unlock()

	result := New(Identity{Kind: kind, Master: master, Center: center, Version: version})

	var candidates []*Table
	c.mu.RLock()
	for _, t := range c.tables {
		if t.Identity.Kind == kind && t.Identity.Master == master &&
			t.Identity.Center == center && t.Identity.Version >= version {
			candidates = append(candidates, t)
		}
	}
	c.mu.RUnlock()

	// Append lowest version first so higher versions are appended later
	// and win via Append's replace-on-collision semantics.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Identity.Version < candidates[j].Identity.Version
	})
	for _, t := range candidates {
		for _, e := range t.Entries() {
			result.Append(e)
		}
	}

	c.cacheMu.Lock()
	c.cache[key] = result
	c.cacheMu.Unlock()
	return result
}

func cacheKey(kind TableKind, version, master uint8, center uint16) uint64 {
	var buf [12]byte
	copy(buf[:4], kind)
	buf[4] = version
	buf[5] = master
	binary.BigEndian.PutUint16(buf[6:8], center)
	return xxhash.Sum64(buf[:8])
}

// BuildMessageTables implements the composite-overlay recipe from spec
// §4.3 "Table A-F initialization for a message": concatenate, in order,
// (a) master-table entries at masterVersion, (b) local-center entries at
// localVersion, (c) the X overlay — and return the resulting Table.
func (c *Collection) BuildMessageTables(kind TableKind, masterVersion, localVersion, master uint8, center uint16) *Table {
	xKind := TableKind(string(kind) + "X")
	composite := New(Identity{Kind: kind, Master: master, Center: center, Version: masterVersion})

	masterTable := c.ConstructTableVersion(kind, masterVersion, master, 0)
	for _, e := range masterTable.Entries() {
		composite.Append(e)
	}
	localTable := c.ConstructTableVersion(kind, localVersion, master, center)
	for _, e := range localTable.Entries() {
		composite.Append(e)
	}
	overlay := c.ConstructTableVersion(xKind, 0, 0, 0)
	for _, e := range overlay.Entries() {
		composite.Append(e)
	}
	return composite
}
