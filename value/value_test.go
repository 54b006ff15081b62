// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/metdecode/bufr/table"
	"github.com/metdecode/bufr/value"
)

func TestNumericAppliesScaleAndReference(t *testing.T) {
	el := table.Element{Scale: 1, ReferenceValue: -400, BitWidth: 16}
	n := value.NewNumeric(el, []byte{0x27, 0x10}) // 10000

	got, ok := n.Data()
	assert.True(t, ok)
	assert.InDelta(t, 960.0, got.(float64), 1e-9)
}

func TestNumericZeroScaleReturnsInt(t *testing.T) {
	el := table.Element{Scale: 0, ReferenceValue: 5, BitWidth: 8}
	n := value.NewNumeric(el, []byte{10})

	got, ok := n.Data()
	assert.True(t, ok)
	assert.Equal(t, int64(15), got)
}

func TestStringTruncatesAtNUL(t *testing.T) {
	el := table.Element{Unit: table.UnitIA5, BitWidth: 40}
	s := value.NewString(el, []byte("AB\x00CD"))

	got, ok := s.Data()
	assert.True(t, ok)
	assert.Equal(t, "AB", got)
}

func TestEncodeStringPadsWithSpaces(t *testing.T) {
	got := value.EncodeString("AB", 5)
	assert.Equal(t, []byte("AB   "), got)
}

func TestCodeLookupResolved(t *testing.T) {
	el := table.Element{Unit: table.UnitCode, BitWidth: 8}
	cf := &table.CodeFlag{}
	cf.Append(table.CodeEntry{Code: 10, Meaning: "clear sky"})

	v := value.NewCodeLookup(el, []byte{10}, cf)
	assert.True(t, v.Resolved())
	got, ok := v.Data()
	assert.True(t, ok)
	assert.Equal(t, "clear sky", got)
}

func TestCodeLookupUnresolvedWhenNoMatch(t *testing.T) {
	el := table.Element{Unit: table.UnitCode, BitWidth: 8}
	cf := &table.CodeFlag{}
	cf.Append(table.CodeEntry{Code: 10, Meaning: "clear sky"})

	v := value.NewCodeLookup(el, []byte{99}, cf)
	assert.False(t, v.Resolved())
	_, ok := v.Data()
	assert.False(t, ok)
}

func TestCodeLookupNilTableUnresolved(t *testing.T) {
	el := table.Element{Unit: table.UnitCode, BitWidth: 8}
	v := value.NewCodeLookup(el, []byte{1}, nil)
	assert.False(t, v.Resolved())
}

func TestFlagLookupReportsSetBitsMSBFirst(t *testing.T) {
	el := table.Element{Unit: table.UnitFlag, BitWidth: 4}
	cf := &table.CodeFlag{IsFlag: true}
	cf.Append(table.CodeEntry{Code: 1, Meaning: "bit1 set"})
	cf.Append(table.CodeEntry{Code: 3, Meaning: "bit3 set"})

	f := value.NewFlagLookup(el, []byte{0b1010}, cf)
	got, ok := f.Data()
	assert.True(t, ok)
	assert.Equal(t, []string{"bit1 set", "bit3 set"}, got)
}

func TestFlagLookupFallsBackToBitPosition(t *testing.T) {
	el := table.Element{Unit: table.UnitFlag, BitWidth: 4}
	f := value.NewFlagLookup(el, []byte{0b0001}, nil)
	got, ok := f.Data()
	assert.True(t, ok)
	assert.Equal(t, []string{"bit 4"}, got)
}

func TestMissingAlwaysAbsent(t *testing.T) {
	m := value.NewMissing(table.Element{BitWidth: 8})
	_, ok := m.Data()
	assert.False(t, ok)
}
