// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package value holds the typed decoded values BUFR elements produce:
// Numeric, String, CodeLookup, FlagLookup, and Missing, each carrying a
// reference to the element definition it was decoded from and its raw
// bits. See spec §4.2.
package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/metdecode/bufr/table"
)

// Value is the common interface every decoded element result satisfies.
type Value interface {
	// Element returns the Table B definition this value was decoded
	// against.
	Element() table.Element
	// Raw returns the undecoded bit-string as bitio.Reader.ReadBytes
	// produced it (value in the low bits, zero-padded to whole bytes);
	// nil for Missing.
	Raw() []byte
	// Data returns the decoded value and whether it is present (ok is
	// false for Missing, and for CodeLookup with no matching row — see
	// E4 — CodeLookup.Resolved distinguishes those two cases).
	Data() (any, bool)
}

type base struct {
	element table.Element
	raw     []byte
}

func (b base) Element() table.Element { return b.element }
func (b base) Raw() []byte            { return b.raw }

func rawToInt(raw []byte) int64 {
	var v int64
	for _, b := range raw {
		v = (v << 8) | int64(b)
	}
	return v
}

// Numeric is a decoded element whose unit is a physical quantity. Its
// Data is (reference_value + raw) when scale is 0, otherwise that sum
// scaled by 10^-scale.
type Numeric struct {
	base
}

// NewNumeric constructs a Numeric value from the element definition and
// raw bits.
func NewNumeric(el table.Element, raw []byte) Numeric {
	return Numeric{base{element: el, raw: raw}}
}

// Data implements Value.
func (n Numeric) Data() (any, bool) {
	sum := n.element.ReferenceValue + rawToInt(n.raw)
	if n.element.Scale == 0 {
		return sum, true
	}
	return float64(sum) * math.Pow(10, float64(-n.element.Scale)), true
}

// String is a decoded CCITT IA5 (ASCII) element. Its Data is the bytes
// interpreted as text, truncated at the first NUL.
type String struct {
	base
}

// NewString constructs a String value.
func NewString(el table.Element, raw []byte) String {
	return String{base{element: el, raw: raw}}
}

// Data implements Value.
func (s String) Data() (any, bool) {
	text := string(s.raw)
	if idx := strings.IndexByte(text, 0); idx >= 0 {
		text = text[:idx]
	}
	return text, true
}

// EncodeString right-pads s with spaces to fill capacity bytes, for the
// partial write-side support described in spec §9's write-path Open
// Question.
func EncodeString(s string, capacity int) []byte {
	out := make([]byte, capacity)
	n := copy(out, s)
	for i := n; i < capacity; i++ {
		out[i] = ' '
	}
	return out
}

// CodeLookup is a decoded element whose unit is "Code table": the raw
// value (after reference bias) is looked up in the active Table F
// code-meaning map for this element.
type CodeLookup struct {
	base
	meaning  string
	resolved bool
}

// NewCodeLookup constructs a CodeLookup value. cf may be nil, or may be
// a CodeFlag definition with no row matching the decoded code — both
// cases leave Resolved false and Data's ok false, matching E4.
func NewCodeLookup(el table.Element, raw []byte, cf *table.CodeFlag) CodeLookup {
	code := el.ReferenceValue + rawToInt(raw)
	v := CodeLookup{base: base{element: el, raw: raw}}
	if cf == nil {
		return v
	}
	meaning, ok := cf.Lookup(code)
	v.meaning = meaning
	v.resolved = ok
	return v
}

// Code returns the decoded (reference-biased) integer code.
func (c CodeLookup) Code() int64 {
	return c.element.ReferenceValue + rawToInt(c.raw)
}

// Resolved reports whether a Table F row matched this code (E4: a
// CodeLookup can be "not missing" yet unresolved).
func (c CodeLookup) Resolved() bool { return c.resolved }

// Data implements Value. ok is false when no Table F row matched,
// distinct from Missing (raw bits were not all-ones).
func (c CodeLookup) Data() (any, bool) {
	if !c.resolved {
		return nil, false
	}
	return c.meaning, true
}

// FlagLookup is a decoded element whose unit is "Flag table": each
// 1-bit in the raw value selects a meaning keyed by its bit position
// counted from the MSB of the element's bit width.
type FlagLookup struct {
	base
	cf *table.CodeFlag
}

// NewFlagLookup constructs a FlagLookup value.
func NewFlagLookup(el table.Element, raw []byte, cf *table.CodeFlag) FlagLookup {
	return FlagLookup{base: base{element: el, raw: raw}, cf: cf}
}

// Data implements Value: an ordered list of active meanings, one per
// set bit, most-significant bit first. Bits with no matching Table F
// row are reported using a synthetic "bit N" meaning.
func (f FlagLookup) Data() (any, bool) {
	width := int(f.element.BitWidth)
	var meanings []string
	for bitPos := 1; bitPos <= width; bitPos++ {
		if !f.bitSet(bitPos) {
			continue
		}
		key := int64(bitPos)
		meaning := ""
		if f.cf != nil {
			if m, ok := f.cf.Lookup(key); ok {
				meaning = m
			}
		}
		if meaning == "" {
			meaning = bitFallbackMeaning(bitPos)
		}
		meanings = append(meanings, meaning)
	}
	return meanings, true
}

func bitFallbackMeaning(bitPos int) string {
	return "bit " + strconv.Itoa(bitPos)
}

// bitSet reports whether the bit at 1-based position pos (from the MSB
// of the element's declared bit width) is set in the raw value.
func (f FlagLookup) bitSet(pos int) bool {
	width := int(f.element.BitWidth)
	bitIndexFromLSB := width - pos
	byteIndex := len(f.raw) - 1 - bitIndexFromLSB/8
	if byteIndex < 0 || byteIndex >= len(f.raw) {
		return false
	}
	bitInByte := uint(bitIndexFromLSB % 8)
	return f.raw[byteIndex]&(1<<bitInByte) != 0
}

// Missing is a decoded element whose raw bits were the all-ones
// sentinel for its bit width. Its Data is always (nil, false).
type Missing struct {
	base
}

// NewMissing constructs a Missing value.
func NewMissing(el table.Element) Missing {
	return Missing{base{element: el}}
}

// Data implements Value.
func (m Missing) Data() (any, bool) { return nil, false }

var (
	_ Value = Numeric{}
	_ Value = String{}
	_ Value = CodeLookup{}
	_ Value = FlagLookup{}
	_ Value = Missing{}
)
