// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package message locates "BUFR"..."7777" envelopes in a byte stream,
// parses section 0/1/3/4/5 boundaries, and exposes identification and
// data-description fields as on-demand reads against the backing
// source. See spec §4.7 and §6.1.
package message

import (
	"encoding/binary"
	"io"

	"github.com/metdecode/bufr/bufrerr"
	"github.com/metdecode/bufr/table"
)

// sectionStart indices, mirroring the five boundary offsets a message
// needs beyond its own start.
const (
	secSection1 = iota
	secSection2
	secSection3
	secSection4
	secSection5
	secTotalLength
	secCount
)

// Envelope holds the byte offsets of one BUFR message's sections and a
// handle to the byte source identification fields are read from
// on-demand. An Envelope is immutable once Frame returns it.
type Envelope struct {
	src    io.ReaderAt
	start  int64
	starts [secCount]int64
	edition uint8
	section2Present bool
	closed bool
}

// Frame scans src starting at offset for the next "BUFR" marker,
// parses sections 0, (optionally) 2, 1, 3, 4, and 5's boundaries, and
// returns the resulting Envelope. It returns bufrerr.NoBUFRMessage if
// no marker is found before EOF, and bufrerr.TruncatedMessage if the
// declared total length runs past the available bytes exposed by a
// following read.
func Frame(src io.ReaderAt, offset int64) (*Envelope, error) {
	start, err := findMarker(src, offset)
	if err != nil {
		return nil, err
	}

	e := &Envelope{src: src, start: start}

	lenBuf := make([]byte, 3)
	if err := e.readAt(start+4, lenBuf); err != nil {
		return nil, bufrerr.New(bufrerr.TruncatedMessage, "message.Frame", err)
	}
	e.starts[secTotalLength] = int64(be24(lenBuf))

	editionBuf := make([]byte, 1)
	if err := e.readAt(start+7, editionBuf); err != nil {
		return nil, bufrerr.New(bufrerr.TruncatedMessage, "message.Frame", err)
	}
	e.edition = editionBuf[0]
	if e.edition != 3 && e.edition != 4 {
		return nil, bufrerr.New(bufrerr.InvalidEdition, "message.Frame", nil)
	}

	e.starts[secSection1] = start + 8

	section2Offset := int64(9)
	if e.edition != 4 {
		section2Offset = 7
	}
	flagBuf := make([]byte, 1)
	if err := e.readAt(e.starts[secSection1]+section2Offset, flagBuf); err != nil {
		return nil, bufrerr.New(bufrerr.TruncatedMessage, "message.Frame", err)
	}
	e.section2Present = flagBuf[0]&0x80 != 0

	if e.section2Present {
		s2len, err := e.readLen3(e.starts[secSection1])
		if err != nil {
			return nil, err
		}
		e.starts[secSection2] = e.starts[secSection1] + s2len
		s3len, err := e.readLen3(e.starts[secSection2])
		if err != nil {
			return nil, err
		}
		e.starts[secSection3] = e.starts[secSection2] + s3len
	} else {
		s3len, err := e.readLen3(e.starts[secSection1])
		if err != nil {
			return nil, err
		}
		e.starts[secSection3] = e.starts[secSection1] + s3len
	}

	s4len, err := e.readLen3(e.starts[secSection3])
	if err != nil {
		return nil, err
	}
	e.starts[secSection4] = e.starts[secSection3] + s4len

	s5len, err := e.readLen3(e.starts[secSection4])
	if err != nil {
		return nil, err
	}
	e.starts[secSection5] = e.starts[secSection4] + s5len

	endMarker := make([]byte, 4)
	if err := e.readAt(e.starts[secSection5], endMarker); err != nil || string(endMarker) != "7777" {
		return nil, bufrerr.New(bufrerr.TruncatedMessage, "message.Frame", nil)
	}

	return e, nil
}

// findMarker scans src for the next "BUFR" 4-byte marker at or after
// offset, reading in fixed-size chunks.
func findMarker(src io.ReaderAt, offset int64) (int64, error) {
	const chunk = 4096
	buf := make([]byte, chunk+3)
	pos := offset
	for {
		n, err := src.ReadAt(buf, pos)
		if n >= 4 {
			if idx := indexOf(buf[:n], []byte("BUFR")); idx >= 0 {
				return pos + int64(idx), nil
			}
		}
		if err != nil {
			return 0, bufrerr.New(bufrerr.NoBUFRMessage, "message.Frame", nil)
		}
		pos += int64(n - 3)
		if n < 4 {
			return 0, bufrerr.New(bufrerr.NoBUFRMessage, "message.Frame", nil)
		}
	}
}

func indexOf(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return i
		}
	}
	return -1
}

func (e *Envelope) readAt(offset int64, buf []byte) error {
	n, err := e.src.ReadAt(buf, offset)
	if n < len(buf) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

func (e *Envelope) readLen3(at int64) (int64, error) {
	buf := make([]byte, 3)
	if err := e.readAt(at, buf); err != nil {
		return 0, bufrerr.New(bufrerr.TruncatedMessage, "message.Frame", err)
	}
	return int64(be24(buf)), nil
}

func be24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// Start returns the absolute byte offset of this message's "BUFR"
// marker.
func (e *Envelope) Start() int64 { return e.start }

// TotalLength returns the message's declared total length in bytes,
// including the 4-byte "BUFR" marker and 4-byte "7777" trailer.
func (e *Envelope) TotalLength() int64 { return e.starts[secTotalLength] }

// End returns the absolute byte offset one past this message's "7777"
// trailer.
func (e *Envelope) End() int64 { return e.start + e.TotalLength() }

// Edition returns the BUFR edition number (3 or 4).
func (e *Envelope) Edition() uint8 { return e.edition }

// Close marks the envelope's source as unavailable for further
// identification reads; subsequent property reads return ClosedSource.
func (e *Envelope) Close() { e.closed = true }

func (e *Envelope) field(offset int64, width int) (int64, error) {
	if e.closed {
		return 0, bufrerr.New(bufrerr.ClosedSource, "message.Envelope", nil)
	}
	buf := make([]byte, width)
	if err := e.readAt(offset, buf); err != nil {
		return 0, bufrerr.New(bufrerr.TruncatedMessage, "message.Envelope", err)
	}
	var v int64
	for _, b := range buf {
		v = v<<8 | int64(b)
	}
	return v, nil
}

// MasterTable returns section 1's BUFR master table number.
func (e *Envelope) MasterTable() (int64, error) {
	return e.field(e.starts[secSection1]+3, 1)
}

// OriginatingCenter returns section 1's originating-center code.
func (e *Envelope) OriginatingCenter() (int64, error) {
	if e.edition == 3 {
		return e.field(e.starts[secSection1]+5, 1)
	}
	return e.field(e.starts[secSection1]+4, 2)
}

// OriginatingSubCenter returns section 1's originating-subcenter code.
func (e *Envelope) OriginatingSubCenter() (int64, error) {
	if e.edition == 3 {
		return e.field(e.starts[secSection1]+4, 1)
	}
	return e.field(e.starts[secSection1]+6, 2)
}

// UpdateSequenceNumber returns section 1's update sequence number.
func (e *Envelope) UpdateSequenceNumber() (int64, error) {
	offset := int64(6)
	if e.edition == 4 {
		offset += 2
	}
	return e.field(e.starts[secSection1]+offset, 1)
}

// DataCategory returns section 1's data category code (Table A key).
func (e *Envelope) DataCategory() (int64, error) {
	offset := int64(8)
	if e.edition == 4 {
		offset += 2
	}
	return e.field(e.starts[secSection1]+offset, 1)
}

// InternationalDataSubCategory returns section 1's international
// sub-category, only present in edition 4.
func (e *Envelope) InternationalDataSubCategory() (int64, bool, error) {
	if e.edition != 4 {
		return 0, false, nil
	}
	v, err := e.field(e.starts[secSection1]+11, 1)
	return v, true, err
}

// LocalSubCategory returns section 1's local sub-category code.
func (e *Envelope) LocalSubCategory() (int64, error) {
	offset := int64(9)
	if e.edition == 4 {
		offset = 12
	}
	return e.field(e.starts[secSection1]+offset, 1)
}

// MasterTableVersion returns section 1's master table version.
func (e *Envelope) MasterTableVersion() (int64, error) {
	offset := int64(10)
	if e.edition == 4 {
		offset += 3
	}
	return e.field(e.starts[secSection1]+offset, 1)
}

// LocalTableVersion returns section 1's local table version.
func (e *Envelope) LocalTableVersion() (int64, error) {
	offset := int64(11)
	if e.edition == 4 {
		offset += 3
	}
	return e.field(e.starts[secSection1]+offset, 1)
}

// Section2Present reports whether the optional section 2 exists.
func (e *Envelope) Section2Present() bool { return e.section2Present }

// NumberOfSubsets returns section 3's declared subset count.
func (e *Envelope) NumberOfSubsets() (int64, error) {
	return e.field(e.starts[secSection3]+4, 2)
}

// Observed reports whether section 3's "observed data" flag bit is set.
func (e *Envelope) Observed() (bool, error) {
	v, err := e.field(e.starts[secSection3]+6, 1)
	return v&0x80 != 0, err
}

// Compressed reports whether section 3's "compressed data" flag bit is
// set (spec Non-goal: decoding compressed subsets is unsupported).
func (e *Envelope) Compressed() (bool, error) {
	v, err := e.field(e.starts[secSection3]+6, 1)
	return v&0x40 != 0, err
}

// DataDescriptors returns section 3's descriptor list, decoded from
// 2-byte (F:2 bits, X:6 bits, Y:8 bits) entries.
func (e *Envelope) DataDescriptors() ([]table.FXY, error) {
	if e.closed {
		return nil, bufrerr.New(bufrerr.ClosedSource, "message.Envelope", nil)
	}
	start := e.starts[secSection3] + 7
	length := e.starts[secSection4] - start
	length -= length % 2
	if length <= 0 {
		return nil, nil
	}
	buf := make([]byte, length)
	if err := e.readAt(start, buf); err != nil {
		return nil, bufrerr.New(bufrerr.TruncatedMessage, "message.Envelope", err)
	}
	out := make([]table.FXY, 0, length/2)
	for i := 0; i+1 < len(buf); i += 2 {
		word := binary.BigEndian.Uint16(buf[i : i+2])
		out = append(out, table.FXY{
			F: uint8((word & (3 << 14)) >> 14),
			X: uint8((word & (63 << 8)) >> 8),
			Y: uint8(word & 255),
		})
	}
	return out, nil
}

// DataSection returns the raw section 4 payload bytes (the bit-packed
// subset data, after its own 4-byte length+reserved header).
func (e *Envelope) DataSection() ([]byte, error) {
	if e.closed {
		return nil, bufrerr.New(bufrerr.ClosedSource, "message.Envelope", nil)
	}
	start := e.starts[secSection4] + 4
	length := e.starts[secSection5] - start
	buf := make([]byte, length)
	if err := e.readAt(start, buf); err != nil {
		return nil, bufrerr.New(bufrerr.TruncatedMessage, "message.Envelope", err)
	}
	return buf, nil
}
