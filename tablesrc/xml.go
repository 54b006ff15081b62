// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package tablesrc reads and writes the on-disk forms of BUFR table
// data: the canonical XML schema (spec §6.2) and NCEP's flat-file text
// tables (spec §6.3). ReadXML returns a *table.Collection and ReadNCEP
// a single *table.Table, ready for use by the descriptor and decode
// packages.
package tablesrc

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	kpgzip "github.com/klauspost/compress/gzip"

	"github.com/metdecode/bufr/table"
)

// xmlCollection mirrors the canonical <TableCollection> schema.
type xmlCollection struct {
	XMLName xml.Name   `xml:"TableCollection"`
	Tables  []xmlTable `xml:"Table"`
}

type xmlTable struct {
	TableType         string             `xml:"table-type,attr"`
	MasterTable       *uint8             `xml:"master-table,attr"`
	OriginatingCenter *uint16            `xml:"originating-center,attr"`
	TableVersion      *uint8             `xml:"table-version,attr"`
	Elements          []xmlElementDef    `xml:"ElementDefinition"`
	Sequences         []xmlSequenceDef   `xml:"SequenceDefinition"`
	CodeFlags         []xmlCodeFlagDef   `xml:"CodeFlagDefinition"`
}

type xmlElementDef struct {
	F              uint8  `xml:"f,attr"`
	X              uint8  `xml:"x,attr"`
	Y              uint8  `xml:"y,attr"`
	Scale          int32  `xml:"scale,attr"`
	ReferenceValue int64  `xml:"reference-value,attr"`
	BitWidth       uint32 `xml:"bit-width,attr"`
	Unit           string `xml:"unit,attr"`
	Mnemonic       string `xml:"mnemonic,attr"`
	DescCode       string `xml:"desc-code,attr"`
	Name           string `xml:"name,attr"`
}

type xmlSequenceDef struct {
	F        uint8               `xml:"f,attr"`
	X        uint8               `xml:"x,attr"`
	Y        uint8               `xml:"y,attr"`
	Mnemonic string              `xml:"mnemonic,attr"`
	DescCode string              `xml:"dcod,attr"`
	Name     string              `xml:"name,attr"`
	Elements []xmlSequenceElement `xml:"SequenceElement"`
}

type xmlSequenceElement struct {
	Index uint32 `xml:"index,attr"`
	F     uint8  `xml:"f,attr"`
	X     uint8  `xml:"x,attr"`
	Y     uint8  `xml:"y,attr"`
	Name  string `xml:"name,attr"`
}

type xmlCodeFlagDef struct {
	F              uint8         `xml:"f,attr"`
	X              uint8         `xml:"x,attr"`
	Y              uint8         `xml:"y,attr"`
	Mnemonic       string        `xml:"mnemonic,attr"`
	IsFlag         bool          `xml:"is-flag,attr"`
	ConditionF     *uint8        `xml:"condition-f,attr"`
	ConditionX     *uint8        `xml:"condition-x,attr"`
	ConditionY     *uint8        `xml:"condition-y,attr"`
	ConditionValue *int64        `xml:"condition-value,attr"`
	Codes          []xmlCodeEntry `xml:"CodeEntry"`
}

type xmlCodeEntry struct {
	Code    int64  `xml:"code,attr"`
	Meaning string `xml:"meaning,attr"`
}

// ReadXML parses the canonical XML table schema from path into a
// Collection, transparently gunzipping the content if it is
// gzip-compressed (detected by magic number, not file extension).
func ReadXML(path string) (*table.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tablesrc: open %s: %w", path, err)
	}
	defer f.Close()

	r, err := maybeGunzip(f)
	if err != nil {
		return nil, fmt.Errorf("tablesrc: %s: %w", path, err)
	}

	var doc xmlCollection
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("tablesrc: decode %s: %w", path, err)
	}
	return decodeCollection(doc), nil
}

// maybeGunzip peeks at the first two bytes of r to detect the gzip
// magic number (0x1f 0x8b) and wraps r in a gzip.Reader if present.
func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return gz, nil
	}
	return br, nil
}

func decodeCollection(doc xmlCollection) *table.Collection {
	coll := table.NewCollection()
	for _, xt := range doc.Tables {
		id := table.Identity{Kind: table.TableKind(xt.TableType)}
		if xt.MasterTable != nil {
			id.Master = *xt.MasterTable
		}
		if xt.OriginatingCenter != nil {
			id.Center = *xt.OriginatingCenter
		}
		if xt.TableVersion != nil {
			id.Version = *xt.TableVersion
		}
		t := table.New(id)
		for _, e := range xt.Elements {
			t.Append(table.Entry{Kind: table.EntryElement, Element: table.Element{
				FXY:            table.FXY{F: e.F, X: e.X, Y: e.Y},
				Scale:          e.Scale,
				ReferenceValue: e.ReferenceValue,
				BitWidth:       e.BitWidth,
				Unit:           e.Unit,
				Mnemonic:       e.Mnemonic,
				DescCode:       e.DescCode,
				Name:           e.Name,
			}})
		}
		for _, s := range xt.Sequences {
			seq := table.Sequence{
				FXY:      table.FXY{F: s.F, X: s.X, Y: s.Y},
				Mnemonic: s.Mnemonic,
				DescCode: s.DescCode,
				Name:     s.Name,
			}
			for _, el := range s.Elements {
				seq.Append(table.SequenceElement{
					Index: el.Index,
					FXY:   table.FXY{F: el.F, X: el.X, Y: el.Y},
					Name:  el.Name,
				})
			}
			t.Append(table.Entry{Kind: table.EntrySequence, Sequence: seq})
		}
		for _, cf := range xt.CodeFlags {
			entry := table.CodeFlag{
				FXY:      table.FXY{F: cf.F, X: cf.X, Y: cf.Y},
				Mnemonic: cf.Mnemonic,
				IsFlag:   cf.IsFlag,
			}
			if cf.ConditionF != nil {
				entry.HasCondition = true
				entry.CondF = *cf.ConditionF
			}
			if cf.ConditionX != nil {
				entry.CondX = *cf.ConditionX
			}
			if cf.ConditionY != nil {
				entry.CondY = *cf.ConditionY
			}
			if cf.ConditionValue != nil {
				entry.CondValue = *cf.ConditionValue
			}
			for _, c := range cf.Codes {
				entry.Append(table.CodeEntry{Code: c.Code, Meaning: c.Meaning})
			}
			t.Append(table.Entry{Kind: table.EntryCodeFlag, CodeFlag: entry})
		}
		coll.Put(t)
	}
	return coll
}

// WriteXML serializes coll into the canonical XML schema at path. If
// path ends in ".gz" the output is gzip-compressed using klauspost's
// faster gzip implementation.
func WriteXML(coll *table.Collection, path string) error {
	doc := encodeCollection(coll)
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("tablesrc: marshal: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(out)

	if strings.HasSuffix(path, ".gz") {
		return writeGzip(path, buf.Bytes())
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func writeGzip(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tablesrc: create %s: %w", path, err)
	}
	defer f.Close()

	gw := kpgzip.NewWriter(f)
	defer gw.Close()
	if _, err := gw.Write(data); err != nil {
		return fmt.Errorf("tablesrc: gzip write %s: %w", path, err)
	}
	return nil
}

func encodeCollection(coll *table.Collection) xmlCollection {
	var doc xmlCollection
	for _, t := range coll.All() {
		xt := xmlTable{TableType: string(t.Identity.Kind)}
		master, center, version := t.Identity.Master, t.Identity.Center, t.Identity.Version
		xt.MasterTable = &master
		xt.OriginatingCenter = &center
		xt.TableVersion = &version

		for _, e := range t.Entries() {
			switch e.Kind {
			case table.EntryElement:
				el := e.Element
				xt.Elements = append(xt.Elements, xmlElementDef{
					F: el.FXY.F, X: el.FXY.X, Y: el.FXY.Y,
					Scale: el.Scale, ReferenceValue: el.ReferenceValue,
					BitWidth: el.BitWidth, Unit: el.Unit,
					Mnemonic: el.Mnemonic, DescCode: el.DescCode, Name: el.Name,
				})
			case table.EntrySequence:
				seq := e.Sequence
				xs := xmlSequenceDef{
					F: seq.FXY.F, X: seq.FXY.X, Y: seq.FXY.Y,
					Mnemonic: seq.Mnemonic, DescCode: seq.DescCode, Name: seq.Name,
				}
				for _, el := range seq.Elements {
					xs.Elements = append(xs.Elements, xmlSequenceElement{
						Index: el.Index, F: el.FXY.F, X: el.FXY.X, Y: el.FXY.Y, Name: el.Name,
					})
				}
				xt.Sequences = append(xt.Sequences, xs)
			case table.EntryCodeFlag:
				cf := e.CodeFlag
				xcf := xmlCodeFlagDef{
					F: cf.FXY.F, X: cf.FXY.X, Y: cf.FXY.Y,
					Mnemonic: cf.Mnemonic, IsFlag: cf.IsFlag,
				}
				if cf.HasCondition {
					condF, condX, condY, condValue := cf.CondF, cf.CondX, cf.CondY, cf.CondValue
					xcf.ConditionF = &condF
					xcf.ConditionX = &condX
					xcf.ConditionY = &condY
					xcf.ConditionValue = &condValue
				}
				for _, c := range cf.Codes {
					xcf.Codes = append(xcf.Codes, xmlCodeEntry{Code: c.Code, Meaning: c.Meaning})
				}
				xt.CodeFlags = append(xt.CodeFlags, xcf)
			}
		}
		doc.Tables = append(doc.Tables, xt)
	}
	return doc
}
