// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package tablesrc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/metdecode/bufr/bufrerr"
	"github.com/metdecode/bufr/table"
)

// ReadNCEP ingests an NCEP flat-file text table (the pipe-delimited
// "bufrtab" format) from path and produces a single *table.Table of the
// kind named in its header line.
//
// Header: "Table X | master | [center] | version" — center is optional,
// so a three-field header omits it (center 0). `#` lines and blank
// lines are skipped; "END" ends the table early.
//
// Row grammars, by table kind:
//
//	B: f|x|y|scale|reference_value|bit_width|unit|mnemonic|name
//	D: f|x|y|mnemonic|name            (sequence header)
//	   >f|x|y|name                    (one child per continuation line,
//	                                    index assigned in file order)
//	F: f|x|y|mnemonic|is_flag|code|meaning[|cond_f-cond_x-cond_y=cond_value]
func ReadNCEP(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tablesrc: open %s: %w", path, err)
	}
	defer f.Close()
	return parseNCEP(f, path)
}

func parseNCEP(r io.Reader, source string) (*table.Table, error) {
	scanner := bufio.NewScanner(r)
	var t *table.Table
	var currentSeq *table.Sequence
	seqIndex := uint32(0)

	flushSeq := func() {
		if t != nil && currentSeq != nil {
			t.Append(table.Entry{Kind: table.EntrySequence, Sequence: *currentSeq})
		}
		currentSeq = nil
		seqIndex = 0
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if trimmed == "END" {
			break
		}
		if t == nil {
			var err error
			t, err = parseNCEPHeader(trimmed)
			if err != nil {
				return nil, bufrerr.New(bufrerr.TableParseError, "tablesrc.ReadNCEP", fmt.Errorf("%s: %w", source, err))
			}
			continue
		}
		if strings.HasPrefix(line, ">") {
			if currentSeq == nil {
				return nil, bufrerr.New(bufrerr.TableParseError, "tablesrc.ReadNCEP",
					fmt.Errorf("%s: continuation line with no sequence header", source))
			}
			child, err := parseNCEPSeqChild(trimmed[1:], seqIndex)
			if err != nil {
				return nil, bufrerr.New(bufrerr.TableParseError, "tablesrc.ReadNCEP", fmt.Errorf("%s: %w", source, err))
			}
			currentSeq.Append(child)
			seqIndex++
			continue
		}
		flushSeq()

		switch t.Identity.Kind {
		case table.KindB, table.KindBX:
			entry, err := parseNCEPElementRow(trimmed)
			if err != nil {
				return nil, bufrerr.New(bufrerr.TableParseError, "tablesrc.ReadNCEP", fmt.Errorf("%s: %w", source, err))
			}
			t.Append(entry)
		case table.KindD, table.KindDX:
			seq, err := parseNCEPSeqHeader(trimmed)
			if err != nil {
				return nil, bufrerr.New(bufrerr.TableParseError, "tablesrc.ReadNCEP", fmt.Errorf("%s: %w", source, err))
			}
			currentSeq = &seq
			seqIndex = 0
		case table.KindF, table.KindFX:
			entry, err := parseNCEPCodeRow(trimmed)
			if err != nil {
				return nil, bufrerr.New(bufrerr.TableParseError, "tablesrc.ReadNCEP", fmt.Errorf("%s: %w", source, err))
			}
			t.Append(entry)
		default:
			return nil, bufrerr.New(bufrerr.TableParseError, "tablesrc.ReadNCEP",
				fmt.Errorf("%s: unsupported table kind %q", source, t.Identity.Kind))
		}
	}
	flushSeq()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tablesrc: read %s: %w", source, err)
	}
	if t == nil {
		return nil, bufrerr.New(bufrerr.TableParseError, "tablesrc.ReadNCEP", fmt.Errorf("%s: missing header line", source))
	}
	return t, nil
}

func parseNCEPHeader(line string) (*table.Table, error) {
	fields := splitPipe(line)
	if len(fields) < 3 {
		return nil, fmt.Errorf("malformed header %q", line)
	}
	head := strings.TrimSpace(fields[0])
	if !strings.HasPrefix(head, "Table ") {
		return nil, fmt.Errorf("malformed header %q", line)
	}
	kind := table.TableKind(strings.TrimSpace(strings.TrimPrefix(head, "Table ")))

	master, err := parseUint8(fields[1])
	if err != nil {
		return nil, fmt.Errorf("master table: %w", err)
	}

	var center uint16
	var version uint8
	switch len(fields) {
	case 3:
		version, err = parseUint8(fields[2])
		if err != nil {
			return nil, fmt.Errorf("table version: %w", err)
		}
	default:
		c, err := parseUint16(fields[2])
		if err != nil {
			return nil, fmt.Errorf("originating center: %w", err)
		}
		center = c
		version, err = parseUint8(fields[3])
		if err != nil {
			return nil, fmt.Errorf("table version: %w", err)
		}
	}

	return table.New(table.Identity{Kind: kind, Master: master, Center: center, Version: version}), nil
}

func parseNCEPElementRow(line string) (table.Entry, error) {
	fields := splitPipe(line)
	if len(fields) < 9 {
		return table.Entry{}, fmt.Errorf("element row wants 9 fields, got %d: %q", len(fields), line)
	}
	f, x, y, err := parseFXYFields(fields[0], fields[1], fields[2])
	if err != nil {
		return table.Entry{}, err
	}
	scale, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 32)
	if err != nil {
		return table.Entry{}, fmt.Errorf("scale: %w", err)
	}
	ref, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64)
	if err != nil {
		return table.Entry{}, fmt.Errorf("reference value: %w", err)
	}
	width, err := strconv.ParseUint(strings.TrimSpace(fields[5]), 10, 32)
	if err != nil {
		return table.Entry{}, fmt.Errorf("bit width: %w", err)
	}
	return table.Entry{Kind: table.EntryElement, Element: table.Element{
		FXY:            table.FXY{F: f, X: x, Y: y},
		Scale:          int32(scale),
		ReferenceValue: ref,
		BitWidth:       uint32(width),
		Unit:           strings.TrimSpace(fields[6]),
		Mnemonic:       strings.TrimSpace(fields[7]),
		Name:           strings.TrimSpace(fields[8]),
	}}, nil
}

func parseNCEPSeqHeader(line string) (table.Sequence, error) {
	fields := splitPipe(line)
	if len(fields) < 5 {
		return table.Sequence{}, fmt.Errorf("sequence header wants 5 fields, got %d: %q", len(fields), line)
	}
	f, x, y, err := parseFXYFields(fields[0], fields[1], fields[2])
	if err != nil {
		return table.Sequence{}, err
	}
	return table.Sequence{
		FXY:      table.FXY{F: f, X: x, Y: y},
		Mnemonic: strings.TrimSpace(fields[3]),
		Name:     strings.TrimSpace(fields[4]),
	}, nil
}

func parseNCEPSeqChild(line string, index uint32) (table.SequenceElement, error) {
	fields := splitPipe(line)
	if len(fields) < 4 {
		return table.SequenceElement{}, fmt.Errorf("sequence child wants 4 fields, got %d: %q", len(fields), line)
	}
	f, x, y, err := parseFXYFields(fields[0], fields[1], fields[2])
	if err != nil {
		return table.SequenceElement{}, err
	}
	return table.SequenceElement{Index: index, FXY: table.FXY{F: f, X: x, Y: y}, Name: strings.TrimSpace(fields[3])}, nil
}

func parseNCEPCodeRow(line string) (table.Entry, error) {
	fields := splitPipe(line)
	if len(fields) < 7 {
		return table.Entry{}, fmt.Errorf("code row wants at least 7 fields, got %d: %q", len(fields), line)
	}
	f, x, y, err := parseFXYFields(fields[0], fields[1], fields[2])
	if err != nil {
		return table.Entry{}, err
	}
	isFlag := strings.EqualFold(strings.TrimSpace(fields[4]), "true")
	code, err := strconv.ParseInt(strings.TrimSpace(fields[5]), 10, 64)
	if err != nil {
		return table.Entry{}, fmt.Errorf("code: %w", err)
	}
	cf := table.CodeFlag{
		FXY:      table.FXY{F: f, X: x, Y: y},
		Mnemonic: strings.TrimSpace(fields[3]),
		IsFlag:   isFlag,
	}
	if len(fields) > 7 && strings.TrimSpace(fields[7]) != "" {
		condF, condX, condY, condValue, err := parseCondition(strings.TrimSpace(fields[7]))
		if err != nil {
			return table.Entry{}, err
		}
		cf.HasCondition = true
		cf.CondF, cf.CondX, cf.CondY, cf.CondValue = condF, condX, condY, condValue
	}
	cf.Append(table.CodeEntry{Code: code, Meaning: strings.TrimSpace(fields[6])})
	return table.Entry{Kind: table.EntryCodeFlag, CodeFlag: cf}, nil
}

// parseCondition parses the "field=value" conditional qualifier, where
// field is written F-X-Y (e.g. "0-02-001=3").
func parseCondition(qualifier string) (f, x, y uint8, value int64, err error) {
	parts := strings.SplitN(qualifier, "=", 2)
	if len(parts) != 2 {
		return 0, 0, 0, 0, fmt.Errorf("malformed condition qualifier %q", qualifier)
	}
	fxy := strings.Split(parts[0], "-")
	if len(fxy) != 3 {
		return 0, 0, 0, 0, fmt.Errorf("malformed condition field %q", parts[0])
	}
	ff, err := parseUint8(fxy[0])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("condition f: %w", err)
	}
	xx, err := parseUint8(fxy[1])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("condition x: %w", err)
	}
	yy, err := parseUint8(fxy[2])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("condition y: %w", err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("condition value: %w", err)
	}
	return ff, xx, yy, v, nil
}

func parseFXYFields(fs, xs, ys string) (f, x, y uint8, err error) {
	f, err = parseUint8(fs)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("f: %w", err)
	}
	x, err = parseUint8(xs)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("x: %w", err)
	}
	y, err = parseUint8(ys)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("y: %w", err)
	}
	return f, x, y, nil
}

func parseUint8(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	return uint8(v), err
}

func parseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	return uint16(v), err
}

func splitPipe(line string) []string {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
