// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package blog is the ambient logging sink for per-message decode
// diagnostics: unknown descriptors, skipped operators, table merge
// notices. It carries a fluent field decorator so a diagnostic can be
// tagged with a message's sequence number without threading a context
// object through the decode call tree.
package blog

import (
	"fmt"
	"log"
	"os"
	"sort"
	"sync/atomic"
)

// Provider is the minimal set of levels this domain's diagnostics use:
// unrecoverable table/envelope failures, recoverable per-element
// skips, and low-volume tracing.
type Provider interface {
	Critical(format string, v ...interface{})
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Blog is the package-level logger: a swappable Provider behind an
// atomic enable flag.
type Blog struct {
	provider Provider
	// has reports whether log output is enabled, 1: enable, 0: disable.
	has uint32
}

// New creates a new Blog with the given message prefix, backed by the
// default stdlib-logger Provider.
func New(prefix string) Blog {
	return Blog{
		provider: defaultProvider{log.New(os.Stderr, prefix, log.LstdFlags)},
	}
}

// LogMode enables or disables log output.
func (sf *Blog) LogMode(enable bool) {
	if enable {
		atomic.StoreUint32(&sf.has, 1)
	} else {
		atomic.StoreUint32(&sf.has, 0)
	}
}

// SetProvider swaps the backing Provider.
func (sf *Blog) SetProvider(p Provider) {
	if p != nil {
		sf.provider = p
	}
}

// Critical logs a CRITICAL level message.
func (sf Blog) Critical(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Critical(format, v...)
	}
}

// Error logs an ERROR level message.
func (sf Blog) Error(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Error(format, v...)
	}
}

// Warn logs a WARN level message.
func (sf Blog) Warn(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Warn(format, v...)
	}
}

// Debug logs a DEBUG level message.
func (sf Blog) Debug(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Debug(format, v...)
	}
}

// WithField returns a decorator that prefixes every message logged
// through it with "key=value ".
func (sf Blog) WithField(key string, value interface{}) Fielded {
	return Fielded{blog: sf, fields: map[string]interface{}{key: value}}
}

// WithFields returns a decorator prefixing every message with each
// key=value pair, sorted by key for deterministic output.
func (sf Blog) WithFields(fields map[string]interface{}) Fielded {
	merged := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		merged[k] = v
	}
	return Fielded{blog: sf, fields: merged}
}

// Fielded is a Blog bound to a fixed set of fields, applied as a
// "key=value " prefix to every message it logs.
type Fielded struct {
	blog   Blog
	fields map[string]interface{}
}

// WithField returns a copy of f with one additional field set.
func (f Fielded) WithField(key string, value interface{}) Fielded {
	merged := make(map[string]interface{}, len(f.fields)+1)
	for k, v := range f.fields {
		merged[k] = v
	}
	merged[key] = value
	return Fielded{blog: f.blog, fields: merged}
}

func (f Fielded) prefix() string {
	keys := make([]string, 0, len(f.fields))
	for k := range f.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		out += k + "=" + toString(f.fields[k]) + " "
	}
	return out
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	case fmtStringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

type fmtStringer interface{ String() string }

// Critical logs a CRITICAL level message with this Fielded's fields
// prefixed.
func (f Fielded) Critical(format string, v ...interface{}) {
	f.blog.Critical(f.prefix()+format, v...)
}

// Error logs an ERROR level message with this Fielded's fields
// prefixed.
func (f Fielded) Error(format string, v ...interface{}) {
	f.blog.Error(f.prefix()+format, v...)
}

// Warn logs a WARN level message with this Fielded's fields prefixed.
func (f Fielded) Warn(format string, v ...interface{}) {
	f.blog.Warn(f.prefix()+format, v...)
}

// Debug logs a DEBUG level message with this Fielded's fields
// prefixed.
func (f Fielded) Debug(format string, v ...interface{}) {
	f.blog.Debug(f.prefix()+format, v...)
}

// defaultProvider is the stdlib-log-backed Provider used when no
// custom Provider has been set.
type defaultProvider struct {
	*log.Logger
}

var _ Provider = (*defaultProvider)(nil)

func (sf defaultProvider) Critical(format string, v ...interface{}) {
	sf.Printf("[C]: "+format, v...)
}

func (sf defaultProvider) Error(format string, v ...interface{}) {
	sf.Printf("[E]: "+format, v...)
}

func (sf defaultProvider) Warn(format string, v ...interface{}) {
	sf.Printf("[W]: "+format, v...)
}

func (sf defaultProvider) Debug(format string, v ...interface{}) {
	sf.Printf("[D]: "+format, v...)
}
