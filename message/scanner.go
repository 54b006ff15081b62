// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package message

import (
	"errors"
	"io"

	"github.com/metdecode/bufr/bufrerr"
)

// Scanner iterates the BUFR messages packed back-to-back (with
// possible garbage between them) in a single byte source, per spec
// scenario E5.
type Scanner struct {
	src  io.ReaderAt
	next int64
	done bool
}

// NewScanner returns a Scanner that starts looking for messages at the
// beginning of src.
func NewScanner(src io.ReaderAt) *Scanner {
	return &Scanner{src: src}
}

// Next returns the next Envelope in the stream. It returns
// bufrerr.NoBUFRMessage (wrapped, use errors.Is against that kind via
// bufrerr) once the stream is exhausted.
func (s *Scanner) Next() (*Envelope, error) {
	if s.done {
		return nil, bufrerr.New(bufrerr.NoBUFRMessage, "message.Scanner.Next", io.EOF)
	}
	env, err := Frame(s.src, s.next)
	if err != nil {
		s.done = true
		var be *bufrerr.Error
		if errors.As(err, &be) && be.Kind == bufrerr.NoBUFRMessage {
			return nil, err
		}
		return nil, err
	}
	s.next = env.End()
	return env, nil
}
