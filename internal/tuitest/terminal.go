package tuitest

import (
	"bytes"
	"io"
)

// termQuery maps a terminal capability query to the reply a real terminal
// would give. bubbletea and termenv block on these during startup, so the
// harness must answer or the program never draws.
type termQuery struct {
	probe []byte
	reply []byte
}

var termQueries = []termQuery{
	// Cursor position report.
	{probe: []byte("\x1b[6n"), reply: []byte("\x1b[1;1R")},
	// Foreground color, BEL and ST terminated.
	{probe: []byte("\x1b]10;?\x07"), reply: []byte("\x1b]10;rgb:cccc/cccc/cccc\x07")},
	{probe: []byte("\x1b]10;?\x1b\\"), reply: []byte("\x1b]10;rgb:cccc/cccc/cccc\x1b\\")},
	// Background color, BEL and ST terminated.
	{probe: []byte("\x1b]11;?\x07"), reply: []byte("\x1b]11;rgb:0000/0000/0000\x07")},
	{probe: []byte("\x1b]11;?\x1b\\"), reply: []byte("\x1b]11;rgb:0000/0000/0000\x1b\\")},
}

type queryAnswerer struct {
	w   io.Writer
	buf []byte
}

func newQueryAnswerer(w io.Writer) *queryAnswerer {
	return &queryAnswerer{w: w, buf: make([]byte, 0, 128)}
}

// Feed appends output bytes and answers any completed queries found in the
// accumulated tail.
func (a *queryAnswerer) Feed(chunk []byte) {
	a.buf = append(a.buf, chunk...)
	for a.answerOne() {
	}
	// Keep only a short tail so queries split across reads still match.
	if len(a.buf) > 256 {
		a.buf = a.buf[len(a.buf)-64:]
	}
}

func (a *queryAnswerer) answerOne() bool {
	for _, q := range termQueries {
		idx := bytes.Index(a.buf, q.probe)
		if idx < 0 {
			continue
		}
		a.buf = a.buf[idx+len(q.probe):]
		_, _ = a.w.Write(q.reply)
		return true
	}
	return false
}
