package command

import (
	"bufio"
	"io"
	"strings"
)

// Reader yields one Command per non-blank input line.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	cmd     Command
	err     error
}

func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &Reader{scanner: s}
}

// Next advances to the next record. It returns false at end of input or on a
// read error; a record that fails to parse still returns true with Err set.
func (r *Reader) Next() bool {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" {
			continue
		}
		r.cmd, r.err = Parse(text)
		return true
	}
	r.cmd, r.err = Command{}, r.scanner.Err()
	return false
}

func (r *Reader) Command() Command { return r.cmd }

// Err is the parse error of the current record, or the read error once Next
// has returned false.
func (r *Reader) Err() error { return r.err }

// Line is the 1-based input line of the current record.
func (r *Reader) Line() int { return r.line }
