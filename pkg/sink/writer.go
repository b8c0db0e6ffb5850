package sink

import (
	"bufio"
	"io"

	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/segmentio/encoding/json"
)

// TextSink writes one output record line per event.
type TextSink struct {
	w   *bufio.Writer
	err error
}

func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: bufio.NewWriter(w)}
}

func (s *TextSink) OnEvent(ev engine.Event) {
	if s.err != nil {
		return
	}
	if _, err := s.w.WriteString(ev.String()); err != nil {
		s.err = err
		return
	}
	s.err = s.w.WriteByte('\n')
}

func (s *TextSink) Flush() error {
	if s.err != nil {
		return s.err
	}
	s.err = s.w.Flush()
	return s.err
}

// Err returns the first write error; later events are dropped.
func (s *TextSink) Err() error { return s.err }

// JSONSink writes events as newline delimited JSON records.
type JSONSink struct {
	w   *bufio.Writer
	enc *json.Encoder
	seq uint64
	err error
}

func NewJSONSink(w io.Writer) *JSONSink {
	bw := bufio.NewWriter(w)
	return &JSONSink{w: bw, enc: json.NewEncoder(bw)}
}

func (s *JSONSink) OnEvent(ev engine.Event) {
	if s.err != nil {
		return
	}
	s.seq++
	s.err = s.enc.Encode(NewRecord(s.seq, ev))
}

func (s *JSONSink) Flush() error {
	if s.err != nil {
		return s.err
	}
	s.err = s.w.Flush()
	return s.err
}

func (s *JSONSink) Err() error { return s.err }
