package sse

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"goa.design/uistream/runtime/uistream/protocol"
)

// ErrTruncated is returned by ReadAll when the body ends before the [DONE]
// sentinel.
var ErrTruncated = errors.New("sse: stream ended before [DONE]")

// Decoder reads SSE messages from a stream response and yields the protocol
// events they carry. Comments and fields other than data are skipped.
type Decoder struct {
	r    *bufio.Reader
	buf  bytes.Buffer
	ev   protocol.Event
	err  error
	done bool
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next advances to the next event. It returns false at the end of the body,
// after the Done sentinel or on error; Err distinguishes the cases.
func (d *Decoder) Next() bool {
	if d.err != nil || d.done {
		return false
	}
	for {
		data, ok := d.readMessage()
		if !ok {
			return false
		}
		if len(data) == 0 {
			continue
		}
		ev, err := protocol.Unmarshal(data)
		if err != nil {
			d.err = fmt.Errorf("sse: decode event: %w", err)
			return false
		}
		if _, ok := ev.(protocol.Done); ok {
			d.done = true
		}
		d.ev = ev
		return true
	}
}

// Event returns the event decoded by the last successful call to Next.
func (d *Decoder) Event() protocol.Event { return d.ev }

// Done reports whether the sentinel has been read.
func (d *Decoder) Done() bool { return d.done }

// Err returns the first read or decode error. The end of the body is not an
// error.
func (d *Decoder) Err() error {
	if errors.Is(d.err, io.EOF) {
		return nil
	}
	return d.err
}

// readMessage returns the joined data lines of the next message.
func (d *Decoder) readMessage() ([]byte, bool) {
	d.buf.Reset()
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			d.err = err
			if errors.Is(err, io.EOF) && d.buf.Len() > 0 {
				return d.buf.Bytes(), true
			}
			return nil, false
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return d.buf.Bytes(), true
		}
		v, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		v = strings.TrimPrefix(v, " ")
		if d.buf.Len() > 0 {
			d.buf.WriteByte('\n')
		}
		d.buf.WriteString(v)
	}
}

// ReadAll decodes every event in r up to and including Done. It returns
// ErrTruncated with the events read so far when the sentinel is missing.
func ReadAll(r io.Reader) ([]protocol.Event, error) {
	d := NewDecoder(r)
	var evs []protocol.Event
	for d.Next() {
		evs = append(evs, d.Event())
	}
	if err := d.Err(); err != nil {
		return evs, err
	}
	if !d.Done() {
		return evs, ErrTruncated
	}
	return evs, nil
}
