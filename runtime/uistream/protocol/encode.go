package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	framePrefix = []byte("data: ")
	frameSuffix = []byte("\n\n")
)

// Marshal returns the wire payload of e: a compact JSON object whose first
// field is "type", or the literal [DONE] for the Done sentinel. HTML
// characters are not escaped.
func Marshal(e Event) ([]byte, error) {
	switch ev := e.(type) {
	case nil:
		return nil, errors.New("protocol: nil event")
	case Done:
		return []byte(DoneSentinel), nil
	case Unknown:
		if len(ev.Raw) == 0 {
			return nil, fmt.Errorf("protocol: unknown event %q has no payload", ev.EventType)
		}
		return append([]byte(nil), ev.Raw...), nil
	case CustomData:
		if ev.Name == "" {
			return nil, errors.New("protocol: custom data event requires a name")
		}
	}
	body, err := encodeJSON(e)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", e.Type(), err)
	}
	typ, err := encodeJSON(string(e.Type()))
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", e.Type(), err)
	}
	var buf bytes.Buffer
	buf.Grow(len(body) + len(typ) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(typ)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// Frame returns e encoded as one server-sent event frame:
// "data: <payload>\n\n".
func Frame(e Event) ([]byte, error) {
	payload, err := Marshal(e)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(framePrefix)+len(payload)+len(frameSuffix))
	out = append(out, framePrefix...)
	out = append(out, payload...)
	return append(out, frameSuffix...), nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
