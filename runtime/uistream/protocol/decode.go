package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Unmarshal decodes one wire payload (without the "data: " frame prefix)
// into an Event. The [DONE] sentinel decodes to Done. Payloads whose type is
// not part of the protocol decode to Unknown rather than failing.
func Unmarshal(data []byte) (Event, error) {
	data = bytes.TrimSpace(data)
	if string(data) == DoneSentinel {
		return Done{}, nil
	}
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("protocol: decode event: %w", err)
	}
	if head.Type == "" {
		return nil, errors.New("protocol: event is missing type")
	}
	switch head.Type {
	case TypeStart:
		return decodeAs[Start](data)
	case TypeTextStart:
		return decodeAs[TextStart](data)
	case TypeTextDelta:
		return decodeAs[TextDelta](data)
	case TypeTextEnd:
		return decodeAs[TextEnd](data)
	case TypeReasoningStart:
		return decodeAs[ReasoningStart](data)
	case TypeReasoningDelta:
		return decodeAs[ReasoningDelta](data)
	case TypeReasoningEnd:
		return decodeAs[ReasoningEnd](data)
	case TypeToolInputStart:
		return decodeAs[ToolInputStart](data)
	case TypeToolInputDelta:
		return decodeAs[ToolInputDelta](data)
	case TypeToolInputAvailable:
		return decodeAs[ToolInputAvailable](data)
	case TypeToolInputError:
		return decodeAs[ToolInputError](data)
	case TypeToolOutputAvailable:
		return decodeAs[ToolOutputAvailable](data)
	case TypeToolOutputError:
		return decodeAs[ToolOutputError](data)
	case TypeFinish:
		return Finish{}, nil
	case TypeError:
		return decodeAs[Error](data)
	}
	if name, ok := strings.CutPrefix(string(head.Type), DataTypePrefix); ok && name != "" {
		var body struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("protocol: decode %s: %w", head.Type, err)
		}
		return CustomData{Name: name, Data: body.Data}, nil
	}
	return Unknown{EventType: head.Type, Raw: append(json.RawMessage(nil), data...)}, nil
}

func decodeAs[T Event](data []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("protocol: decode %s: %w", ev.Type(), err)
	}
	return ev, nil
}
