// Package convert maps model frames to and from the relay JSON wire format.
package convert

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/and161185/relay-loadgen/internal/errs"
	"github.com/and161185/relay-loadgen/internal/model"
)

// --- helpers ---

// marshal encodes v compactly without HTML escaping so content goes out as signed.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errs.ErrInvalidMessage}, args...)...)
}

func splitFrame(data []byte) ([]json.RawMessage, string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, "", invalid("not a json array: %v", err)
	}
	if len(raw) < 1 {
		return nil, "", invalid("empty frame")
	}
	var label string
	if err := json.Unmarshal(raw[0], &label); err != nil {
		return nil, "", invalid("label: %v", err)
	}
	return raw, label, nil
}

func need(raw []json.RawMessage, n int, label string) error {
	if len(raw) < n {
		return invalid("%s needs %d elements, got %d", label, n, len(raw))
	}
	return nil
}

func normalizeEvent(ev model.Event) model.Event {
	if ev.Tags == nil {
		ev.Tags = model.Tags{}
	}
	return ev
}

// --- client -> relay ---

// EncodeMessage renders ["EVENT",ev], ["REQ",id,filter] or ["CLOSE",id].
func EncodeMessage(m model.Message) ([]byte, error) {
	switch m.Type {
	case model.TypeEvent:
		if m.Event == nil {
			return nil, invalid("EVENT without event")
		}
		return marshal([]any{model.TypeEvent, normalizeEvent(*m.Event)})
	case model.TypeReq:
		if m.SubscriptionID == "" || m.Filter == nil {
			return nil, invalid("REQ needs subscription id and filter")
		}
		f := *m.Filter
		if f.Authors == nil {
			f.Authors = []string{}
		}
		return marshal([]any{model.TypeReq, m.SubscriptionID, f})
	case model.TypeClose:
		if m.SubscriptionID == "" {
			return nil, invalid("CLOSE needs subscription id")
		}
		return marshal([]any{model.TypeClose, m.SubscriptionID})
	default:
		return nil, invalid("unknown type %q", m.Type)
	}
}

// DecodeClientMessage parses a client frame. Only the first REQ filter is kept.
func DecodeClientMessage(data []byte) (model.Message, error) {
	raw, label, err := splitFrame(data)
	if err != nil {
		return model.Message{}, err
	}

	switch model.MessageType(label) {
	case model.TypeEvent:
		if err := need(raw, 2, label); err != nil {
			return model.Message{}, err
		}
		var ev model.Event
		if err := json.Unmarshal(raw[1], &ev); err != nil {
			return model.Message{}, invalid("event: %v", err)
		}
		return model.PublishMessage(ev), nil
	case model.TypeReq:
		if err := need(raw, 2, label); err != nil {
			return model.Message{}, err
		}
		var id string
		if err := json.Unmarshal(raw[1], &id); err != nil {
			return model.Message{}, invalid("subscription id: %v", err)
		}
		var f model.Filter
		if len(raw) > 2 {
			if err := json.Unmarshal(raw[2], &f); err != nil {
				return model.Message{}, invalid("filter: %v", err)
			}
		}
		return model.SubscribeMessage(id, f), nil
	case model.TypeClose:
		if err := need(raw, 2, label); err != nil {
			return model.Message{}, err
		}
		var id string
		if err := json.Unmarshal(raw[1], &id); err != nil {
			return model.Message{}, invalid("subscription id: %v", err)
		}
		return model.CloseMessage(id), nil
	default:
		return model.Message{}, invalid("unknown client label %q", label)
	}
}

// --- relay -> client ---

// EncodeRelayMessage renders a relay frame.
func EncodeRelayMessage(m model.RelayMessage) ([]byte, error) {
	switch m.Type {
	case model.RelayOK:
		return marshal([]any{m.Type, m.EventID, m.Accepted, m.Message})
	case model.RelayEOSE:
		return marshal([]any{m.Type, m.SubscriptionID})
	case model.RelayNotice:
		return marshal([]any{m.Type, m.Message})
	case model.RelayClosed:
		return marshal([]any{m.Type, m.SubscriptionID, m.Message})
	case model.RelayEvent:
		if m.Event == nil {
			return nil, invalid("EVENT without event")
		}
		return marshal([]any{m.Type, m.SubscriptionID, normalizeEvent(*m.Event)})
	default:
		return nil, invalid("unknown relay type %q", m.Type)
	}
}

// DecodeRelayMessage parses OK, EOSE, NOTICE, EVENT and CLOSED frames.
func DecodeRelayMessage(data []byte) (model.RelayMessage, error) {
	raw, label, err := splitFrame(data)
	if err != nil {
		return model.RelayMessage{}, err
	}
	out := model.RelayMessage{Type: model.RelayMessageType(label)}

	switch out.Type {
	case model.RelayOK:
		if err := need(raw, 3, label); err != nil {
			return out, err
		}
		if err := json.Unmarshal(raw[1], &out.EventID); err != nil {
			return out, invalid("event id: %v", err)
		}
		if err := json.Unmarshal(raw[2], &out.Accepted); err != nil {
			return out, invalid("accepted flag: %v", err)
		}
		if len(raw) > 3 {
			if err := json.Unmarshal(raw[3], &out.Message); err != nil {
				return out, invalid("reason: %v", err)
			}
		}
	case model.RelayEOSE:
		if err := need(raw, 2, label); err != nil {
			return out, err
		}
		if err := json.Unmarshal(raw[1], &out.SubscriptionID); err != nil {
			return out, invalid("subscription id: %v", err)
		}
	case model.RelayNotice:
		if err := need(raw, 2, label); err != nil {
			return out, err
		}
		if err := json.Unmarshal(raw[1], &out.Message); err != nil {
			return out, invalid("notice: %v", err)
		}
	case model.RelayClosed:
		if err := need(raw, 2, label); err != nil {
			return out, err
		}
		if err := json.Unmarshal(raw[1], &out.SubscriptionID); err != nil {
			return out, invalid("subscription id: %v", err)
		}
		if len(raw) > 2 {
			if err := json.Unmarshal(raw[2], &out.Message); err != nil {
				return out, invalid("reason: %v", err)
			}
		}
	case model.RelayEvent:
		if err := need(raw, 3, label); err != nil {
			return out, err
		}
		if err := json.Unmarshal(raw[1], &out.SubscriptionID); err != nil {
			return out, invalid("subscription id: %v", err)
		}
		out.Event = &model.Event{}
		if err := json.Unmarshal(raw[2], out.Event); err != nil {
			return out, invalid("event: %v", err)
		}
	default:
		return out, invalid("unknown relay label %q", label)
	}
	return out, nil
}
