package event

import (
	"encoding/json"
	"fmt"
)

// Kind is the closed set of frame kinds crossing the transport. Adding a
// kind means touching every exhaustive switch over it.
type Kind string

const (
	// outbound (server -> client)
	KindPresenceUpdate Kind = "presence:update"
	KindChatMessage    Kind = "chat:message"
	KindSorterUpdate   Kind = "sorter:update"
	KindSorterAnnounce Kind = "sorter:announce"

	// inbound (client -> server)
	KindHeartbeat Kind = "presence:heartbeat"
	KindTeamSend  Kind = "chat:team:send"
	KindDMSend    Kind = "chat:dm:send"
	KindJoin      Kind = "chat:join"
)

// Frame is one event on the wire: {"kind": ..., "payload": ...}.
type Frame struct {
	Kind    Kind `json:"kind"`
	Payload any  `json:"payload,omitempty"`
}

func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// Inbound is a decoded client frame; the payload stays generic until the
// dispatch switch narrows it into one of the typed payload structs.
// Client payloads are always JSON objects.
type Inbound struct {
	Kind    Kind           `json:"kind"`
	Payload map[string]any `json:"payload"`
}

func DecodeInbound(raw []byte) (*Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if in.Kind == "" {
		return nil, fmt.Errorf("frame missing kind")
	}
	return &in, nil
}

// Outbound is a decoded server frame. Server payloads are not uniformly
// objects (presence and queue snapshots are arrays), so the payload stays
// raw until the receiver narrows it by kind.
type Outbound struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func DecodeOutbound(raw []byte) (*Outbound, error) {
	var out Outbound
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if out.Kind == "" {
		return nil, fmt.Errorf("frame missing kind")
	}
	return &out, nil
}

// DecodePayload narrows the raw payload into the typed form for the
// frame's kind.
func (o *Outbound) DecodePayload(v any) error {
	if len(o.Payload) == 0 {
		return fmt.Errorf("frame %s has no payload", o.Kind)
	}
	return json.Unmarshal(o.Payload, v)
}

// Typed inbound payloads. Field lookup uses the json tag (see
// tools/decode).

type HeartbeatPayload struct{}

type TeamSendPayload struct {
	Text string `json:"text"`
}

type DMSendPayload struct {
	ToUserID string `json:"toUserId"`
	Text     string `json:"text"`
}

type JoinPayload struct {
	RoomID string `json:"roomId"`
}

// AnnouncePayload rides on sorter:announce after a distribution pass so
// idle recipients can claim immediately.
type AnnouncePayload struct {
	PerUser int   `json:"perUser"`
	Total   int   `json:"total"`
	TS      int64 `json:"ts"`
}

// Outbound constructors.

func PresenceUpdate(online []string) Frame {
	if online == nil {
		online = []string{}
	}
	return Frame{Kind: KindPresenceUpdate, Payload: online}
}

func ChatMessage(msg any) Frame {
	return Frame{Kind: KindChatMessage, Payload: msg}
}

func SorterUpdate(pending []string) Frame {
	if pending == nil {
		pending = []string{}
	}
	return Frame{Kind: KindSorterUpdate, Payload: pending}
}

func SorterAnnounce(perUser, total int, ts int64) Frame {
	return Frame{Kind: KindSorterAnnounce, Payload: AnnouncePayload{PerUser: perUser, Total: total, TS: ts}}
}
