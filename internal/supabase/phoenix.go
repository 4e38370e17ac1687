package supabase

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/idilsaglam/livetodo/internal/model"
)

// Phoenix channel events used by Realtime.
const (
	phxJoin      = "phx_join"
	phxLeave     = "phx_leave"
	phxReply     = "phx_reply"
	phxError     = "phx_error"
	phxClose     = "phx_close"
	phxHeartbeat = "heartbeat"
	phxTopic     = "phoenix"

	eventPostgresChanges = "postgres_changes"
	eventSystem          = "system"
)

// message is one Phoenix frame in the JSON (vsn 1.0.0) serializer.
type message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

type changeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

type joinConfig struct {
	Broadcast struct {
		Self bool `json:"self"`
	} `json:"broadcast"`
	Presence struct {
		Key string `json:"key"`
	} `json:"presence"`
	PostgresChanges []changeFilter `json:"postgres_changes"`
}

type joinPayload struct {
	Config      joinConfig `json:"config"`
	AccessToken string     `json:"access_token,omitempty"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// reason extracts response.reason from an error reply, if present.
func (r replyPayload) reason() string {
	var v struct {
		Reason string `json:"reason"`
	}
	if json.Unmarshal(r.Response, &v) == nil && v.Reason != "" {
		return v.Reason
	}
	return string(r.Response)
}

type changePayload struct {
	Data struct {
		Type      string          `json:"type"`
		Schema    string          `json:"schema"`
		Table     string          `json:"table"`
		Record    json.RawMessage `json:"record"`
		OldRecord json.RawMessage `json:"old_record"`
	} `json:"data"`
}

// decodeChange converts a postgres_changes payload into an Event.
func decodeChange(raw json.RawMessage) (model.Event, error) {
	var p changePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Event{}, fmt.Errorf("decode change: %w", err)
	}
	newRec, err := decodeRecord(p.Data.Record)
	if err != nil {
		return model.Event{}, fmt.Errorf("decode record: %w", err)
	}
	oldRec, err := decodeRecord(p.Data.OldRecord)
	if err != nil {
		return model.Event{}, fmt.Errorf("decode old_record: %w", err)
	}
	return model.Event{Type: model.EventType(p.Data.Type), New: newRec, Old: oldRec}, nil
}

// decodeRecord returns nil for an absent, null or empty record.
func decodeRecord(raw json.RawMessage) (*model.Todo, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil, nil
	}
	var t model.Todo
	if err := json.Unmarshal(trimmed, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// systemPayload is a Realtime status frame; status "error" means the
// subscription will never deliver changes (e.g. table not in the publication).
type systemPayload struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Extension string `json:"extension"`
}
