package gameModel

import (
	"encoding/json"
	"fmt"
)

type Event string

// Full-snapshot events replace the mirror outright.
const (
	EventGameCreated    Event = "game_created"
	EventPlayerJoined   Event = "player_joined"
	EventGameUpdated    Event = "game_updated"
	EventRoundStarted   Event = "round_started"
	EventRoundEnded     Event = "round_ended"
	EventTrickResolved  Event = "trick_resolved"
	EventGameOver       Event = "game_over"
	EventRematchStarted Event = "rematch_started"
)

// EventGameUpdatedDelta carries a Delta for the reconciler.
const EventGameUpdatedDelta Event = "game_updated_delta"

// EventSyncRequest is sent by a client that needs a fresh full snapshot.
const EventSyncRequest Event = "sync_request"

// IsFullSnapshot reports whether e carries a complete GameState.
func (e Event) IsFullSnapshot() bool {
	switch e {
	case EventGameCreated, EventPlayerJoined, EventGameUpdated, EventRoundStarted,
		EventRoundEnded, EventTrickResolved, EventGameOver, EventRematchStarted:
		return true
	}
	return false
}

type Envelope struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type SyncRequest struct {
	GameID string `json:"gameId"`
}

func NewEnvelope(e Event, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", e, err)
	}
	return Envelope{Event: e, Data: data}, nil
}

// DecodeSnapshot returns the GameState carried by a full-snapshot envelope.
func (env Envelope) DecodeSnapshot() (GameState, error) {
	if !env.Event.IsFullSnapshot() {
		return GameState{}, fmt.Errorf("event %q does not carry a snapshot", env.Event)
	}
	var s GameState
	if err := json.Unmarshal(env.Data, &s); err != nil {
		return GameState{}, fmt.Errorf("decode %s snapshot: %w", env.Event, err)
	}
	return s, nil
}

// DecodeDelta returns the Delta carried by a delta envelope.
func (env Envelope) DecodeDelta() (Delta, error) {
	if env.Event != EventGameUpdatedDelta {
		return Delta{}, fmt.Errorf("event %q does not carry a delta", env.Event)
	}
	var d Delta
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return Delta{}, fmt.Errorf("decode delta: %w", err)
	}
	if !d.IsDelta {
		return Delta{}, fmt.Errorf("decode delta for game %s: missing isDelta marker", d.ID)
	}
	return d, nil
}
