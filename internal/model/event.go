package model

import (
	"encoding/json"
	"time"
)

// EventType names a bot event published on the event bus.
type EventType string

const (
	EventSignal   EventType = "signal"
	EventFill     EventType = "fill"
	EventSnapshot EventType = "snapshot"
	EventSummary  EventType = "summary"
)

// TraceFinal is the trace id of the end-of-session summary event.
const TraceFinal = "final"

// Event is an envelope for anything the bot reports to side channels
// (metrics, Redis, WebSocket clients, notifiers). Data holds the typed
// payload, e.g. strategy.Signal or execution.Fill.
type Event struct {
	Type    EventType `json:"type"`
	Symbol  string    `json:"symbol,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
	TS      time.Time `json:"ts"`
	Data    any       `json:"data"`
}

// JSON returns the JSON-encoded event (ignoring errors for hot-path usage).
func (e *Event) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}
