package search

import (
	"encoding/json"

	"github.com/hyperifyio/carfinder/internal/listing"
)

// EventType discriminates the events of a search stream.
type EventType string

const (
	EventProgress EventType = "progress"
	EventResult   EventType = "result"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one element of a search stream. Only the fields of its Type are
// meaningful.
type Event struct {
	Type EventType
	// Progress: 1-based position of the source being visited.
	Current int
	Total   int
	// Site names the source for progress and, optionally, error events.
	Site    string
	Vehicle listing.Listing
	Message string
}

// Progress announces that source current of total is being visited.
func Progress(current, total int, site string) Event {
	return Event{Type: EventProgress, Current: current, Total: total, Site: site}
}

// Result carries one deduplicated listing.
func Result(l listing.Listing) Event { return Event{Type: EventResult, Vehicle: l} }

// Complete ends a stream.
func Complete() Event { return Event{Type: EventComplete} }

// Error ends a stream that could not start.
func Error(msg string) Event { return Event{Type: EventError, Message: msg} }

// MarshalJSON emits only the fields belonging to the event's type, using the
// names the browser client reads.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventProgress:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Current int       `json:"current"`
			Total   int       `json:"total"`
			Site    string    `json:"site"`
		}{e.Type, e.Current, e.Total, e.Site})
	case EventResult:
		return json.Marshal(struct {
			Type    EventType       `json:"type"`
			Vehicle listing.Listing `json:"vehicle"`
		}{e.Type, e.Vehicle})
	case EventError:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Message string    `json:"message"`
			Site    string    `json:"site,omitempty"`
		}{e.Type, e.Message, e.Site})
	default:
		return json.Marshal(struct {
			Type EventType `json:"type"`
		}{e.Type})
	}
}
