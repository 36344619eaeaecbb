// Package admission implements the event-to-queue admission path of
// §4.3: a pub/sub subscriber that normalizes two tolerated envelope
// shapes into one NormalizedEvent, per the "runtime polymorphism over
// event shapes" design note in spec §9 — a tagged-variant normalizer
// rather than a structural union threaded through the rest of the
// codebase.
package admission

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrMalformed = errors.New("admission: malformed event")

// NormalizedEvent is the single shape every downstream consumer of
// admitted events sees, regardless of which inbound envelope produced it.
type NormalizedEvent struct {
	Name         string
	RepositoryID string
	IngestStatus string
}

type rawMessage struct {
	Event   json.RawMessage `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type envelopeEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type dataShape struct {
	Repository *struct {
		ID           string  `json:"id"`
		IngestStatus *string `json:"ingestStatus"`
	} `json:"repository"`
	RepositoryID *string `json:"repositoryId"`
	IngestStatus *string `json:"ingestStatus"`
	Event        *struct {
		RepositoryID *string `json:"repositoryId"`
		Status       *string `json:"status"`
	} `json:"event"`
}

// Normalize parses one inbound pub/sub message and extracts the event
// name plus repository id/ingestStatus, trying the Legacy shape
// ({event: "<string>", payload: {...}}) then the Envelope shape
// ({event: {type, data}}). Returns ErrMalformed for invalid JSON, and an
// event carrying only its Name, false, and no error for a well-formed
// message missing a repository id — the caller logs that case at debug,
// not as an error.
func Normalize(raw []byte) (NormalizedEvent, bool, error) {
	var msg rawMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return NormalizedEvent{}, false, ErrMalformed
	}
	if len(msg.Event) == 0 {
		return NormalizedEvent{}, false, ErrMalformed
	}

	var name string
	var data json.RawMessage

	var eventName string
	if err := json.Unmarshal(msg.Event, &eventName); err == nil {
		// Legacy shape: event is the bare name, data lives in payload.
		name = eventName
		data = msg.Payload
	} else {
		var env envelopeEvent
		if err := json.Unmarshal(msg.Event, &env); err != nil {
			return NormalizedEvent{}, false, ErrMalformed
		}
		name = env.Type
		data = env.Data
	}

	if name == "" {
		return NormalizedEvent{}, false, ErrMalformed
	}
	if len(data) == 0 {
		return NormalizedEvent{Name: name}, false, nil
	}

	var shape dataShape
	if err := json.Unmarshal(data, &shape); err != nil {
		return NormalizedEvent{}, false, ErrMalformed
	}

	var repoID, ingestStatus string
	switch {
	case shape.Repository != nil && shape.Repository.ID != "":
		repoID = shape.Repository.ID
		if shape.Repository.IngestStatus != nil {
			ingestStatus = *shape.Repository.IngestStatus
		}
	case shape.RepositoryID != nil && *shape.RepositoryID != "":
		repoID = *shape.RepositoryID
		if shape.IngestStatus != nil {
			ingestStatus = *shape.IngestStatus
		}
	case shape.Event != nil && shape.Event.RepositoryID != nil && *shape.Event.RepositoryID != "":
		repoID = *shape.Event.RepositoryID
		if shape.Event.Status != nil {
			ingestStatus = *shape.Event.Status
		}
	}

	if repoID == "" {
		return NormalizedEvent{Name: name}, false, nil
	}

	return NormalizedEvent{Name: name, RepositoryID: repoID, IngestStatus: ingestStatus}, true, nil
}

// IsRepositoryEvent reports whether the event name falls within the
// admission policy's scope (the "repository." namespace).
func (e NormalizedEvent) IsRepositoryEvent() bool {
	return strings.HasPrefix(e.Name, "repository.")
}

// requiresIngestReady is the set of event names that gate enqueue on
// ingestStatus == "ready" and the recency predicate; other
// repository.* events are forwarded but never enqueue.
func requiresIngestReady(name string) bool {
	switch name {
	case "repository.updated", "repository.ingestion-event":
		return true
	default:
		return false
	}
}
