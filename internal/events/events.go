// Package events defines the externally delivered events this service reacts
// to and the registry that routes them to handlers by kind.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rolesync/internal/documents"
	"rolesync/pkg/platform/sentinel"
)

// Kind tags an envelope with the event it carries.
type Kind string

const (
	// KindUserCreated is emitted by the authentication service once per new identity.
	KindUserCreated Kind = "user.created"
	// KindDocumentUpdated is emitted by the document store after a document write.
	KindDocumentUpdated Kind = "document.updated"
)

// ErrMalformedEvent is returned for envelopes that cannot be decoded or lack
// required fields. Redelivery will not fix them.
var ErrMalformedEvent = fmt.Errorf("malformed event: %w", sentinel.ErrInvalidInput)

// Envelope is the transport-neutral wrapper every source produces.
type Envelope struct {
	ID   string          `json:"id"`
	Kind Kind            `json:"kind"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data"`
}

// NewEnvelope encodes payload under a fresh event id.
func NewEnvelope(kind Kind, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Envelope{
		ID:   uuid.NewString(),
		Kind: kind,
		Time: time.Now().UTC(),
		Data: data,
	}, nil
}

// UserCreated is the payload of KindUserCreated.
type UserCreated struct {
	UserID string `json:"uid"`
}

// DocumentUpdated is the payload of KindDocumentUpdated. Document is the
// slash path of the written document, e.g. "users/abc123".
type DocumentUpdated struct {
	Document string           `json:"document"`
	Before   documents.Fields `json:"before"`
	After    documents.Fields `json:"after"`
}

// NewDocumentUpdated builds the envelope for a store change.
func NewDocumentUpdated(change documents.Change) (Envelope, error) {
	return NewEnvelope(KindDocumentUpdated, DocumentUpdated{
		Document: change.Ref.Path(),
		Before:   change.Before,
		After:    change.After,
	})
}

// DocumentChange is what document handlers receive: the decoded update plus
// the parameters captured by the handler's path pattern.
type DocumentChange struct {
	EventID string
	Ref     documents.Ref
	Params  map[string]string
	Before  documents.Fields
	After   documents.Fields
}

func decodeUserCreated(env Envelope) (UserCreated, error) {
	var evt UserCreated
	if err := json.Unmarshal(env.Data, &evt); err != nil {
		return UserCreated{}, fmt.Errorf("%w: %s %s: %v", ErrMalformedEvent, env.Kind, env.ID, err)
	}
	if evt.UserID == "" {
		return UserCreated{}, fmt.Errorf("%w: %s %s: missing uid", ErrMalformedEvent, env.Kind, env.ID)
	}
	return evt, nil
}

func decodeDocumentUpdated(env Envelope) (DocumentUpdated, documents.Ref, error) {
	var evt DocumentUpdated
	if err := json.Unmarshal(env.Data, &evt); err != nil {
		return DocumentUpdated{}, documents.Ref{}, fmt.Errorf("%w: %s %s: %v", ErrMalformedEvent, env.Kind, env.ID, err)
	}
	ref, err := documents.ParseRef(evt.Document)
	if err != nil {
		return DocumentUpdated{}, documents.Ref{}, fmt.Errorf("%w: %s %s: %v", ErrMalformedEvent, env.Kind, env.ID, err)
	}
	return evt, ref, nil
}
