// Package bridge implements the host/guest message bridge for embedded panels.
//
// A guest panel runs inside a surface controlled by a host application. The
// two sides exchange discriminated JSON envelopes over an untrusted stream
// transport. The bridge is an open broadcast medium: traffic from unrelated
// actors may appear on it, so unknown kinds and malformed frames are dropped
// silently rather than surfaced as errors.
package bridge

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates envelope payloads. The set is closed and versionless.
type Kind string

// Envelope kinds exchanged across the host/guest boundary.
const (
	// KindReady is sent guest→host once on mount to request capability injection.
	KindReady Kind = "ready"
	// KindAPI is sent host→guest carrying the capability descriptor.
	KindAPI Kind = "api"
	// KindShowConfig is pushed host→guest to force the config view.
	KindShowConfig Kind = "showConfig"
	// KindSave is sent guest→host with a configuration object to persist.
	KindSave Kind = "save"
	// KindClose is sent guest→host asking the host to dismiss the surface.
	KindClose Kind = "close"
)

// Known reports whether k is part of the closed kind set.
func (k Kind) Known() bool {
	switch k {
	case KindReady, KindAPI, KindShowConfig, KindSave, KindClose:
		return true
	default:
		return false
	}
}

// Envelope is the discriminated message exchanged between host and guest.
// Payload is left raw so each side decodes only the kinds it understands.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope builds an envelope with the given payload marshaled as JSON.
// A nil payload produces an envelope with no payload field.
func NewEnvelope(kind Kind, payload any) (Envelope, error) {
	env := Envelope{Kind: kind}

	if payload == nil {
		return env, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	env.Payload = raw

	return env, nil
}

// DecodePayload unmarshals the envelope payload into v.
func (e Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s envelope has no payload", e.Kind)
	}

	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Kind, err)
	}

	return nil
}
