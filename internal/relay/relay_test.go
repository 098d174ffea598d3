package relay

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/panelkit-dev/panelkit/internal/bridge"
	"github.com/panelkit-dev/panelkit/internal/view"
)

type memTransport struct {
	posted []bridge.Envelope
	err    error
}

func (m *memTransport) Post(env bridge.Envelope) error {
	if m.err != nil {
		return m.err
	}

	m.posted = append(m.posted, env)

	return nil
}

func TestSave_PostsAndReturnsToPrimary(t *testing.T) {
	transport := &memTransport{}
	views := view.NewController()
	views.ShowConfig()

	r := New(transport, views, nil)
	r.Save(map[string]any{"enabled": true, "server_url": "http://x"})

	if len(transport.posted) != 1 {
		t.Fatalf("posted %d envelopes, want 1", len(transport.posted))
	}
	if transport.posted[0].Kind != bridge.KindSave {
		t.Errorf("posted kind = %q, want %q", transport.posted[0].Kind, bridge.KindSave)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.posted[0].Payload, &payload); err != nil {
		t.Fatalf("save payload is not valid JSON: %v", err)
	}
	if payload["enabled"] != true {
		t.Errorf("payload enabled = %v, want true", payload["enabled"])
	}

	if got := views.Active(); got != view.Primary {
		t.Errorf("Active() = %q after Save, want %q", got, view.Primary)
	}
}

func TestSave_ReturnsToPrimaryWhenTransportFails(t *testing.T) {
	transport := &memTransport{err: errors.New("host gone")}
	views := view.NewController()
	views.ShowConfig()

	r := New(transport, views, nil)
	r.Save(map[string]bool{"enabled": false})

	if got := views.Active(); got != view.Primary {
		t.Errorf("Active() = %q after failed Save, want %q", got, view.Primary)
	}
}

func TestSave_ReturnsToPrimaryWithNilTransport(t *testing.T) {
	views := view.NewController()
	views.ShowConfig()

	r := New(nil, views, nil)
	r.Save(map[string]bool{"enabled": true})

	if got := views.Active(); got != view.Primary {
		t.Errorf("Active() = %q after Save without transport, want %q", got, view.Primary)
	}
}

func TestClose_PostsWithoutViewChange(t *testing.T) {
	transport := &memTransport{}
	views := view.NewController()
	views.ShowConfig()

	r := New(transport, views, nil)
	r.Close()

	if len(transport.posted) != 1 {
		t.Fatalf("posted %d envelopes, want 1", len(transport.posted))
	}
	if transport.posted[0].Kind != bridge.KindClose {
		t.Errorf("posted kind = %q, want %q", transport.posted[0].Kind, bridge.KindClose)
	}

	// Dismissal is the host's job; the guest view stays put.
	if got := views.Active(); got != view.Config {
		t.Errorf("Active() = %q after Close, want %q", got, view.Config)
	}
}

func TestClose_NilTransportNoOp(t *testing.T) {
	r := New(nil, nil, nil)

	// Must not panic.
	r.Close()
	r.Save(nil)
}
