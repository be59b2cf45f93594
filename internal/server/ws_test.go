package server

import (
	"math"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/ghostglove/internal/calibration"
	"github.com/ayusman/ghostglove/internal/keymap"
	"github.com/ayusman/ghostglove/internal/session"
	"github.com/ayusman/ghostglove/internal/stereo"
	"github.com/gorilla/websocket"
)

// fakePipeline records controls and lets tests push outcomes.
type fakePipeline struct {
	mu       sync.Mutex
	mode     session.Mode
	cal      *calibration.Store
	controls []session.Control
	full     bool
	outcomes chan session.Outcome
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{
		cal:      calibration.NewStore(),
		outcomes: make(chan session.Outcome, 8),
	}
}

func (p *fakePipeline) Mode() session.Mode           { return p.mode }
func (p *fakePipeline) Frames() uint64               { return 0 }
func (p *fakePipeline) Entries() []calibration.Entry { return p.cal.Entries() }

func (p *fakePipeline) Control(ctl session.Control) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.full {
		return false
	}
	p.controls = append(p.controls, ctl)
	return true
}

func (p *fakePipeline) Subscribe() (<-chan session.Outcome, func()) {
	return p.outcomes, func() {}
}

func (p *fakePipeline) received() []session.Control {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]session.Control(nil), p.controls...)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitClients blocks until the handler has registered n clients.
func waitClients(t *testing.T, h *EventsHandler, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() < n {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEvents_BroadcastsOutcomes(t *testing.T) {
	p := newFakePipeline()
	s := New(Config{Pipeline: p})
	defer s.Close()
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, s.events, 1)

	p.outcomes <- session.Outcome{
		Mode:      session.ModeTyping,
		Positions: []stereo.Position3D{{X: 1, Y: 2, Z: 300}},
		Matches: []keymap.Result{
			{Slot: 0, Label: "a", Distance: 2, Hit: true},
			{Slot: 1, Distance: math.Inf(1)},
		},
		Emitted: []string{"a"},
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Mode    string `json:"mode"`
		Matches []struct {
			Label    string   `json:"label"`
			Distance *float64 `json:"distance"`
			Hit      bool     `json:"hit"`
		} `json:"matches"`
		Emitted []string `json:"emitted"`
	}
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}

	if got.Mode != "TYPING" {
		t.Errorf("mode = %q, want TYPING", got.Mode)
	}
	if len(got.Matches) != 2 || !got.Matches[0].Hit || got.Matches[1].Distance != nil {
		t.Errorf("matches = %+v, want hit then null distance", got.Matches)
	}
	if len(got.Emitted) != 1 || got.Emitted[0] != "a" {
		t.Errorf("emitted = %v, want [a]", got.Emitted)
	}
}

func TestEvents_ForwardsControls(t *testing.T) {
	p := newFakePipeline()
	s := New(Config{Pipeline: p})
	defer s.Close()
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dial(t, srv)

	msgs := []controlMessage{
		{Control: "label", Label: "a"},
		{Control: "toggle"},
		{Control: "trigger"},
	}
	for _, m := range msgs {
		if err := conn.WriteJSON(m); err != nil {
			t.Fatalf("WriteJSON() error = %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(p.received()) < len(msgs) {
		if time.Now().After(deadline) {
			t.Fatalf("received %v, want %d controls", p.received(), len(msgs))
		}
		time.Sleep(5 * time.Millisecond)
	}

	want := []session.Control{session.Label("a"), session.Toggle, session.Trigger}
	for i, ctl := range p.received() {
		if ctl != want[i] {
			t.Errorf("control %d = %+v, want %+v", i, ctl, want[i])
		}
	}
}

func TestEvents_RejectsBadControls(t *testing.T) {
	p := newFakePipeline()
	s := New(Config{Pipeline: p})
	defer s.Close()
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dial(t, srv)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	tests := []struct {
		name string
		send string
		want string
	}{
		{"invalid json", `{nope`, "invalid JSON"},
		{"unknown control", `{"control":"explode"}`, "unknown control"},
		{"label without key", `{"control":"label"}`, "unknown control"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.send)); err != nil {
				t.Fatal(err)
			}
			var reply map[string]string
			if err := conn.ReadJSON(&reply); err != nil {
				t.Fatalf("ReadJSON() error = %v", err)
			}
			if reply["error"] != tt.want {
				t.Errorf("error = %q, want %q", reply["error"], tt.want)
			}
		})
	}

	if got := p.received(); len(got) != 0 {
		t.Errorf("bad controls were forwarded: %v", got)
	}
}

func TestEvents_QueueFull(t *testing.T) {
	p := newFakePipeline()
	p.full = true
	s := New(Config{Pipeline: p})
	defer s.Close()
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dial(t, srv)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	conn.WriteJSON(controlMessage{Control: "toggle"})

	var reply map[string]string
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if reply["error"] != "control queue full" {
		t.Errorf("error = %q, want control queue full", reply["error"])
	}
}
