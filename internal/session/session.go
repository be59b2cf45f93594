// Package session drives the RECORDING / TYPING interaction state machine.
package session

import (
	"github.com/ayusman/ghostglove/internal/calibration"
	"github.com/ayusman/ghostglove/internal/keymap"
	"github.com/ayusman/ghostglove/internal/stereo"
)

// Mode is the interaction mode.
type Mode int

const (
	// ModeRecording saves calibration on label presses.
	ModeRecording Mode = iota
	// ModeTyping matches positions and emits keys on trigger.
	ModeTyping
)

// String returns the mode name shown to the user.
func (m Mode) String() string {
	switch m {
	case ModeRecording:
		return "RECORDING"
	case ModeTyping:
		return "TYPING"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Outcome is everything one frame produced.
type Outcome struct {
	Mode      Mode                `json:"mode"`
	Toggled   bool                `json:"toggled"`
	Positions []stereo.Position3D `json:"positions"`
	Matches   []keymap.Result     `json:"matches,omitempty"`
	Saved     []calibration.Entry `json:"saved,omitempty"`
	Emitted   []string            `json:"emitted,omitempty"`
	Stored    int                 `json:"stored"`
}

// EmittedResults returns the matches behind Emitted, in slot order.
func (o Outcome) EmittedResults() []keymap.Result {
	if len(o.Emitted) == 0 {
		return nil
	}
	hits := make([]keymap.Result, 0, len(o.Emitted))
	for _, m := range o.Matches {
		if m.Hit {
			hits = append(hits, m)
		}
	}
	return hits
}

// Session is the per-run context: current mode, calibration store and the
// configured matching strategy. It is driven by a single goroutine.
type Session struct {
	mode    Mode
	store   *calibration.Store
	matcher keymap.Matcher
}

// New creates a Session in RECORDING mode.
func New(store *calibration.Store, matcher keymap.Matcher) *Session {
	if store == nil {
		store = calibration.NewStore()
	}
	return &Session{
		mode:    ModeRecording,
		store:   store,
		matcher: matcher,
	}
}

// Mode returns the current mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// Store returns the calibration store.
func (s *Session) Store() *calibration.Store {
	return s.store
}

// Matcher returns the matching strategy.
func (s *Session) Matcher() keymap.Matcher {
	return s.matcher
}

// Step advances the state machine by one frame. positions holds the live
// position of each visible slot; an empty slice means no fingertip was seen.
//
// Rules:
// - Toggle switches mode and nothing else happens this frame
// - RECORDING: a label press saves calibration through the matcher
// - TYPING: every slot is matched; a trigger emits each hit in slot order
// - Labels in TYPING and triggers in RECORDING are ignored
func (s *Session) Step(positions []stereo.Position3D, ctl Control) Outcome {
	if ctl.Kind == ControlToggle {
		s.toggle()
		return Outcome{
			Mode:      s.mode,
			Toggled:   true,
			Positions: positions,
			Stored:    s.store.Len(),
		}
	}

	out := Outcome{
		Mode:      s.mode,
		Positions: positions,
	}

	switch s.mode {
	case ModeRecording:
		if ctl.Kind == ControlLabel && len(positions) > 0 {
			out.Saved = s.matcher.Record(s.store, ctl.Label, positions)
		}

	case ModeTyping:
		for slot, pos := range positions {
			result := s.matcher.Match(slot, pos, s.store)
			out.Matches = append(out.Matches, result)
			if result.Hit && ctl.Kind == ControlTrigger {
				out.Emitted = append(out.Emitted, result.Label)
			}
		}
	}

	out.Stored = s.store.Len()
	return out
}

func (s *Session) toggle() {
	if s.mode == ModeRecording {
		s.mode = ModeTyping
	} else {
		s.mode = ModeRecording
	}
}
