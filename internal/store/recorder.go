package store

import (
	"fmt"

	"github.com/ayusman/ghostglove/internal/keymap"
)

// Recorder writes emitted keys into a session it opens on creation.
type Recorder struct {
	store     *Store
	sessionID string
}

// NewRecorder starts a session for the given matcher strategy.
func NewRecorder(s *Store, strategy keymap.Strategy) (*Recorder, error) {
	sess := &Session{Strategy: string(strategy)}
	if err := s.Sessions().Create(sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &Recorder{store: s, sessionID: sess.ID}, nil
}

// SessionID returns the ID of the recorded session.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Emit stores hit as a keystroke.
func (r *Recorder) Emit(hit keymap.Result) error {
	k := &Keystroke{
		SessionID: r.sessionID,
		Label:     hit.Label,
		Slot:      hit.Slot,
		Distance:  hit.Distance,
	}
	if err := r.store.Keystrokes().Create(k); err != nil {
		return fmt.Errorf("failed to record keystroke: %w", err)
	}
	return nil
}

// Close marks the session as ended.
func (r *Recorder) Close() error {
	return r.store.Sessions().End(r.sessionID)
}
