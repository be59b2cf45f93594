package app

import (
	"errors"

	"github.com/ayusman/ghostglove/internal/keymap"
)

// Emitter receives every key the session emits.
type Emitter interface {
	Emit(hit keymap.Result) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(hit keymap.Result) error

// Emit calls f(hit).
func (f EmitterFunc) Emit(hit keymap.Result) error {
	return f(hit)
}

// Emitters fans a key out to several emitters. Every emitter is called even
// when an earlier one fails.
type Emitters []Emitter

// Emit implements Emitter.
func (es Emitters) Emit(hit keymap.Result) error {
	var errs []error
	for _, e := range es {
		if e == nil {
			continue
		}
		if err := e.Emit(hit); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
