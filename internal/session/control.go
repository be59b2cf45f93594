package session

import (
	"unicode"
	"unicode/utf8"
)

// ControlKind is the kind of per-frame control input.
type ControlKind int

const (
	// ControlNone means no input this frame.
	ControlNone ControlKind = iota
	// ControlToggle switches between RECORDING and TYPING.
	ControlToggle
	// ControlLabel carries a key label to calibrate.
	ControlLabel
	// ControlTrigger commits the hovered key.
	ControlTrigger
)

// String returns the wire name of the kind.
func (k ControlKind) String() string {
	switch k {
	case ControlToggle:
		return "toggle"
	case ControlLabel:
		return "label"
	case ControlTrigger:
		return "trigger"
	default:
		return "none"
	}
}

// Control is at most one input event delivered with a frame.
type Control struct {
	Kind  ControlKind
	Label string
}

// Convenience constructors.
var (
	None    = Control{Kind: ControlNone}
	Toggle  = Control{Kind: ControlToggle}
	Trigger = Control{Kind: ControlTrigger}
)

// Label returns a label control for label.
func Label(label string) Control {
	return Control{Kind: ControlLabel, Label: label}
}

// ParseKey maps a key name to a control: "tab" toggles, space triggers and a
// single printable character is a label. Everything else is None.
func ParseKey(key string) Control {
	switch key {
	case "tab":
		return Toggle
	case " ", "space":
		return Trigger
	}

	r, size := utf8.DecodeRuneInString(key)
	if size == 0 || size != len(key) || r == utf8.RuneError {
		return None
	}
	if !unicode.IsPrint(r) || unicode.IsSpace(r) {
		return None
	}
	return Label(key)
}

// ParseControl maps a control name from a remote client.
// label is only used for "label".
func ParseControl(kind, label string) Control {
	switch kind {
	case "toggle":
		return Toggle
	case "trigger":
		return Trigger
	case "label":
		if c := ParseKey(label); c.Kind == ControlLabel {
			return c
		}
	}
	return None
}
