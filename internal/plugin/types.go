// Package plugin runs external programs for every key ghostglove sends.
package plugin

import "encoding/json"

// EventKey is the event delivered when a key is sent.
const EventKey = "key"

// Manifest describes a plugin and the events it wants.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Wants reports whether the plugin subscribed to event.
func (m Manifest) Wants(event string) bool {
	for _, e := range m.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Event    string          `json:"event"`
	Label    string          `json:"label"`
	Slot     int             `json:"slot"`
	Distance float64         `json:"distance"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
