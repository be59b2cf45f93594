// Package keymap maps live fingertip positions onto calibrated keys.
package keymap

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/ghostglove/internal/calibration"
	"github.com/ayusman/ghostglove/internal/stereo"
)

// ErrUnknownStrategy is returned by New for an unrecognised strategy name.
var ErrUnknownStrategy = errors.New("unknown matcher strategy")

// Strategy names a matching strategy.
type Strategy string

const (
	// StrategyNearest matches against the closest calibrated key.
	StrategyNearest Strategy = "nearest"
	// StrategyDelta matches the displacement of each finger from its home.
	StrategyDelta Strategy = "delta"
)

// Result is the outcome of matching one slot's position.
// When Hit is false Label is empty and Distance is the closest distance
// considered (+Inf when nothing could be compared).
type Result struct {
	Slot     int     `json:"slot"`
	Label    string  `json:"label,omitempty"`
	Distance float64 `json:"distance"`
	Hit      bool    `json:"hit"`
}

// MarshalJSON encodes a non-finite distance as null.
func (r Result) MarshalJSON() ([]byte, error) {
	type wire struct {
		Slot     int      `json:"slot"`
		Label    string   `json:"label,omitempty"`
		Distance *float64 `json:"distance"`
		Hit      bool     `json:"hit"`
	}
	w := wire{Slot: r.Slot, Label: r.Label, Hit: r.Hit}
	if !math.IsInf(r.Distance, 0) && !math.IsNaN(r.Distance) {
		w.Distance = &r.Distance
	}
	return json.Marshal(w)
}

// Matcher is a key matching strategy.
type Matcher interface {
	// Strategy returns the strategy name.
	Strategy() Strategy

	// Match resolves the position of one slot against the calibration store.
	Match(slot int, pos stereo.Position3D, store *calibration.Store) Result

	// Record saves calibration for a label press and returns what was saved.
	// positions holds the current frame's positions indexed by slot.
	Record(store *calibration.Store, label string, positions []stereo.Position3D) []calibration.Entry
}

// Config selects and parameterises a Matcher.
type Config struct {
	Strategy   Strategy
	HitRadius  float64 // nearest: maximum distance for a hit (mm)
	RecordSlot int     // nearest: slot whose position a label press saves
	Delta      DeltaConfig
}

// DefaultConfig returns nearest matching with an 8mm hit radius.
func DefaultConfig() Config {
	return Config{
		Strategy:   StrategyNearest,
		HitRadius:  8.0,
		RecordSlot: 0,
		Delta:      DefaultDeltaConfig(),
	}
}

// New creates the Matcher named by cfg.Strategy.
func New(cfg Config) (Matcher, error) {
	switch cfg.Strategy {
	case StrategyNearest, "":
		return NewNearestMatcher(cfg.HitRadius, cfg.RecordSlot), nil
	case StrategyDelta:
		return NewDeltaMatcher(cfg.Delta), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}

// NearestMatcher finds the closest calibrated key by Euclidean distance.
type NearestMatcher struct {
	hitRadius  float64
	recordSlot int
}

// NewNearestMatcher creates a NearestMatcher.
func NewNearestMatcher(hitRadius float64, recordSlot int) *NearestMatcher {
	return &NearestMatcher{
		hitRadius:  hitRadius,
		recordSlot: recordSlot,
	}
}

// Strategy implements Matcher.
func (m *NearestMatcher) Strategy() Strategy {
	return StrategyNearest
}

// HitRadius returns the maximum hit distance in millimetres.
func (m *NearestMatcher) HitRadius() float64 {
	return m.hitRadius
}

// Match scans every entry and keeps the closest. On an exact tie the entry
// saved first wins. It is a hit only when the closest distance is within the
// hit radius; an empty store gives (none, +Inf).
func (m *NearestMatcher) Match(slot int, pos stereo.Position3D, store *calibration.Store) Result {
	best := Result{Slot: slot, Distance: math.Inf(1)}
	var label string
	found := false

	store.Each(func(e calibration.Entry) {
		d := pos.DistanceTo(e.Reference)
		if d < best.Distance {
			best.Distance = d
			label = e.Label
			found = true
		}
	})

	if found && best.Distance <= m.hitRadius {
		best.Label = label
		best.Hit = true
	}
	return best
}

// Record saves the record slot's position under label. Nothing is saved when
// that slot has no position this frame.
func (m *NearestMatcher) Record(store *calibration.Store, label string, positions []stereo.Position3D) []calibration.Entry {
	if label == "" || m.recordSlot < 0 || m.recordSlot >= len(positions) {
		return nil
	}

	pos := positions[m.recordSlot]
	store.Save(label, pos)
	return []calibration.Entry{{Label: label, Reference: pos}}
}
