package keymap

import (
	"math"
	"strconv"

	"github.com/ayusman/ghostglove/internal/calibration"
	"github.com/ayusman/ghostglove/internal/stereo"
	"github.com/ayusman/ghostglove/internal/vision"
)

// Direction is a displacement bucket relative to a finger's home position.
type Direction string

// Direction buckets. Vertical comes from depth (dZ), horizontal from dX.
const (
	Home      Direction = "home"
	Up        Direction = "up"
	Down      Direction = "down"
	Left      Direction = "left"
	Right     Direction = "right"
	UpLeft    Direction = "up-left"
	UpRight   Direction = "up-right"
	DownLeft  Direction = "down-left"
	DownRight Direction = "down-right"
)

// Directions lists every valid bucket.
var Directions = []Direction{Home, Up, Down, Left, Right, UpLeft, UpRight, DownLeft, DownRight}

// ValidDirection reports whether d is a known bucket.
func ValidDirection(d Direction) bool {
	for _, v := range Directions {
		if v == d {
			return true
		}
	}
	return false
}

// KeyTable maps slot and direction to the character typed.
type KeyTable map[int]map[Direction]string

// DefaultKeyTable is the left-hand layout: each finger reaches its own column
// and the index finger also covers the inner column.
func DefaultKeyTable() KeyTable {
	return KeyTable{
		0: {Up: "w", Home: "s", Down: "x"},
		1: {Up: "e", Home: "d", Down: "c"},
		2: {Up: "r", Home: "f", UpRight: "t", Right: "g", DownRight: "b", Down: "v"},
		3: {Home: "space"},
		4: {Up: "q", Home: "a", Down: "z"},
	}
}

// DeltaConfig holds the displacement thresholds in millimetres.
type DeltaConfig struct {
	Up   float64 // dZ above this is up (positive)
	Down float64 // dZ below this is down (negative)
	Side float64 // |dX| above this is left or right
	Keys KeyTable
}

// DefaultDeltaConfig returns 8mm thresholds with the default key table.
func DefaultDeltaConfig() DeltaConfig {
	return DeltaConfig{
		Up:   8,
		Down: -8,
		Side: 8,
		Keys: DefaultKeyTable(),
	}
}

// Bucket classifies a displacement from home.
func (c DeltaConfig) Bucket(dX, dZ float64) Direction {
	var vertical, horizontal string
	switch {
	case dZ > c.Up:
		vertical = string(Up)
	case dZ < c.Down:
		vertical = string(Down)
	}
	switch {
	case dX > c.Side:
		horizontal = string(Right)
	case dX < -c.Side:
		horizontal = string(Left)
	}

	switch {
	case vertical != "" && horizontal != "":
		return Direction(vertical + "-" + horizontal)
	case vertical != "":
		return Direction(vertical)
	case horizontal != "":
		return Direction(horizontal)
	default:
		return Home
	}
}

// HomeLabel is the calibration label holding the home position of slot.
func HomeLabel(slot int) string {
	return "home:" + strconv.Itoa(slot)
}

// DeltaMatcher maps each finger's displacement from its own home position to
// a key, instead of searching the whole calibration set.
type DeltaMatcher struct {
	config DeltaConfig
}

// NewDeltaMatcher creates a DeltaMatcher.
func NewDeltaMatcher(config DeltaConfig) *DeltaMatcher {
	if config.Keys == nil {
		config.Keys = KeyTable{}
	}
	return &DeltaMatcher{config: config}
}

// Strategy implements Matcher.
func (m *DeltaMatcher) Strategy() Strategy {
	return StrategyDelta
}

// Match buckets the slot's displacement from home. Distance is the Euclidean
// distance from home; a slot without a home gives (none, +Inf). It is a hit
// when the key table has an entry for the slot and bucket.
func (m *DeltaMatcher) Match(slot int, pos stereo.Position3D, store *calibration.Store) Result {
	home, ok := store.Lookup(HomeLabel(slot))
	if !ok {
		return Result{Slot: slot, Distance: math.Inf(1)}
	}

	delta := pos.Sub(home)
	result := Result{
		Slot:     slot,
		Distance: pos.DistanceTo(home),
	}

	dir := m.config.Bucket(delta.X, delta.Z)
	if label, ok := m.config.Keys[slot][dir]; ok && label != "" {
		result.Label = label
		result.Hit = true
	}
	return result
}

// Record saves the current position of every visible slot as its home.
// Any label press triggers it; the label itself is not stored.
func (m *DeltaMatcher) Record(store *calibration.Store, label string, positions []stereo.Position3D) []calibration.Entry {
	n := min(len(positions), vision.MaxSlots)
	saved := make([]calibration.Entry, 0, n)
	for slot := 0; slot < n; slot++ {
		entry := calibration.Entry{Label: HomeLabel(slot), Reference: positions[slot]}
		store.Save(entry.Label, entry.Reference)
		saved = append(saved, entry)
	}
	return saved
}
