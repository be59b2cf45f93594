package keymap

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/ayusman/ghostglove/internal/calibration"
	"github.com/ayusman/ghostglove/internal/stereo"
)

func TestNearestMatcher_EmptyStore(t *testing.T) {
	m := NewNearestMatcher(8, 0)
	store := calibration.NewStore()

	for _, pos := range []stereo.Position3D{{}, {X: 1, Y: 2, Z: 300}} {
		got := m.Match(0, pos, store)
		if got.Hit || got.Label != "" {
			t.Errorf("empty store matched %+v", got)
		}
		if !math.IsInf(got.Distance, 1) {
			t.Errorf("Distance = %f, want +Inf", got.Distance)
		}
	}
}

func TestNearestMatcher_ExactPosition(t *testing.T) {
	pos := stereo.Position3D{X: -40, Y: 12, Z: 350}

	for _, radius := range []float64{0, 0.001, 8, 1000} {
		m := NewNearestMatcher(radius, 0)
		store := calibration.NewStore()
		store.Save("k", pos)

		got := m.Match(0, pos, store)
		if !got.Hit || got.Label != "k" {
			t.Errorf("radius %f: Match() = %+v, want hit on k", radius, got)
		}
		if got.Distance != 0 {
			t.Errorf("radius %f: Distance = %f, want 0", radius, got.Distance)
		}
	}
}

func TestNearestMatcher_Match(t *testing.T) {
	store := calibration.NewStore()
	store.Save("a", stereo.Position3D{X: 0, Y: 0, Z: 300})
	store.Save("b", stereo.Position3D{X: 20, Y: 0, Z: 300})

	tests := []struct {
		name      string
		pos       stereo.Position3D
		wantHit   bool
		wantLabel string
		wantDist  float64
	}{
		{
			name:      "within radius of a",
			pos:       stereo.Position3D{X: 3, Y: 0, Z: 300},
			wantHit:   true,
			wantLabel: "a",
			wantDist:  3,
		},
		{
			name:      "closer to b",
			pos:       stereo.Position3D{X: 16, Y: 0, Z: 300},
			wantHit:   true,
			wantLabel: "b",
			wantDist:  4,
		},
		{
			name:     "outside radius",
			pos:      stereo.Position3D{X: 0, Y: 50, Z: 300},
			wantHit:  false,
			wantDist: 50,
		},
		{
			name:      "exactly on radius",
			pos:       stereo.Position3D{X: 0, Y: 0, Z: 308},
			wantHit:   true,
			wantLabel: "a",
			wantDist:  8,
		},
	}

	m := NewNearestMatcher(8, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(2, tt.pos, store)
			if got.Hit != tt.wantHit {
				t.Errorf("Hit = %v, want %v", got.Hit, tt.wantHit)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", got.Label, tt.wantLabel)
			}
			if math.Abs(got.Distance-tt.wantDist) > 1e-9 {
				t.Errorf("Distance = %f, want %f", got.Distance, tt.wantDist)
			}
			if got.Slot != 2 {
				t.Errorf("Slot = %d, want 2", got.Slot)
			}
		})
	}
}

func TestNearestMatcher_TieGoesToFirstSaved(t *testing.T) {
	store := calibration.NewStore()
	store.Save("left", stereo.Position3D{X: -5, Z: 300})
	store.Save("right", stereo.Position3D{X: 5, Z: 300})

	m := NewNearestMatcher(8, 0)
	for i := 0; i < 10; i++ {
		got := m.Match(0, stereo.Position3D{Z: 300}, store)
		if got.Label != "left" {
			t.Fatalf("tie resolved to %q, want left", got.Label)
		}
	}

	// Overwriting keeps the original insertion position.
	store.Save("left", stereo.Position3D{X: -5, Z: 300})
	if got := m.Match(0, stereo.Position3D{Z: 300}, store); got.Label != "left" {
		t.Errorf("tie after overwrite resolved to %q, want left", got.Label)
	}
}

func TestNearestMatcher_Record(t *testing.T) {
	positions := []stereo.Position3D{{X: 1}, {X: 2}}

	t.Run("saves record slot", func(t *testing.T) {
		store := calibration.NewStore()
		m := NewNearestMatcher(8, 1)

		saved := m.Record(store, "j", positions)
		if len(saved) != 1 || saved[0].Label != "j" || saved[0].Reference.X != 2 {
			t.Errorf("Record() = %+v, want j at slot 1", saved)
		}
		if got, ok := store.Lookup("j"); !ok || got.X != 2 {
			t.Errorf("Lookup(j) = %+v, %v", got, ok)
		}
	})

	t.Run("no position for slot", func(t *testing.T) {
		store := calibration.NewStore()
		m := NewNearestMatcher(8, 0)

		if saved := m.Record(store, "j", nil); len(saved) != 0 {
			t.Errorf("Record() with no positions saved %+v", saved)
		}
		if store.Len() != 0 {
			t.Errorf("store has %d entries, want 0", store.Len())
		}
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		want     Strategy
		wantErr  bool
	}{
		{name: "nearest", strategy: StrategyNearest, want: StrategyNearest},
		{name: "default", strategy: "", want: StrategyNearest},
		{name: "delta", strategy: StrategyDelta, want: StrategyDelta},
		{name: "unknown", strategy: "spiral", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Strategy = tt.strategy

			m, err := New(cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownStrategy) {
					t.Errorf("New() error = %v, want ErrUnknownStrategy", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if m.Strategy() != tt.want {
				t.Errorf("Strategy() = %q, want %q", m.Strategy(), tt.want)
			}
		})
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{"hit", Result{Slot: 1, Label: "a", Distance: 2.5, Hit: true}, `{"slot":1,"label":"a","distance":2.5,"hit":true}`},
		{"miss", Result{Slot: 0, Distance: 50}, `{"slot":0,"distance":50,"hit":false}`},
		{"empty store", Result{Slot: 2, Distance: math.Inf(1)}, `{"slot":2,"distance":null,"hit":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.result)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}
