// Package app runs the ghost glove frame loop: capture, extraction,
// triangulation, the interaction session and key emission.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ayusman/ghostglove/internal/calibration"
	"github.com/ayusman/ghostglove/internal/capture"
	"github.com/ayusman/ghostglove/internal/log"
	"github.com/ayusman/ghostglove/internal/session"
	"gocv.io/x/gocv"
)

// Frame loop constants.
const (
	// ControlBuffer is how many pending controls are kept before new ones are dropped.
	ControlBuffer = 16
	// SubscriberBuffer is the per-subscriber outcome backlog. A subscriber
	// that falls further behind misses outcomes.
	SubscriberBuffer = 32
	// ReadRetryDelay is the pause after a failed frame read.
	ReadRetryDelay = 50 * time.Millisecond
)

// FrameSource yields synchronised stereo frame pairs.
type FrameSource interface {
	ReadPair() (left, right *gocv.Mat, err error)
}

// Config holds the collaborators of an App.
type Config struct {
	Source    FrameSource
	Processor *Processor
	// Emitter receives emitted keys. Optional.
	Emitter Emitter
}

// App owns the frame loop. Controls and subscriptions may come from any
// goroutine; the session itself is only touched by the loop.
type App struct {
	source    FrameSource
	processor *Processor
	emitter   Emitter
	controls  chan session.Control

	mu      sync.RWMutex
	mode    session.Mode
	entries []calibration.Entry
	subs    map[int]chan session.Outcome
	nextSub int
	frames  uint64
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	a := &App{
		source:    config.Source,
		processor: config.Processor,
		emitter:   config.Emitter,
		controls:  make(chan session.Control, ControlBuffer),
		subs:      make(map[int]chan session.Outcome),
	}
	if a.processor != nil && a.processor.Session != nil {
		a.mode = a.processor.Session.Mode()
		a.entries = a.processor.Session.Store().Entries()
	}
	return a
}

// Control queues a control for a coming frame. Each frame consumes at most
// one control. It reports false when the queue is full and ctl was dropped.
func (a *App) Control(ctl session.Control) bool {
	if ctl.Kind == session.ControlNone {
		return true
	}
	select {
	case a.controls <- ctl:
		return true
	default:
		log.Warn("control queue full, dropping input", "control", ctl.Kind.String())
		return false
	}
}

// Subscribe returns a channel that receives every frame's Outcome and a
// function that ends the subscription.
func (a *App) Subscribe() (<-chan session.Outcome, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextSub
	a.nextSub++
	ch := make(chan session.Outcome, SubscriberBuffer)
	a.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			delete(a.subs, id)
			close(ch)
		})
	}
}

// Mode returns the mode after the most recent frame.
func (a *App) Mode() session.Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// Entries returns the calibration as of the most recent frame, in save order.
func (a *App) Entries() []calibration.Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]calibration.Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Frames returns how many frames have been processed.
func (a *App) Frames() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frames
}

// Run processes frames until ctx is cancelled or the source ends. Read
// errors are logged and the frame is skipped.
func (a *App) Run(ctx context.Context) error {
	log.Info("frame loop started", "mode", a.Mode().String())
	defer log.Info("frame loop stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		left, right, err := a.source.ReadPair()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				return nil
			}
			log.Warn("frame read failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(ReadRetryDelay):
			}
			continue
		}

		a.Step(left, right, a.nextControl())
		left.Close()
		right.Close()
	}
}

// Step processes one frame pair synchronously: the session advances, emitted
// keys go to the emitter and the Outcome is published.
func (a *App) Step(left, right *gocv.Mat, ctl session.Control) session.Outcome {
	out := a.processor.Process(left, right, ctl)

	if out.Toggled {
		log.Info("mode changed", "mode", out.Mode.String())
	}
	for _, e := range out.Saved {
		log.Info("calibrated", "label", e.Label, "x", e.Reference.X, "y", e.Reference.Y, "z", e.Reference.Z)
	}
	for _, hit := range out.EmittedResults() {
		log.Info("key sent", "label", hit.Label, "slot", hit.Slot, "distance", hit.Distance)
		if a.emitter == nil {
			continue
		}
		if err := a.emitter.Emit(hit); err != nil {
			log.Warn("emit failed", "label", hit.Label, "error", err)
		}
	}

	a.publish(out)
	return out
}

func (a *App) nextControl() session.Control {
	select {
	case ctl := <-a.controls:
		return ctl
	default:
		return session.None
	}
}

func (a *App) publish(out session.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.frames++
	a.mode = out.Mode
	if len(out.Saved) > 0 {
		a.entries = a.processor.Session.Store().Entries()
	}

	for _, ch := range a.subs {
		select {
		case ch <- out:
		default:
		}
	}
}
