package plugin

import (
	"context"
	"errors"
	"sync"

	"github.com/ayusman/ghostglove/internal/keymap"
	"github.com/ayusman/ghostglove/internal/log"
)

// QueueSize is the number of keys a Dispatcher buffers before dropping.
const QueueSize = 64

// ErrQueueFull is returned by Emit when the plugins cannot keep up.
var ErrQueueFull = errors.New("plugin queue full")

// Dispatcher hands sent keys to every plugin subscribed to EventKey. Plugins
// run on a background goroutine so a slow plugin never stalls the frame loop.
type Dispatcher struct {
	plugins  []*Plugin
	executor *Executor
	queue    chan keymap.Result

	done chan struct{}
	once sync.Once
}

// NewDispatcher creates a Dispatcher for the key plugins found by mgr.
func NewDispatcher(mgr *Manager, executor *Executor) *Dispatcher {
	return &Dispatcher{
		plugins:  mgr.Subscribed(EventKey),
		executor: executor,
		queue:    make(chan keymap.Result, QueueSize),
		done:     make(chan struct{}),
	}
}

// Plugins returns the plugins keys are dispatched to.
func (d *Dispatcher) Plugins() []*Plugin {
	return d.plugins
}

// Emit queues hit for the plugins.
func (d *Dispatcher) Emit(hit keymap.Result) error {
	if len(d.plugins) == 0 {
		return nil
	}
	select {
	case d.queue <- hit:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run executes queued keys in order until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.once.Do(func() { close(d.done) })

	for {
		select {
		case <-ctx.Done():
			return nil
		case hit := <-d.queue:
			d.dispatch(ctx, hit)
		}
	}
}

// Done is closed once Run returns.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) dispatch(ctx context.Context, hit keymap.Result) {
	for _, p := range d.plugins {
		req := &Request{
			Event:    EventKey,
			Label:    hit.Label,
			Slot:     hit.Slot,
			Distance: hit.Distance,
		}
		resp, err := d.executor.Execute(ctx, p, req)
		if err != nil {
			log.Warn("plugin failed", "plugin", p.Manifest.Name, "label", hit.Label, "error", err)
			continue
		}
		if !resp.Success {
			log.Warn("plugin reported failure", "plugin", p.Manifest.Name, "label", hit.Label, "error", resp.Error)
		}
	}
}
