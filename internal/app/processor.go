package app

import (
	"github.com/ayusman/ghostglove/internal/session"
	"github.com/ayusman/ghostglove/internal/stereo"
	"github.com/ayusman/ghostglove/internal/vision"
	"golang.org/x/sync/errgroup"
	"gocv.io/x/gocv"
)

// Processor turns one stereo frame pair plus a control into an Outcome.
// It is not safe for concurrent use; the frame loop owns it.
type Processor struct {
	Left    vision.Extractor
	Right   vision.Extractor
	Rig     stereo.Rig
	Session *session.Session
}

// NewProcessor creates a Processor with one extractor per camera.
func NewProcessor(left, right vision.Extractor, rig stereo.Rig, s *session.Session) *Processor {
	return &Processor{
		Left:    left,
		Right:   right,
		Rig:     rig,
		Session: s,
	}
}

// Process extracts slots from both frames, pairs them by index and advances
// the session by one step.
func (p *Processor) Process(left, right *gocv.Mat, ctl session.Control) session.Outcome {
	var lc, rc []vision.Centroid

	// The extractors share no state, so both frames are scanned in parallel.
	var g errgroup.Group
	g.Go(func() error {
		lc = p.Left.Extract(left)
		return nil
	})
	g.Go(func() error {
		rc = p.Right.Extract(right)
		return nil
	})
	g.Wait()

	return p.Session.Step(p.Rig.PairSlots(lc, rc), ctl)
}
