package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// StereoCamera reads synchronised frame pairs from two cameras.
type StereoCamera struct {
	Left  Camera
	Right Camera
	// Flip rotates both frames 180 degrees, for rigs mounted upside down.
	Flip bool
}

// NewStereoCamera pairs two cameras.
func NewStereoCamera(left, right Camera, flip bool) *StereoCamera {
	return &StereoCamera{Left: left, Right: right, Flip: flip}
}

// Open opens both cameras. If the right camera fails the left one is closed again.
func (s *StereoCamera) Open() error {
	if err := s.Left.Open(); err != nil {
		return fmt.Errorf("left camera: %w", err)
	}
	if err := s.Right.Open(); err != nil {
		s.Left.Close()
		return fmt.Errorf("right camera: %w", err)
	}
	return nil
}

// Close closes both cameras.
func (s *StereoCamera) Close() error {
	return errors.Join(s.Left.Close(), s.Right.Close())
}

// IsOpen reports whether both cameras are open.
func (s *StereoCamera) IsOpen() bool {
	return s.Left.IsOpen() && s.Right.IsOpen()
}

// ReadPair reads one frame from each camera. On error no Mat is returned.
// The caller is responsible for closing both returned Mats.
func (s *StereoCamera) ReadPair() (left, right *gocv.Mat, err error) {
	left, err = s.Left.ReadFrame()
	if err != nil {
		return nil, nil, fmt.Errorf("left camera: %w", err)
	}
	right, err = s.Right.ReadFrame()
	if err != nil {
		left.Close()
		return nil, nil, fmt.Errorf("right camera: %w", err)
	}

	if s.Flip {
		gocv.Flip(*left, left, -1)
		gocv.Flip(*right, right, -1)
	}
	return left, right, nil
}
