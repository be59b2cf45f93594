// Package capture provides stereo camera capture using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS      = 30
	DefaultWidth    = 1280
	DefaultHeight   = 720
	DefaultExposure = 2000 // microseconds
	DefaultGain     = 1.0
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEndOfStream is returned by playback cameras once every frame was read.
	ErrEndOfStream = errors.New("end of stream")
)

// Settings are applied to a device when it is opened.
type Settings struct {
	Width    int
	Height   int
	FPS      int
	Exposure float64 // microseconds; 0 leaves auto exposure on
	Gain     float64
}

// DefaultSettings returns 1280x720 at 30fps with exposure locked low enough
// that only the IR LED survives thresholding.
func DefaultSettings() Settings {
	return Settings{
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		FPS:      DefaultFPS,
		Exposure: DefaultExposure,
		Gain:     DefaultGain,
	}
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	deviceID int
	settings Settings
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
}

// NewCamera creates a new Camera for deviceID. Non-positive FPS falls back
// to DefaultFPS.
func NewCamera(deviceID int, settings Settings) Camera {
	if settings.FPS <= 0 {
		settings.FPS = DefaultFPS
	}
	return &cameraImpl{
		deviceID: deviceID,
		settings: settings,
	}
}

// Open opens the camera and applies its settings.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.deviceID, err)
	}

	if c.settings.Width > 0 && c.settings.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(c.settings.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(c.settings.Height))
	}
	capture.Set(gocv.VideoCaptureFPS, float64(c.settings.FPS))

	if c.settings.Exposure > 0 {
		// V4L2 expects manual mode (1) before an absolute exposure is accepted.
		capture.Set(gocv.VideoCaptureAutoExposure, 1)
		capture.Set(gocv.VideoCaptureExposure, c.settings.Exposure)
	}
	if c.settings.Gain > 0 {
		capture.Set(gocv.VideoCaptureGain, c.settings.Gain)
	}

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, fmt.Errorf("failed to read frame from camera %d", c.deviceID)
	}

	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("captured frame from camera %d is empty", c.deviceID)
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings.FPS = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.settings.FPS
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
