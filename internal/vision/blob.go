// Package vision finds IR fingertip blobs in camera frames.
package vision

import (
	"sort"

	"gocv.io/x/gocv"
)

// MaxSlots is the number of fingertips tracked at once.
const MaxSlots = 5

// Column of the area field in the ConnectedComponentsWithStats stats matrix.
const statArea = 4

// Centroid is the first-moment centre of one bright region, in pixels.
// Brightness is the region's foreground pixel count.
type Centroid struct {
	U          float64 `json:"u"`
	V          float64 `json:"v"`
	Brightness float64 `json:"brightness"`
}

// Extractor turns a single frame into fingertip centroids ordered left to right.
// An empty slice means no fingertip is visible, which is not an error.
type Extractor interface {
	Extract(frame *gocv.Mat) []Centroid
}

// Config holds blob extraction settings.
type Config struct {
	// Threshold is the binarization level; pixels >= Threshold are foreground.
	Threshold int

	// MinArea rejects regions whose pixel count is <= MinArea.
	MinArea int

	// Channel selects the colour channel thresholded on multi-channel frames.
	// -1 converts the frame to grayscale instead.
	Channel int

	// MaxBlobs caps the number of centroids returned (at most MaxSlots).
	MaxBlobs int
}

// DefaultConfig returns the settings tuned for an IR LED under locked exposure:
// the red channel of a BGR frame reacts most strongly to IR.
func DefaultConfig() Config {
	return Config{
		Threshold: 60,
		MinArea:   5,
		Channel:   2,
		MaxBlobs:  MaxSlots,
	}
}

// BlobExtractor implements Extractor with connected-component labelling.
type BlobExtractor struct {
	config Config
}

// NewBlobExtractor creates a BlobExtractor with the given configuration.
func NewBlobExtractor(config Config) *BlobExtractor {
	if config.MaxBlobs <= 0 || config.MaxBlobs > MaxSlots {
		config.MaxBlobs = MaxSlots
	}
	return &BlobExtractor{config: config}
}

// Extract finds the brightest regions in the frame.
//
// Algorithm:
// 1. Pick the thresholding channel (single channel, selected colour channel, or grayscale)
// 2. Binarize at Threshold (pixel >= Threshold is foreground)
// 3. Label 8-connected foreground regions
// 4. Drop regions with area <= MinArea
// 5. Keep the MaxBlobs largest regions, ordered by ascending U
func (e *BlobExtractor) Extract(frame *gocv.Mat) []Centroid {
	if frame == nil || frame.Empty() {
		return nil
	}

	channel := gocv.NewMat()
	defer channel.Close()
	e.selectChannel(frame, &channel)

	// ThresholdBinary keeps pixels strictly above the level
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(channel, &binary, float32(e.config.Threshold)-1, 255, gocv.ThresholdBinary)

	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	n := gocv.ConnectedComponentsWithStats(binary, &labels, &stats, &centroids)

	// Label 0 is the background
	regions := make([]Centroid, 0, n)
	for i := 1; i < n; i++ {
		area := int(stats.GetIntAt(i, statArea))
		if area <= e.config.MinArea {
			continue
		}
		regions = append(regions, Centroid{
			U:          centroids.GetDoubleAt(i, 0),
			V:          centroids.GetDoubleAt(i, 1),
			Brightness: float64(area),
		})
	}

	return SelectSlots(regions, e.config.MaxBlobs)
}

// selectChannel writes the single-channel image to threshold into dst.
func (e *BlobExtractor) selectChannel(frame *gocv.Mat, dst *gocv.Mat) {
	channels := frame.Channels()
	switch {
	case channels == 1:
		frame.CopyTo(dst)
	case e.config.Channel >= 0 && e.config.Channel < channels:
		planes := gocv.Split(*frame)
		planes[e.config.Channel].CopyTo(dst)
		for i := range planes {
			planes[i].Close()
		}
	case channels == 4:
		gocv.CvtColor(*frame, dst, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(*frame, dst, gocv.ColorBGRToGray)
	}
}

// SelectSlots keeps the limit brightest regions and orders them left to right,
// so slot 0 is always the leftmost visible fingertip.
func SelectSlots(regions []Centroid, limit int) []Centroid {
	if len(regions) == 0 {
		return []Centroid{}
	}

	sorted := make([]Centroid, len(regions))
	copy(sorted, regions)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Brightness > sorted[j].Brightness
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].U < sorted[j].U
	})

	return sorted
}
