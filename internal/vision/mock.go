package vision

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockExtractor is a test implementation of the Extractor interface.
// It allows tests to control the centroids seen on each frame.
type MockExtractor struct {
	mu        sync.Mutex
	sequence  [][]Centroid
	index     int
	centroids []Centroid
	calls     int
}

// NewMockExtractor creates a new MockExtractor that sees no blobs.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// SetCentroids sets the centroids returned by every subsequent Extract call.
func (m *MockExtractor) SetCentroids(centroids []Centroid) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.centroids = centroids
	m.sequence = nil
	m.index = 0
}

// SetSequence makes Extract return one entry per call. Once the sequence is
// exhausted the last entry repeats.
func (m *MockExtractor) SetSequence(sequence [][]Centroid) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = sequence
	m.index = 0
}

// Extract returns the pre-configured centroids.
func (m *MockExtractor) Extract(frame *gocv.Mat) []Centroid {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if len(m.sequence) > 0 {
		out := m.sequence[m.index]
		if m.index < len(m.sequence)-1 {
			m.index++
		}
		return out
	}
	return m.centroids
}

// Calls returns how many times Extract has been called.
func (m *MockExtractor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
