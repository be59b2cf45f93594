package api

import (
	"net/http"

	"github.com/ayusman/ghostglove/internal/calibration"
)

// EntriesSource provides the current calibration snapshot.
type EntriesSource interface {
	Entries() []calibration.Entry
}

// CalibrationHandler serves the calibration store read-only.
type CalibrationHandler struct {
	source EntriesSource
}

// NewCalibrationHandler creates a new CalibrationHandler.
func NewCalibrationHandler(source EntriesSource) *CalibrationHandler {
	return &CalibrationHandler{source: source}
}

type entryResponse struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

type calibrationResponse struct {
	Entries []entryResponse `json:"entries"`
}

// ServeHTTP handles GET /api/calibration. Entries are in save order.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := h.source.Entries()
	response := calibrationResponse{
		Entries: make([]entryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		response.Entries = append(response.Entries, entryResponse{
			Label: e.Label,
			X:     e.Reference.X,
			Y:     e.Reference.Y,
			Z:     e.Reference.Z,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
