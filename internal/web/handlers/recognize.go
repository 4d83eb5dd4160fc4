package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/facegate/facegate/internal/faceid"
	"github.com/facegate/facegate/internal/gate"
)

// RecognizeRequest carries one capture to verify. MatricNo switches the
// matcher into a one-to-one check against that identity.
type RecognizeRequest struct {
	ImageData   string `json:"image_data"`
	MatricNo    string `json:"matric_no,omitempty"`
	Level       string `json:"level,omitempty"`
	Department  string `json:"department,omitempty"`
	CaptureTime string `json:"capture_time,omitempty"`
}

// RecognizeResponse is the protocol's outcome shape.
type RecognizeResponse struct {
	Message    string   `json:"message"`
	MatricNo   string   `json:"matric_no,omitempty"`
	Verified   *bool    `json:"verified,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// RecognizeHandler handles POST /recognize.
type RecognizeHandler struct {
	gate    *gate.Service
	timeout time.Duration
}

// NewRecognizeHandler creates a recognize handler.
func NewRecognizeHandler(g *gate.Service, timeout time.Duration) *RecognizeHandler {
	return &RecognizeHandler{gate: g, timeout: timeout}
}

// Recognize verifies one capture and logs the outcome.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req RecognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	imageData, err := decodeImage(req.ImageData)
	if err != nil || len(imageData) == 0 {
		respondError(w, http.StatusBadRequest, "invalid image data")
		return
	}

	var captureTime time.Time
	if req.CaptureTime != "" {
		captureTime, err = time.Parse(time.RFC3339, req.CaptureTime)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid capture_time")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	out, err := h.gate.Recognize(ctx, gate.Attempt{
		ImageData:   imageData,
		MatricNo:    req.MatricNo,
		Level:       req.Level,
		Department:  req.Department,
		CaptureTime: captureTime,
	})
	switch {
	case errors.Is(err, faceid.ErrNoFaceDetected):
		respondMessage(w, "No face detected")
		return
	case errors.Is(err, faceid.ErrMultipleFacesDetected):
		respondMessage(w, "Multiple faces detected")
		return
	case errors.Is(err, faceid.ErrUserNotRegistered):
		respondMessage(w, "User not registered")
		return
	case err != nil:
		log.Printf("recognize failed for %s: %v", sanitizeForLog(req.MatricNo), err)
		respondError(w, http.StatusInternalServerError, "recognition failed")
		return
	}

	message := fmt.Sprintf("%s recognized successfully", out.MatricNo)
	if !out.Verified {
		message = fmt.Sprintf("%s not verified", out.MatricNo)
	}
	respondJSON(w, http.StatusOK, RecognizeResponse{
		Message:    message,
		MatricNo:   out.MatricNo,
		Verified:   &out.Verified,
		Confidence: &out.Distance,
	})
}
