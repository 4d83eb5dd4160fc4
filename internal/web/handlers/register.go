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
	"github.com/facegate/facegate/internal/registry"
)

// RegisterRequest carries a biometric enrollment.
type RegisterRequest struct {
	ImageData  string `json:"image_data"`
	MatricNo   string `json:"matric_no"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Level      string `json:"level,omitempty"`
	Department string `json:"department,omitempty"`
}

// RegisterHandler handles POST /register.
type RegisterHandler struct {
	registry *registry.Registry
	timeout  time.Duration
}

// NewRegisterHandler creates a register handler.
func NewRegisterHandler(r *registry.Registry, timeout time.Duration) *RegisterHandler {
	return &RegisterHandler{registry: r, timeout: timeout}
}

// Register enrolls one identity with a face template.
func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.MatricNo == "" {
		respondError(w, http.StatusBadRequest, "matric_no is required")
		return
	}
	imageData, err := decodeImage(req.ImageData)
	if err != nil || len(imageData) == 0 {
		respondError(w, http.StatusBadRequest, "invalid image data")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	err = h.registry.EnrollWithFace(ctx, req.MatricNo, req.Level, req.Department, imageData)
	switch {
	case errors.Is(err, faceid.ErrNoFaceDetected):
		respondMessage(w, "No face detected")
		return
	case errors.Is(err, faceid.ErrMultipleFacesDetected):
		respondMessage(w, "Multiple faces detected")
		return
	case err != nil:
		log.Printf("register failed for %s: %v", sanitizeForLog(req.MatricNo), err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	who := req.MatricNo
	if req.FirstName != "" && req.LastName != "" {
		who = req.FirstName + " " + req.LastName
	}
	respondMessage(w, fmt.Sprintf("%s registered successfully", who))
}
