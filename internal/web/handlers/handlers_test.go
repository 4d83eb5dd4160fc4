package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/facegate/facegate/internal/database"
	"github.com/facegate/facegate/internal/database/mock"
	"github.com/facegate/facegate/internal/evidence"
	"github.com/facegate/facegate/internal/faceid"
	"github.com/facegate/facegate/internal/gate"
	"github.com/facegate/facegate/internal/ledger"
	"github.com/facegate/facegate/internal/registry"
	"github.com/facegate/facegate/internal/session"
)

type fakeEncoder struct {
	embedding []float32
	err       error
}

func (f *fakeEncoder) Encode(ctx context.Context, imageData []byte) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.embedding, nil
}

func frameBase64(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encoding test frame: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

type env struct {
	identities *mock.IdentityStore
	attendance *mock.AttendanceStore
	recognize  *RecognizeHandler
	register   *RegisterHandler
}

func newEnv(t *testing.T, enc faceid.Encoder) *env {
	t.Helper()
	identities := mock.NewIdentityStore()
	attendance := mock.NewAttendanceStore()
	campus := mock.NewCampusStore()
	store, err := evidence.NewStore(t.TempDir(), 1280)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	lg := ledger.New(attendance, session.NewContext(mock.NewClassStore()))
	matcher := faceid.NewMatcher(identities, nil, 0.65)
	g := gate.New(enc, matcher, store, lg)
	reg := registry.New(identities, campus, enc, nil)
	return &env{
		identities: identities,
		attendance: attendance,
		recognize:  NewRecognizeHandler(g, 10*time.Second),
		register:   NewRegisterHandler(reg, 10*time.Second),
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshaling response %q: %v", rec.Body.String(), err)
	}
	msg, _ := body["message"].(string)
	return msg
}

func TestRecognizeSuccess(t *testing.T) {
	e := newEnv(t, &fakeEncoder{embedding: []float32{1, 0}})
	e.identities.Add(database.Identity{MatricNo: "S100", Embedding: []float32{1, 0}})

	rec := postJSON(t, e.recognize.Recognize, RecognizeRequest{ImageData: frameBase64(t)})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := message(t, rec); got != "S100 recognized successfully" {
		t.Errorf("unexpected message %q", got)
	}
	if len(e.attendance.Records) != 1 {
		t.Errorf("expected 1 ledger row, got %d", len(e.attendance.Records))
	}
}

func TestRecognizeOutcomeMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"no face", faceid.ErrNoFaceDetected, "No face detected"},
		{"multiple faces", faceid.ErrMultipleFacesDetected, "Multiple faces detected"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t, &fakeEncoder{err: tc.err})
			rec := postJSON(t, e.recognize.Recognize, RecognizeRequest{ImageData: frameBase64(t)})
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if got := message(t, rec); got != tc.message {
				t.Errorf("expected %q, got %q", tc.message, got)
			}
			if len(e.attendance.Records) != 0 {
				t.Error("failed encode must not write a ledger row")
			}
		})
	}
}

func TestRecognizeUnregistered(t *testing.T) {
	e := newEnv(t, &fakeEncoder{embedding: []float32{1, 0}})

	rec := postJSON(t, e.recognize.Recognize, RecognizeRequest{ImageData: frameBase64(t)})
	if got := message(t, rec); got != "User not registered" {
		t.Errorf("expected not-registered outcome, got %q", got)
	}
}

func TestRecognizeOneToOneNotVerified(t *testing.T) {
	e := newEnv(t, &fakeEncoder{embedding: []float32{1, 0}})
	e.identities.Add(database.Identity{MatricNo: "S100", Embedding: []float32{-5, 5}})

	rec := postJSON(t, e.recognize.Recognize, RecognizeRequest{ImageData: frameBase64(t), MatricNo: "S100"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp RecognizeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if resp.Verified == nil || *resp.Verified {
		t.Error("expected verified=false")
	}
	if len(e.attendance.Records) != 1 || e.attendance.Records[0].Verified {
		t.Error("one-to-one check must log an unverified row")
	}
}

func TestRecognizeRejectsBadBody(t *testing.T) {
	e := newEnv(t, &fakeEncoder{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	e.recognize.Recognize(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec = postJSON(t, e.recognize.Recognize, RecognizeRequest{ImageData: "!!!"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad base64, got %d", rec.Code)
	}
}

func TestRegisterSuccess(t *testing.T) {
	e := newEnv(t, &fakeEncoder{embedding: []float32{1, 0}})

	rec := postJSON(t, e.register.Register, RegisterRequest{
		ImageData: frameBase64(t),
		MatricNo:  "S100",
		FirstName: "Ada",
		LastName:  "Obi",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := message(t, rec); got != "Ada Obi registered successfully" {
		t.Errorf("unexpected message %q", got)
	}

	id, _ := e.identities.Get(context.Background(), "S100")
	if id == nil || len(id.Embedding) == 0 {
		t.Error("expected enrolled identity with template")
	}
}

func TestRegisterNoFace(t *testing.T) {
	e := newEnv(t, &fakeEncoder{err: faceid.ErrNoFaceDetected})

	rec := postJSON(t, e.register.Register, RegisterRequest{ImageData: frameBase64(t), MatricNo: "S100"})
	if got := message(t, rec); got != "No face detected" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestRegisterRequiresMatric(t *testing.T) {
	e := newEnv(t, &fakeEncoder{})

	rec := postJSON(t, e.register.Register, RegisterRequest{ImageData: frameBase64(t)})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestDecodeImageDataURL(t *testing.T) {
	data, err := decodeImage("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("frame")))
	if err != nil {
		t.Fatalf("decodeImage failed: %v", err)
	}
	if string(data) != "frame" {
		t.Errorf("unexpected payload %q", data)
	}
}
