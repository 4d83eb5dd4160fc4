// Package ws implements the persistent command channel used by capture
// terminals. Each transaction starts with a text frame {"cmd": ..., params};
// enroll_face and verify_face then send the raw image as one binary frame.
// The connection alternates between awaiting-command and awaiting-payload;
// handler errors are answered in place and only a transport failure ends
// the loop.
package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/facegate/facegate/internal/faceid"
	"github.com/facegate/facegate/internal/gate"
	"github.com/facegate/facegate/internal/ledger"
	"github.com/facegate/facegate/internal/registry"
	"github.com/facegate/facegate/internal/session"
)

// startTimeLayout matches what the lecturer front-end sends, e.g.
// "2024-01-01 09".
const startTimeLayout = "2006-01-02 15"

// maxFrameSize bounds a single websocket frame; camera captures are
// re-encoded client-side and stay well under this.
const maxFrameSize = 8 << 20

// Envelope is the response shape for every command.
type Envelope struct {
	Status   string `json:"status"`
	Body     string `json:"body"`
	Verified *bool  `json:"verified,omitempty"`
}

func okEnvelope(body string) Envelope  { return Envelope{Status: "OK", Body: body} }
func errEnvelope(body string) Envelope { return Envelope{Status: "ERR", Body: body} }

func withVerified(e Envelope, verified bool) Envelope {
	e.Verified = &verified
	return e
}

type enrollFaceCmd struct {
	Cmd        string `json:"cmd"`
	MatricNo   string `json:"matric_no"`
	Level      string `json:"level,omitempty"`
	Department string `json:"department,omitempty"`
}

type verifyFaceCmd struct {
	Cmd         string `json:"cmd"`
	MatricNo    string `json:"matric_no,omitempty"`
	Level       string `json:"level,omitempty"`
	Department  string `json:"department,omitempty"`
	CaptureTime string `json:"capture_time,omitempty"`
}

type enrollUserCmd struct {
	Cmd      string `json:"cmd"`
	Username string `json:"username"`
	MatricNo string `json:"matric_no"`
	College  string `json:"college,omitempty"`
	FprintID string `json:"fprint_id,omitempty"`
	CardUID  string `json:"card_uid,omitempty"`
}

type startClassCmd struct {
	Cmd        string `json:"cmd"`
	Code       string `json:"code"`
	Venue      string `json:"venue,omitempty"`
	StartTime  string `json:"start_time"`
	Duration   int    `json:"duration,omitempty"`
	AuthMode   string `json:"auth_mode,omitempty"`
	Department string `json:"department,omitempty"`
	Level      string `json:"level,omitempty"`
}

type logAttendanceCmd struct {
	Cmd         string `json:"cmd"`
	MatricNo    string `json:"matric_no"`
	ClassID     *int64 `json:"class_id,omitempty"`
	Level       string `json:"level,omitempty"`
	Department  string `json:"department,omitempty"`
	Verified    bool   `json:"verified"`
	CaptureTime string `json:"capture_time,omitempty"`
}

// Dispatcher serves the /command websocket endpoint.
type Dispatcher struct {
	gate     *gate.Service
	registry *registry.Registry
	sessions *session.Context
	ledger   *ledger.Ledger
	timeout  time.Duration
	upgrader websocket.Upgrader
}

// NewDispatcher creates a dispatcher. timeout bounds both the wait for a
// binary payload and the encode-plus-storage work of a single command.
func NewDispatcher(g *gate.Service, reg *registry.Registry, sessions *session.Context, lg *ledger.Ledger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		gate:     g,
		registry: reg,
		sessions: sessions,
		ledger:   lg,
		timeout:  timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Terminals connect from kiosk devices, not browsers.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle upgrades the connection and runs the command loop until the
// client disconnects.
func (d *Dispatcher) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxFrameSize)
	d.serve(conn)
}

func (d *Dispatcher) serve(conn *websocket.Conn) {
	// Set when a two-phase command is rejected before its payload read:
	// the client has typically queued the image already, so the next
	// binary frame is stale and gets dropped instead of bounced.
	stalePayload := false

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			if stalePayload {
				stalePayload = false
				continue
			}
			d.send(conn, errEnvelope("Unsupported data type."))
			continue
		}
		stalePayload = false

		var head struct {
			Cmd string `json:"cmd"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			d.send(conn, errEnvelope("Invalid JSON data."))
			continue
		}

		switch head.Cmd {
		case "enroll_face":
			stalePayload, err = d.enrollFace(conn, data)
		case "verify_face":
			stalePayload, err = d.verifyFace(conn, data)
		case "enroll_user":
			d.enrollUser(conn, data)
		case "start_class":
			d.startClass(conn, data)
		case "log_attendance":
			d.logAttendance(conn, data)
		default:
			d.send(conn, errEnvelope("Invalid command."))
		}
		if err != nil {
			// Transport failure while waiting for a payload.
			return
		}
	}
}

// readPayload performs the second receive of a two-phase command. The wait
// is bounded: a client that never sends its image frees the worker after
// the timeout instead of blocking forever.
func (d *Dispatcher) readPayload(conn *websocket.Conn) ([]byte, bool, error) {
	if err := conn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
		return nil, false, err
	}
	defer conn.SetReadDeadline(time.Time{})

	mt, data, err := conn.ReadMessage()
	if err != nil {
		return nil, false, err
	}
	if mt != websocket.BinaryMessage {
		d.send(conn, errEnvelope("Invalid data type."))
		return nil, false, nil
	}
	return data, true, nil
}

func (d *Dispatcher) enrollFace(conn *websocket.Conn, data []byte) (stale bool, _ error) {
	var cmd enrollFaceCmd
	if err := decodeStrict(data, &cmd); err != nil || cmd.MatricNo == "" {
		d.send(conn, errEnvelope("Invalid command parameters."))
		return true, nil
	}

	payload, ok, err := d.readPayload(conn)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	switch err := d.registry.EnrollWithFace(ctx, cmd.MatricNo, cmd.Level, cmd.Department, payload); {
	case errors.Is(err, faceid.ErrNoFaceDetected):
		d.send(conn, errEnvelope("No face detected"))
	case errors.Is(err, faceid.ErrMultipleFacesDetected):
		d.send(conn, errEnvelope("Multiple faces detected"))
	case errors.Is(err, context.DeadlineExceeded):
		d.send(conn, errEnvelope("Command timed out."))
	case err != nil:
		log.Printf("enroll_face failed for %s: %v", cmd.MatricNo, err)
		d.send(conn, errEnvelope("Error processing user."))
	default:
		d.send(conn, okEnvelope(fmt.Sprintf("%s enrolled successfully", cmd.MatricNo)))
	}
	return false, nil
}

func (d *Dispatcher) verifyFace(conn *websocket.Conn, data []byte) (stale bool, _ error) {
	var cmd verifyFaceCmd
	if err := decodeStrict(data, &cmd); err != nil {
		d.send(conn, errEnvelope("Invalid command parameters."))
		return true, nil
	}

	var captureTime time.Time
	if cmd.CaptureTime != "" {
		var err error
		captureTime, err = time.Parse(time.RFC3339, cmd.CaptureTime)
		if err != nil {
			d.send(conn, errEnvelope("Invalid command parameters."))
			return true, nil
		}
	}

	payload, ok, err := d.readPayload(conn)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	out, err := d.gate.Recognize(ctx, gate.Attempt{
		ImageData:   payload,
		MatricNo:    cmd.MatricNo,
		Level:       cmd.Level,
		Department:  cmd.Department,
		CaptureTime: captureTime,
	})
	switch {
	case errors.Is(err, faceid.ErrNoFaceDetected):
		d.send(conn, withVerified(errEnvelope("No face detected"), false))
	case errors.Is(err, faceid.ErrMultipleFacesDetected):
		d.send(conn, withVerified(errEnvelope("Multiple faces detected"), false))
	case errors.Is(err, faceid.ErrUserNotRegistered):
		d.send(conn, withVerified(errEnvelope("User not registered"), false))
	case errors.Is(err, context.DeadlineExceeded):
		d.send(conn, errEnvelope("Command timed out."))
	case err != nil:
		log.Printf("verify_face failed: %v", err)
		d.send(conn, errEnvelope("Error processing image."))
	case out.Verified:
		d.send(conn, withVerified(okEnvelope(fmt.Sprintf("%s recognized successfully", out.MatricNo)), true))
	default:
		d.send(conn, withVerified(okEnvelope(fmt.Sprintf("%s not verified", out.MatricNo)), false))
	}
	return false, nil
}

func (d *Dispatcher) enrollUser(conn *websocket.Conn, data []byte) {
	var cmd enrollUserCmd
	if err := decodeStrict(data, &cmd); err != nil || cmd.MatricNo == "" {
		d.send(conn, errEnvelope("Invalid command parameters."))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	switch err := d.registry.EnrollBiodata(ctx, registry.Biodata{
		Username:    cmd.Username,
		MatricNo:    cmd.MatricNo,
		CollegeCode: cmd.College,
		FprintID:    cmd.FprintID,
		CardUID:     cmd.CardUID,
	}); {
	case errors.Is(err, registry.ErrInvalidUsername):
		d.send(conn, errEnvelope("Invalid username"))
	case errors.Is(err, context.DeadlineExceeded):
		d.send(conn, errEnvelope("Command timed out."))
	case err != nil:
		log.Printf("enroll_user failed for %s: %v", cmd.MatricNo, err)
		d.send(conn, errEnvelope("Error processing user."))
	default:
		d.send(conn, okEnvelope(fmt.Sprintf("%s enrolled successfully", cmd.MatricNo)))
	}
}

func (d *Dispatcher) startClass(conn *websocket.Conn, data []byte) {
	var cmd startClassCmd
	if err := decodeStrict(data, &cmd); err != nil || cmd.Code == "" {
		d.send(conn, errEnvelope("Invalid command parameters."))
		return
	}

	startTime, err := time.Parse(startTimeLayout, cmd.StartTime)
	if err != nil {
		d.send(conn, errEnvelope("Invalid start time."))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	id, err := d.sessions.Start(ctx, session.Details{
		CourseCode:    cmd.Code,
		Venue:         cmd.Venue,
		StartTime:     startTime,
		DurationHours: cmd.Duration,
		AuthMode:      cmd.AuthMode,
		Department:    cmd.Department,
		Level:         cmd.Level,
	})
	if err != nil {
		log.Printf("start_class failed for %s: %v", cmd.Code, err)
		d.send(conn, errEnvelope("Error starting class."))
		return
	}
	d.send(conn, okEnvelope(fmt.Sprintf("Class %d started successfully", id)))
}

func (d *Dispatcher) logAttendance(conn *websocket.Conn, data []byte) {
	var cmd logAttendanceCmd
	if err := decodeStrict(data, &cmd); err != nil || cmd.MatricNo == "" {
		d.send(conn, errEnvelope("Invalid command parameters."))
		return
	}

	var captureTime time.Time
	if cmd.CaptureTime != "" {
		var err error
		captureTime, err = time.Parse(time.RFC3339, cmd.CaptureTime)
		if err != nil {
			d.send(conn, errEnvelope("Invalid command parameters."))
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if _, err := d.ledger.Append(ctx, ledger.Entry{
		MatricNo:    cmd.MatricNo,
		ClassID:     cmd.ClassID,
		Level:       cmd.Level,
		Department:  cmd.Department,
		Verified:    cmd.Verified,
		CaptureTime: captureTime,
	}); err != nil {
		log.Printf("log_attendance failed for %s: %v", cmd.MatricNo, err)
		d.send(conn, errEnvelope("Error logging attendance."))
		return
	}
	d.send(conn, okEnvelope("Attendance logged successfully"))
}

func (d *Dispatcher) send(conn *websocket.Conn, e Envelope) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("marshaling response: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("writing response: %v", err)
	}
}

// decodeStrict rejects envelopes carrying unknown fields, so a typo in a
// parameter name fails loudly instead of silently defaulting.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
