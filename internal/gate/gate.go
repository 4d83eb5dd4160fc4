// Package gate runs the full verification pipeline for one captured frame:
// archive the frame, encode it, match it against the registry and append
// the outcome to the attendance ledger.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/facegate/facegate/internal/evidence"
	"github.com/facegate/facegate/internal/faceid"
	"github.com/facegate/facegate/internal/ledger"
)

// Attempt is one verification request. MatricNo selects the mode: set, the
// frame is checked against that one identity; empty, the whole registry is
// searched.
type Attempt struct {
	ImageData   []byte
	MatricNo    string
	ClassID     *int64
	Level       string
	Department  string
	CaptureTime time.Time
}

// Outcome reports a completed attempt. A row exists in the ledger whenever
// an Outcome is returned; errors mean nothing was logged.
type Outcome struct {
	MatricNo    string
	Distance    float64
	Verified    bool
	EvidenceRef string
	RecordID    int64
}

// Service wires the matcher, evidence store and ledger together.
type Service struct {
	encoder  faceid.Encoder
	matcher  *faceid.Matcher
	evidence *evidence.Store
	ledger   *ledger.Ledger
}

// New creates the verification service.
func New(encoder faceid.Encoder, matcher *faceid.Matcher, ev *evidence.Store, lg *ledger.Ledger) *Service {
	return &Service{
		encoder:  encoder,
		matcher:  matcher,
		evidence: ev,
		ledger:   lg,
	}
}

// Recognize runs one attempt. The frame is archived before matching so
// failed attempts stay auditable. Encoding failures and a one-to-many
// search that finds nobody close enough return an error and write no
// ledger row; a one-to-one check always writes its row, verified or not.
func (s *Service) Recognize(ctx context.Context, a Attempt) (*Outcome, error) {
	ref, err := s.evidence.Save(a.ImageData, a.MatricNo)
	if err != nil {
		return nil, fmt.Errorf("archiving capture: %w", err)
	}

	embedding, err := s.encoder.Encode(ctx, a.ImageData)
	if err != nil {
		return nil, err
	}

	var match *faceid.Match
	if a.MatricNo != "" {
		match, err = s.matcher.VerifyOne(ctx, embedding, a.MatricNo)
	} else {
		match, err = s.matcher.VerifyAll(ctx, embedding)
	}
	if err != nil {
		return nil, err
	}
	if a.MatricNo == "" && !match.Verified {
		return nil, faceid.ErrUserNotRegistered
	}

	confidence := match.Distance
	recordID, err := s.ledger.Append(ctx, ledger.Entry{
		MatricNo:    match.MatricNo,
		ClassID:     a.ClassID,
		Level:       a.Level,
		Department:  a.Department,
		Verified:    match.Verified,
		Confidence:  &confidence,
		CaptureTime: a.CaptureTime,
		EvidenceRef: ref,
	})
	if err != nil {
		return nil, err
	}

	return &Outcome{
		MatricNo:    match.MatricNo,
		Distance:    match.Distance,
		Verified:    match.Verified,
		EvidenceRef: ref,
		RecordID:    recordID,
	}, nil
}
