package faceid

import (
	"context"
	"fmt"

	"github.com/facegate/facegate/internal/database"
)

// Index is an optional in-memory nearest-neighbour index over enrolled
// identities. When absent, searches go straight to the database.
type Index interface {
	// Nearest returns the closest enrolled identity, or false if the index
	// is empty.
	Nearest(query []float32) (*database.Candidate, bool)
	// Ready reports whether the index has been built.
	Ready() bool
}

// Match is the outcome of a verification attempt. Verified is a pure
// function of Distance and the threshold at decision time.
type Match struct {
	MatricNo string
	Distance float64
	Verified bool
}

// Matcher finds the nearest enrolled identity for an embedding and applies
// the verification threshold. It performs no ledger writes.
type Matcher struct {
	identities database.IdentityReader
	index      Index // may be nil
	threshold  float64
}

// NewMatcher creates a matcher backed by the identity repository. The index
// is optional and only accelerates 1:N searches.
func NewMatcher(identities database.IdentityReader, index Index, threshold float64) *Matcher {
	return &Matcher{
		identities: identities,
		index:      index,
		threshold:  threshold,
	}
}

// Threshold returns the configured maximum verified distance.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Decision applies the verification rule: a match is verified when its L2
// distance is strictly below the threshold.
func (m *Matcher) Decision(distance float64) bool {
	return distance < m.threshold
}

// VerifyAll runs a 1:N identification across every enrolled identity.
// Returns ErrUserNotRegistered when nobody is enrolled.
func (m *Matcher) VerifyAll(ctx context.Context, embedding []float32) (*Match, error) {
	if m.index != nil && m.index.Ready() {
		if cand, ok := m.index.Nearest(embedding); ok {
			return m.decide(cand), nil
		}
		return nil, ErrUserNotRegistered
	}

	cand, err := m.identities.NearestAll(ctx, embedding)
	if err != nil {
		return nil, fmt.Errorf("searching enrolled identities: %w", err)
	}
	if cand == nil {
		return nil, ErrUserNotRegistered
	}
	return m.decide(cand), nil
}

// VerifyOne runs a 1:1 check against a single named identity. Returns
// ErrUserNotRegistered when that identity does not exist or has no
// embedding.
func (m *Matcher) VerifyOne(ctx context.Context, embedding []float32, matricNo string) (*Match, error) {
	cand, err := m.identities.NearestTo(ctx, embedding, matricNo)
	if err != nil {
		return nil, fmt.Errorf("checking identity %s: %w", matricNo, err)
	}
	if cand == nil {
		return nil, ErrUserNotRegistered
	}
	return m.decide(cand), nil
}

func (m *Matcher) decide(cand *database.Candidate) *Match {
	return &Match{
		MatricNo: cand.MatricNo,
		Distance: cand.Distance,
		Verified: m.Decision(cand.Distance),
	}
}
