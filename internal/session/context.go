// Package session owns the process-wide "current class" pointer. A session
// starts when the lecturer sends start_class and is superseded by the next
// start; there is no explicit end-of-class transition.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/facegate/facegate/internal/database"
)

// Details carries the fields of a start_class request.
type Details struct {
	CourseCode    string
	Venue         string
	StartTime     time.Time
	DurationHours int
	AuthMode      string
	Department    string
	Level         string
}

// Current is a snapshot of the active session.
type Current struct {
	ID         int64
	CourseCode string
	StartedAt  time.Time
}

// Context tracks the currently active class session. The pointer is only
// ever replaced with an id already committed by the class insert, so
// readers never observe a half-written session.
type Context struct {
	mu      sync.RWMutex
	classes database.ClassWriter
	current *Current
}

// NewContext creates an idle session context.
func NewContext(classes database.ClassWriter) *Context {
	return &Context{classes: classes}
}

// Start persists the session and atomically replaces the current-session
// pointer with the id returned by the write. Concurrent starts serialize;
// the last commit wins.
func (c *Context) Start(ctx context.Context, d Details) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.classes.Insert(ctx, database.ClassSession{
		CourseCode:    d.CourseCode,
		Venue:         d.Venue,
		StartTime:     d.StartTime,
		DurationHours: d.DurationHours,
		AuthMode:      d.AuthMode,
		Department:    d.Department,
		Level:         d.Level,
		Date:          time.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("starting class %s: %w", d.CourseCode, err)
	}

	c.current = &Current{
		ID:         id,
		CourseCode: d.CourseCode,
		StartedAt:  time.Now(),
	}
	return id, nil
}

// Current returns a copy of the active session, or nil when idle.
func (c *Context) Current() *Current {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil
	}
	cp := *c.current
	return &cp
}

// Active reports whether a session has been started.
func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current != nil
}

// Clear resets the context to idle. There is no protocol operation for
// this; it exists for tests and future explicit end-of-class support.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}
