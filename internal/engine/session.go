package engine

import (
	"context"
	"sync"

	"github.com/mcncl/jsondelta/internal/scheduler"
)

// Session delivers the results of at most one comparison at a time. Each
// Submit supersedes the previous job, which is cancelled rather than merged.
type Session struct {
	engine *Engine

	mu      sync.Mutex
	current *scheduler.Job
}

// NewSession creates a Session backed by e.
func (e *Engine) NewSession() *Session {
	return &Session{engine: e}
}

// Submit cancels the current job, if any, and starts req.
func (s *Session) Submit(ctx context.Context, req Request) *scheduler.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.engine.logger.Debug("superseding comparison", "job", s.current.ID)
		s.current.Cancel()
	}
	s.current = s.engine.Start(ctx, req)
	return s.current
}

// Current returns the most recently submitted job, or nil.
func (s *Session) Current() *scheduler.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// IsCurrent reports whether job is the one whose results should be shown.
func (s *Session) IsCurrent(job *scheduler.Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return job != nil && s.current == job
}

// Cancel cancels the current job without starting another.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Cancel()
		s.current = nil
	}
}
