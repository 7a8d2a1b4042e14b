package bridge

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/reaxar"
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithName labels the session in diagnostics.
func WithName(name string) SessionOption {
	return func(s *Session) {
		s.name = name
	}
}

// WithContext sets the parent context for fetches started by the session.
// The session's own context is cancelled on Dispose.
func WithContext(ctx context.Context) SessionOption {
	return func(s *Session) {
		s.parentCtx = ctx
	}
}

// WithErrorBoundary sets the function that receives mapped fetch errors.
// It may be called from a background goroutine. Without a boundary, raised
// errors are logged at error level.
func WithErrorBoundary(fn func(error)) SessionOption {
	return func(s *Session) {
		s.boundary = fn
	}
}

// Session ties bindings and fetches to one UI component lifetime.
type Session struct {
	rt        *reaxar.Runtime
	name      string
	logger    *slog.Logger
	boundary  func(error)
	parentCtx context.Context

	ctx    context.Context
	cancel context.CancelFunc

	parent *Session

	children   []*Session
	childrenMu sync.Mutex

	cleanups   []func()
	cleanupsMu sync.Mutex

	disposed atomic.Bool
}

// NewSession creates a session bound to rt.
func NewSession(rt *reaxar.Runtime, opts ...SessionOption) *Session {
	s := &Session{rt: rt}
	for _, opt := range opts {
		opt(s)
	}
	if s.parentCtx == nil {
		s.parentCtx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(s.parentCtx)
	s.logger = rt.Logger()
	if s.name != "" {
		s.logger = s.logger.With("session", s.name)
	}
	return s
}

// Child creates a session that is disposed together with s. It inherits the
// error boundary and context of s.
func (s *Session) Child(name string) *Session {
	child := NewSession(s.rt,
		WithName(name),
		WithContext(s.ctx),
		WithErrorBoundary(s.boundary),
	)
	child.parent = s

	if s.disposed.Load() {
		child.Dispose()
		return child
	}
	s.childrenMu.Lock()
	s.children = append(s.children, child)
	s.childrenMu.Unlock()
	return child
}

// Runtime returns the runtime the session was created with.
func (s *Session) Runtime() *reaxar.Runtime {
	return s.rt
}

// Name returns the session name.
func (s *Session) Name() string {
	return s.name
}

// Context returns the session context. It is cancelled on Dispose.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Logger returns the session's logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Disposed reports whether Dispose has been called.
func (s *Session) Disposed() bool {
	return s.disposed.Load()
}

// OnCleanup registers fn to run on Dispose. If the session is already
// disposed, fn runs immediately.
func (s *Session) OnCleanup(fn func()) {
	if s.disposed.Load() {
		fn()
		return
	}

	s.cleanupsMu.Lock()
	if s.disposed.Load() {
		s.cleanupsMu.Unlock()
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
	s.cleanupsMu.Unlock()
}

// Dispose releases everything the session owns: child sessions first, then
// cleanups in reverse registration order. Calling it twice is a no-op.
func (s *Session) Dispose() {
	if s.disposed.Swap(true) {
		return
	}
	s.cancel()

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	s.childrenMu.Lock()
	children := s.children
	s.children = nil
	s.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	s.cleanupsMu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

func (s *Session) removeChild(child *Session) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()

	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// raise hands err to the error boundary.
func (s *Session) raise(err error) {
	if err == nil {
		return
	}
	if s.boundary != nil {
		s.boundary(err)
		return
	}
	s.logger.Error("unhandled fetch error", "error", err)
}

// observer returns the runtime observer, or nil.
func (s *Session) observer() reaxar.Observer {
	return s.rt.Observer()
}
