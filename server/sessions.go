package server

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/lox"
	"github.com/chazu/lox/interpreter"
)

// Session is a workspace with its own interpreter, so globals defined by one
// Evaluate call are visible to the next.
type Session struct {
	ID      string
	Name    string
	Created time.Time

	runner *lox.Runner
	out    *bytes.Buffer
}

// run executes source until it finishes or ctx is done, and returns the
// result with everything it printed. Must be called on the worker goroutine.
func (s *Session) run(ctx context.Context, source string) (lox.Result, string) {
	s.out.Reset()
	res := s.runner.RunContext(ctx, source)
	return res, s.out.String()
}

func newSession(id, name string, opts []interpreter.Option) *Session {
	out := &bytes.Buffer{}
	return &Session{
		ID:      id,
		Name:    name,
		Created: time.Now(),
		runner: lox.NewRunner(
			lox.WithStdout(out),
			lox.WithStderr(io.Discard),
			lox.WithInterpreterOptions(opts...),
		),
		out: out,
	}
}

// SessionStore manages workspace sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     []interpreter.Option
}

// NewSessionStore creates a session store. Every session's interpreter is
// built with opts.
func NewSessionStore(opts ...interpreter.Option) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// Create creates a new session with an optional name.
func (s *SessionStore) Create(name string) *Session {
	session := newSession(uuid.NewString(), name, s.opts)

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

// Scratch returns a session that is not stored, for one-off evaluations.
func (s *SessionStore) Scratch() *Session {
	return newSession("", "", s.opts)
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	return session, ok
}

// Destroy removes a session. It reports whether the session existed.
func (s *SessionStore) Destroy(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
