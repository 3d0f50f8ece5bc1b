package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/lox"
	"github.com/chazu/lox/history"
)

// scratchHistory is the history key for evaluations without a session. It
// keeps them apart from the local REPL, which records under "".
const scratchHistory = "scratch"

// EvalService evaluates Lox source for remote clients. It is transport
// neutral: NewConnectHandler and NewGRPCServer expose the same instance.
type EvalService struct {
	worker   *Worker
	sessions *SessionStore
	history  *history.Store // may be nil
	log      commonlog.Logger
	timeout  time.Duration // per Evaluate; zero means only the request context
}

// NewEvalService creates an EvalService. A nil history store disables
// recording.
func NewEvalService(worker *Worker, sessions *SessionStore, hist *history.Store, log commonlog.Logger) *EvalService {
	if log == nil {
		log = commonlog.GetLogger("lox.server")
	}
	return &EvalService{
		worker:   worker,
		sessions: sessions,
		history:  hist,
		log:      log,
	}
}

// evalResult carries the outcome of a run off the worker goroutine.
type evalResult struct {
	res    lox.Result
	output string
}

// Evaluate runs source. With a session ID the session's globals are used and
// kept; without one the source runs in a fresh interpreter.
func (s *EvalService) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	if req.Source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	var session *Session
	if req.SessionID == "" {
		session = s.sessions.Scratch()
	} else {
		var ok bool
		session, ok = s.sessions.Get(req.SessionID)
		if !ok {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", req.SessionID))
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	v, err := s.worker.Do(ctx, func() (any, error) {
		res, output := session.run(ctx, req.Source)
		return evalResult{res: res, output: output}, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrWorkerStopped):
			return nil, connect.NewError(connect.CodeUnavailable, err)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, connect.NewError(connect.CodeDeadlineExceeded, err)
		case errors.Is(err, context.Canceled):
			return nil, connect.NewError(connect.CodeCanceled, err)
		}
		s.log.Errorf("evaluate: %s", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	out := v.(evalResult)

	s.record(context.WithoutCancel(ctx), historyKey(req.SessionID), req.Source, out.res.OK())
	s.log.Debugf("evaluated %d statements in %s (session %q)", out.res.Statements, out.res.Elapsed, req.SessionID)

	return &EvaluateResponse{
		Success:     out.res.OK(),
		Output:      out.output,
		Diagnostics: toDiagnostics(out.res.Diagnostics),
		SessionID:   req.SessionID,
	}, nil
}

// CheckSyntax scans, parses and resolves source without running it.
func (s *EvalService) CheckSyntax(ctx context.Context, req *CheckSyntaxRequest) (*CheckSyntaxResponse, error) {
	diags := lox.Check(req.Source)
	return &CheckSyntaxResponse{
		Valid:       len(diags) == 0,
		Diagnostics: toDiagnostics(diags),
	}, nil
}

// CreateSession starts a session with its own globals.
func (s *EvalService) CreateSession(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error) {
	session := s.sessions.Create(req.Name)
	s.log.Infof("created session %s %q", session.ID, session.Name)
	return &CreateSessionResponse{SessionID: session.ID}, nil
}

// DestroySession drops a session and its history.
func (s *EvalService) DestroySession(ctx context.Context, req *DestroySessionRequest) (*DestroySessionResponse, error) {
	if req.SessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("session_id is required"))
	}
	if !s.sessions.Destroy(req.SessionID) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", req.SessionID))
	}
	if s.history != nil {
		if err := s.history.Clear(ctx, req.SessionID); err != nil {
			s.log.Warningf("clearing history of %s: %s", req.SessionID, err)
		}
	}
	s.log.Infof("destroyed session %s", req.SessionID)
	return &DestroySessionResponse{}, nil
}

// History lists the latest submissions of a session, oldest first.
func (s *EvalService) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	if s.history == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, fmt.Errorf("history is disabled"))
	}
	entries, err := s.history.Recent(ctx, historyKey(req.SessionID), req.Limit)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	resp := &HistoryResponse{}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, HistoryEntry{
			Source: e.Source,
			OK:     e.OK,
			At:     e.At.UnixNano(),
		})
	}
	return resp, nil
}

func historyKey(sessionID string) string {
	if sessionID == "" {
		return scratchHistory
	}
	return sessionID
}

func (s *EvalService) record(ctx context.Context, session, source string, ok bool) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, session, source, ok); err != nil {
		s.log.Warningf("recording history: %s", err)
	}
}
