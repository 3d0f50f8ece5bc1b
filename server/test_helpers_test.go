package server

import (
	"context"
	"os"
	"testing"

	"github.com/chazu/lox/history"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
//
// One worker serves every test; each test builds its own session store so
// globals never leak between tests.
// ---------------------------------------------------------------------------

var testWorker *Worker

func TestMain(m *testing.M) {
	testWorker = NewWorker()

	code := m.Run()

	testWorker.Stop()
	os.Exit(code)
}

// newTestEvalService creates an EvalService on the shared worker, without
// history.
func newTestEvalService() *EvalService {
	return NewEvalService(testWorker, NewSessionStore(), nil, nil)
}

// newTestEvalServiceWithHistory also records submissions in an in-memory
// history store.
func newTestEvalServiceWithHistory(t *testing.T) *EvalService {
	t.Helper()
	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewEvalService(testWorker, NewSessionStore(), store, nil)
}

func bg() context.Context {
	return context.Background()
}
