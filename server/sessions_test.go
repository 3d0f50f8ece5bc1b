package server

import (
	"testing"

	"github.com/chazu/lox/interpreter"
)

func TestSessionStore(t *testing.T) {
	store := NewSessionStore()

	s := store.Create("first")
	if s.ID == "" || s.Name != "first" {
		t.Fatalf("Create = %+v", s)
	}
	if s.Created.IsZero() {
		t.Error("Created not set")
	}
	if got, ok := store.Get(s.ID); !ok || got != s {
		t.Errorf("Get(%q) = %v, %v", s.ID, got, ok)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}

	if !store.Destroy(s.ID) {
		t.Error("Destroy returned false for a live session")
	}
	if store.Destroy(s.ID) {
		t.Error("Destroy returned true twice")
	}
	if _, ok := store.Get(s.ID); ok {
		t.Error("session still present after Destroy")
	}
}

func TestSessionStore_ScratchNotStored(t *testing.T) {
	store := NewSessionStore()
	s := store.Scratch()
	if s.ID != "" {
		t.Errorf("scratch ID = %q, want empty", s.ID)
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}

func TestSession_RunCapturesOutputPerCall(t *testing.T) {
	s := NewSessionStore().Create("")

	_, out := s.run(bg(), "print 1;")
	if out != "1\n" {
		t.Errorf("first output = %q", out)
	}
	_, out = s.run(bg(), "print 2;")
	if out != "2\n" {
		t.Errorf("second output = %q, want only the latest run", out)
	}
}

func TestSession_InterpreterOptions(t *testing.T) {
	store := NewSessionStore(interpreter.WithMaxDepth(50))
	s := store.Create("")

	res, _ := s.run(bg(), "fun f(n) { if (n > 0) f(n - 1); }\nf(100);")
	if !res.HadRuntimeError {
		t.Fatal("expected stack overflow with a depth limit of 50")
	}
	if msg := res.Diagnostics[0].Message; msg != "Stack overflow." {
		t.Errorf("message = %q", msg)
	}
}
