package server

import "github.com/chazu/lox/compiler"

// Messages exchanged by EvalService. The same structs travel over Connect
// and gRPC; both codecs read the json tags.

type EvaluateRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Source    string `json:"source"`
}

type EvaluateResponse struct {
	Success     bool         `json:"success"`
	Output      string       `json:"output,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	SessionID   string       `json:"session_id,omitempty"`
}

// Diagnostic is the wire form of compiler.Diagnostic.
type Diagnostic struct {
	Line    int    `json:"line"`
	Where   string `json:"where,omitempty"`
	Message string `json:"message"`
	Runtime bool   `json:"runtime,omitempty"`
}

// String formats d the way the command-line runner prints it.
func (d Diagnostic) String() string {
	return compiler.Diagnostic{
		Line:    d.Line,
		Where:   d.Where,
		Message: d.Message,
		Runtime: d.Runtime,
	}.String()
}

type CheckSyntaxRequest struct {
	Source string `json:"source"`
}

type CheckSyntaxResponse struct {
	Valid       bool         `json:"valid"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

type CreateSessionRequest struct {
	Name string `json:"name,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type DestroySessionRequest struct {
	SessionID string `json:"session_id"`
}

type DestroySessionResponse struct{}

type HistoryRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries,omitempty"`
}

type HistoryEntry struct {
	Source string `json:"source"`
	OK     bool   `json:"ok"`
	At     int64  `json:"at"` // unix nanoseconds
}

func toDiagnostics(diags []compiler.Diagnostic) []Diagnostic {
	if len(diags) == 0 {
		return nil
	}
	out := make([]Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = Diagnostic{
			Line:    d.Line,
			Where:   d.Where,
			Message: d.Message,
			Runtime: d.Runtime,
		}
	}
	return out
}
