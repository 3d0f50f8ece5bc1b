// Package manifest handles lox.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project manifest.
const FileName = "lox.toml"

// ErrNotFound is returned by FindAndLoad when no manifest exists between the
// start directory and the filesystem root.
var ErrNotFound = errors.New("no " + FileName + " found")

// Manifest represents a lox.toml project configuration.
type Manifest struct {
	Project     Project     `toml:"project"`
	REPL        REPL        `toml:"repl"`
	Server      Server      `toml:"server"`
	Interpreter Interpreter `toml:"interpreter"`
	Log         Log         `toml:"log"`

	// Dir is the directory containing the lox.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"` // script run when no file is given
}

// REPL configures the interactive prompt.
type REPL struct {
	Prompt  string `toml:"prompt"`
	History string `toml:"history"` // path of the history database
}

// Server configures the evaluation server.
type Server struct {
	Addr     string `toml:"addr"`      // Connect (HTTP) listen address
	GRPCAddr string `toml:"grpc-addr"` // gRPC listen address
}

// Interpreter tunes the interpreter.
type Interpreter struct {
	MaxCallDepth int `toml:"max-call-depth"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Defaults returns the configuration used when no manifest is present.
func Defaults() *Manifest {
	return &Manifest{
		REPL:   REPL{Prompt: "> "},
		Server: Server{Addr: "localhost:7878", GRPCAddr: "localhost:7879"},
		Log:    Log{Verbosity: -4},
	}
}

// Load parses and validates the lox.toml file in dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes and validates manifest contents. Keys left out keep their
// values from Defaults.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	m := Defaults()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a lox.toml file, then loads
// and returns the manifest. It returns ErrNotFound if there is none.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, ErrNotFound
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of the entry script, or "" if none is
// configured.
func (m *Manifest) EntryPath() string {
	if m.Project.Entry == "" {
		return ""
	}
	if filepath.IsAbs(m.Project.Entry) {
		return m.Project.Entry
	}
	return filepath.Join(m.Dir, m.Project.Entry)
}

// HistoryPath returns the absolute path of the history database, or "" if
// history is disabled.
func (m *Manifest) HistoryPath() string {
	if m.REPL.History == "" || filepath.IsAbs(m.REPL.History) {
		return m.REPL.History
	}
	return filepath.Join(m.Dir, m.REPL.History)
}
