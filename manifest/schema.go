package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schemaSource constrains lox.toml. Definitions are closed, so unknown
// sections and keys are rejected.
const schemaSource = `
#Manifest: {
	project?: {
		name?:  string
		entry?: string
	}
	repl?: {
		prompt?:  string
		history?: string
	}
	server?: {
		addr?:        string
		"grpc-addr"?: string
	}
	interpreter?: {
		"max-call-depth"?: int & >0
	}
	log?: {
		verbosity?: int & >=-4 & <=2
		file?:      string
	}
}
`

// validate checks a decoded TOML document against the schema.
func validate(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource).LookupPath(cue.ParsePath("#Manifest"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("manifest schema: %w", err)
	}

	if raw == nil {
		raw = map[string]any{}
	}
	value := ctx.Encode(raw)
	if err := value.Err(); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	return nil
}
