package server

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/lox/compiler"
)

// Names the interpreter defines before any user code runs.
var nativeNames = map[string]string{
	"clock": "fun clock()",
}

type declKind int

const (
	declVar declKind = iota
	declFunction
	declClass
	declMethod
	declParam
)

// declaration is a name introduced by a var, fun or class statement, a
// method, or a parameter.
type declaration struct {
	name   compiler.Token
	kind   declKind
	detail string // source-like signature shown on hover
	class  string // enclosing class, for methods
	top    bool   // declared at the top level of the document
}

// docIndex is the static view of one open document. It is rebuilt on every
// change; nothing is executed.
type docIndex struct {
	text  string
	stmts []compiler.Stmt
	decls []declaration
	refs  []compiler.Token // identifier uses: variables, assignments, properties
	diags []compiler.Diagnostic
}

func indexDocument(text string) *docIndex {
	diags := compiler.NewDiagnostics(nil)
	idx := &docIndex{text: text, stmts: compiler.Parse(text, diags)}
	if !diags.HadError() {
		compiler.Resolve(idx.stmts, diags)
	}
	idx.diags = diags.Entries()

	top := make(map[compiler.Stmt]bool, len(idx.stmts))
	for _, stmt := range idx.stmts {
		top[stmt] = true
	}
	methods := make(map[*compiler.Function]bool)

	compiler.InspectAll(idx.stmts, func(n compiler.Node) bool {
		switch n := n.(type) {
		case *compiler.Var:
			idx.declare(n.Name, declVar, "var "+n.Name.Lexeme, "", top[n])
		case *compiler.Class:
			detail := "class " + n.Name.Lexeme
			if n.Superclass != nil {
				detail += " < " + n.Superclass.Name.Lexeme
			}
			idx.declare(n.Name, declClass, detail, "", top[n])
			for _, m := range n.Methods {
				methods[m] = true
				idx.declare(m.Name, declMethod, signature(m, ""), n.Name.Lexeme, false)
			}
		case *compiler.Function:
			if !methods[n] {
				idx.declare(n.Name, declFunction, signature(n, "fun "), "", top[n])
			}
			for _, p := range n.Params {
				idx.declare(p, declParam, "parameter "+p.Lexeme+" of "+n.Name.Lexeme, "", false)
			}
		case *compiler.Variable:
			idx.refs = append(idx.refs, n.Name)
		case *compiler.Assign:
			idx.refs = append(idx.refs, n.Name)
		case *compiler.Get:
			idx.refs = append(idx.refs, n.Name)
		case *compiler.Set:
			idx.refs = append(idx.refs, n.Name)
		case *compiler.Super:
			idx.refs = append(idx.refs, n.Method)
		}
		return true
	})
	return idx
}

func (idx *docIndex) declare(name compiler.Token, kind declKind, detail, class string, top bool) {
	idx.decls = append(idx.decls, declaration{
		name:   name,
		kind:   kind,
		detail: detail,
		class:  class,
		top:    top,
	})
}

func signature(fn *compiler.Function, prefix string) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Lexeme
	}
	return fmt.Sprintf("%s%s(%s)", prefix, fn.Name.Lexeme, strings.Join(params, ", "))
}

// lookup returns the declaration of name that best matches a use at
// offset: the closest one before it, else the first one after it.
func (idx *docIndex) lookup(name string, offset int) (declaration, bool) {
	var (
		best  declaration
		found bool
	)
	for _, d := range idx.decls {
		if d.name.Lexeme != name {
			continue
		}
		if d.name.Offset <= offset && (!found || d.name.Offset > best.name.Offset) {
			best, found = d, true
		}
	}
	if found {
		return best, true
	}
	for _, d := range idx.decls {
		if d.name.Lexeme == name {
			return d, true
		}
	}
	return declaration{}, false
}

// occurrences returns every declaration and use of name, in source order.
func (idx *docIndex) occurrences(name string) []compiler.Token {
	var toks []compiler.Token
	for _, d := range idx.decls {
		if d.name.Lexeme == name {
			toks = append(toks, d.name)
		}
	}
	for _, ref := range idx.refs {
		if ref.Lexeme == name {
			toks = append(toks, ref)
		}
	}
	sort.Slice(toks, func(i, j int) bool { return toks[i].Offset < toks[j].Offset })
	return toks
}

// --- LSP conversions ---

func (idx *docIndex) diagnostics() []protocol.Diagnostic {
	lines := strings.Split(idx.text, "\n")
	severity := protocol.DiagnosticSeverityError
	source := lspName

	diagnostics := []protocol.Diagnostic{}
	for _, d := range idx.diags {
		line := d.Line - 1
		if line < 0 {
			line = 0
		}
		end := 0
		if line < len(lines) {
			end = utf16Len(lines[line])
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(line)},
				End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(end)},
			},
			Severity: &severity,
			Source:   &source,
			Message:  fmt.Sprintf("Error%s: %s", d.Where, d.Message),
		})
	}
	return diagnostics
}

func (idx *docIndex) symbols() []protocol.DocumentSymbol {
	var (
		symbols []protocol.DocumentSymbol
		classes = make(map[string]int)
	)
	for _, d := range idx.decls {
		detail := d.detail
		sym := protocol.DocumentSymbol{
			Name:           d.name.Lexeme,
			Detail:         &detail,
			Range:          idx.tokenRange(d.name),
			SelectionRange: idx.tokenRange(d.name),
		}
		switch {
		case d.kind == declMethod:
			i, ok := classes[d.class]
			if !ok {
				continue
			}
			sym.Kind = protocol.SymbolKindMethod
			symbols[i].Children = append(symbols[i].Children, sym)
			continue
		case !d.top:
			continue
		case d.kind == declClass:
			sym.Kind = protocol.SymbolKindClass
			classes[d.name.Lexeme] = len(symbols)
		case d.kind == declFunction:
			sym.Kind = protocol.SymbolKindFunction
		default:
			sym.Kind = protocol.SymbolKindVariable
		}
		symbols = append(symbols, sym)
	}
	return symbols
}

func (idx *docIndex) hover(word string, offset int) *protocol.Hover {
	var b strings.Builder
	if d, ok := idx.lookup(word, offset); ok {
		fmt.Fprintf(&b, "```lox\n%s\n```", d.detail)
		switch d.kind {
		case declMethod:
			fmt.Fprintf(&b, "\n\nmethod of class **%s**", d.class)
		case declClass:
			if n := idx.methodCount(word); n > 0 {
				fmt.Fprintf(&b, "\n\n%d methods", n)
			}
		}
	} else if sig, ok := nativeNames[word]; ok {
		fmt.Fprintf(&b, "```lox\n%s\n```\n\nnative function", sig)
	} else {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func (idx *docIndex) methodCount(class string) int {
	n := 0
	for _, d := range idx.decls {
		if d.kind == declMethod && d.class == class {
			n++
		}
	}
	return n
}

func (idx *docIndex) complete(prefix string, member bool) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	lowerPrefix := strings.ToLower(prefix)

	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if seen[label] || !strings.HasPrefix(strings.ToLower(label), lowerPrefix) {
			return
		}
		seen[label] = true
		labelCopy := label
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &labelCopy,
		})
	}

	if member {
		// After a dot only methods and properties make sense.
		for _, d := range idx.decls {
			if d.kind == declMethod {
				add(d.name.Lexeme, protocol.CompletionItemKindMethod, d.class+"."+d.detail)
			}
		}
		for _, ref := range idx.refs {
			if idx.isProperty(ref) {
				add(ref.Lexeme, protocol.CompletionItemKindField, "property")
			}
		}
	} else {
		for _, d := range idx.decls {
			switch d.kind {
			case declClass:
				add(d.name.Lexeme, protocol.CompletionItemKindClass, d.detail)
			case declFunction:
				add(d.name.Lexeme, protocol.CompletionItemKindFunction, d.detail)
			case declVar, declParam:
				add(d.name.Lexeme, protocol.CompletionItemKindVariable, d.detail)
			}
		}
		for name, sig := range nativeNames {
			add(name, protocol.CompletionItemKindFunction, sig)
		}
		for _, kw := range compiler.Keywords() {
			add(kw, protocol.CompletionItemKindKeyword, "keyword")
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Label < items[j].Label })

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

// isProperty reports whether ref is the name after a dot.
func (idx *docIndex) isProperty(ref compiler.Token) bool {
	i := ref.Offset - 1
	for i >= 0 && (idx.text[i] == ' ' || idx.text[i] == '\t') {
		i--
	}
	return i >= 0 && idx.text[i] == '.'
}

func (idx *docIndex) tokenRange(tok compiler.Token) protocol.Range {
	return protocol.Range{
		Start: positionAt(idx.text, tok.Offset),
		End:   positionAt(idx.text, tok.Offset+len(tok.Lexeme)),
	}
}

// --- Position helpers ---

// positionAt converts a byte offset to an LSP position, whose character is
// counted in UTF-16 code units.
func positionAt(text string, offset int) protocol.Position {
	if offset > len(text) {
		offset = len(text)
	}
	before := text[:offset]
	line := strings.Count(before, "\n")
	start := strings.LastIndexByte(before, '\n') + 1
	return protocol.Position{
		Line:      protocol.UInteger(line),
		Character: protocol.UInteger(utf16Len(before[start:])),
	}
}

// offsetAt converts an LSP position back to a byte offset, clamped to the
// text.
func offsetAt(text string, pos protocol.Position) int {
	offset := 0
	for line := protocol.UInteger(0); line < pos.Line; line++ {
		i := strings.IndexByte(text[offset:], '\n')
		if i < 0 {
			return len(text)
		}
		offset += i + 1
	}
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		end = len(text) - offset
	}
	return offset + byteColumn(text[offset:offset+end], pos.Character)
}

// byteColumn returns the byte index in line of the UTF-16 column char.
func byteColumn(line string, char protocol.UInteger) int {
	units := 0
	for i, r := range line {
		if protocol.UInteger(units) >= char {
			return i
		}
		units += utf16.RuneLen(r)
	}
	return len(line)
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
