package structure

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// ErrUnsupportedFormat is returned for file extensions other than .yaml,
// .yml, .json and .cue.
var ErrUnsupportedFormat = errors.New("unsupported structure document format")

// Problem is one schema violation found in a document.
type Problem struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", p.File, p.Line, p.Column, p.Message)
	}
	return fmt.Sprintf("%s: %s", p.File, p.Message)
}

// InvalidError reports a document that does not match the schema.
type InvalidError struct {
	File     string
	Problems []Problem
}

func (e *InvalidError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return fmt.Sprintf("invalid structure document %s: %s", e.File, strings.Join(msgs, "; "))
}

// Loader parses structure documents. The zero value is not usable; call
// NewLoader.
type Loader struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewLoader compiles the embedded schema.
func NewLoader() (*Loader, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile structure schema: %w", err)
	}
	schema := v.LookupPath(cue.ParsePath("#Structure"))
	if !schema.Exists() {
		return nil, errors.New("structure schema has no #Structure definition")
	}
	return &Loader{ctx: ctx, schema: schema}, nil
}

// LoadFile reads, validates and decodes the document at path. The format
// follows the file extension.
func (l *Loader) LoadFile(path string) (Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return l.Load(path, src)
}

// Load validates and decodes src. name supplies the format by its extension
// and is used in error positions.
func (l *Loader) Load(name string, src []byte) (Document, error) {
	v, err := l.compile(name, src)
	if err != nil {
		return Document{}, err
	}

	unified := l.schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Document{}, &InvalidError{File: name, Problems: problems(name, err)}
	}

	doc, err := decode(unified)
	if err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, &InvalidError{File: name, Problems: []Problem{{File: name, Message: err.Error()}}}
	}
	return doc, nil
}

func (l *Loader) compile(name string, src []byte) (cue.Value, error) {
	var raw map[string]any
	switch strings.ToLower(filepath.Ext(name)) {
	case ".cue":
		v := l.ctx.CompileBytes(src, cue.Filename(name))
		if err := v.Err(); err != nil {
			return cue.Value{}, &InvalidError{File: name, Problems: problems(name, err)}
		}
		return v, nil
	case ".json":
		if err := json.Unmarshal(src, &raw); err != nil {
			return cue.Value{}, fmt.Errorf("parse %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(src, &raw); err != nil {
			return cue.Value{}, fmt.Errorf("parse %s: %w", name, err)
		}
	default:
		return cue.Value{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if raw == nil {
		return cue.Value{}, &InvalidError{File: name, Problems: []Problem{{File: name, Message: "empty document"}}}
	}
	v := l.ctx.Encode(raw)
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("encode %s: %w", name, err)
	}
	return v, nil
}

// decode reads a schema-checked value. A nested cell is flattened and a
// single pbc flag is applied to all three directions.
func decode(v cue.Value) (Document, error) {
	var doc Document
	if label := v.LookupPath(cue.ParsePath("label")); label.Exists() {
		s, err := label.String()
		if err != nil {
			return doc, err
		}
		doc.Label = s
	}
	if err := v.LookupPath(cue.ParsePath("symbols")).Decode(&doc.Symbols); err != nil {
		return doc, err
	}
	if err := v.LookupPath(cue.ParsePath("positions")).Decode(&doc.Positions); err != nil {
		return doc, err
	}

	if cell := v.LookupPath(cue.ParsePath("cell")); cell.Exists() {
		first := cell.LookupPath(cue.MakePath(cue.Index(0)))
		if first.Exists() && first.Kind() == cue.ListKind {
			var rows [][]float64
			if err := cell.Decode(&rows); err != nil {
				return doc, err
			}
			for _, row := range rows {
				doc.Cell = append(doc.Cell, row...)
			}
		} else if err := cell.Decode(&doc.Cell); err != nil {
			return doc, err
		}
	}

	if pbc := v.LookupPath(cue.ParsePath("pbc")); pbc.Exists() {
		if pbc.Kind() == cue.BoolKind {
			b, err := pbc.Bool()
			if err != nil {
				return doc, err
			}
			doc.PBC = []bool{b, b, b}
		} else if err := pbc.Decode(&doc.PBC); err != nil {
			return doc, err
		}
	}

	if masses := v.LookupPath(cue.ParsePath("masses")); masses.Exists() {
		if err := masses.Decode(&doc.Masses); err != nil {
			return doc, err
		}
	}
	return doc, nil
}

func problems(file string, err error) []Problem {
	var out []Problem
	for _, e := range cueerrors.Errors(err) {
		p := Problem{File: file, Message: cueerrors.Details(e, nil)}
		if pos := cueerrors.Positions(e); len(pos) > 0 && pos[0].IsValid() {
			p.Line = pos[0].Line()
			p.Column = pos[0].Column()
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		out = append(out, Problem{File: file, Message: err.Error()})
	}
	return out
}

// Marshal renders d in the format named by ext: ".json", ".yaml" or ".yml".
func Marshal(d Document, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return json.MarshalIndent(d, "", "  ")
	case ".yaml", ".yml":
		return yaml.Marshal(d)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}
