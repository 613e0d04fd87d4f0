// Package typedoc loads type documents: YAML files that declare generic
// aliases and list the queries to run against them.
//
// A type is written as a mapping with exactly one key naming its form:
//
//	{primitive: string}
//	{union: [{string: a}, {number: 1}]}
//	{conditional: {check: {param: T}, extends: {array: {keyword: any}}, then: {param: T}, else: {array: {param: T}}}}
//
// See BuildType for the full list of forms.
package typedoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/funvibe/structype/internal/typesystem"
	"gopkg.in/yaml.v3"
)

// QueryKind tells which operation a query runs.
type QueryKind string

const (
	QueryEval        QueryKind = "eval"
	QuerySubtype     QueryKind = "subtype"
	QueryInstantiate QueryKind = "instantiate"
)

// Document is a parsed type document.
type Document struct {
	Path         string
	Declarations []typesystem.Declaration
	Queries      []Query
}

// Query is one operation to run. Exactly one of the operation fields is set,
// as reported by Kind.
type Query struct {
	Name string
	Kind QueryKind
	Line int

	// eval
	Type     typesystem.Type
	Bindings typesystem.Subst

	// subtype
	Source, Target typesystem.Type
	Capture        bool

	// instantiate
	Decl string
	Args []typesystem.Type
}

type rawDocument struct {
	Declarations []rawDeclaration `yaml:"declarations"`
	Queries      []rawQuery       `yaml:"queries"`
}

// Type positions are decoded as yaml.Node values so BuildType sees line
// numbers. A zero Kind means the key was absent.
type rawParam struct {
	Name       string    `yaml:"name"`
	Constraint yaml.Node `yaml:"constraint"`
	Default    yaml.Node `yaml:"default"`
}

type rawDeclaration struct {
	Name   string     `yaml:"name"`
	Params []rawParam `yaml:"params"`
	Type   yaml.Node  `yaml:"type"`
}

type rawSubtype struct {
	Source  yaml.Node `yaml:"source"`
	Target  yaml.Node `yaml:"target"`
	Capture bool      `yaml:"capture"`
}

type rawInstantiate struct {
	Decl string      `yaml:"decl"`
	Args []yaml.Node `yaml:"args"`
}

type rawQuery struct {
	Name        string               `yaml:"name"`
	Eval        yaml.Node            `yaml:"eval"`
	Bindings    map[string]yaml.Node `yaml:"bindings"`
	Subtype     *rawSubtype          `yaml:"subtype"`
	Instantiate *rawInstantiate      `yaml:"instantiate"`
	line        int
}

func present(n *yaml.Node) bool { return n.Kind != 0 }

func (q *rawQuery) UnmarshalYAML(node *yaml.Node) error {
	type plain rawQuery
	if err := node.Decode((*plain)(q)); err != nil {
		return err
	}
	q.line = node.Line
	return nil
}

// Load reads and parses a type document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses type document content. The path is used in error messages.
func Parse(data []byte, path string) (*Document, error) {
	var raw rawDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	doc := &Document{Path: path}
	seenDecl := make(map[string]bool, len(raw.Declarations))
	for i, rd := range raw.Declarations {
		if rd.Name == "" {
			return nil, fmt.Errorf("%s: declarations[%d]: name is required", path, i)
		}
		if seenDecl[rd.Name] {
			return nil, fmt.Errorf("%s: declarations[%d]: %s is declared twice", path, i, rd.Name)
		}
		seenDecl[rd.Name] = true
		d, err := buildDeclaration(rd)
		if err != nil {
			return nil, fmt.Errorf("%s: declaration %s: %w", path, rd.Name, err)
		}
		doc.Declarations = append(doc.Declarations, d)
	}

	seenQuery := make(map[string]bool, len(raw.Queries))
	for i, rq := range raw.Queries {
		if rq.Name == "" {
			return nil, fmt.Errorf("%s: queries[%d]: name is required", path, i)
		}
		if seenQuery[rq.Name] {
			return nil, fmt.Errorf("%s: queries[%d]: query %s is listed twice", path, i, rq.Name)
		}
		seenQuery[rq.Name] = true
		q, err := buildQuery(rq)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: query %s: %w", path, rq.line, rq.Name, err)
		}
		doc.Queries = append(doc.Queries, q)
	}
	return doc, nil
}

func buildDeclaration(rd rawDeclaration) (typesystem.Declaration, error) {
	d := typesystem.Declaration{Name: rd.Name}
	for _, rp := range rd.Params {
		p := typesystem.ParamDecl{Name: rp.Name}
		var err error
		if present(&rp.Constraint) {
			if p.Constraint, err = BuildType(&rp.Constraint); err != nil {
				return d, err
			}
		}
		if present(&rp.Default) {
			if p.Default, err = BuildType(&rp.Default); err != nil {
				return d, err
			}
		}
		d.Params = append(d.Params, p)
	}
	if !present(&rd.Type) {
		return d, errors.New("type is required")
	}
	body, err := BuildType(&rd.Type)
	if err != nil {
		return d, err
	}
	d.Body = body
	return d, nil
}

func buildQuery(rq rawQuery) (Query, error) {
	q := Query{Name: rq.Name, Line: rq.line}
	ops := 0
	var err error
	if present(&rq.Eval) {
		ops++
		q.Kind = QueryEval
		if q.Type, err = BuildType(&rq.Eval); err != nil {
			return q, err
		}
		if len(rq.Bindings) > 0 {
			q.Bindings = make(typesystem.Subst, len(rq.Bindings))
			for name, n := range rq.Bindings {
				if q.Bindings[name], err = BuildType(&n); err != nil {
					return q, fmt.Errorf("binding %s: %w", name, err)
				}
			}
		}
	}
	if rq.Subtype != nil {
		ops++
		q.Kind = QuerySubtype
		if !present(&rq.Subtype.Source) || !present(&rq.Subtype.Target) {
			return q, errors.New("subtype needs source and target")
		}
		if q.Source, err = BuildType(&rq.Subtype.Source); err != nil {
			return q, fmt.Errorf("source: %w", err)
		}
		if q.Target, err = BuildType(&rq.Subtype.Target); err != nil {
			return q, fmt.Errorf("target: %w", err)
		}
		q.Capture = rq.Subtype.Capture
	}
	if rq.Instantiate != nil {
		ops++
		q.Kind = QueryInstantiate
		if rq.Instantiate.Decl == "" {
			return q, errors.New("instantiate needs decl")
		}
		q.Decl = rq.Instantiate.Decl
		for i := range rq.Instantiate.Args {
			arg, err := BuildType(&rq.Instantiate.Args[i])
			if err != nil {
				return q, fmt.Errorf("args[%d]: %w", i, err)
			}
			q.Args = append(q.Args, arg)
		}
	}
	if ops != 1 {
		return q, errors.New("exactly one of eval, subtype or instantiate is required")
	}
	if rq.Bindings != nil && q.Kind != QueryEval {
		return q, errors.New("bindings are only valid with eval")
	}
	return q, nil
}
