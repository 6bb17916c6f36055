// Package intake decodes and validates generation requests submitted by
// collaborators as YAML or JSON documents.
package intake

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-modelgen/pkg/model"
	"github.com/goliatone/go-modelgen/pkg/orchestrator"
)

// SlugPattern is the URL-safe shape every entity slug must match.
const SlugPattern = `^[a-z0-9]+(-[a-z0-9]+)*$`

// MaxDocumentBytes bounds the size of a request document.
const MaxDocumentBytes = 1 << 20

// ErrInvalid marks documents rejected by validation.
var ErrInvalid = errors.New("intake: invalid request")

//go:embed request.cue
var requestSchema string

// Entity names the derived type to create.
type Entity struct {
	Title string `json:"title" yaml:"title" jsonschema:"required,minLength=1"`
	Slug  string `json:"slug" yaml:"slug" jsonschema:"required,pattern=^[a-z0-9]+(-[a-z0-9]+)*$"`
}

// Field is one field instance: name, type, required and the options chosen
// for that type.
type Field map[string]any

// Request is a generation request document.
type Request struct {
	Entity   Entity  `json:"entity" yaml:"entity" jsonschema:"required"`
	Fields   []Field `json:"fields" yaml:"fields" jsonschema:"required"`
	Renderer string  `json:"renderer,omitempty" yaml:"renderer,omitempty" jsonschema:"enum=commonjs,enum=esm"`
}

// Orchestrator converts the document into a pipeline request.
func (r Request) Orchestrator() orchestrator.Request {
	fields := make([]model.FieldInstance, len(r.Fields))
	for i, field := range r.Fields {
		fields[i] = model.FieldInstance(field)
	}
	return orchestrator.Request{
		Entity:   model.Entity{Title: r.Entity.Title, Slug: r.Entity.Slug},
		Fields:   fields,
		Renderer: r.Renderer,
	}
}

// Validator checks decoded documents against the CUE request schema.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded request schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	compiled := ctx.CompileString(requestSchema, cue.Filename("request.cue"))
	if err := compiled.Err(); err != nil {
		return nil, fmt.Errorf("intake: compile request schema: %w", err)
	}
	def := compiled.LookupPath(cue.ParsePath("#Request"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("intake: lookup #Request: %w", err)
	}
	return &Validator{ctx: ctx, schema: def}, nil
}

// Validate reports every constraint doc violates, wrapped in ErrInvalid.
func (v *Validator) Validate(doc map[string]any) error {
	// cue.Context is not safe for concurrent use.
	v.mu.Lock()
	defer v.mu.Unlock()

	value := v.schema.Unify(v.ctx.Encode(doc))
	err := value.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	var messages []string
	for _, item := range cueerrors.Errors(err) {
		messages = append(messages, describe(item))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(messages, "; "))
}

func describe(err cueerrors.Error) string {
	format, args := err.Msg()
	msg := fmt.Sprintf(format, args...)
	if path := err.Path(); len(path) > 0 {
		return strings.Join(path, ".") + ": " + msg
	}
	return msg
}

// Decode reads a YAML or JSON document from r, validates it and returns the
// typed request.
func (v *Validator) Decode(r io.Reader) (Request, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentBytes+1))
	if err != nil {
		return Request{}, fmt.Errorf("intake: read request: %w", err)
	}
	if len(data) > MaxDocumentBytes {
		return Request{}, fmt.Errorf("%w: document exceeds %d bytes", ErrInvalid, MaxDocumentBytes)
	}
	return v.DecodeBytes(data)
}

// DecodeBytes is Decode over an in-memory document.
func (v *Validator) DecodeBytes(data []byte) (Request, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Request{}, fmt.Errorf("%w: parse document: %v", ErrInvalid, err)
	}
	if doc == nil {
		return Request{}, fmt.Errorf("%w: document is empty", ErrInvalid)
	}
	if err := v.Validate(doc); err != nil {
		return Request{}, err
	}

	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: decode document: %v", ErrInvalid, err)
	}
	return req, nil
}
