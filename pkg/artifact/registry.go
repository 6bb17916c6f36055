package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/renameio/v2"
)

// ModulesKey is the top-level registry member mapping type names to their
// activation config.
const ModulesKey = "modules"

// ErrRegistryParse is returned when the module registry is not a JSON object
// or its modules member is not an object.
var ErrRegistryParse = errors.New("artifact: module registry is not valid")

// ModuleRegistry reads and amends the JSON module registry file. Member order
// and values it does not touch are preserved.
type ModuleRegistry struct {
	mu     sync.Mutex
	path   string
	indent string
	perm   os.FileMode
}

// NewModuleRegistry returns a registry backed by the file at path.
func NewModuleRegistry(path string) *ModuleRegistry {
	return &ModuleRegistry{path: path, indent: "  ", perm: 0o644}
}

// Path returns the registry file location.
func (r *ModuleRegistry) Path() string { return r.path }

// Add enables name with an empty activation config. An existing entry is
// left as it is and reported with added=false; the file is only rewritten
// when a key is added.
func (r *ModuleRegistry) Add(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, modules, err := r.load()
	if err != nil {
		return false, err
	}
	if modules.has(name) {
		return false, nil
	}
	modules = modules.set(name, json.RawMessage(`{}`))

	encodedModules, err := modules.marshal()
	if err != nil {
		return false, fmt.Errorf("artifact: encode modules: %w", err)
	}
	doc = doc.set(ModulesKey, encodedModules)
	compact, err := doc.marshal()
	if err != nil {
		return false, fmt.Errorf("artifact: encode registry: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", r.indent); err != nil {
		return false, fmt.Errorf("artifact: indent registry: %w", err)
	}
	if err := renameio.WriteFile(r.path, out.Bytes(), r.perm); err != nil {
		return false, fmt.Errorf("artifact: write registry %s: %w", r.path, err)
	}
	return true, nil
}

// Modules lists the enabled type names in file order.
func (r *ModuleRegistry) Modules() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, modules, err := r.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(modules))
	for _, m := range modules {
		names = append(names, m.key)
	}
	return names, nil
}

func (r *ModuleRegistry) load() (object, object, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, nil, fmt.Errorf("artifact: read registry %s: %w", r.path, err)
	}
	doc, err := decodeObject(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrRegistryParse, r.path, err)
	}

	raw, ok := doc.get(ModulesKey)
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return doc, object{}, nil
	}
	modules, err := decodeObject(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %q member: %v", ErrRegistryParse, r.path, ModulesKey, err)
	}
	return doc, modules, nil
}

type member struct {
	key   string
	value json.RawMessage
}

// object is a JSON object decoded one level deep with member order kept.
type object []member

func decodeObject(data []byte) (object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected an object, found %v", tok)
	}

	var out object
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected a member name, found %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("member %q: %w", key, err)
		}
		out = out.set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after the top-level object")
	}
	return out, nil
}

func (o object) get(key string) (json.RawMessage, bool) {
	for _, m := range o {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

func (o object) has(key string) bool {
	_, ok := o.get(key)
	return ok
}

// set replaces the value of an existing key in place or appends a new one.
func (o object) set(key string, value json.RawMessage) object {
	for i := range o {
		if o[i].key == key {
			o[i].value = value
			return o
		}
	}
	return append(o, member{key: key, value: value})
}

func (o object) marshal() (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(m.value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
