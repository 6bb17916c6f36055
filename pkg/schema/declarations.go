package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed declarations/*
var embeddedDeclarations embed.FS

// EmbeddedFS returns the bundled type declarations.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedDeclarations, "declarations")
	if err != nil {
		// The embed directive guarantees the subpath exists.
		panic(err)
	}
	return sub
}

// AreaConfig names the distinguished rich content area type and the node
// whose choices list the widgets that can be placed in it.
type AreaConfig struct {
	Type    string `json:"type" yaml:"type"`
	Widgets string `json:"widgets" yaml:"widgets"`
}

// Declarations is the on-disk shape of a declaration file. Several files may
// contribute nodes; Root and Area may be declared once.
type Declarations struct {
	Root  string     `json:"root,omitempty" yaml:"root,omitempty"`
	Area  AreaConfig `json:"area,omitempty" yaml:"area,omitempty"`
	Nodes []Node     `json:"nodes" yaml:"nodes"`
}

// LoadDeclarations walks fsys and merges every JSON/YAML declaration file in
// lexical path order.
func LoadDeclarations(fsys fs.FS) (Declarations, error) {
	var merged Declarations
	if fsys == nil {
		return merged, fmt.Errorf("schema: declarations filesystem is nil")
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDeclarationFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		doc, err := parseDeclarations(data, path)
		if err != nil {
			return err
		}
		return merge(&merged, doc, path)
	})
	if err != nil {
		return Declarations{}, err
	}
	return merged, nil
}

// LoadFS loads declarations from fsys and builds a Registry.
func LoadFS(fsys fs.FS, options ...Option) (*Registry, error) {
	decl, err := LoadDeclarations(fsys)
	if err != nil {
		return nil, err
	}
	return New(decl, options...)
}

// Default builds a Registry from the embedded declarations.
func Default(options ...Option) (*Registry, error) {
	return LoadFS(EmbeddedFS(), options...)
}

func parseDeclarations(data []byte, source string) (Declarations, error) {
	var doc Declarations
	if len(strings.TrimSpace(string(data))) == 0 {
		return Declarations{}, fmt.Errorf("schema: file %s is empty", source)
	}

	switch strings.ToLower(filepath.Ext(source)) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return Declarations{}, fmt.Errorf("schema: parse %s: %w", source, err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Declarations{}, fmt.Errorf("schema: parse %s: %w", source, err)
		}
	}
	return doc, nil
}

func merge(target *Declarations, doc Declarations, source string) error {
	if root := strings.TrimSpace(doc.Root); root != "" {
		if target.Root != "" && target.Root != root {
			return fmt.Errorf("schema: file %s redeclares root %q (already %q)", source, root, target.Root)
		}
		target.Root = root
	}
	if doc.Area.Type != "" || doc.Area.Widgets != "" {
		if target.Area != (AreaConfig{}) && target.Area != doc.Area {
			return fmt.Errorf("schema: file %s redeclares the area configuration", source)
		}
		target.Area = doc.Area
	}
	target.Nodes = append(target.Nodes, doc.Nodes...)
	return nil
}

func isDeclarationFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
