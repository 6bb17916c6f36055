package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

// EntryName is the base name of the module source inside a slug directory.
const EntryName = "index"

// ErrInvalidSlug is returned for slugs that would not name a single
// directory below the modules root.
var ErrInvalidSlug = errors.New("artifact: invalid slug")

// File is an additional file written next to the module source.
type File struct {
	Name string
	Data []byte
}

// Result describes what Persist wrote.
type Result struct {
	Dir        string
	Path       string
	Extras     []string
	Registered bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger used for persistence events.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithPermissions overrides the directory and file modes.
func WithPermissions(dir, file os.FileMode) Option {
	return func(w *Writer) {
		if dir != 0 {
			w.dirPerm = dir
		}
		if file != 0 {
			w.filePerm = file
		}
	}
}

// Writer persists module artifacts below a modules root and enables them in
// a module registry.
type Writer struct {
	root     string
	registry *ModuleRegistry
	dirPerm  os.FileMode
	filePerm os.FileMode
	logger   zerolog.Logger
}

// NewWriter returns a Writer rooted at root. registry may be nil, in which
// case Persist only writes files.
func NewWriter(root string, registry *ModuleRegistry, opts ...Option) *Writer {
	w := &Writer{
		root:     root,
		registry: registry,
		dirPerm:  0o755,
		filePerm: 0o644,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Root returns the modules root.
func (w *Writer) Root() string { return w.root }

// Registry returns the module registry, possibly nil.
func (w *Writer) Registry() *ModuleRegistry { return w.registry }

// EnsureDir creates <root>/<slug>. An existing directory is not an error;
// parents are not created.
func (w *Writer) EnsureDir(slug string) (string, error) {
	if err := checkSlug(slug); err != nil {
		return "", err
	}
	dir := filepath.Join(w.root, slug)
	if err := os.Mkdir(dir, w.dirPerm); err != nil && !errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("artifact: create directory %s: %w", dir, err)
	}
	return dir, nil
}

// Persist writes source as <root>/<slug>/index.<ext>, writes extras next to
// it and adds slug to the module registry. Writing the same slug again
// overwrites the previous files.
func (w *Writer) Persist(_ context.Context, slug, ext string, source []byte, extras ...File) (Result, error) {
	dir, err := w.EnsureDir(slug)
	if err != nil {
		return Result{}, err
	}

	result := Result{Dir: dir, Path: filepath.Join(dir, EntryName+"."+strings.TrimPrefix(ext, "."))}
	if err := renameio.WriteFile(result.Path, source, w.filePerm); err != nil {
		return Result{}, fmt.Errorf("artifact: write module %s: %w", result.Path, err)
	}
	w.logger.Debug().Str("slug", slug).Str("path", result.Path).Int("bytes", len(source)).Msg("module written")

	for _, extra := range extras {
		if err := checkSlug(extra.Name); err != nil {
			return Result{}, fmt.Errorf("artifact: extra file %q: %w", extra.Name, err)
		}
		path := filepath.Join(dir, extra.Name)
		if err := renameio.WriteFile(path, extra.Data, w.filePerm); err != nil {
			return Result{}, fmt.Errorf("artifact: write %s: %w", path, err)
		}
		result.Extras = append(result.Extras, path)
	}

	if w.registry == nil {
		return result, nil
	}
	added, err := w.registry.Add(slug)
	if err != nil {
		return Result{}, err
	}
	result.Registered = added
	w.logger.Debug().Str("slug", slug).Bool("added", added).Str("registry", w.registry.Path()).Msg("module registry updated")
	return result, nil
}

func checkSlug(name string) error {
	switch {
	case strings.TrimSpace(name) == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidSlug, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidSlug, name)
	}
	return nil
}
