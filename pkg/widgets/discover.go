package widgets

import (
	"errors"
	"fmt"
	"html"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-modelgen/pkg/naming"
)

const (
	// DefaultSuffix marks directories that hold widget contributors.
	DefaultSuffix = "-widgets"
	// DefaultEntryFile is the definition source read for each contributor.
	DefaultEntryFile = "index.js"
)

var labelPattern = regexp.MustCompile("label\\s*:\\s*['\"`]([^'\"`]+)['\"`]")

var (
	labelPolicyOnce sync.Once
	labelPolicy     *bluemonday.Policy
)

// DiscoverOption customises contributor discovery.
type DiscoverOption func(*discoverConfig)

type discoverConfig struct {
	suffix    string
	entryFile string
	priority  int
}

// WithSuffix overrides the directory suffix identifying contributors.
func WithSuffix(suffix string) DiscoverOption {
	return func(cfg *discoverConfig) {
		if trimmed := strings.TrimSpace(suffix); trimmed != "" {
			cfg.suffix = trimmed
		}
	}
}

// WithEntryFile overrides the file name holding the contributor definition.
func WithEntryFile(name string) DiscoverOption {
	return func(cfg *discoverConfig) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.entryFile = trimmed
		}
	}
}

// WithPriority assigns a priority to every discovered contributor.
func WithPriority(priority int) DiscoverOption {
	return func(cfg *discoverConfig) {
		cfg.priority = priority
	}
}

// Discover scans the top level of fsys for contributor directories and reads
// each one's declared label from its entry file. Contributors are returned in
// lexical directory order. A missing root yields no contributors; any failure
// to read a contributor is returned as an error.
func Discover(fsys fs.FS, options ...DiscoverOption) ([]Contributor, error) {
	cfg := discoverConfig{suffix: DefaultSuffix, entryFile: DefaultEntryFile}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if fsys == nil {
		return nil, nil
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("widgets: read contributor root: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []Contributor
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasSuffix(entry.Name(), cfg.suffix) {
			continue
		}
		source := path.Join(entry.Name(), cfg.entryFile)
		data, err := fs.ReadFile(fsys, source)
		if err != nil {
			return nil, fmt.Errorf("widgets: read contributor %s: %w", source, err)
		}
		out = append(out, Contributor{
			Name:     entry.Name(),
			Label:    declaredLabel(string(data), entry.Name()),
			Source:   source,
			Priority: cfg.priority,
		})
	}
	return out, nil
}

func declaredLabel(source, name string) string {
	match := labelPattern.FindStringSubmatch(source)
	if len(match) < 2 {
		return DefaultLabel(name)
	}
	if label := sanitizeLabel(match[1]); label != "" {
		return label
	}
	return DefaultLabel(name)
}

// DefaultLabel derives a label from a contributor name: "gallery-widgets"
// becomes "Gallery".
func DefaultLabel(name string) string {
	return naming.StartCase(strings.TrimSuffix(name, DefaultSuffix))
}

func sanitizeLabel(raw string) string {
	labelPolicyOnce.Do(func() {
		labelPolicy = bluemonday.StrictPolicy()
	})
	cleaned := labelPolicy.Sanitize(strings.TrimSpace(raw))
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
