// Package content reads concept payloads from YAML, JSON or TOML files.
//
// A Source points at a single file or a directory tree. Every matching file
// contributes its nodes and edges to one merged graph.Payload, in path
// order. Files are parsed once per content digest, so reloading a tree in
// which one file changed only re-decodes that file.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
	"lukechampine.com/blake3"

	"github.com/recera/conceptmap/pkg/conceptmap/graph"
)

// DefaultPattern matches every supported file below the root
const DefaultPattern = "**/*.{yaml,yml,json,toml}"

// ErrNoFiles is returned when the pattern matches nothing
var ErrNoFiles = errors.New("content: no concept files found")

// DecodeError wraps a parse or validation failure in one file
type DecodeError struct {
	File string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("content: %s: %v", e.File, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// Stats counts parse cache behaviour
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Files  int   `json:"files"`
}

type entry struct {
	digest  string
	payload graph.Payload
}

// Source loads and caches a concept tree
type Source struct {
	root    string
	pattern string
	log     *slog.Logger

	mu      sync.Mutex
	entries map[string]entry
	digest  string
	stats   Stats
}

// Option configures a Source
type Option func(*Source)

// WithPattern overrides DefaultPattern
func WithPattern(p string) Option { return func(s *Source) { s.pattern = p } }

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option { return func(s *Source) { s.log = l } }

// NewSource creates a source rooted at a file or directory
func NewSource(root string, opts ...Option) *Source {
	s := &Source{
		root:    root,
		pattern: DefaultPattern,
		log:     slog.Default(),
		entries: make(map[string]entry),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Root returns the path the source reads
func (s *Source) Root() string { return s.root }

// Files lists the matching files, sorted. A root that is a file is
// returned as is.
func (s *Source) Files() ([]string, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	if !info.IsDir() {
		return []string{s.root}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(s.root), s.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("content: glob %q: %w", s.pattern, err)
	}
	if len(matches) == 0 {
		return nil, ErrNoFiles
	}
	sort.Strings(matches)
	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = filepath.Join(s.root, filepath.FromSlash(m))
	}
	return files, nil
}

// Match reports whether name would be picked up by the source. The watcher
// uses it to ignore unrelated writes.
func (s *Source) Match(name string) bool {
	info, err := os.Stat(s.root)
	if err == nil && !info.IsDir() {
		return filepath.Clean(name) == filepath.Clean(s.root)
	}
	rel, err := filepath.Rel(s.root, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	ok, _ := doublestar.Match(s.pattern, filepath.ToSlash(rel))
	return ok
}

// Load reads every file and returns the merged payload together with a
// digest of the whole tree.
func (s *Source) Load() (graph.Payload, string, error) {
	files, err := s.Files()
	if err != nil {
		return graph.Payload{}, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tree := blake3.New(32, nil)
	var merged graph.Payload
	seen := make(map[string]bool, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return graph.Payload{}, "", fmt.Errorf("content: %w", err)
		}
		sum := blake3.Sum256(data)
		digest := fmt.Sprintf("%x", sum[:])

		tree.Write([]byte(filepath.ToSlash(file)))
		tree.Write([]byte("\n"))
		tree.Write(sum[:])

		p, err := s.decodeCached(file, digest, data)
		if err != nil {
			return graph.Payload{}, "", err
		}
		merged.Concepts = append(merged.Concepts, p.Concepts...)
		merged.Relationships = append(merged.Relationships, p.Relationships...)
		seen[file] = true
	}

	// drop entries for files that disappeared
	for file := range s.entries {
		if !seen[file] {
			delete(s.entries, file)
		}
	}
	s.stats.Files = len(s.entries)
	s.digest = fmt.Sprintf("%x", tree.Sum(nil))
	s.log.Debug("content loaded", "files", len(files), "concepts", len(merged.Concepts), "relationships", len(merged.Relationships))
	return merged, s.digest, nil
}

// Reload is Load that reports whether the tree changed since the previous
// successful load. An unchanged tree returns changed == false.
func (s *Source) Reload() (p graph.Payload, changed bool, err error) {
	s.mu.Lock()
	prev := s.digest
	s.mu.Unlock()

	p, digest, err := s.Load()
	if err != nil {
		return graph.Payload{}, false, err
	}
	return p, digest != prev, nil
}

// Digest returns the digest of the last successful load
func (s *Source) Digest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.digest
}

// Stats returns a snapshot of cache counters
func (s *Source) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Source) decodeCached(file, digest string, data []byte) (graph.Payload, error) {
	if e, ok := s.entries[file]; ok && e.digest == digest {
		s.stats.Hits++
		return e.payload, nil
	}
	s.stats.Misses++
	p, err := Decode(file, data)
	if err != nil {
		return graph.Payload{}, err
	}
	s.entries[file] = entry{digest: digest, payload: p}
	return p, nil
}

// ReadFile decodes and validates a single file
func ReadFile(name string) (graph.Payload, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return graph.Payload{}, fmt.Errorf("content: %w", err)
	}
	return Decode(name, data)
}

// ReadFS decodes every file in fsys matching pattern and merges them
func ReadFS(fsys fs.FS, pattern string) (graph.Payload, error) {
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return graph.Payload{}, fmt.Errorf("content: glob %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return graph.Payload{}, ErrNoFiles
	}
	sort.Strings(matches)
	var merged graph.Payload
	for _, m := range matches {
		data, err := fs.ReadFile(fsys, m)
		if err != nil {
			return graph.Payload{}, fmt.Errorf("content: %w", err)
		}
		p, err := Decode(m, data)
		if err != nil {
			return graph.Payload{}, err
		}
		merged.Concepts = append(merged.Concepts, p.Concepts...)
		merged.Relationships = append(merged.Relationships, p.Relationships...)
	}
	return merged, nil
}

// Decode parses data according to the extension of name and validates the
// result. Unknown fields are rejected.
func Decode(name string, data []byte) (graph.Payload, error) {
	var p graph.Payload
	var err error
	switch ext := strings.ToLower(path.Ext(filepath.ToSlash(name))); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&p)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&p)
	case ".toml":
		var md toml.MetaData
		md, err = toml.Decode(string(data), &p)
		if err == nil {
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				err = fmt.Errorf("unknown field %s", undecoded[0])
			}
		}
	default:
		err = fmt.Errorf("unsupported extension %q", ext)
	}
	if err != nil {
		return graph.Payload{}, &DecodeError{File: name, Err: err}
	}
	if err := Validate(p); err != nil {
		return graph.Payload{}, &DecodeError{File: name, Err: err}
	}
	return p, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that every concept has an id and a name and every
// relationship names both ends. Referential integrity is left to the graph
// model, which drops dangling edges with a warning.
func Validate(p graph.Payload) error {
	for i, c := range p.Concepts {
		if err := validate.Struct(c); err != nil {
			return fmt.Errorf("nodes[%d]: %w", i, err)
		}
	}
	for i, r := range p.Relationships {
		if err := validate.Struct(r); err != nil {
			return fmt.Errorf("edges[%d]: %w", i, err)
		}
	}
	return nil
}
