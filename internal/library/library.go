// Package library manages the curated 3D model library: a directory tree of
// OBJ bundles under <root>/library/<class>/ and the index.json file that maps
// each canonical class to its preferred models.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vbonduro/sintaxia/internal/asset"
	"github.com/vbonduro/sintaxia/internal/classes"
)

const (
	IndexFile  = "index.json"
	libraryDir = "library"
)

// Record is one curated model. File is relative to the library root.
type Record struct {
	File    string `json:"file"`
	Name    string `json:"name,omitempty"`
	License string `json:"license,omitempty"`
	Source  string `json:"source,omitempty"`
	Author  string `json:"author,omitempty"`
}

// Index maps a class to its records in preference order.
type Index map[string][]Record

type Library struct {
	root   string
	logger *slog.Logger
}

func New(root string, logger *slog.Logger) *Library {
	return &Library{root: root, logger: logger}
}

func (l *Library) Root() string {
	return l.root
}

func (l *Library) IndexPath() string {
	return filepath.Join(l.root, IndexFile)
}

// Load reads the index. A missing index file is an empty index.
func (l *Library) Load() (Index, error) {
	data, err := os.ReadFile(l.IndexPath())
	if errors.Is(err, fs.ErrNotExist) {
		return Index{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	idx := Index{}
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	return idx, nil
}

// Save replaces the index file with idx.
func (l *Library) Save(idx Index) error {
	if err := os.MkdirAll(l.root, 0755); err != nil {
		return fmt.Errorf("failed to create library root: %w", err)
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := os.WriteFile(l.IndexPath(), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// Lookup returns the first record for class whose file exists under the
// library root, together with its absolute path. Dangling records are
// skipped with a warning; an unreadable index behaves like an empty one.
func (l *Library) Lookup(class string) (*Record, string, bool) {
	idx, err := l.Load()
	if err != nil {
		l.logger.Warn("library index unavailable", "path", l.IndexPath(), "error", err)
		return nil, "", false
	}

	key := classes.Normalize(class)
	for _, rec := range idx[key] {
		if rec.File == "" {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(l.root, filepath.FromSlash(rec.File)))
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err != nil {
			l.logger.Warn("library asset missing", "class", key, "file", rec.File)
			continue
		}
		return &rec, abs, true
	}
	return nil, "", false
}

// HasAsset reports whether Lookup would find a model for class.
func (l *Library) HasAsset(class string) bool {
	_, _, ok := l.Lookup(class)
	return ok
}

// Rebuild scans <root>/library for OBJ files and replaces the index with one
// record per file, keyed by the name of the file's parent directory. onFile,
// when non-nil, is called with each indexed file.
func (l *Library) Rebuild(onFile func(rel string)) (Index, error) {
	idx := Index{}
	scanRoot := filepath.Join(l.root, libraryDir)

	err := filepath.WalkDir(scanRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == scanRoot && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".obj" {
			return nil
		}

		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		class := strings.ToLower(filepath.Base(filepath.Dir(p)))
		idx[class] = append(idx[class], Record{
			File: rel,
			Name: strings.TrimSuffix(path.Base(rel), ".obj"),
		})
		if onFile != nil {
			onFile(rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan library: %w", err)
	}

	if err := l.Save(idx); err != nil {
		return nil, err
	}
	l.logger.Info("library index rebuilt", "path", l.IndexPath(), "classes", len(idx))
	return idx, nil
}

// Add copies src into <root>/library/<class>/ and appends a record for it to
// the index. meta.File is ignored; the other fields are stored as given.
func (l *Library) Add(class, src string, meta Record) (*Record, error) {
	class = strings.ToLower(strings.TrimSpace(class))
	if class == "" {
		return nil, fmt.Errorf("class is required")
	}
	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("source model not found: %w", err)
	}

	idx, err := l.Load()
	if err != nil {
		return nil, err
	}

	destDir := filepath.Join(l.root, libraryDir, class)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create class directory: %w", err)
	}
	name := filepath.Base(src)
	if err := asset.CopyFile(src, filepath.Join(destDir, name)); err != nil && !errors.Is(err, asset.ErrSameFile) {
		return nil, fmt.Errorf("failed to copy model: %w", err)
	}

	rec := meta
	rec.File = path.Join(libraryDir, class, name)
	idx[class] = append(idx[class], rec)
	if err := l.Save(idx); err != nil {
		return nil, err
	}
	l.logger.Info("library model added", "class", class, "file", rec.File)
	return &rec, nil
}
