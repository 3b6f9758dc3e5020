// Package store keeps administrator-uploaded datasets under the workspace
// directory, indexed by registry.json.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/KaramelBytes/minedash/internal/table"
	"github.com/KaramelBytes/minedash/internal/utils"
	"github.com/google/uuid"
)

const (
	registryFileName = "registry.json"
	datasetsDir      = "datasets"
	// MaxUploadBytes caps a single upload.
	MaxUploadBytes = 32 << 20
)

var (
	// ErrForbidden is returned when the caller lacks the upload capability.
	ErrForbidden = errors.New("upload not permitted")
	// ErrInvalidName is returned for names outside [a-z0-9][a-z0-9_-]*.
	ErrInvalidName = errors.New("invalid dataset name")
	// ErrNotFound is returned for names that were never uploaded.
	ErrNotFound = errors.New("uploaded dataset not found")
	// ErrTooLarge is returned when an upload exceeds MaxUploadBytes.
	ErrTooLarge = errors.New("upload too large")
)

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Entry describes one uploaded dataset.
type Entry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Path        string    `json:"path"`
	Rows        int       `json:"rows"`
	Columns     []string  `json:"columns"`
	AddedAt     time.Time `json:"added_at"`
}

// Registry is the persisted index of uploads.
type Registry struct {
	Entries   map[string]*Entry `json:"entries"`
	UpdatedAt time.Time         `json:"updated_at"`

	mu      sync.Mutex
	rootDir string
}

// Open loads registry.json from dir, or starts an empty registry.
func Open(dir string) (*Registry, error) {
	r := &Registry{Entries: map[string]*Entry{}, rootDir: dir}
	b, err := os.ReadFile(filepath.Join(dir, registryFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r, nil
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}
	if err := json.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if r.Entries == nil {
		r.Entries = map[string]*Entry{}
	}
	return r, nil
}

// RootDir returns the workspace directory.
func (r *Registry) RootDir() string { return r.rootDir }

// save writes registry.json; callers hold r.mu.
func (r *Registry) save() error {
	if err := utils.EnsureDir(r.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	r.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(r)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(r.rootDir, registryFileName), data)
}

// Upload parses src as delimited text and stores it as datasets/<name>.csv.
// canUpload must come from the caller's authorization check. Uploading an
// existing name replaces it.
func (r *Registry) Upload(canUpload bool, name, description string, src io.Reader) (*Entry, error) {
	if !canUpload {
		return nil, ErrForbidden
	}
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	data, err := io.ReadAll(io.LimitReader(src, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}
	t, err := table.ReadDelimited(bytes.NewReader(data), name+".csv", table.Options{})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := table.WriteDelimited(&buf, t); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	path := filepath.Join(r.rootDir, datasetsDir, name+".csv")

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return nil, err
	}
	e := &Entry{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Path:        path,
		Rows:        t.Len(),
		Columns:     append([]string(nil), t.Header...),
		AddedAt:     time.Now(),
	}
	r.Entries[name] = e
	if err := r.save(); err != nil {
		return nil, err
	}
	return e, nil
}

// List returns entries sorted by name.
func (r *Registry) List() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entry, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the named entry.
func (r *Registry) Get(name string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.Entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e, nil
}

// Preview holds the first rows of an upload.
type Preview struct {
	Name   string     `json:"name"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Preview reads back the first n rows of e.
func (r *Registry) Preview(e *Entry, n int) (*Preview, error) {
	t, err := table.Load(e.Path, table.Options{})
	if err != nil {
		return nil, err
	}
	return &Preview{Name: e.Name, Header: t.Header, Rows: t.Head(n)}, nil
}

// Remove deletes an upload and its file.
func (r *Registry) Remove(canUpload bool, name string) error {
	if !canUpload {
		return ErrForbidden
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.Entries[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := os.Remove(e.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	delete(r.Entries, name)
	return r.save()
}
