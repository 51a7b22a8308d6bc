package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Entry records the metadata of one scanned note so that later scans can
// tell what changed without re-reading the corpus.
type Entry struct {
	Hash    string `json:"hash"`
	ModTime int64  `json:"mod_time"`
	Size    int64  `json:"size"`
}

// Manifest is the on-disk scan cache, keyed by corpus-relative path.
type Manifest struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
	dirty   bool
}

// OpenManifest creates or loads the manifest under cacheDir. A missing or
// corrupt file starts fresh.
func OpenManifest(cacheDir string) *Manifest {
	m := &Manifest{
		path:    filepath.Join(cacheDir, "manifest.json"),
		entries: make(map[string]Entry),
	}
	m.load()
	return m
}

func (m *Manifest) load() {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &m.entries); err != nil {
		m.entries = make(map[string]Entry)
	}
}

// Save writes the manifest to disk if anything changed.
func (m *Manifest) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return err
	}
	m.dirty = false
	return nil
}

// Get returns the recorded entry for a path.
func (m *Manifest) Get(rel string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[rel]
	return e, ok
}

// Update records fresh metadata for a path.
func (m *Manifest) Update(rel string, info os.FileInfo, hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[rel] = Entry{
		Hash:    hash,
		ModTime: info.ModTime().Unix(),
		Size:    info.Size(),
	}
	m.dirty = true
}

// Remove drops a path from the manifest.
func (m *Manifest) Remove(rel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[rel]; ok {
		delete(m.entries, rel)
		m.dirty = true
	}
}

// Paths lists every recorded path.
func (m *Manifest) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.entries))
	for p := range m.entries {
		paths = append(paths, p)
	}
	return paths
}
