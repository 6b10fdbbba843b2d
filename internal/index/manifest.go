package index

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestFile is written last during a build; its presence marks a complete index.
const ManifestFile = "manifest.yaml"

const manifestVersion = 1

// Manifest describes how a persisted index was produced.
type Manifest struct {
	Version      int       `yaml:"version"`
	DocumentPath string    `yaml:"document_path"`
	DocumentHash string    `yaml:"document_hash"`
	Embedder     string    `yaml:"embedder"`
	Dimension    int       `yaml:"dimension"`
	Chunker      string    `yaml:"chunker"`
	ChunkCount   int       `yaml:"chunk_count"`
	Store        string    `yaml:"store"`
	CreatedAt    time.Time `yaml:"created_at"`
}

// ReadManifest loads dir/manifest.yaml. A missing file yields an error
// matching os.ErrNotExist.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("%s: unsupported version %d", ManifestFile, m.Version)
	}
	return &m, nil
}

// WriteManifest replaces dir/manifest.yaml atomically.
func WriteManifest(dir string, m *Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	m.Version = manifestVersion
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, ManifestFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func removeManifest(dir string) error {
	err := os.Remove(filepath.Join(dir, ManifestFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Differences lists the fingerprint fields in which current departs from m.
func (m *Manifest) Differences(current Manifest) []string {
	var out []string
	if m.DocumentHash != current.DocumentHash {
		out = append(out, "document content changed")
	}
	if m.DocumentPath != current.DocumentPath {
		out = append(out, fmt.Sprintf("document path %s -> %s", m.DocumentPath, current.DocumentPath))
	}
	if m.Embedder != current.Embedder {
		out = append(out, fmt.Sprintf("embedder %s -> %s", m.Embedder, current.Embedder))
	}
	if m.Chunker != current.Chunker {
		out = append(out, fmt.Sprintf("chunker %s -> %s", m.Chunker, current.Chunker))
	}
	return out
}
