package document

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ragchat/internal/domain"
)

// Extensions lists the accepted document file extensions.
var Extensions = []string{".txt", ".md"}

// Load reads a single text document from disk. The path must name an existing
// regular file with one of the accepted extensions.
func Load(path string) (domain.Document, error) {
	if strings.TrimSpace(path) == "" {
		return domain.Document{}, fmt.Errorf("%w: no document given", domain.ErrConfiguration)
	}
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: document %s: %w", domain.ErrConfiguration, path, err)
	}
	if info.IsDir() {
		return domain.Document{}, fmt.Errorf("%w: document %s is a directory", domain.ErrConfiguration, path)
	}
	if !supported(path) {
		return domain.Document{}, fmt.Errorf("%w: document %s must be one of %s", domain.ErrConfiguration, path, strings.Join(Extensions, ", "))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: read %s: %w", domain.ErrIngestion, path, err)
	}
	return domain.Document{ID: hashString(path), Path: path, Content: string(data)}, nil
}

// ContentHash returns the hex sha256 of the document content.
func ContentHash(doc domain.Document) string {
	h := sha256.Sum256([]byte(doc.Content))
	return hex.EncodeToString(h[:])
}

func supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
