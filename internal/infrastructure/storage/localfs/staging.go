package localfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Staging holds uploads on local disk for the duration of one pipeline
// run. Files are written under a per-request random name and removed by
// the pipeline on every exit path; nothing here is durable storage.
type Staging struct {
	basePath string
}

func NewStaging(basePath string) (*Staging, error) {
	if basePath == "" {
		basePath = "./data/uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Staging{basePath: basePath}, nil
}

func (s *Staging) Stage(filename string, data []byte) (string, error) {
	path := filepath.Join(s.basePath, uuid.NewString()+"_"+sanitizeFilename(filename))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write staged file: %w", err)
	}
	return path, nil
}

func (s *Staging) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "upload.bin"
	}
	return base
}
