// Package scratch manages the on-disk directory holding intermediate conversion files.
package scratch

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"pdf-rocket/internal/domain"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

type Dir struct {
	path   string
	logger *zlog.Zerolog
	remove func(name string) error
}

func New(path string, logger *zlog.Zerolog) *Dir {
	if path == "" {
		path = domain.DefaultScratchDir
	}
	return &Dir{
		path:   path,
		logger: logger,
		remove: os.Remove,
	}
}

func (d *Dir) Path() string {
	return d.path
}

// Ensure creates the directory if it is missing.
func (d *Dir) Ensure() error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("failed to create scratch dir %s: %w", d.path, err)
	}
	return nil
}

// NewRequest names a fresh pair of scratch files for one upload.
func (d *Dir) NewRequest(quality domain.QualityMode) domain.ConversionRequest {
	id := NewID()
	return domain.ConversionRequest{
		ID:              id,
		SourcePath:      filepath.Join(d.path, id+domain.PDFExtension),
		DestinationPath: filepath.Join(d.path, id+domain.DocxExtension),
		Quality:         quality,
	}
}

// Purge removes the regular files directly inside the directory and returns how many
// were removed. Failures are logged and skipped.
func (d *Dir) Purge() int {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			d.logger.Error().Err(err).Str("dir", d.path).Msg("Failed to list scratch dir")
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(d.path, entry.Name())
		if err := d.remove(path); err != nil {
			d.logger.Warn().Err(err).Str("path", path).Msg("Failed to delete scratch file")
			continue
		}
		removed++
	}

	if removed > 0 {
		d.logger.Debug().Str("dir", d.path).Int("removed", removed).Msg("Scratch dir purged")
	}
	return removed
}

// NewID returns a random 32-character hex identifier.
func NewID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
