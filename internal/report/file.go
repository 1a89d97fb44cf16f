package report

import (
	"context"
	"fmt"
	"os"
)

// FileDestination writes JSONL data to a local file, replacing any previous
// contents.
type FileDestination struct {
	path string
}

func NewFileDestination(path string) *FileDestination {
	return &FileDestination{path: path}
}

func (d *FileDestination) Write(_ context.Context, data []byte) error {
	if err := os.WriteFile(d.path, data, 0o644); err != nil {
		return fmt.Errorf("writing report to %s: %w", d.path, err)
	}
	return nil
}
