package sink

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bcye/structured-wikivoyage-exports/internal/document"
)

// Filesystem writes one JSON file per entry under OutputDir/<uid>.json.
type Filesystem struct {
	dir         string
	failOnError bool
	gate        *gate
	counters    counters
	logger      *log.Logger
}

// NewFilesystem creates outputDir (recursively) and returns a sink that
// writes one file per entry into it.
func NewFilesystem(outputDir string, maxConcurrent int, failOnError bool, logger *log.Logger) (*Filesystem, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir %s: %w", outputDir, err)
	}
	return &Filesystem{
		dir:         outputDir,
		failOnError: failOnError,
		gate:        newGate(maxConcurrent),
		logger:      logger,
	}, nil
}

func (f *Filesystem) WriteEntry(ctx context.Context, root *document.Node, uid string) error {
	if err := f.gate.acquire(ctx); err != nil {
		return err
	}
	defer f.gate.release()

	err := f.writeFile(root, uid)
	if err != nil {
		f.counters.recordFailure()
		if f.failOnError {
			return err
		}
		return nil
	}
	f.counters.recordSuccess()
	return nil
}

func (f *Filesystem) writeFile(root *document.Node, uid string) error {
	data, err := marshalEntry(root)
	if err != nil {
		return err
	}
	path := filepath.Join(f.dir, uid+".json")
	return os.WriteFile(path, data, 0o644)
}

func (f *Filesystem) Close() error {
	logTotals(f.logger, "filesystem", &f.counters)
	return nil
}

// Snapshot returns the current success/failure totals.
func (f *Filesystem) Snapshot() Counts { return f.counters.snapshot() }
