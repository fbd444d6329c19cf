package sink

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bcye/structured-wikivoyage-exports/internal/document"
)

// CSV appends one row "<uid>","<title>" per entry to a single shared
// file, writing the header exactly once on creation. It keeps one
// append-only writer open across the run; Close flushes and closes it.
type CSV struct {
	out         *os.File
	mu          sync.Mutex
	wroteHeader bool
	failOnError bool
	gate        *gate
	counters    counters
	logger      *log.Logger
}

// NewCSV opens (creating if necessary) the CSV file at path, creating its
// parent directory, and writes the header row if the file is new.
func NewCSV(path string, maxConcurrent int, failOnError bool, logger *log.Logger) (*CSV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating csv sink directory: %w", err)
	}

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening csv sink file %s: %w", path, err)
	}

	c := &CSV{
		out:         f,
		failOnError: failOnError,
		gate:        newGate(maxConcurrent),
		logger:      logger,
		wroteHeader: true,
	}
	if isNew {
		if _, err := f.WriteString("\"id\",\"title\"\n"); err != nil {
			f.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *CSV) WriteEntry(ctx context.Context, root *document.Node, uid string) error {
	if err := c.gate.acquire(ctx); err != nil {
		return err
	}
	defer c.gate.release()

	err := c.appendRow(root, uid)
	if err != nil {
		c.counters.recordFailure()
		if c.failOnError {
			return err
		}
		return nil
	}
	c.counters.recordSuccess()
	return nil
}

func (c *CSV) appendRow(root *document.Node, uid string) error {
	title, _ := root.Properties["title"].(string)

	var buf bytes.Buffer
	buf.WriteByte('"')
	buf.WriteString(uid)
	buf.WriteByte('"')
	buf.WriteByte(',')
	buf.WriteByte('"')
	buf.WriteString(strings.ReplaceAll(title, `"`, `""`))
	buf.WriteByte('"')
	buf.WriteByte('\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.out.Write(buf.Bytes())
	return err
}

func (c *CSV) Close() error {
	logTotals(c.logger, "csv", &c.counters)
	return c.out.Close()
}

// Snapshot returns the current success/failure totals.
func (c *CSV) Snapshot() Counts { return c.counters.snapshot() }
