// Package pipeline wires together mapping retrieval, dump streaming and
// sink shutdown into the single top-level run, mirroring the shape of
// the teacher's own Build() entry point.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/bcye/structured-wikivoyage-exports/internal/dump"
	"github.com/bcye/structured-wikivoyage-exports/internal/mapping"
	"github.com/bcye/structured-wikivoyage-exports/internal/sink"
)

// Run executes one full extraction: fetch the page-to-Wikidata-id
// mapping, stream and transform the page dump, then close every sink.
// Sinks are closed even if streaming fails, so partial output is
// always flushed; the first error encountered (mapping, streaming, or
// close) is returned.
func Run(ctx context.Context, client *http.Client, mappingsURL, dumpURL string, sinks []sink.Sink, maxWorkers int, logger *log.Logger) error {
	mappings, err := fetchMappings(ctx, client, mappingsURL, logger)
	if err != nil {
		return fmt.Errorf("pipeline: fetching mappings: %w", err)
	}
	logger.Printf("pipeline: loaded %d page mappings", len(mappings))

	streamErr := streamDump(ctx, client, dumpURL, mappings, sinks, maxWorkers, logger)

	closeErr := closeSinks(sinks, logger)

	if streamErr != nil {
		return fmt.Errorf("pipeline: streaming dump: %w", streamErr)
	}
	return closeErr
}

func fetchMappings(ctx context.Context, client *http.Client, url string, logger *log.Logger) (map[string]string, error) {
	if url == "" {
		url = mapping.SourceURL
	}
	return mapping.Fetch(ctx, client, url, logger)
}

func streamDump(ctx context.Context, client *http.Client, url string, mappings map[string]string, sinks []sink.Sink, maxWorkers int, logger *log.Logger) error {
	if url == "" {
		url = dump.SourceURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building dump request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching dump: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetching dump: unexpected status %d", resp.StatusCode)
	}

	reader, err := dump.Decompress(resp.Body)
	if err != nil {
		return fmt.Errorf("decompressing dump: %w", err)
	}

	handler := dump.NewHandler(mappings, sinks, maxWorkers, logger)
	return handler.Stream(ctx, reader)
}

// closeSinks closes every sink, always attempting all of them even if
// an earlier one fails, and returns the first error seen.
func closeSinks(sinks []sink.Sink, logger *log.Logger) error {
	var firstErr error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			logger.Printf("pipeline: error closing sink: %s", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
