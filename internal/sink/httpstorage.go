package sink

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bcye/structured-wikivoyage-exports/internal/document"
)

// HTTPStorage PUTs one JSON document per entry to <baseURL>/<uid>.json
// using a single long-lived client with connection reuse.
type HTTPStorage struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	failOnError bool
	gate        *gate
	counters    counters
	logger      *log.Logger
}

// NewHTTPStorage returns a sink backed by an HTTP PUT storage API (the
// shape used by CDN-fronted object storage APIs such as Bunny Storage).
// keepaliveTimeout configures the transport's idle connection timeout.
func NewHTTPStorage(baseURL, apiKey string, keepaliveTimeout time.Duration, maxConcurrent int, failOnError bool, logger *log.Logger) *HTTPStorage {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     keepaliveTimeout,
	}
	return &HTTPStorage{
		baseURL:     baseURL,
		apiKey:      apiKey,
		client:      &http.Client{Transport: transport},
		failOnError: failOnError,
		gate:        newGate(maxConcurrent),
		logger:      logger,
	}
}

func (h *HTTPStorage) WriteEntry(ctx context.Context, root *document.Node, uid string) error {
	if err := h.gate.acquire(ctx); err != nil {
		return err
	}
	defer h.gate.release()

	err := h.put(ctx, root, uid)
	if err != nil {
		h.counters.recordFailure()
		if h.failOnError {
			return err
		}
		return nil
	}
	h.counters.recordSuccess()
	return nil
}

func (h *HTTPStorage) put(ctx context.Context, root *document.Node, uid string) error {
	data, err := marshalEntry(root)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s.json", h.baseURL, uid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("AccessKey", h.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("PUT %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("PUT %s: unexpected status %d", url, resp.StatusCode)
	}
}

func (h *HTTPStorage) Close() error {
	logTotals(h.logger, "http", &h.counters)
	h.client.CloseIdleConnections()
	return nil
}

// Snapshot returns the current success/failure totals.
func (h *HTTPStorage) Snapshot() Counts { return h.counters.snapshot() }
