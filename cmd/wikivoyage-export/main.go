package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bcye/structured-wikivoyage-exports/internal/config"
	"github.com/bcye/structured-wikivoyage-exports/internal/dump"
	"github.com/bcye/structured-wikivoyage-exports/internal/mapping"
	"github.com/bcye/structured-wikivoyage-exports/internal/metrics"
	"github.com/bcye/structured-wikivoyage-exports/internal/pipeline"
	"github.com/bcye/structured-wikivoyage-exports/internal/runid"
	"github.com/bcye/structured-wikivoyage-exports/internal/sink"
)

var logger *log.Logger

func main() {
	ctx := context.Background()

	mappingsURL := flag.String("mappings-url", mapping.SourceURL, "URL of the page_props SQL dump")
	dumpURL := flag.String("dump-url", dump.SourceURL, "URL of the pages-articles XML dump")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on; empty disables metrics")
	storageKeyPath := flag.String("storage-key", "", "path to a JSON key file with S3-compatible storage credentials")
	flag.Parse()

	if toolDir := os.Getenv("TOOL_DATA_DIR"); toolDir != "" {
		if err := os.Chdir(toolDir); err != nil {
			log.Fatal(err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll("logs", 0o755); err != nil {
		log.Fatal(err)
	}
	logPath := filepath.Join("logs", "wikivoyage-export.log")
	logfile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatal(err)
	}
	defer logfile.Close()

	logFlags := log.Ldate | log.Ltime | log.LUTC | log.Lshortfile
	if cfg.Debug {
		logFlags = log.Ldate | log.Ltime | log.Lmicroseconds | log.LUTC | log.Llongfile
	}
	runID := runid.New()
	logger = log.New(logfile, "run="+runID+" ", logFlags)

	logger.Printf("wikivoyage-export starting up, run=%s", runID)

	sinks, err := buildSinks(ctx, cfg, *storageKeyPath)
	if err != nil {
		logger.Fatal(err)
	}

	if *metricsAddr != "" {
		srv, err := metrics.New(*metricsAddr, cfg.HandlerNames, snapshotFunc(cfg.HandlerNames, sinks))
		if err != nil {
			logger.Fatal(err)
		}
		go func() {
			if err := srv.Serve(); err != nil {
				logger.Printf("metrics server stopped: %s", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if err := pipeline.Run(ctx, http.DefaultClient, *mappingsURL, *dumpURL, sinks, cfg.MaxConcurrent, logger); err != nil {
		logger.Printf("run failed: %v", err)
		logger.Fatal(err)
	}

	logger.Printf("wikivoyage-export exiting, run=%s", runID)
}

// buildSinks instantiates one sink per cfg.HandlerNames entry, dispatching
// by name against a fixed registry of supported backends. Dynamic
// module loading (as the original Python implementation does by
// importing handler classes by name) has no Go equivalent; a static
// registry is the idiomatic replacement.
func buildSinks(ctx context.Context, cfg *config.Config, storageKeyPath string) ([]sink.Sink, error) {
	sinks := make([]sink.Sink, 0, len(cfg.HandlerNames))
	for _, name := range cfg.HandlerNames {
		params := cfg.HandlerParams[name]
		maxConcurrent := intParam(params, "max_concurrent", cfg.MaxConcurrent)
		failOnError := boolParam(params, "fail_on_error", false)

		var s sink.Sink
		var err error
		switch name {
		case "filesystem":
			s, err = sink.NewFilesystem(stringParam(params, "output_dir", "out"), maxConcurrent, failOnError, logger)
		case "csv":
			s, err = sink.NewCSV(stringParam(params, "path", "out.csv"), maxConcurrent, failOnError, logger)
		case "http":
			baseURL := stringParam(params, "base_url", "")
			apiKey := stringParam(params, "api_key", "")
			keepalive := time.Duration(intParam(params, "keepalive_seconds", 90)) * time.Second
			s = sink.NewHTTPStorage(baseURL, apiKey, keepalive, maxConcurrent, failOnError, logger)
		case "objectstore":
			client, cerr := newStorageClient(storageKeyPath)
			if cerr != nil {
				return nil, fmt.Errorf("building storage client for sink %q: %w", name, cerr)
			}
			s, err = sink.NewObjectStore(ctx, client, stringParam(params, "bucket", ""), maxConcurrent, failOnError, logger)
		default:
			return nil, fmt.Errorf("unknown sink %q", name)
		}
		if err != nil {
			return nil, fmt.Errorf("building sink %q: %w", name, err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// snapshotFunc builds a name-to-live-counts lookup. names and sinks are
// the same length and index-aligned: buildSinks appends exactly one
// sink per cfg.HandlerNames entry, in order.
func snapshotFunc(names []string, sinks []sink.Sink) func(name string) sink.Counts {
	byName := make(map[string]sink.Countable, len(names))
	for i, name := range names {
		if i >= len(sinks) {
			break
		}
		if c, ok := sinks[i].(sink.Countable); ok {
			byName[name] = c
		}
	}
	return func(name string) sink.Counts {
		if c, ok := byName[name]; ok {
			return c.Snapshot()
		}
		return sink.Counts{}
	}
}

func stringParam(params map[string]any, key, def string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func intParam(params map[string]any, key string, def int) int {
	if v, ok := params[key]; ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return def
}

func boolParam(params map[string]any, key string, def bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// newStorageClient sets up a client for accessing S3-compatible object
// storage, reading credentials either from a JSON key file or from
// S3_ENDPOINT/S3_KEY/S3_SECRET environment variables.
func newStorageClient(keypath string) (*minio.Client, error) {
	var creds struct{ Endpoint, Key, Secret string }

	if keypath == "" {
		creds.Endpoint = os.Getenv("S3_ENDPOINT")
		creds.Key = os.Getenv("S3_KEY")
		creds.Secret = os.Getenv("S3_SECRET")
	} else {
		data, err := os.ReadFile(keypath)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil, err
		}
	}

	client, err := minio.New(creds.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.Key, creds.Secret, ""),
		Secure: true,
	})
	if err != nil {
		return nil, err
	}
	client.SetAppInfo("WikivoyageExport", "0.1")
	return client, nil
}
