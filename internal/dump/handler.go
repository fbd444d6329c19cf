package dump

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/bcye/structured-wikivoyage-exports/internal/document"
	"github.com/bcye/structured-wikivoyage-exports/internal/sink"
	"github.com/bcye/structured-wikivoyage-exports/internal/wikitext"
)

// pageTask is the (text, uid, title) unit of work captured at end-of-page,
// matching spec.md §4.3's scheduling contract exactly.
type pageTask struct {
	text  string
	uid   string
	title string
}

// Handler streams a Wikimedia pages-articles XML dump, filters pages
// through mappings, and schedules one transform-and-write work unit per
// qualifying page onto a bounded worker pool.
type Handler struct {
	mappings   map[string]string
	sinks      []sink.Sink
	maxWorkers int
	logger     *log.Logger
}

// NewHandler returns a Handler. maxWorkers<=0 defaults to runtime.NumCPU(),
// following the teacher's buildPageEntities worker-pool sizing.
func NewHandler(mappings map[string]string, sinks []sink.Sink, maxWorkers int, logger *log.Logger) *Handler {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &Handler{mappings: mappings, sinks: sinks, maxWorkers: maxWorkers, logger: logger}
}

// Stream drives the SAX-like event loop over r (already decompressed XML)
// and blocks until every scheduled page work unit has completed. The XML
// token loop does no parsing or writing of pages itself; it hands work to
// a buffered channel consumed by the worker pool, and waits only while
// that channel is full.
func (h *Handler) Stream(ctx context.Context, r io.Reader) error {
	tasks := make(chan pageTask, h.maxWorkers*4)
	group, groupCtx := errgroup.WithContext(ctx)

	for i := 0; i < h.maxWorkers; i++ {
		group.Go(func() error {
			for task := range tasks {
				if err := h.process(groupCtx, task); err != nil {
					return err
				}
			}
			return nil
		})
	}

	var scanned, scheduled int
	decoder := xml.NewDecoder(r)

	var inPage, inRevision, inText, pageIDSet bool
	var currentTag string
	var currentPageID string
	var currentTitle, currentText strings.Builder

	decodeErr := func() error {
		for {
			tok, err := decoder.Token()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("parsing dump XML: %w", err)
			}

			switch t := tok.(type) {
			case xml.StartElement:
				currentTag = t.Name.Local
				switch t.Name.Local {
				case "page":
					inPage = true
					pageIDSet = false
					currentPageID = ""
					currentTitle.Reset()
					currentText.Reset()
				case "revision":
					inRevision = true
				case "text":
					if inRevision {
						inText = true
					}
				}

			case xml.EndElement:
				switch t.Name.Local {
				case "page":
					scanned++
					if pageIDSet {
						if wdID, ok := h.mappings[currentPageID]; ok {
							task := pageTask{
								text:  currentText.String(),
								uid:   wdID,
								title: currentTitle.String(),
							}
							select {
							case tasks <- task:
								scheduled++
							case <-groupCtx.Done():
								return groupCtx.Err()
							}
						}
					}
					inPage, inRevision, inText = false, false, false
					pageIDSet = false
					currentPageID = ""
					currentTitle.Reset()
					currentText.Reset()
				case "revision":
					inRevision = false
				case "text":
					inText = false
				}
				currentTag = ""

			case xml.CharData:
				content := string(t)
				switch {
				case currentTag == "id" && inPage && !inRevision && !pageIDSet:
					if trimmed := strings.TrimSpace(content); trimmed != "" {
						currentPageID = trimmed
						pageIDSet = true
					}
				case currentTag == "title" && inPage:
					currentTitle.WriteString(content)
				case inText:
					currentText.WriteString(content)
				}
			}
		}
	}()

	close(tasks)
	waitErr := group.Wait()

	if h.logger != nil {
		h.logger.Printf("dump handler: scanned %d pages, scheduled %d", scanned, scheduled)
	}

	if decodeErr != nil {
		return decodeErr
	}
	return waitErr
}

// process runs one page's work unit: parse wikitext, stamp the page
// title onto the resulting root exactly once, then write the entry to
// every sink concurrently. It completes only once every sink has
// acknowledged the write (success or handled failure).
func (h *Handler) process(ctx context.Context, task pageTask) error {
	root := wikitext.Parse(task.text)
	root.Properties["title"] = normalizeTitle(task.title)
	return writeToSinks(ctx, h.sinks, root, task.uid)
}

func writeToSinks(ctx context.Context, sinks []sink.Sink, root *document.Node, uid string) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, s := range sinks {
		s := s
		group.Go(func() error {
			return s.WriteEntry(ctx, root, uid)
		})
	}
	return group.Wait()
}

// normalizeTitle applies Unicode NFC normalization to a page title
// gathered from possibly-split XML character data, following the
// teacher's own normalization idiom (util.go's formatLine, which pairs
// golang.org/x/text/unicode/norm with case folding for site-key
// construction). Titles here are user-facing, so we normalize form
// without folding case.
func normalizeTitle(title string) string {
	return norm.NFC.String(title)
}
