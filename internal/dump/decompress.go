// Package dump streams the Wikivoyage pages-articles XML dump, filters
// pages by the mapping table, and schedules one transform-and-write work
// unit per qualifying page.
package dump

import (
	"io"

	"github.com/dsnet/compress/bzip2"
)

// SourceURL is the Wikimedia dump this handler reads by default.
const SourceURL = "https://dumps.wikimedia.org/enwikivoyage/latest/enwikivoyage-latest-pages-articles.xml.bz2"

// Decompress wraps r, a bzip2-compressed Wikimedia XML dump stream, in a
// streaming decompressor. Following the teacher's own bzip2 usage
// (entities.go, pageviews.go), decoding is fully incremental: nothing is
// buffered beyond one compression block.
func Decompress(r io.Reader) (io.Reader, error) {
	return bzip2.NewReader(r, &bzip2.ReaderConfig{})
}
