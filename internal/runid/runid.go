// Package runid mints a short run-correlation id, stamped into every log
// line so interleaved output from concurrent page work units across many
// sinks stays attributable to one run.
package runid

import "github.com/google/uuid"

// New returns a fresh run id, e.g. "a1b2c3d4".
func New() string {
	return uuid.NewString()[:8]
}
