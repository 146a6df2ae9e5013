// Package lifecycle holds shared constants for component start/stop handling.
package lifecycle

import "time"

// DefaultTimeout bounds how long fx lifecycle hooks may take to start or
// stop a component before the process gives up.
const DefaultTimeout = 10 * time.Second
