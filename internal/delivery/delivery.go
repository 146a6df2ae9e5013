// Package delivery defines the contract every transport adapter satisfies.
package delivery

import "context"

// Delivery is a long-running transport (HTTP server, worker, ...) started by
// the composition root and stopped through the fx lifecycle.
type Delivery interface {
	Serve(ctx context.Context) error
}
