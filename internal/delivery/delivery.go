// Package delivery defines the contract every transport server fulfils.
package delivery

import "context"

// Delivery is a long-running transport server started by the application
// container.
type Delivery interface {
	// Serve blocks until the server stops.
	Serve(ctx context.Context) error
}
