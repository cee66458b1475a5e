package middleware

import "github.com/aretw0/scribe/pkg/ports"

// Middleware allows wrapping a PendingStore to add behavior.
type Middleware func(ports.PendingStore) ports.PendingStore

// Chain wraps store with the given middlewares. The first one is outermost.
func Chain(store ports.PendingStore, mws ...Middleware) ports.PendingStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
