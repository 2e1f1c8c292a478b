// Package middleware wraps a ports.HistoryStore to protect cached
// conversations: secrets are masked before they are written, and message
// content can be encrypted at rest.
package middleware

import "github.com/codrblog/autoshell/pkg/ports"

// Middleware allows wrapping a HistoryStore to add behavior.
type Middleware func(ports.HistoryStore) ports.HistoryStore

// Chain applies mws so that the first one sees calls first.
func Chain(store ports.HistoryStore, mws ...Middleware) ports.HistoryStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
