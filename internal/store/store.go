// Package store implements the client-side entity stores: normalized
// in-memory caches of the server's resource types plus their pending and
// error metadata.
//
// Every asynchronous operation follows one lifecycle: pending sets the
// store's loading flag, fulfilled reconciles the returned representation and
// clears the stored error, rejected stores the server's error payload and
// leaves prior data untouched. The loading flag is a plain overwrite shared
// by all of a store's operations (last transition wins), and mutations
// reconcile strictly by server-assigned identity: update replaces the match,
// delete filters it out, create appends.
//
// Fetch-class operations additionally take a ticket from a per-slice
// monotonic counter; a response whose ticket is no longer the newest is
// dropped without touching data, error, or the loading flag, so overlapping
// fetches cannot apply stale state.
package store

import (
	"fmt"
	"sort"
	"strings"
)

// tracker is the shared pending/error metadata of one store.
type tracker struct {
	loading bool
	err     error
}

func (t *tracker) pend() {
	t.loading = true
}

func (t *tracker) fulfill() {
	t.loading = false
	t.err = nil
}

func (t *tracker) reject(err error) {
	t.loading = false
	t.err = err
}

// ValidationError carries client-side form validation failures. These never
// reach the network layer.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Fields[field])
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, ", "))
}
