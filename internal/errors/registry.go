package errors

import "sync"

// Registry holds the shared message-less error for each code.
// Entries are created on first use and never replaced or removed.
type Registry struct {
	entries sync.Map // ErrorCode -> *domainError
}

func NewRegistry() *Registry {
	return &Registry{}
}

var defaultRegistry = NewRegistry()

// Get returns the shared error for code, publishing one if none exists yet.
// Concurrent first calls may each build a candidate, but all of them
// return the single instance that won the store.
func (r *Registry) Get(code ErrorCode) Error {
	if v, ok := r.entries.Load(code); ok {
		return v.(*domainError)
	}

	v, _ := r.entries.LoadOrStore(code, &domainError{code: code})
	return v.(*domainError)
}

// Len returns the number of codes that have a shared instance
func (r *Registry) Len() int {
	n := 0
	r.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
