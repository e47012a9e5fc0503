// Package ingestion turns raw CV text and job postings into structured,
// embedded records ready for semantic matching.
package ingestion

import (
	"fmt"
	"sync"
)

// Registry tracks in-flight processing so the same record is never
// processed twice concurrently. It is owned by the ingestion service;
// nothing else mutates it.
type Registry struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{inFlight: make(map[string]bool)}
}

// ApplicantKey and JobKey namespace registry entries so an applicant
// and a job with the same numeric id never collide.
func ApplicantKey(id int64) string { return fmt.Sprintf("applicant:%d", id) }
func JobKey(id int64) string       { return fmt.Sprintf("job:%d", id) }

// Start claims a key. It returns false when the key is already
// in flight.
func (r *Registry) Start(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight[key] {
		return false
	}
	r.inFlight[key] = true
	return true
}

// Finish releases a claimed key.
func (r *Registry) Finish(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, key)
}

// IsProcessing reports whether a key is currently claimed.
func (r *Registry) IsProcessing(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight[key]
}

// Count returns how many keys are in flight.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inFlight)
}
