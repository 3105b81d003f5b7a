// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import "sync"

// Registry is a concurrency-safe set of project names that remembers
// insertion order.
type Registry struct {
	mutex sync.Mutex
	seen  map[string]struct{}
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]struct{})}
}

// Add records a project and reports whether it was new.
func (r *Registry) Add(project string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.seen[project]; ok {
		return false
	}
	r.seen[project] = struct{}{}
	r.order = append(r.order, project)
	return true
}

// List returns the projects in first-seen order. The result is a copy
// and never nil.
func (r *Registry) List() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]string{}, r.order...)
}
