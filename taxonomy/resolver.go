package taxonomy

import (
	"sync"
)

// maxResolveDepth caps the upward walk. Real taxonomies are far shallower;
// the cap guards against pathological parent chains.
const maxResolveDepth = 20

// Resolver maps any concept id to its top-level branch name by walking
// parent edges breadth-first. Results are memoized for the process
// lifetime; the memo is write-once per id so concurrent idempotent writes
// are safe under the mutex.
type Resolver struct {
	oracle Oracle

	mu   sync.RWMutex
	memo map[string]string
}

// NewResolver creates a resolver over the given oracle.
func NewResolver(oracle Oracle) *Resolver {
	return &Resolver{
		oracle: oracle,
		memo:   make(map[string]string),
	}
}

// ResolveBranch returns the branch name for a concept id. A branch root
// resolves to its own label. Unresolvable chains (unknown ids, orphan
// subgraphs, cycles that never reach a root) resolve to UnknownBranch.
func (r *Resolver) ResolveBranch(id string) string {
	r.mu.RLock()
	if name, ok := r.memo[id]; ok {
		r.mu.RUnlock()
		return name
	}
	r.mu.RUnlock()

	name := r.resolve(id)

	r.mu.Lock()
	r.memo[id] = name
	r.mu.Unlock()
	return name
}

func (r *Resolver) resolve(id string) string {
	if r.oracle.IsBranchRoot(id) {
		if c, err := r.oracle.Get(id); err == nil {
			return c.DisplayLabel()
		}
		return UnknownBranch
	}

	// BFS up the parent edges. First parent wins within a level, visited
	// set guards against polyhierarchy cycles.
	visited := map[string]bool{id: true}
	frontier := r.oracle.Parents(id)

	for depth := 0; depth < maxResolveDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, pid := range frontier {
			if visited[pid] {
				continue
			}
			visited[pid] = true

			if r.oracle.IsBranchRoot(pid) {
				if c, err := r.oracle.Get(pid); err == nil {
					return c.DisplayLabel()
				}
				return UnknownBranch
			}
			next = append(next, r.oracle.Parents(pid)...)
		}
		frontier = next
	}
	return UnknownBranch
}

// Reset clears the memo cache. Intended for test isolation.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.memo = make(map[string]string)
	r.mu.Unlock()
}
