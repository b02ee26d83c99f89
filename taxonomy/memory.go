package taxonomy

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/poiesic/lexmap/core"
)

// InMemoryOracle is an Oracle backed by an in-process concept map. It is
// immutable after construction and safe for concurrent readers.
type InMemoryOracle struct {
	concepts map[string]*core.Concept
	ids      []string // sorted, for stable iteration
	roots    map[string]bool
	rootIds  []string
}

// NewInMemoryOracle builds an oracle from a concept slice. Concepts are
// validated; child edges are completed from parent edges so that either
// direction may be sparse in the source data. Branch roots are the concepts
// with no parents.
func NewInMemoryOracle(concepts []*core.Concept) (*InMemoryOracle, error) {
	o := &InMemoryOracle{
		concepts: make(map[string]*core.Concept, len(concepts)),
		roots:    make(map[string]bool),
	}

	for _, c := range concepts {
		if err := core.ValidateConcept(c); err != nil {
			return nil, err
		}
		if _, dup := o.concepts[c.Id]; dup {
			return nil, fmt.Errorf("duplicate concept id %s", c.Id)
		}
		// Copy so later caller mutations cannot reach oracle state.
		cp := *c
		o.concepts[cp.Id] = &cp
		o.ids = append(o.ids, cp.Id)
	}
	sort.Strings(o.ids)

	// Complete child edges from parent edges.
	for _, id := range o.ids {
		c := o.concepts[id]
		for _, pid := range c.Parents {
			parent, ok := o.concepts[pid]
			if !ok {
				continue
			}
			if !containsString(parent.Children, id) {
				parent.Children = append(parent.Children, id)
			}
		}
	}

	for _, id := range o.ids {
		if len(o.concepts[id].Parents) == 0 {
			o.roots[id] = true
			o.rootIds = append(o.rootIds, id)
		}
	}

	return o, nil
}

// Get retrieves a concept by id.
func (o *InMemoryOracle) Get(id string) (*core.Concept, error) {
	c, ok := o.concepts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// SearchByLabel finds concepts whose label or synonyms contain the term.
func (o *InMemoryOracle) SearchByLabel(term string, limit int) []*core.Concept {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	var hits []*core.Concept
	for _, id := range o.ids {
		c := o.concepts[id]
		if strings.Contains(strings.ToLower(c.Label), term) {
			hits = append(hits, c)
		} else if synonymContains(c.Synonyms, term) {
			hits = append(hits, c)
		}
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits
}

// SearchByPrefix finds concepts whose label starts with the term.
func (o *InMemoryOracle) SearchByPrefix(term string, limit int) []*core.Concept {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	var hits []*core.Concept
	for _, id := range o.ids {
		c := o.concepts[id]
		if strings.HasPrefix(strings.ToLower(c.Label), term) {
			hits = append(hits, c)
			if limit > 0 && len(hits) >= limit {
				break
			}
		}
	}
	return hits
}

// SearchByDefinition finds concepts whose definition contains the term.
func (o *InMemoryOracle) SearchByDefinition(term string, limit int) []*core.Concept {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	var hits []*core.Concept
	for _, id := range o.ids {
		c := o.concepts[id]
		if c.Definition != "" && strings.Contains(strings.ToLower(c.Definition), term) {
			hits = append(hits, c)
			if limit > 0 && len(hits) >= limit {
				break
			}
		}
	}
	return hits
}

// Children enumerates descendant ids down to maxDepth levels via
// breadth-first traversal with a visited set, so polyhierarchy cycles
// terminate.
func (o *InMemoryOracle) Children(id string, maxDepth int) []string {
	c, ok := o.concepts[id]
	if !ok || maxDepth < 1 {
		return nil
	}

	visited := map[string]bool{id: true}
	var out []string
	frontier := c.Children

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, cid := range frontier {
			if visited[cid] {
				continue
			}
			visited[cid] = true
			child, ok := o.concepts[cid]
			if !ok {
				continue
			}
			out = append(out, cid)
			next = append(next, child.Children...)
		}
		frontier = next
	}
	return out
}

// Parents returns the parent ids of a concept.
func (o *InMemoryOracle) Parents(id string) []string {
	c, ok := o.concepts[id]
	if !ok {
		return nil
	}
	return c.Parents
}

// SeeAlso returns cross-reference ids of a concept.
func (o *InMemoryOracle) SeeAlso(id string) []string {
	c, ok := o.concepts[id]
	if !ok {
		return nil
	}
	return c.SeeAlso
}

// IsBranchRoot reports whether the id is a top-level branch root.
func (o *InMemoryOracle) IsBranchRoot(id string) bool {
	return o.roots[id]
}

// BranchRoots returns the ids of all top-level branch roots.
func (o *InMemoryOracle) BranchRoots() []string {
	return o.rootIds
}

// All iterates over every concept in stable id order.
func (o *InMemoryOracle) All() iter.Seq[*core.Concept] {
	return func(yield func(*core.Concept) bool) {
		for _, id := range o.ids {
			if !yield(o.concepts[id]) {
				return
			}
		}
	}
}

// Count returns the number of concepts.
func (o *InMemoryOracle) Count() int {
	return len(o.ids)
}

var _ Oracle = (*InMemoryOracle)(nil)

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func synonymContains(synonyms []string, lowered string) bool {
	for _, syn := range synonyms {
		if strings.Contains(strings.ToLower(syn), lowered) {
			return true
		}
	}
	return false
}
