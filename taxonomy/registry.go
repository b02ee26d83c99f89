package taxonomy

import (
	"sort"

	"github.com/poiesic/lexmap/core"
)

// UnknownBranch is the resolution result for concepts whose parent chain
// never reaches a branch root.
const UnknownBranch = "Unknown"

// branchMeta is the static presentation registry for top-level branches.
// Keys are canonical branch labels as they appear in the taxonomy.
var branchMeta = map[string]core.BranchInfo{
	"Area of Law":                {Key: "area-of-law", Name: "Area of Law", Color: "#1f6feb"},
	"Legal Services":             {Key: "legal-services", Name: "Legal Services", Color: "#2da44e"},
	"Legal Entity":               {Key: "legal-entity", Name: "Legal Entity", Color: "#8250df"},
	"Industry":                   {Key: "industry", Name: "Industry", Color: "#d4a72c"},
	"Location":                   {Key: "location", Name: "Location", Color: "#cf222e"},
	"Forums and Tribunals":       {Key: "forums-tribunals", Name: "Forums and Tribunals", Color: "#bf3989"},
	"Governmental Body":          {Key: "governmental-body", Name: "Governmental Body", Color: "#57606a"},
	"Document and Artifact":      {Key: "document-artifact", Name: "Document and Artifact", Color: "#0969da"},
	"Legal Authorities":          {Key: "legal-authorities", Name: "Legal Authorities", Color: "#953800"},
	"Matter Narrative":           {Key: "matter-narrative", Name: "Matter Narrative", Color: "#1a7f37"},
	"Player Role":                {Key: "player-role", Name: "Player Role", Color: "#6639ba"},
	"Asset Type":                 {Key: "asset-type", Name: "Asset Type", Color: "#9a6700"},
	"Event":                      {Key: "event", Name: "Event", Color: "#bc4c00"},
	"Objectives":                 {Key: "objectives", Name: "Objectives", Color: "#0550ae"},
	"Service":                    {Key: "service", Name: "Service", Color: "#116329"},
	"Standards Compatibility":    {Key: "standards-compatibility", Name: "Standards Compatibility", Color: "#57606a"},
	"Currency":                   {Key: "currency", Name: "Currency", Color: "#6e7781"},
	"Language":                   {Key: "language", Name: "Language", Color: "#6e7781"},
	"System Identifiers":         {Key: "system-identifiers", Name: "System Identifiers", Color: "#6e7781"},
	"Engagement Terms":           {Key: "engagement-terms", Name: "Engagement Terms", Color: "#4d2d00"},
	"Governance and Regulation":  {Key: "governance-regulation", Name: "Governance and Regulation", Color: "#24292f"},
}

// excludedBranches are never offered as mapping targets. They hold plumbing
// vocabulary rather than matter concepts.
var excludedBranches = map[string]bool{
	"Currency":                true,
	"Language":                true,
	"System Identifiers":      true,
	"Standards Compatibility": true,
}

// Registry exposes the branch presentation metadata and exclusion policy.
// The zero value is not usable; call NewRegistry.
type Registry struct {
	meta     map[string]core.BranchInfo
	excluded map[string]bool
}

// NewRegistry returns the default branch registry.
func NewRegistry() *Registry {
	return &Registry{meta: branchMeta, excluded: excludedBranches}
}

// Excluded reports whether a branch is globally excluded from mapping.
func (r *Registry) Excluded(name string) bool {
	return r.excluded[name]
}

// Known reports whether a branch name belongs to the live (non-excluded)
// registry. Unknown-branch tags from the pre-scan are dropped against this.
func (r *Registry) Known(name string) bool {
	if r.excluded[name] {
		return false
	}
	_, ok := r.meta[name]
	return ok
}

// Lookup returns presentation metadata for a branch. Unregistered branches
// get a synthesized neutral entry so callers always render something.
func (r *Registry) Lookup(name string) core.BranchInfo {
	if info, ok := r.meta[name]; ok {
		return info
	}
	return core.BranchInfo{Key: "unknown", Name: name, Color: "#6e7781"}
}

// Live returns the non-excluded branches sorted by name.
func (r *Registry) Live() []core.BranchInfo {
	out := make([]core.BranchInfo, 0, len(r.meta))
	for name, info := range r.meta {
		if r.excluded[name] {
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LiveNames returns the names of the non-excluded branches sorted
// alphabetically.
func (r *Registry) LiveNames() []string {
	live := r.Live()
	names := make([]string, len(live))
	for i, info := range live {
		names[i] = info.Name
	}
	return names
}
