package lexical

import "strings"

// domainExpansions maps legal shorthand to the longer forms taxonomies
// actually use for their labels. Expansion phrases are searched alongside
// the generated variants and re-scored against the original query, so a
// weak expansion never outranks a direct match.
var domainExpansions = map[string][]string{
	"litigation":  {"litigation practice", "litigation services", "dispute resolution"},
	"ip":          {"intellectual property"},
	"m&a":         {"mergers and acquisitions"},
	"employment":  {"employment law", "labor law"},
	"real estate": {"real property", "land use"},
	"tax":         {"taxation", "tax law"},
	"bankruptcy":  {"insolvency", "restructuring"},
	"compliance":  {"regulatory compliance"},
	"privacy":     {"data protection", "data privacy"},
	"antitrust":   {"competition law"},
	"arbitration": {"alternative dispute resolution"},
	"landlord":    {"landlord and tenant"},
	"lease":       {"lease agreement", "landlord and tenant"},
}

// expandDomainTerms returns expansion phrases for the query: the full
// normalized phrase is looked up first, then each content word.
func expandDomainTerms(query string) []string {
	norm := normalizeText(query)
	seen := make(map[string]bool)
	var out []string

	add := func(phrases []string) {
		for _, p := range phrases {
			if !seen[p] && p != norm {
				seen[p] = true
				out = append(out, p)
			}
		}
	}

	add(domainExpansions[norm])
	for _, word := range ContentWords(norm) {
		add(domainExpansions[word])
	}
	// Ampersand shorthand ("m&a") never tokenizes, so check raw fields too.
	for _, field := range strings.Fields(norm) {
		add(domainExpansions[field])
	}
	return out
}
