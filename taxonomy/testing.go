package taxonomy

import "github.com/poiesic/lexmap/core"

// FixtureConcepts returns a small legal taxonomy used across package tests.
// It has four branch roots (one excluded by the registry), a polyhierarchy
// node, and a detached two-node cycle.
func FixtureConcepts() []*core.Concept {
	return []*core.Concept{
		{Id: "AOL", Label: "Area of Law"},
		{Id: "AOL-100", Label: "Contract Law", Parents: []string{"AOL"},
			Definition: "The body of law governing the formation and enforcement of agreements between parties.",
			Synonyms:   []string{"Agreements Law"}},
		{Id: "AOL-110", Label: "Breach of Contract", Parents: []string{"AOL-100"},
			Definition: "Failure to perform obligations under a binding agreement."},
		{Id: "AOL-120", Label: "Commercial Contracts", Parents: []string{"AOL-100"}},
		{Id: "AOL-121", Label: "Commercial Lease", Parents: []string{"AOL-120", "SRV-110"},
			Synonyms: []string{"Lease Agreement"}},
		{Id: "AOL-200", Label: "Intellectual Property Law", Parents: []string{"AOL"},
			Synonyms: []string{"IP Law"}},
		{Id: "AOL-210", Label: "Patent Law", Parents: []string{"AOL-200"},
			Definition: "Law concerning the protection of inventions."},
		{Id: "AOL-220", Label: "Trademark Law", Parents: []string{"AOL-200"}},
		{Id: "AOL-300", Label: "Employment Law", Parents: []string{"AOL"},
			Synonyms: []string{"Labor Law"}},

		{Id: "SRV", Label: "Legal Services"},
		{Id: "SRV-100", Label: "Litigation", Parents: []string{"SRV"},
			Definition: "Representation of parties in disputes before courts and tribunals.",
			Synonyms:   []string{"Dispute Resolution"}},
		{Id: "SRV-110", Label: "Commercial Litigation", Parents: []string{"SRV-100"}},
		{Id: "SRV-200", Label: "Advisory Services", Parents: []string{"SRV"}},

		{Id: "LOC", Label: "Location"},
		{Id: "LOC-100", Label: "United States", Parents: []string{"LOC"}},

		{Id: "CUR", Label: "Currency"},
		{Id: "CUR-100", Label: "US Dollar", Parents: []string{"CUR"}},

		// Detached cycle: neither node reaches a branch root.
		{Id: "CYC-1", Label: "Cycle One", Parents: []string{"CYC-2"}},
		{Id: "CYC-2", Label: "Cycle Two", Parents: []string{"CYC-1"}},
	}
}

// NewFixtureOracle builds an oracle over FixtureConcepts.
func NewFixtureOracle() (*InMemoryOracle, error) {
	return NewInMemoryOracle(FixtureConcepts())
}
