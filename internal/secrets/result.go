package secrets

// Result is the outcome of a scrub.
type Result struct {
	Scrubbed string         `json:"scrubbed"`
	Findings []Finding      `json:"findings,omitempty"`
	ByRule   map[string]int `json:"by_rule,omitempty"`
}

// Finding locates one detected secret in the original content.
type Finding struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
}

// HasFindings reports whether anything was detected.
func (r *Result) HasFindings() bool {
	return len(r.Findings) > 0
}

// TotalFindings returns the number of findings.
func (r *Result) TotalFindings() int {
	return len(r.Findings)
}
