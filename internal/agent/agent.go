// Package agent defines the SEO analysis capabilities a workflow is made of.
//
// Every agent comes in two families behind the same Capability interface:
// Live capabilities ask a text generation service for a JSON analysis, Mock
// capabilities synthesize a structurally identical output from the context
// alone. Which family is used is decided once at startup; nothing downstream
// branches on it.
package agent

import (
	"context"
	"sort"
)

// Name identifies an agent. The set is closed.
type Name string

const (
	KeywordResearch    Name = "keyword_research"
	ContentBrief       Name = "content_brief"
	ContentWriter      Name = "content_writer"
	TechnicalSEO       Name = "technical_seo"
	ContentGapAnalysis Name = "content_gap_analysis"
	SEOStrategy        Name = "seo_strategy"
)

var descriptions = map[Name]string{
	KeywordResearch:    "Discovers valuable keywords with intent understanding",
	ContentBrief:       "Creates content briefs with strategic direction",
	ContentWriter:      "Generates naturally flowing, SEO-optimized content",
	TechnicalSEO:       "Identifies and explains technical improvements",
	ContentGapAnalysis: "Identifies content opportunities",
	SEOStrategy:        "Develops comprehensive SEO strategies",
}

// All returns every agent name in a stable order.
func All() []Name {
	return []Name{KeywordResearch, ContentBrief, ContentWriter, TechnicalSEO, ContentGapAnalysis, SEOStrategy}
}

// ParseName converts s to a Name, reporting whether it is a known agent.
func ParseName(s string) (Name, bool) {
	n := Name(s)
	return n, n.Valid()
}

// Valid reports whether n is a known agent.
func (n Name) Valid() bool {
	_, ok := descriptions[n]
	return ok
}

// Description is the human-readable summary shown in listings.
func (n Name) Description() string {
	return descriptions[n]
}

func (n Name) String() string { return string(n) }

// OutputKey is the context key a step's whole output is merged under.
func (n Name) OutputKey() string {
	return "output_" + string(n)
}

// StepOutput fields, as they appear in the context and in execution logs.
const (
	FieldAnalysis        = "analysis"
	FieldRecommendations = "recommendations"
	FieldReasoning       = "reasoning"
	FieldData            = "data"
)

// OutputKeys returns the StepOutput field names, sorted.
func OutputKeys() []string {
	return []string{FieldAnalysis, FieldData, FieldReasoning, FieldRecommendations}
}

// StepOutput is the structured result of one agent step. Analysis and
// Recommendations are never nil once Normalize has run.
type StepOutput struct {
	Analysis        any            `json:"analysis"`
	Recommendations []string       `json:"recommendations"`
	Reasoning       string         `json:"reasoning,omitempty"`
	Data            map[string]any `json:"data"`
}

// Normalize replaces nil fields with empty values.
func (o *StepOutput) Normalize() {
	if o.Analysis == nil {
		o.Analysis = ""
	}
	if o.Recommendations == nil {
		o.Recommendations = []string{}
	}
	if o.Data == nil {
		o.Data = map[string]any{}
	}
}

// Fields returns the output as the field map merged into the context.
func (o *StepOutput) Fields() map[string]any {
	return map[string]any{
		FieldAnalysis:        o.Analysis,
		FieldRecommendations: o.Recommendations,
		FieldReasoning:       o.Reasoning,
		FieldData:            o.Data,
	}
}

// Context is a read-only view of everything accumulated so far in a run.
type Context interface {
	// Get returns the most recent value for key.
	Get(key string) (any, bool)
	// Keys returns every key currently visible, sorted.
	Keys() []string
}

// MapContext adapts a plain map to Context. Useful for tests and one-off calls.
type MapContext map[string]any

func (m MapContext) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func (m MapContext) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Capability executes one agent. Implementations must not retain or mutate in.
type Capability interface {
	Name() Name
	Execute(ctx context.Context, in Context) (*StepOutput, error)
}
