// Package registry maps agent names to capabilities and workflow names to
// ordered step lists.
//
// A Registry is built once at startup from the capabilities chosen by mode
// resolution and is read-only afterwards, so it is safe to share between
// concurrent runs.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
)

// Custom is the workflow type whose steps are supplied by the caller.
const Custom = "custom"

const customDescription = "Custom workflow with user-selected steps"

// Errors for custom workflow validation.
var (
	ErrEmptyWorkflow = errors.New("custom workflow requires at least one step")
	ErrDuplicateStep = errors.New("duplicate step in custom workflow")
	ErrMissingAgent  = errors.New("capability missing for agent")
)

// UnknownAgentError is returned for an agent name outside the closed set.
type UnknownAgentError struct {
	Name string
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("unknown agent %q", e.Name)
}

// UnknownWorkflowError is returned for an unregistered workflow type.
type UnknownWorkflowError struct {
	Name string
}

func (e *UnknownWorkflowError) Error() string {
	return fmt.Sprintf("unknown workflow %q", e.Name)
}

// Workflow is an immutable, resolved workflow definition.
type Workflow struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Steps       []agent.Name `json:"steps"`
}

func (w Workflow) clone() Workflow {
	w.Steps = append([]agent.Name(nil), w.Steps...)
	return w
}

// Predefined returns the shipped workflows, sorted by name.
func Predefined() []Workflow {
	return []Workflow{
		{
			Name:        "content_creation",
			Description: "Create high-quality, SEO-optimized content based on keyword research and a detailed content brief",
			Steps:       []agent.Name{agent.KeywordResearch, agent.ContentBrief, agent.ContentWriter},
		},
		{
			Name:        "content_strategy",
			Description: "Develop a comprehensive content strategy based on keyword research and content gap analysis",
			Steps:       []agent.Name{agent.KeywordResearch, agent.ContentGapAnalysis, agent.SEOStrategy},
		},
		{
			Name:        "full_seo_analysis",
			Description: "Comprehensive SEO analysis including keyword research, content gaps, and technical recommendations",
			Steps:       []agent.Name{agent.KeywordResearch, agent.ContentGapAnalysis, agent.TechnicalSEO, agent.SEOStrategy},
		},
		{
			Name:        "technical_audit",
			Description: "Perform a technical SEO audit to identify issues and opportunities for improvement",
			Steps:       []agent.Name{agent.TechnicalSEO, agent.SEOStrategy},
		},
	}
}

// Registry holds the capability set and workflow catalogue.
type Registry struct {
	capabilities map[agent.Name]agent.Capability
	fallbacks    map[agent.Name]agent.Capability
	workflows    map[string]Workflow
}

// New builds a registry. Every agent in the closed set must have a
// capability; fallbacks default to the mock family.
func New(capabilities map[agent.Name]agent.Capability, fallbacks map[agent.Name]agent.Capability) (*Registry, error) {
	if fallbacks == nil {
		fallbacks = agent.Mocks("")
	}

	r := &Registry{
		capabilities: make(map[agent.Name]agent.Capability, len(capabilities)),
		fallbacks:    make(map[agent.Name]agent.Capability, len(fallbacks)),
		workflows:    make(map[string]Workflow),
	}
	for _, name := range agent.All() {
		c, ok := capabilities[name]
		if !ok || c == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingAgent, name)
		}
		r.capabilities[name] = c
		if fb, ok := fallbacks[name]; ok && fb != nil {
			r.fallbacks[name] = fb
		}
	}
	for name := range capabilities {
		if !name.Valid() {
			return nil, &UnknownAgentError{Name: string(name)}
		}
	}
	for _, w := range Predefined() {
		r.workflows[w.Name] = w
	}
	return r, nil
}

// Capability returns the capability bound to name.
func (r *Registry) Capability(name agent.Name) (agent.Capability, error) {
	c, ok := r.capabilities[name]
	if !ok {
		return nil, &UnknownAgentError{Name: string(name)}
	}
	return c, nil
}

// Fallback returns the mock capability used by the fallback_mock policy.
func (r *Registry) Fallback(name agent.Name) (agent.Capability, bool) {
	c, ok := r.fallbacks[name]
	return c, ok
}

// Workflows returns the predefined workflows sorted by name.
func (r *Registry) Workflows() []Workflow {
	out := make([]Workflow, 0, len(r.workflows))
	for _, w := range r.workflows {
		out = append(out, w.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve returns the definition for workflowType. Steps are only read for
// the custom type, where the whole list is validated before anything runs.
func (r *Registry) Resolve(workflowType string, steps []string) (Workflow, error) {
	if workflowType != Custom {
		w, ok := r.workflows[workflowType]
		if !ok {
			return Workflow{}, &UnknownWorkflowError{Name: workflowType}
		}
		return w.clone(), nil
	}

	names, err := ValidateSteps(steps)
	if err != nil {
		return Workflow{}, err
	}
	return Workflow{Name: Custom, Description: customDescription, Steps: names}, nil
}

// ValidateSteps checks a caller-supplied step list.
func ValidateSteps(steps []string) ([]agent.Name, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyWorkflow
	}

	seen := make(map[agent.Name]struct{}, len(steps))
	names := make([]agent.Name, 0, len(steps))
	for _, s := range steps {
		name, ok := agent.ParseName(strings.TrimSpace(s))
		if !ok {
			return nil, &UnknownAgentError{Name: s}
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStep, name)
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}
