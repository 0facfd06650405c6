// Package secrets detects and redacts credentials in text before it leaves
// the process: prompts sent to providers, error messages shown to users, and
// persisted results.
package secrets

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Scrubber finds and redacts secrets.
type Scrubber interface {
	// Scrub returns content with every finding replaced by the redaction string.
	Scrub(content string) *Result
	// Check reports findings without modifying content.
	Check(content string) *Result
	IsEnabled() bool
}

// Rule is a single detection pattern.
type Rule struct {
	ID          string `koanf:"id"`
	Description string `koanf:"description"`
	Pattern     string `koanf:"pattern"`
	// Keywords gate the regex: a rule only runs when one appears (case-insensitive).
	Keywords []string `koanf:"keywords"`
}

// Config controls scrubbing.
type Config struct {
	Enabled         bool     `koanf:"enabled"`
	Rules           []Rule   `koanf:"rules"`
	RedactionString string   `koanf:"redaction_string"`
	AllowList       []string `koanf:"allow_list"`
}

// DefaultConfig enables the built-in rules.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		Rules:           DefaultRules(),
		RedactionString: "[REDACTED]",
	}
}

// DefaultRules covers provider keys and the generic shapes that show up in
// transport errors and user-supplied notes.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "anthropic-api-key", Description: "Anthropic API key", Pattern: `sk-ant-[A-Za-z0-9_\-]{16,}`},
		{ID: "openai-api-key", Description: "OpenAI API key", Pattern: `sk-(?:proj-)?[A-Za-z0-9]{20,}`},
		{ID: "bearer-token", Description: "Bearer token", Pattern: `(?i)bearer\s+[A-Za-z0-9_\-\.=]{8,}`, Keywords: []string{"bearer"}},
		{ID: "generic-api-key", Description: "Generic API key assignment", Pattern: `(?i)(?:api[_-]?key|x-api-key)["']?\s*[:=]\s*["']?[A-Za-z0-9_\-]{16,}`, Keywords: []string{"key"}},
		{ID: "password-assignment", Description: "Password or secret assignment", Pattern: `(?i)(?:password|passwd|secret)["']?\s*[:=]\s*["']?[^\s"']{8,}`, Keywords: []string{"pass", "secret"}},
		{ID: "dsn-credentials", Description: "Credentials embedded in a URL", Pattern: `[a-z][a-z0-9+.\-]*://[^/\s:@]+:[^/\s@]+@`},
		{ID: "private-key", Description: "Private key block", Pattern: `-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`},
		{ID: "github-token", Description: "GitHub token", Pattern: `gh[pousr]_[A-Za-z0-9]{36}`},
	}
}

type compiledRule struct {
	Rule
	pattern  *regexp.Regexp
	keywords []string
}

type scrubber struct {
	enabled   bool
	redaction string
	rules     []compiledRule
	allow     []*regexp.Regexp
}

// New compiles cfg into a Scrubber. A nil cfg uses DefaultConfig.
func New(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &scrubber{enabled: cfg.Enabled, redaction: cfg.RedactionString}
	if s.redaction == "" {
		s.redaction = "[REDACTED]"
	}

	for i, r := range cfg.Rules {
		if r.ID == "" || r.Pattern == "" {
			return nil, fmt.Errorf("rule %d: id and pattern are required", i)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid pattern: %w", r.ID, err)
		}
		kws := make([]string, len(r.Keywords))
		for j, kw := range r.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		s.rules = append(s.rules, compiledRule{Rule: r, pattern: re, keywords: kws})
	}

	for i, p := range cfg.AllowList {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("allow_list %d: invalid pattern: %w", i, err)
		}
		s.allow = append(s.allow, re)
	}
	return s, nil
}

// MustNew is New that panics on invalid configuration.
func MustNew(cfg *Config) Scrubber {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *scrubber) IsEnabled() bool { return s.enabled }

func (s *scrubber) Check(content string) *Result {
	res := s.Scrub(content)
	res.Scrubbed = content
	return res
}

func (s *scrubber) Scrub(content string) *Result {
	res := &Result{Scrubbed: content, ByRule: map[string]int{}}
	if !s.enabled || content == "" {
		return res
	}

	lower := strings.ToLower(content)
	var spans [][2]int
	for _, r := range s.rules {
		if !hasKeyword(lower, r.keywords) {
			continue
		}
		for _, m := range r.pattern.FindAllStringIndex(content, -1) {
			if s.allowed(content[m[0]:m[1]]) {
				continue
			}
			res.Findings = append(res.Findings, Finding{RuleID: r.ID, Description: r.Description, Start: m[0], End: m[1]})
			res.ByRule[r.ID]++
			spans = append(spans, [2]int{m[0], m[1]})
		}
	}
	if len(spans) == 0 {
		return res
	}

	res.Scrubbed = redact(content, mergeSpans(spans), s.redaction)
	return res
}

func (s *scrubber) allowed(match string) bool {
	for _, re := range s.allow {
		if re.MatchString(match) {
			return true
		}
	}
	return false
}

func hasKeyword(lower string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// mergeSpans sorts and coalesces overlapping spans.
func mergeSpans(spans [][2]int) [][2]int {
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	merged := [][2]int{spans[0]}
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp[0] <= last[1] {
			if sp[1] > last[1] {
				last[1] = sp[1]
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

func redact(content string, spans [][2]int, with string) string {
	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		b.WriteString(content[prev:sp[0]])
		b.WriteString(with)
		prev = sp[1]
	}
	b.WriteString(content[prev:])
	return b.String()
}

// NoopScrubber passes content through unchanged.
type NoopScrubber struct{}

func (NoopScrubber) Scrub(content string) *Result {
	return &Result{Scrubbed: content, ByRule: map[string]int{}}
}

func (n NoopScrubber) Check(content string) *Result { return n.Scrub(content) }

func (NoopScrubber) IsEnabled() bool { return false }

var (
	_ Scrubber = (*scrubber)(nil)
	_ Scrubber = NoopScrubber{}
)
