package agent

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Mock synthesizes a deterministic StepOutput from the context. It performs
// no I/O and two calls with equal contexts return equal outputs.
type Mock struct {
	name  Name
	model string
}

// NewMock returns the mock capability for name. model is reported in
// data._api_info so results show which live model the run stood in for.
func NewMock(name Name, model string) *Mock {
	return &Mock{name: name, model: model}
}

// Mocks returns a mock capability for every agent.
func Mocks(model string) map[Name]Capability {
	out := make(map[Name]Capability, len(descriptions))
	for _, n := range All() {
		out[n] = NewMock(n, model)
	}
	return out
}

func (m *Mock) Name() Name { return m.name }

func (m *Mock) Execute(ctx context.Context, in Context) (*StepOutput, error) {
	s := subjectFrom(in)

	var out *StepOutput
	switch m.name {
	case KeywordResearch:
		out = mockKeywordResearch(s)
	case ContentBrief:
		out = mockContentBrief(s)
	case ContentWriter:
		out = mockContentWriter(s)
	case TechnicalSEO:
		out = mockTechnicalSEO(s)
	case ContentGapAnalysis:
		out = mockContentGap(s)
	case SEOStrategy:
		out = mockStrategy(s, in)
	default:
		out = &StepOutput{
			Analysis: "Processed the input data and generated insights.",
			Recommendations: []string{
				"Follow best practices for on-page SEO",
				"Improve content quality and relevance",
				"Focus on user experience metrics",
			},
		}
	}

	out.Normalize()
	out.Data["_api_info"] = map[string]any{
		"model":     m.model,
		"version":   "mock",
		"mock_data": true,
	}
	return out, nil
}

// subject is what the mock outputs talk about, pulled from caller input.
type subject struct {
	site     string
	topic    string
	keywords []string
	industry string
	audience string
}

func subjectFrom(in Context) subject {
	s := subject{
		site:     stringValue(in, "website_url", "your website"),
		industry: stringValue(in, "industry", "your industry"),
		audience: stringValue(in, "target_audience", "your audience"),
	}
	for _, kw := range strings.Split(stringValue(in, "target_keywords", ""), ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			s.keywords = append(s.keywords, kw)
		}
	}
	s.topic = s.industry
	if len(s.keywords) > 0 {
		s.topic = s.keywords[0]
	}
	return s
}

func stringValue(in Context, key, fallback string) string {
	v, ok := in.Get(key)
	if !ok {
		return fallback
	}
	if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
		return strings.TrimSpace(str)
	}
	return fallback
}

func mockKeywordResearch(s subject) *StepOutput {
	highIntent := []string{"buy " + s.topic + " online", "best " + s.topic + " price", s.topic + " near me"}
	informational := []string{"how to choose " + s.topic, s.topic + " guide", s.topic + " tutorial"}
	if len(s.keywords) > 1 {
		informational = append(informational, s.keywords[1:]...)
	}
	return &StepOutput{
		Analysis: fmt.Sprintf("Analyzed target keywords for %s to estimate search traffic and user intent in %s.", s.site, s.industry),
		Recommendations: []string{
			"Focus on long-tail keywords with lower competition",
			"Include semantic variants in your content",
			"Target question-based keywords for featured snippets",
		},
		Reasoning: "Keywords were grouped by the intent they signal so content can be mapped to each stage of the search journey.",
		Data: map[string]any{
			"keyword_groups": map[string]any{
				"high_intent":   highIntent,
				"informational": informational,
			},
		},
	}
}

func mockContentBrief(s subject) *StepOutput {
	return &StepOutput{
		Analysis: fmt.Sprintf("Created a content brief on %s for %s based on the keyword research.", s.topic, s.audience),
		Recommendations: []string{
			"Structure content with clear H2 and H3 headings",
			"Include an FAQ section to target question-based searches",
			"Add data visualizations to improve engagement",
		},
		Reasoning: "The outline follows the informational queries first, then moves readers toward high-intent actions.",
		Data: map[string]any{
			"content_structure": map[string]any{
				"title_options": []string{
					"Complete Guide to " + titleCase(s.topic),
					"How to Get Results with " + titleCase(s.topic),
				},
				"sections": []string{
					"Introduction",
					"What is " + titleCase(s.topic),
					"Benefits of " + titleCase(s.topic),
					"How to Get Started",
					"Common Challenges",
					"Best Practices",
					"Conclusion",
				},
			},
		},
	}
}

func mockContentWriter(s subject) *StepOutput {
	title := "Complete Guide to " + titleCase(s.topic)
	body := strings.Join([]string{
		"# " + title,
		fmt.Sprintf("Choosing the right %s matters for %s. This guide walks through what to look for and how to get started.", s.topic, s.audience),
		"## What is " + titleCase(s.topic),
		fmt.Sprintf("%s covers the products and practices people in %s rely on every day.", titleCase(s.topic), s.industry),
		"## How to Get Started",
		"Start with your goals, compare the options that match them, and revisit the choice as your needs change.",
	}, "\n\n")
	return &StepOutput{
		Analysis: fmt.Sprintf("Drafted an article on %s following the content brief.", s.topic),
		Recommendations: []string{
			"Review the draft for brand voice before publishing",
			"Add internal links to related pages on " + s.site,
			"Attach original images with descriptive alt text",
		},
		Data: map[string]any{
			"content":    body,
			"title":      title,
			"word_count": len(strings.Fields(body)),
		},
	}
}

func mockTechnicalSEO(s subject) *StepOutput {
	return &StepOutput{
		Analysis: fmt.Sprintf("Performed a technical SEO audit of %s to identify issues affecting performance and crawlability.", s.site),
		Recommendations: []string{
			"Fix broken links and redirect chains",
			"Optimize image sizes and implement lazy loading",
			"Implement schema markup for rich snippets",
		},
		Reasoning: "Issues are ranked by their effect on crawling and indexing before user-facing performance.",
		Data: map[string]any{
			"issues": map[string]any{
				"critical": []string{
					"Slow page speed on mobile devices",
					"Missing meta descriptions on key landing pages",
					"Duplicate content on product variations",
				},
				"warning": []string{
					"Non-optimized images",
					"Missing alt text on images",
					"Shallow content on category pages",
				},
			},
		},
	}
}

func mockContentGap(s subject) *StepOutput {
	return &StepOutput{
		Analysis: fmt.Sprintf("Identified content gaps for %s by comparing competitor coverage of %s with user search behavior.", s.site, s.topic),
		Recommendations: []string{
			"Create content addressing user questions not currently covered",
			"Expand content on high-value topics with limited current coverage",
			"Update outdated content with fresh information and statistics",
		},
		Data: map[string]any{
			"content_opportunities": []string{
				"Beginner's guide to " + s.topic,
				"Comparison of " + s.topic + " vs alternatives",
				"Case studies showing results from " + s.topic,
			},
		},
	}
}

// mockStrategy folds in what earlier steps found when they ran.
func mockStrategy(s subject, in Context) *StepOutput {
	actions := []string{
		"Fix critical technical issues within 2 weeks",
		"Produce 3 cornerstone content pieces within 1 month",
		"Optimize top 10 existing pages for improved conversions",
	}
	basedOn := []string{}
	for _, n := range []Name{KeywordResearch, ContentGapAnalysis, TechnicalSEO} {
		if _, ok := in.Get(n.OutputKey()); ok {
			basedOn = append(basedOn, string(n))
		}
	}
	return &StepOutput{
		Analysis: fmt.Sprintf("Developed an SEO strategy for %s based on all available data and insights.", s.site),
		Recommendations: []string{
			"Prioritize technical fixes with highest impact on crawlability",
			"Create a content calendar focused on identified gaps",
			"Implement structured data to enhance SERP visibility",
		},
		Reasoning: "Technical fixes unblock indexing, so they precede new content in the roadmap.",
		Data: map[string]any{
			"priority_actions": actions,
			"based_on":         basedOn,
		},
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
