package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

const baseSystemPrompt = `You are an expert SEO agent that produces structured analysis and recommendations.
Analyze the input data you are given and respond with a single JSON object.
The object must contain an "analysis" field and a "recommendations" array of strings.
You may add a "reasoning" string and any further fields the task asks for.`

// specialties describe each agent's focus and working method.
var specialties = map[Name]string{
	KeywordResearch: `You discover valuable keywords for SEO campaigns, weighing search intent, volume, competition and conversion potential.
Work through the topic, industry and business goal; pick primary and secondary keywords; cluster them semantically;
prioritize them across the search journey and explain each grouping.`,
	ContentBrief: `You write content briefs for SEO articles that satisfy search intent.
Study the target keywords and intent, the topics and questions that must be covered, title and heading options,
recommended length, media and internal links, and E-E-A-T signals. Give writers clear strategic direction.`,
	ContentWriter: `You write SEO-optimized articles that read naturally.
Follow the content brief, work keywords in without forcing them, structure the piece with clear headings,
keep a tone that fits the audience, and deliver a publishing-ready draft.`,
	TechnicalSEO: `You identify technical SEO issues and explain why each matters.
Cover page speed and core web vitals, mobile-friendliness, crawlability and indexation, structured data,
site architecture and internal links, URLs, redirects and status codes. Prioritize by impact and say how to fix each issue.`,
	ContentGapAnalysis: `You find content gaps by comparing a site's coverage with competitors and user needs.
Identify topics and questions competitors cover that the site does not, weak or outdated pages,
and unaddressed needs. Recommend specific pieces and rank them by impact and effort.`,
	SEOStrategy: `You build SEO strategies tailored to business goals and market conditions.
Weigh goals, audience and competition against current performance, then lay out a prioritized roadmap
spanning content, technical and off-page work with KPIs and expected return.`,
}

// tasks are appended to the user prompt and name the fields each agent returns.
var tasks = map[Name]string{
	KeywordResearch: `Identify valuable target keywords, group them by search intent and recommend a priority order.
Return JSON with "analysis", "recommendations" and "keyword_groups" fields.`,
	ContentBrief: `Create a content brief with title options, content structure, key points and tone guidelines.
Return JSON with "analysis", "recommendations" and "content_structure" fields.`,
	ContentWriter: `Write the SEO-optimized article described by the data and any content brief above.
Return JSON with "analysis", "recommendations" and "content" fields.`,
	TechnicalSEO: `List the technical SEO issues and opportunities, prioritized by impact, with implementation guidance.
Return JSON with "analysis", "recommendations" and "issues" fields.`,
	ContentGapAnalysis: `Identify content gaps against competitors and unaddressed user needs, and suggest new content.
Return JSON with "analysis", "recommendations" and "content_opportunities" fields.`,
	SEOStrategy: `Develop an SEO strategy with short and long term goals, tactical initiatives and KPIs.
Return JSON with "analysis", "recommendations" and "priority_actions" fields.`,
}

// SystemPrompt returns the system instructions for name.
func SystemPrompt(name Name) string {
	if s, ok := specialties[name]; ok {
		return baseSystemPrompt + "\n\n" + s
	}
	return baseSystemPrompt
}

// UserPrompt renders every visible context key followed by the agent's task.
// Values pass through redact, which may be nil.
func UserPrompt(name Name, in Context, redact func(string) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Input data for %s analysis:\n\n", name)

	for _, key := range in.Keys() {
		v, _ := in.Get(key)
		line := fmt.Sprintf("%s: %s", key, formatValue(v))
		if redact != nil {
			line = redact(line)
		}
		b.WriteString(line)
		b.WriteString("\n\n")
	}

	task, ok := tasks[name]
	if !ok {
		task = `Analyze this data and provide insights and recommendations.
Return JSON with "analysis" and "recommendations" fields.`
	}
	b.WriteString(task)
	b.WriteString("\n")
	return b.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case fmt.Stringer:
		return val.String()
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
