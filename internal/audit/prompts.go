package audit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/baltagiyc/geo-pulse/internal/search"
)

// formatSearchResults renders results for inclusion in an LLM prompt.
func formatSearchResults(results []search.Result) string {
	if len(results) == 0 {
		return "No search results available."
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("Title: %s\nURL: %s\nSnippet: %s", r.Title, r.URL, r.Snippet))
	}
	return strings.Join(parts, "\n\n")
}

func buildBrandContextPrompt(brand string, results []search.Result) string {
	return fmt.Sprintf(`You are a fact-checker. Your goal is to provide a factual, neutral summary of what this brand/company does.

Brand name: %s

I will provide you with web search results about this brand. Your task is to extract:
1. What industry/sector this brand operates in
2. What products or services they offer
3. A brief factual description (2-3 sentences max)

IMPORTANT:
- Focus ONLY on factual information (what they do, not opinions or reviews)
- Ignore recent news, buzz, or controversies
- If the brand is well-known, provide a concise summary
- If the brand is a startup, extract what you can from the search results
- Keep it neutral and factual

Web search results:
%s

Provide a concise, factual summary of what %s does.`, brand, formatSearchResults(results), brand)
}

func buildQuestionsPrompt(brand string, numQuestions int, brandContext string) string {
	contextBlock := ""
	if brandContext != "" {
		contextBlock = fmt.Sprintf("\nFactual context about the brand (use this to stay accurate):\n%s\n", brandContext)
	}
	return fmt.Sprintf(`You are simulating real users researching a brand through AI assistants (ChatGPT, Gemini, etc.).

Brand: %s
%s
Generate exactly %d questions that typical consumers would ask an AI assistant when researching this brand. The questions should cover different angles:
- Product/service quality and recommendations
- Comparisons with competitors
- Weaknesses, criticisms, or negative aspects
- Purchase decisions (where to buy, pricing, alternatives)

IMPORTANT:
- Write questions the way real users phrase them, not like a marketer
- Mention the brand by name in each question
- Each question must be self-contained (no references to other questions)`, brand, contextBlock, numQuestions)
}

func buildSimulationPrompt(question, brand string, results []search.Result) string {
	brandContext := ""
	if brand != "" {
		brandContext = fmt.Sprintf(" (about %s)", brand)
	}
	return fmt.Sprintf(`You are simulating how a real LLM (like ChatGPT) would respond to a user's question%s.

User's question: %s

IMPORTANT: You have been provided with REAL, CURRENT web search results below. These results are up-to-date and contain the information needed to answer the question. You MUST use these search results to provide your answer. Do NOT say you don't have access to real-time data - you have it right here.

Web search results:
%s

Instructions:
1. Use the search results above to answer the user's question comprehensively
2. You can also use your general knowledge to provide context, but prioritize the search results
3. Cite the specific URLs from the search results that you use in your answer
4. Provide a detailed, helpful answer as a real LLM assistant would
5. Do NOT mention that you don't have access to real-time data - you have been provided with current search results`, brandContext, question, formatSearchResults(results))
}

// formatAnswersForAnalysis renders every question with its simulated answer,
// separating the sources the model cited from the ones it ignored. The
// non-cited sources are the visibility opportunities the analyst looks for.
func formatAnswersForAnalysis(st *State) string {
	var b strings.Builder
	for i, q := range st.Questions {
		answer := st.Answers[q]
		results := st.SearchResults[q]

		fmt.Fprintf(&b, "Question %d: %s\n", i+1, q)
		if answer == nil {
			b.WriteString("(No response available)\n\n")
			continue
		}

		cited, notCited := partitionCitations(results, answer.Sources)

		fmt.Fprintf(&b, "LLM Response: %s\n\n", answer.Response)
		if len(cited) > 0 {
			b.WriteString("SOURCES CITED BY LLM (High Impact):\n")
			for _, r := range cited {
				fmt.Fprintf(&b, "   - %s (%s)\n", r.Domain, r.URL)
			}
			b.WriteString("\n")
		}
		if len(notCited) > 0 {
			b.WriteString("AVAILABLE SOURCES NOT CITED (SEO/GEO Opportunities):\n")
			for _, r := range notCited {
				fmt.Fprintf(&b, "   - %s (%s)\n", r.Domain, r.URL)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func buildAnalysisPrompt(st *State) string {
	brand := st.Brand
	domainsText := formatTopDomains(TopDomains(st.Questions, st.SearchResults, topDomainLimit))
	if domainsText == "" {
		domainsText = "No domain data available"
	}
	return fmt.Sprintf(`You are a GEO (Generative Engine Optimization) visibility analyst. Your goal is to help %[1]s improve its VISIBILITY in AI/LLM responses (ChatGPT, Gemini, etc.), NOT to improve the product itself.

IMPORTANT CONTEXT:
- This is a VISIBILITY audit, not a product improvement audit
- We want to know: "How can %[1]s be more visible/cited in LLM responses?"
- We do NOT want product recommendations like "improve pricing" or "add features"
- Instead, we want content/SEO/GEO strategies: "create content about X" or "improve visibility on domain Y"

BRAND: %[1]s

QUESTIONS AND LLM RESPONSES:
%[2]s

TOP DOMAINS/SOURCES CITED:
%[3]s

ANALYSIS REQUIREMENTS:

1. **Focus on Negative Responses (Transform to Content Opportunities)**:
   - Identify the question(s) about negative aspects, weaknesses, or criticisms
   - Extract all negative points mentioned
   - TRANSFORM these into CONTENT OPPORTUNITIES, not product fixes
   - Example: If "pricing is high" -> Recommend "Create content explaining value proposition to be cited when users ask about pricing"
   - Example: If "limited integrations" -> Recommend "Create blog posts about integrations to improve visibility on tech blogs"

2. **Competitor Analysis (Content Strategy)**:
   - If competitors are preferred over %[1]s, identify which ones and why
   - Analyze the reasons (price, quality, innovation, etc.)
   - Recommend CONTENT STRATEGIES to compete, not product changes
   - Example: If competitor is preferred for "better features" -> Recommend "Create comparison content highlighting %[1]s's unique features"

3. **Source/Domain Analysis (SEO/GEO Opportunities)**:
   - Identify which domains/sources are most frequently cited by the LLM
   - Identify which domains appear in search results but are NOT cited (opportunities)
   - Recommend improving visibility on these domains through content creation
   - Suggest specific types of content that would help (blog posts, reviews, guides, etc.)

4. **Reputation Score (0.0 to 1.0)**:
   - Calculate based on: visibility in LLM responses, number of sources cited, position in responses, competitor comparisons
   - 0.0 = Very poor visibility in LLM responses
   - 0.5 = Average/mixed visibility
   - 1.0 = Excellent visibility in LLM responses
   - NOTE: This is about VISIBILITY in AI responses, not product quality

5. **Recommendations (GEO/SEO Focus ONLY)**:
   - Generate 3-5 actionable recommendations to improve VISIBILITY in LLM responses
   - Focus ONLY on content, SEO, and GEO strategies - NOT product improvements
   - Each recommendation should have: title, description, priority (high/medium/low)
   - Examples of GOOD recommendations:
     * "Improve visibility on [domain] by creating blog content about [topic]" (if domain is frequently cited)
     * "Create content addressing [negative point] to be cited when users ask about [topic]" (transform negative into content opportunity)
     * "Optimize content on [domain] for LLM citations" (if domain appears but isn't cited)
     * "Create comparison content vs [competitor] to improve visibility" (if competitor is preferred)
   - Examples of BAD recommendations (DO NOT GENERATE):
     * "Improve product pricing" (product change, not visibility)
     * "Enhance product features" (product change, not visibility)
     * "Fix product issues" (product change, not visibility)
   - IMPORTANT: Transform negative points into CONTENT OPPORTUNITIES, not product fixes
     * Instead of "Fix pricing" -> "Create content explaining pricing strategy to be cited in LLM responses"
     * Instead of "Improve integrations" -> "Create blog posts about integrations to improve visibility on tech blogs"

Provide a comprehensive analysis with a justified score and actionable recommendations.`, brand, formatAnswersForAnalysis(st), domainsText)
}

func formatTopDomains(top []DomainMention) string {
	if len(top) == 0 {
		return ""
	}
	lines := make([]string, 0, len(top))
	for _, dc := range top {
		lines = append(lines, fmt.Sprintf("- %s: %d mentions", dc.Domain, dc.Count))
	}
	return strings.Join(lines, "\n")
}

// partitionCitations splits a question's search results into those whose URL
// the simulated answer cited and those it did not.
func partitionCitations(results []search.Result, sources []string) (cited, notCited []search.Result) {
	citedSet := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		citedSet[s] = struct{}{}
	}
	for _, r := range results {
		if _, ok := citedSet[r.URL]; ok {
			cited = append(cited, r)
		} else {
			notCited = append(notCited, r)
		}
	}
	return cited, notCited
}

const topDomainLimit = 10

// DomainMention is one domain's occurrence count across all search results.
type DomainMention struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// TopDomains tallies domain occurrences across every question's search
// results (one count per occurrence, not per unique URL) and returns the
// top n ordered by count descending. Ties keep first-seen order, walking
// questions in generation order so the tally is deterministic.
func TopDomains(questions []string, searchResults map[string][]search.Result, n int) []DomainMention {
	counts := make(map[string]int)
	var order []string
	for _, q := range questions {
		for _, r := range searchResults[q] {
			if r.Domain == "" {
				continue
			}
			if _, seen := counts[r.Domain]; !seen {
				order = append(order, r.Domain)
			}
			counts[r.Domain]++
		}
	}
	tally := make([]DomainMention, 0, len(order))
	for _, d := range order {
		tally = append(tally, DomainMention{Domain: d, Count: counts[d]})
	}
	sort.SliceStable(tally, func(i, j int) bool { return tally[i].Count > tally[j].Count })
	if len(tally) > n {
		tally = tally[:n]
	}
	return tally
}
