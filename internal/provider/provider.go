// Package provider maps marketing-facing model names (e.g. "chatgpt",
// "gemini") to concrete chat-completion backends, and target providers to
// their preferred web search tools.
package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Family identifies a chat-completion backend implementation.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyGoogle    Family = "google"
	FamilyAnthropic Family = "anthropic"
)

// ErrMalformedSpec is returned when a "family:model" string cannot be parsed.
var ErrMalformedSpec = errors.New("provider: malformed backend spec")

// BackendSpec names a concrete model on a concrete backend family.
type BackendSpec struct {
	Family Family
	Model  string
}

// String renders the spec in the canonical "family:model" form.
func (s BackendSpec) String() string {
	return string(s.Family) + ":" + s.Model
}

// ParseSpec parses "family:model" into a BackendSpec. Unlike alias
// resolution, parsing is strict: unknown families and missing separators
// are errors, so malformed configuration surfaces immediately.
func ParseSpec(raw string) (BackendSpec, error) {
	family, model, ok := strings.Cut(raw, ":")
	if !ok || model == "" {
		return BackendSpec{}, fmt.Errorf("%w: %q (expected \"family:model\")", ErrMalformedSpec, raw)
	}
	switch Family(strings.ToLower(family)) {
	case FamilyOpenAI:
		return BackendSpec{Family: FamilyOpenAI, Model: model}, nil
	case FamilyGoogle:
		return BackendSpec{Family: FamilyGoogle, Model: model}, nil
	case FamilyAnthropic:
		return BackendSpec{Family: FamilyAnthropic, Model: model}, nil
	default:
		return BackendSpec{}, fmt.Errorf("%w: unsupported family %q", ErrMalformedSpec, family)
	}
}

// Resolution is the result of resolving an alias. Resolution never fails:
// unknown or not-yet-implemented aliases fall back to the default spec, and
// FellBack plus Reason let callers tell a silent fallback from an exact hit.
type Resolution struct {
	Spec     BackendSpec
	FellBack bool
	Reason   string
}

// modelAliases maps user-facing model labels to backend specs. An empty
// value reserves an alias for a provider that is not implemented yet; it
// resolves to the default like an unknown alias, but with a distinct reason.
var modelAliases = map[string]string{
	"gpt-5.2-pro":   "openai:gpt-5.2-pro",
	"gpt-5.2":       "openai:gpt-5.2",
	"gpt-5.1":       "openai:gpt-5.1",
	"gpt-5":         "openai:gpt-5",
	"o3":            "openai:o3",
	"o1":            "openai:o1",
	"gpt-4.5":       "openai:gpt-4.5",
	"gpt-4.1":       "openai:gpt-4.1",
	"gpt-4.1-mini":  "openai:gpt-4.1-mini",
	"gpt-4o":        "openai:gpt-4o",
	"gpt-4o-mini":   "openai:gpt-4o-mini",
	"chatgpt":       "openai:gpt-5.2",
	"gpt-4":         "openai:gpt-4",
	"gpt-3.5-turbo": "openai:gpt-3.5-turbo",

	"gemini":           "google:gemini-3-pro-preview",
	"gemini-pro":       "google:gemini-3-pro-preview",
	"gemini-3-pro":     "google:gemini-3-pro-preview",
	"gemini-flash":     "google:gemini-3-flash-preview",
	"gemini-3-flash":   "google:gemini-3-flash-preview",
	"gemini-reasoning": "google:gemini-2.5-pro",
	"gemini-2.5-pro":   "google:gemini-2.5-pro",
	"gemini-2.5-flash": "google:gemini-2.5-flash",

	// Reserved until an Anthropic backend lands.
	"claude": "",
}

// defaultModelSpec is used whenever an alias cannot be resolved exactly.
var defaultModelSpec = BackendSpec{Family: FamilyOpenAI, Model: "gpt-5.2"}

// DefaultModel returns the fallback backend spec.
func DefaultModel() BackendSpec { return defaultModelSpec }

// ResolveModel maps an alias to a backend spec. It is total: every input,
// including the empty string, yields a usable spec. The alias may also be a
// full "family:model" spec already, which resolves exactly to itself.
func ResolveModel(alias string) Resolution {
	key := strings.ToLower(strings.TrimSpace(alias))

	if strings.Contains(key, ":") {
		if spec, err := ParseSpec(key); err == nil {
			return Resolution{Spec: spec}
		}
		return Resolution{
			Spec:     defaultModelSpec,
			FellBack: true,
			Reason:   fmt.Sprintf("malformed spec %q", alias),
		}
	}

	raw, ok := modelAliases[key]
	if !ok {
		return Resolution{
			Spec:     defaultModelSpec,
			FellBack: true,
			Reason:   fmt.Sprintf("no mapping for %q", alias),
		}
	}
	if raw == "" {
		return Resolution{
			Spec:     defaultModelSpec,
			FellBack: true,
			Reason:   fmt.Sprintf("provider %q not yet implemented", alias),
		}
	}

	spec, err := ParseSpec(raw)
	if err != nil {
		// A bad table entry should not break resolution.
		return Resolution{
			Spec:     defaultModelSpec,
			FellBack: true,
			Reason:   fmt.Sprintf("invalid table entry for %q", alias),
		}
	}
	return Resolution{Spec: spec}
}

// SearchTool identifies a web search backend.
type SearchTool string

const (
	SearchToolTavily     SearchTool = "tavily"
	SearchToolBing       SearchTool = "bing"
	SearchToolGoogle     SearchTool = "google"
	SearchToolPerplexity SearchTool = "perplexity"
)

// searchRouting maps target providers to the search tool the real product
// uses: ChatGPT searches with Bing, Gemini with Google, Perplexity with its
// own engine. Claude has no built-in web search. Only the Tavily backend is
// implemented today, so every route currently falls back to it; the table
// records the intended topology.
var searchRouting = map[string]SearchTool{
	"chatgpt":       SearchToolBing,
	"gpt-4":         SearchToolBing,
	"gpt-4o":        SearchToolBing,
	"gpt-4o-mini":   SearchToolBing,
	"gpt-3.5-turbo": SearchToolBing,

	"gemini":       SearchToolGoogle,
	"gemini-pro":   SearchToolGoogle,
	"gemini-ultra": SearchToolGoogle,

	"perplexity": SearchToolPerplexity,
}

// SearchResolution reports which search tool an audit uses and which tool
// the target provider would use in production.
type SearchResolution struct {
	Tool     SearchTool
	Intended SearchTool
	FellBack bool
	Reason   string
}

// ResolveSearchTool picks the search backend for a target provider. Like
// ResolveModel it is total; unknown providers and unimplemented tools fall
// back to Tavily.
func ResolveSearchTool(targetProvider string) SearchResolution {
	key := strings.ToLower(strings.TrimSpace(targetProvider))

	intended, ok := searchRouting[key]
	if !ok {
		return SearchResolution{
			Tool:     SearchToolTavily,
			Intended: SearchToolTavily,
			FellBack: true,
			Reason:   fmt.Sprintf("no search routing for %q", targetProvider),
		}
	}
	if intended != SearchToolTavily {
		return SearchResolution{
			Tool:     SearchToolTavily,
			Intended: intended,
			FellBack: true,
			Reason:   fmt.Sprintf("%s search not yet implemented", intended),
		}
	}
	return SearchResolution{Tool: SearchToolTavily, Intended: intended}
}
