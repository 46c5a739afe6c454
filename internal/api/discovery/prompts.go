package discovery

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

var keywordSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"keywords": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []any{"keywords"},
}

func keywordPrompt(persona, destination string) string {
	return fmt.Sprintf(`You are a travel search assistant.
Extract 5 to 10 short search keywords for finding places of interest.

<persona>
%s
</persona>

<destination>
%s
</destination>

Rules:
- Each keyword is 1-4 words, suitable as a web search query fragment.
- Keywords must reflect the persona's tastes and the destination.
- Use the destination's local script when it helps search quality.
- Return only the keywords.`, persona, destination)
}

var summarySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name": map[string]any{"type": "string"},
		"category": map[string]any{
			"type": "string",
			"enum": []any{"restaurant", "cafe", "attraction", "accommodation", "shopping", "entertainment", "other"},
		},
		"summary": map[string]any{"type": "string"},
		"highlights": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []any{"name", "category", "summary"},
}

func summaryPrompt(cand types.PoiCandidate, persona string) string {
	return fmt.Sprintf(`Summarize the following web search hit as a single place of interest.

<persona>
%s
</persona>

<hit>
title: %s
snippet: %s
url: %s
</hit>

Rules:
- name is the place's proper name, not the article title.
- summary is 1-2 sentences tailored to the persona.
- highlights are up to 3 short phrases.
- If the hit does not describe one concrete visitable place, use an empty name.`,
		persona, cand.Title, cand.Snippet, cand.SourceURL)
}

var rerankSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"scores": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "number"},
		},
	},
	"required": []any{"scores"},
}

func rerankPrompt(candidates []types.PoiCandidate, persona string) string {
	var b strings.Builder
	for i, cand := range candidates {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, cand.Title, cand.Snippet)
	}
	return fmt.Sprintf(`Score each place below for how well it matches the traveler.

<persona>
%s
</persona>

<places>
%s</places>

Rules:
- Return one score per place, in the same order, each in [0, 1].
- Higher means a better fit for the persona.`, persona, b.String())
}
