package gemini

import (
	"strings"

	"google.golang.org/genai"
)

// generateConfig asks for plain text at a low temperature. Gemini 3
// models also get thinking enabled; their thought parts are dropped by
// formatResponse.
func generateConfig(model string, maxTokens int32) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:     float32Ptr(0.3),
		MaxOutputTokens: maxTokens,
	}

	if strings.HasPrefix(model, "gemini-3") {
		config.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingLevel:   genai.ThinkingLevelHigh,
		}
	}

	return config
}

// formatResponse joins the text parts of every candidate, leaving out
// thought summaries.
func formatResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	var content strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" && !part.Thought {
				content.WriteString(part.Text)
			}
		}
	}
	return content.String()
}

func float32Ptr(f float32) *float32 {
	return &f
}
