package config

type Kind string

const (
	KindClaude Kind = "claude"
	KindGemini Kind = "gemini"
	KindOpenAI Kind = "openai"
)

type Model string

const (
	ModelClaudeSonnet45 Model = "claude-sonnet-4-5"
	ModelClaudeHaiku45  Model = "claude-haiku-4-5"

	ModelGeminiV25Pro       Model = "gemini-2.5-pro"
	ModelGeminiV25Flash     Model = "gemini-2.5-flash"
	ModelGeminiV25FlashLite Model = "gemini-2.5-flash-lite"

	ModelGPTV41     Model = "gpt-4.1"
	ModelGPTV41Mini Model = "gpt-4.1-mini"
)

func SupportedKinds() []Kind {
	return []Kind{KindClaude, KindGemini, KindOpenAI}
}

// ModelsForKind lists the known models of a kind, the default first.
func ModelsForKind(kind Kind) []Model {
	switch kind {
	case KindClaude:
		return []Model{ModelClaudeSonnet45, ModelClaudeHaiku45}
	case KindGemini:
		return []Model{ModelGeminiV25Flash, ModelGeminiV25Pro, ModelGeminiV25FlashLite}
	case KindOpenAI:
		return []Model{ModelGPTV41, ModelGPTV41Mini}
	default:
		return []Model{}
	}
}

func DefaultModelForKind(kind Kind) Model {
	models := ModelsForKind(kind)
	if len(models) == 0 {
		return ""
	}
	return models[0]
}

func isKnownKind(kind string) bool {
	for _, k := range SupportedKinds() {
		if string(k) == kind {
			return true
		}
	}
	return false
}
