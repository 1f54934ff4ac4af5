package config

const (
	LangEN = "en"
	LangES = "es"
)

// ResolveLanguage maps a configured language to one with built-in
// messages. Unknown languages fall back to English and report false.
func ResolveLanguage(lang string) (string, bool) {
	switch lang {
	case LangEN, LangES:
		return lang, true
	default:
		return LangEN, false
	}
}
