package regex

import "regexp"

var (
	// Provider error text, e.g. "rate limited, retry-after: 30".
	RetryAfter = regexp.MustCompile(`(?i)retry[- ]after:?\s*(\d+)`)

	// Markdown fence lines around model answers, with or without a language tag.
	CodeFence = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z0-9_-]*[ \t]*$")
)
