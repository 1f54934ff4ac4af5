package ai

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/models"
)

const (
	DefaultMaxLinesPerFile = 200
	DefaultMaxFiles        = 50
)

const entryFormatEN = `Output your findings as TOML entries using this exact format:

` + "```" + `
[[entry]]
what = "{{.WhatHint}}"
why = "{{.WhyHint}}"
how = "{{.HowHint}}"

[entry.context]
{{.ContextHint}}
` + "```" + `

Include multiple [[entry]] blocks. Output only TOML, no prose.`

const (
	filePromptTemplateEN = `Analyze the following source files from a codebase. Identify architectural patterns, coding conventions, error handling approaches, testing strategies, and notable design decisions.

` + entryFormatEN + `
Focus on findings that would help a developer understand the codebase architecture and conventions.

--- FILES ---

{{range .Files}}=== {{.Path}} ({{.Size}} bytes) ===
{{.Body}}
{{if .Truncated}}... ({{.Truncated}} more lines truncated)
{{end}}
{{end}}{{if .Hidden}}({{.Hidden}} more files not shown)
{{end}}`

	commitPromptTemplateEN = `Analyze the following git commits from a codebase. Identify architectural decisions, migrations, notable bug fixes, and significant refactoring efforts.

` + entryFormatEN + `
Focus on commits that represent important decisions, breaking changes, migrations, or lessons learned. Skip trivial commits.

--- COMMITS ---

{{range .Commits}}commit {{.ShortHash}} ({{.Author}})
  {{.Summary}}
  {{.FilesChanged}} files changed, +{{.Insertions}} -{{.Deletions}}

{{end}}`

	patternPromptTemplateEN = `The files behind the following documented patterns have changed. Re-analyze them and describe each pattern as it stands now. Drop patterns that no longer hold.

` + entryFormatEN + `

--- PATTERNS ---

{{range .Patterns}}pattern {{.ID}}: {{.Name}}
  files: {{join .Files ", "}}

{{end}}--- FILES ---

{{range .Files}}=== {{.Path}} ===
{{.Body}}
{{if .Truncated}}... ({{.Truncated}} more lines truncated)
{{end}}
{{end}}{{if .Hidden}}({{.Hidden}} more files not shown)
{{end}}`
)

// PromptData holds the parameters for template rendering
type PromptData struct {
	WhatHint    string
	WhyHint     string
	HowHint     string
	ContextHint string
	Files       []fileSection
	Hidden      int
	Commits     []models.CommitMetadata
	Patterns    []StalePattern
}

// StalePattern is a pattern whose contributing files changed.
type StalePattern struct {
	ID    string
	Name  string
	Files []string
}

type fileSection struct {
	Path      string
	Size      int64
	Body      string
	Truncated int
}

var promptFuncs = template.FuncMap{
	"join": strings.Join,
}

// RenderPrompt executes a prompt template against data.
func RenderPrompt(name, tmplStr string, data interface{}) (string, error) {
	tmpl, err := template.New(name).Funcs(promptFuncs).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("error parsing template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("error executing template %s: %w", name, err)
	}

	return buf.String(), nil
}

// PromptBuilder renders analysis prompts from repository facts. File
// contents are read from root and capped per file and per prompt.
type PromptBuilder struct {
	root            string
	maxLinesPerFile int
	maxFiles        int
}

func NewPromptBuilder(root string) *PromptBuilder {
	return &PromptBuilder{
		root:            root,
		maxLinesPerFile: DefaultMaxLinesPerFile,
		maxFiles:        DefaultMaxFiles,
	}
}

// MaxFiles is the number of files one file prompt shows.
func (b *PromptBuilder) MaxFiles() int {
	return b.maxFiles
}

func (b *PromptBuilder) FilePrompt(files []models.ScannedFile) (string, error) {
	data := PromptData{
		WhatHint:    "one-sentence description of the finding",
		WhyHint:     "reasoning and motivation behind this pattern or decision",
		HowHint:     "how it's implemented, key files, and relevant details",
		ContextHint: "files = [\"path/to/file.go\"]\ndependencies = [\"module-name\"]",
	}

	shown := files
	if len(shown) > b.maxFiles {
		data.Hidden = len(shown) - b.maxFiles
		shown = shown[:b.maxFiles]
	}
	for _, f := range shown {
		section := b.readSection(f.Path)
		section.Size = f.Size
		data.Files = append(data.Files, section)
	}

	return b.render("file_analysis", filePromptTemplateEN, data)
}

func (b *PromptBuilder) CommitPrompt(commits []models.CommitMetadata) (string, error) {
	data := PromptData{
		WhatHint:    "one-sentence description of the decision or change",
		WhyHint:     "inferred reasoning based on commit message and context",
		HowHint:     "what was changed and how it was implemented",
		ContextHint: "commits = [\"abc1234\"]\nfiles = [\"affected/file.go\"]",
		Commits:     commits,
	}
	return b.render("commit_analysis", commitPromptTemplateEN, data)
}

// PatternPrompt asks for a fresh description of stale patterns. Files
// shared by several patterns are included once.
func (b *PromptBuilder) PatternPrompt(patterns []StalePattern) (string, error) {
	data := PromptData{
		WhatHint:    "one-sentence description of the pattern",
		WhyHint:     "why the codebase follows it",
		HowHint:     "how it's applied now, key files, and relevant details",
		ContextHint: "files = [\"path/to/file.go\"]",
		Patterns:    patterns,
	}

	seen := make(map[string]bool)
	var paths []string
	for _, p := range patterns {
		for _, f := range p.Files {
			if !seen[f] {
				seen[f] = true
				paths = append(paths, f)
			}
		}
	}
	if len(paths) > b.maxFiles {
		data.Hidden = len(paths) - b.maxFiles
		paths = paths[:b.maxFiles]
	}
	for _, p := range paths {
		data.Files = append(data.Files, b.readSection(p))
	}

	return b.render("pattern_refresh", patternPromptTemplateEN, data)
}

func (b *PromptBuilder) render(name, tmpl string, data PromptData) (string, error) {
	out, err := RenderPrompt(name, tmpl, data)
	if err != nil {
		return "", appErrors.ErrBuildPrompt.WithError(err).WithContext("prompt", name)
	}
	return out, nil
}

// readSection loads the first lines of a file. Unreadable files are
// rendered with a placeholder body.
func (b *PromptBuilder) readSection(path string) fileSection {
	section := fileSection{Path: path}

	f, err := os.Open(filepath.Join(b.root, filepath.FromSlash(path)))
	if err != nil {
		section.Body = "(unable to read file)"
		return section
	}
	defer func() { _ = f.Close() }()

	var lines []string
	total := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		total++
		if total <= b.maxLinesPerFile {
			lines = append(lines, sc.Text())
		}
	}
	if err := sc.Err(); err != nil {
		section.Body = "(unable to read file)"
		return section
	}

	section.Body = strings.Join(lines, "\n")
	if total > b.maxLinesPerFile {
		section.Truncated = total - b.maxLinesPerFile
	}
	return section
}
