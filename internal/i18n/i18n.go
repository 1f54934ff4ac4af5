package i18n

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

type Translations struct {
	bundle   *i18n.Bundle
	localize *i18n.Localizer
}

// NewTranslations loads the built-in English and Spanish messages plus any
// active.*.toml file found in localesDir.
func NewTranslations(defaultLang, localesDir string) (*Translations, error) {
	if defaultLang == "" {
		return nil, fmt.Errorf("language must not be empty")
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	bundle.MustParseMessageFileBytes([]byte(defaultMessages), "default.en.toml")
	bundle.MustParseMessageFileBytes([]byte(spanishMessages), "default.es.toml")

	if localesDir != "" {
		files, err := filepath.Glob(filepath.Join(localesDir, "active.*.toml"))
		if err != nil {
			return nil, fmt.Errorf("error reading locales: %w", err)
		}

		for _, file := range files {
			if _, err := bundle.LoadMessageFile(file); err != nil {
				return nil, fmt.Errorf("error loading locale file %s: %w", file, err)
			}
		}
	}

	return &Translations{
		bundle:   bundle,
		localize: i18n.NewLocalizer(bundle, defaultLang),
	}, nil
}

func (t *Translations) SetLanguage(lang string) error {
	for _, tag := range t.bundle.LanguageTags() {
		if tag.String() == lang {
			t.localize = i18n.NewLocalizer(t.bundle, lang)
			return nil
		}
	}
	return fmt.Errorf("language '%s' not supported", lang)
}

func (t *Translations) GetMessage(messageID string, count int, templateData map[string]interface{}) string {
	localized, err := t.localize.Localize(&i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{
			ID: messageID,
		},
		PluralCount:  count,
		TemplateData: templateData,
	})
	if err != nil {
		return "Translation missing: " + messageID
	}
	return localized
}

var defaultMessages = `
[learn_command_usage]
other = "Extract knowledge from the repository history and files"

[learn_flag_verify]
other = "Show the synthesized entries without writing anything"

[learn_flag_full]
other = "Analyze every file, not only new and changed ones"

[learn_flag_limit]
other = "Maximum number of commits to walk (0 means no limit)"

[learn_nothing_to_do]
other = "Nothing new to learn. The knowledge base is up to date"

[learn_verify_header]
other = "Synthesized entries (not written):"

[learn_entries]
one = "{{.Count}} entry synthesized"
other = "{{.Count}} entries synthesized"

[learn_records]
other = "Records: {{.Written}} written, {{.Updated}} updated, {{.Skipped}} unchanged"

[learn_conflicts]
other = "Conflicts: {{.Detected}} detected, {{.Resolved}} resolved, {{.Unresolved}} unresolved"

[learn_agreement]
other = "Agreement across {{.Backends}}: {{.Percent}}%"

[status_command_usage]
other = "Show what the knowledge base tracks"

[status_files]
one = "{{.Count}} file tracked"
other = "{{.Count}} files tracked"

[status_commits]
one = "{{.Count}} commit processed"
other = "{{.Count}} commits processed"

[status_patterns]
one = "{{.Count}} pattern"
other = "{{.Count}} patterns"

[status_last_updated]
other = "Last updated: {{.When}}"

[status_never_updated]
other = "Last updated: never"

[status_backends]
other = "Backends:"

[status_backend_enabled]
other = "enabled"

[status_backend_disabled]
other = "disabled"

[config_command_usage]
other = "Manage the noggin configuration"

[config_init_usage]
other = "Create .noggin/ and the default configuration"

[config_show_usage]
other = "Print the current configuration"

[config_initialized]
other = "Configuration written to {{.Path}}"

[config_show_header]
other = "Current configuration ({{.Path}})"

[error_label]
other = "Error"

[suggestion_label]
other = "Suggestion"

[app_usage]
other = "Build a knowledge base from your repository history"

[flag_debug]
other = "Show debug logs"

[flag_verbose]
other = "Show progress logs"

[command_already_registered]
other = "Command '{{.Name}}' is already registered"

[learn_querying]
other = "Querying backends"

[learn_scan_summary]
other = "Files: {{.Changed}} changed, {{.Deleted}} deleted, {{.Total}} scanned"

[learn_commit_summary]
other = "Commits: {{.New}} new of {{.Walked}} walked, {{.Significant}} significant"

[learn_files_deferred]
other = "{{.Count}} changed files left for the next run"

[learn_patterns_invalidated]
one = "{{.Count}} pattern invalidated"
other = "{{.Count}} patterns invalidated"

[learn_backend_failed]
other = "{{.Backend}} failed: {{.Reason}}"

[config_init_force]
other = "Overwrite an existing configuration"

[config_already_exists]
other = "Configuration already exists at {{.Path}}. Use --force to overwrite it"

[status_not_initialized]
other = "No knowledge base yet. Run 'noggin learn' to build one"

[learn_invalid_limit]
other = "--limit must not be negative"

[cache_command_usage]
other = "Manage the backend response cache"

[cache_clean_usage]
other = "Remove every cached backend response"

[cache_cleaned]
other = "Response cache cleared"
`

var spanishMessages = `
[learn_command_usage]
other = "Extrae conocimiento del historial y los archivos del repositorio"

[learn_flag_verify]
other = "Muestra las entradas sintetizadas sin escribir nada"

[learn_flag_full]
other = "Analiza todos los archivos, no solo los nuevos o modificados"

[learn_flag_limit]
other = "Cantidad máxima de commits a recorrer (0 significa sin límite)"

[learn_nothing_to_do]
other = "No hay nada nuevo para aprender. La base de conocimiento está al día"

[learn_verify_header]
other = "Entradas sintetizadas (sin escribir):"

[learn_entries]
one = "{{.Count}} entrada sintetizada"
other = "{{.Count}} entradas sintetizadas"

[learn_records]
other = "Registros: {{.Written}} escritos, {{.Updated}} actualizados, {{.Skipped}} sin cambios"

[learn_conflicts]
other = "Conflictos: {{.Detected}} detectados, {{.Resolved}} resueltos, {{.Unresolved}} sin resolver"

[learn_agreement]
other = "Coincidencia entre {{.Backends}}: {{.Percent}}%"

[status_command_usage]
other = "Muestra lo que registra la base de conocimiento"

[status_files]
one = "{{.Count}} archivo registrado"
other = "{{.Count}} archivos registrados"

[status_commits]
one = "{{.Count}} commit procesado"
other = "{{.Count}} commits procesados"

[status_patterns]
one = "{{.Count}} patrón"
other = "{{.Count}} patrones"

[status_last_updated]
other = "Última actualización: {{.When}}"

[status_never_updated]
other = "Última actualización: nunca"

[status_backends]
other = "Backends:"

[status_backend_enabled]
other = "habilitado"

[status_backend_disabled]
other = "deshabilitado"

[config_command_usage]
other = "Administra la configuración de noggin"

[config_init_usage]
other = "Crea .noggin/ y la configuración por defecto"

[config_show_usage]
other = "Muestra la configuración actual"

[config_initialized]
other = "Configuración escrita en {{.Path}}"

[config_show_header]
other = "Configuración actual ({{.Path}})"

[error_label]
other = "Error"

[suggestion_label]
other = "Sugerencia"

[app_usage]
other = "Construye una base de conocimiento a partir del historial del repositorio"

[flag_debug]
other = "Muestra logs de depuración"

[flag_verbose]
other = "Muestra logs de progreso"

[command_already_registered]
other = "El comando '{{.Name}}' ya está registrado"

[learn_querying]
other = "Consultando backends"

[learn_scan_summary]
other = "Archivos: {{.Changed}} modificados, {{.Deleted}} eliminados, {{.Total}} analizados"

[learn_commit_summary]
other = "Commits: {{.New}} nuevos de {{.Walked}} recorridos, {{.Significant}} significativos"

[learn_files_deferred]
other = "{{.Count}} archivos modificados quedan para la próxima ejecución"

[learn_patterns_invalidated]
one = "{{.Count}} patrón invalidado"
other = "{{.Count}} patrones invalidados"

[learn_backend_failed]
other = "{{.Backend}} falló: {{.Reason}}"

[config_init_force]
other = "Sobrescribe una configuración existente"

[config_already_exists]
other = "Ya existe una configuración en {{.Path}}. Usá --force para sobrescribirla"

[status_not_initialized]
other = "Todavía no hay base de conocimiento. Ejecutá 'noggin learn' para crearla"

[learn_invalid_limit]
other = "--limit no puede ser negativo"

[cache_command_usage]
other = "Administra la caché de respuestas de los backends"

[cache_clean_usage]
other = "Elimina todas las respuestas guardadas en caché"

[cache_cleaned]
other = "Caché de respuestas eliminada"
`
