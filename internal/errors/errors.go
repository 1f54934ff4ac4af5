package errors

import "fmt"

// ErrorType defines the category of the error
type ErrorType string

const (
	TypeConfiguration ErrorType = "CONFIGURATION"
	TypeGit           ErrorType = "GIT"
	TypeManifest      ErrorType = "MANIFEST"
	TypeProvider      ErrorType = "PROVIDER"
	TypeSynthesis     ErrorType = "SYNTHESIS"
	TypeInternal      ErrorType = "INTERNAL"
)

// AppError represents a domain-level error with a type and an underlying error
type AppError struct {
	Type       ErrorType
	Message    string
	Context    map[string]interface{}
	Err        error
	Suggestion string
}

func (e *AppError) Error() string {
	var msg string
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Type, e.Message)
	}

	if e.Context != nil {
		if detail, ok := e.Context["detail"].(string); ok && detail != "" {
			msg += fmt.Sprintf(" - %s", detail)
		}
	}

	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError of the same type and message,
// so sentinels still match after WithError or WithContext produced a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithError creates a new AppError with an underlying error
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        err,
		Suggestion: e.Suggestion,
	}
}

// WithContext creates a new AppError with additional context
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	ctx := make(map[string]interface{})
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    ctx,
		Err:        e.Err,
		Suggestion: e.Suggestion,
	}
}

func (e *AppError) WithSuggestion(suggestion string) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        e.Err,
		Suggestion: suggestion,
	}
}

// NewAppError creates a new AppError
func NewAppError(t ErrorType, msg string, err error) *AppError {
	return &AppError{
		Type:    t,
		Message: msg,
		Err:     err,
	}
}

// Git errors
var (
	ErrRepositoryNotFound = NewAppError(TypeGit, "Failed to open repository", nil).
				WithSuggestion("Run noggin from inside a git repository: git status")

	ErrCommitNotFound = NewAppError(TypeGit, "Commit not found in repository history", nil).
				WithSuggestion("Check the hash exists: git cat-file -t <hash>")

	ErrWalkHistory = NewAppError(TypeGit, "Failed to walk commit history", nil)
)

// Configuration errors
var (
	ErrConfigInvalid = NewAppError(TypeConfiguration, "Configuration is invalid", nil).
				WithSuggestion("Review .noggin/config.toml or run: noggin config init --force")

	ErrConfigRead = NewAppError(TypeConfiguration, "Failed to read configuration", nil)

	ErrConfigWrite = NewAppError(TypeConfiguration, "Failed to write configuration", nil)

	ErrAPIKeyMissing = NewAppError(TypeConfiguration, "Backend API key is missing", nil).
				WithSuggestion("Set api_key or api_key_env for the backend in .noggin/config.toml")

	ErrUnknownBackendKind = NewAppError(TypeConfiguration, "Backend kind not supported", nil).
				WithSuggestion("Supported kinds: claude, gemini, openai")
)

// Manifest errors
var (
	ErrManifestCorrupted = NewAppError(TypeManifest, "Manifest data is corrupted", nil).
				WithSuggestion("Restore .noggin/manifest.toml from version control or delete it to rebuild")

	ErrManifestMissingField = NewAppError(TypeManifest, "Manifest entry is missing a required field", nil).
				WithSuggestion("Restore .noggin/manifest.toml from version control or delete it to rebuild")

	ErrManifestWrite = NewAppError(TypeManifest, "Failed to save manifest", nil)

	ErrPatternNotFound = NewAppError(TypeManifest, "Pattern is not tracked", nil)

	ErrFileNotTracked = NewAppError(TypeManifest, "File is not tracked", nil)
)

// Provider errors
var (
	ErrNoBackends = NewAppError(TypeProvider, "No backends configured", nil).
			WithSuggestion("Add at least one enabled [[backends]] entry to .noggin/config.toml")

	ErrAllBackendsFailed = NewAppError(TypeProvider, "All backends failed", nil).
				WithSuggestion("Run with --debug to see each backend's failure")
)

// Synthesis errors
var (
	ErrParseFailed = NewAppError(TypeSynthesis, "Failed to parse backend response", nil)

	ErrNoValidEntries = NewAppError(TypeSynthesis, "No valid entries to synthesize", nil).
				WithSuggestion("Check the backends return entries in TOML [[entry]] format")
)

var (
	ErrWriteRecord = NewAppError(TypeInternal, "Failed to write knowledge record", nil)
	ErrScanFiles   = NewAppError(TypeInternal, "Failed to scan repository files", nil)
	ErrBuildPrompt = NewAppError(TypeInternal, "Failed to build prompt", nil)
)
