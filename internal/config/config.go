package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/models"
)

type (
	Config struct {
		Language  string          `toml:"language"`
		Scoring   ScoringConfig   `toml:"scoring"`
		Walk      WalkConfig      `toml:"walk"`
		Backends  []BackendConfig `toml:"backends"`
		Synthesis SynthesisConfig `toml:"synthesis"`
		Cache     CacheConfig     `toml:"cache"`

		PathFile string `toml:"-"`
	}

	ScoringConfig struct {
		DiffWeight      float64            `toml:"diff_weight"`
		PatternWeight   float64            `toml:"pattern_weight"`
		MessageWeight   float64            `toml:"message_weight"`
		MinCategory     string             `toml:"min_category"`
		FilePatterns    map[string]float64 `toml:"file_patterns"`
		MessageKeywords map[string]float64 `toml:"message_keywords"`
	}

	WalkConfig struct {
		SkipMerges bool     `toml:"skip_merges"`
		Limit      int      `toml:"limit"`
		Paths      []string `toml:"paths"`
	}

	BackendConfig struct {
		Name              string   `toml:"name"`
		Kind              string   `toml:"kind"`
		Model             string   `toml:"model"`
		APIKey            string   `toml:"api_key,omitempty"`
		APIKeyEnv         string   `toml:"api_key_env,omitempty"`
		BaseURL           string   `toml:"base_url,omitempty"`
		MaxTokens         int      `toml:"max_tokens"`
		Timeout           Duration `toml:"timeout"`
		MaxAttempts       int      `toml:"max_attempts"`
		InitialBackoff    Duration `toml:"initial_backoff"`
		MaxBackoff        Duration `toml:"max_backoff"`
		RequestsPerMinute float64  `toml:"requests_per_minute"`
		Enabled           bool     `toml:"enabled"`
	}

	SynthesisConfig struct {
		MajorityThreshold float64            `toml:"majority_threshold"`
		ClusterDistance   int                `toml:"cluster_distance"`
		Weights           map[string]float64 `toml:"weights"`
	}

	CacheConfig struct {
		Enabled bool     `toml:"enabled"`
		TTL     Duration `toml:"ttl"`
	}
)

// Duration is a time.Duration written as "30s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

const (
	DirName      = ".noggin"
	configFile   = "config.toml"
	manifestFile = "manifest.toml"
	cacheDir     = "cache"

	defaultLang = "en"
)

// Dir returns the noggin state directory of a repository.
func Dir(repoRoot string) string {
	return filepath.Join(repoRoot, DirName)
}

func ConfigPath(repoRoot string) string {
	return filepath.Join(Dir(repoRoot), configFile)
}

func ManifestPath(repoRoot string) string {
	return filepath.Join(Dir(repoRoot), manifestFile)
}

func CacheDir(repoRoot string) string {
	return filepath.Join(Dir(repoRoot), cacheDir)
}

// ResolveAPIKey prefers an inline key over the environment variable.
func (b BackendConfig) ResolveAPIKey() string {
	if b.APIKey != "" {
		return b.APIKey
	}
	if b.APIKeyEnv != "" {
		return os.Getenv(b.APIKeyEnv)
	}
	return ""
}

// EnabledBackends returns the backends that take part in a run, in config order.
func (c *Config) EnabledBackends() []BackendConfig {
	var out []BackendConfig
	for _, b := range c.Backends {
		if b.Enabled {
			out = append(out, b)
		}
	}
	return out
}

// LoadConfig reads <repoRoot>/.noggin/config.toml, or a .toml file given
// directly, creating the default configuration when none exists yet.
func LoadConfig(path string) (*Config, error) {
	configPath := path
	if filepath.Ext(path) != ".toml" {
		configPath = ConfigPath(path)
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return createDefaultConfig(configPath)
	} else if err != nil {
		return nil, appErrors.ErrConfigRead.WithError(err).WithContext("path", configPath)
	}

	config := &Config{}
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, appErrors.ErrConfigRead.WithError(err).WithContext("path", configPath)
	}
	config.PathFile = configPath

	for i := range config.Backends {
		if config.Backends[i].Model == "" {
			config.Backends[i].Model = string(DefaultModelForKind(Kind(config.Backends[i].Kind)))
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, appErrors.ErrConfigInvalid.WithError(err).WithContext("path", configPath)
	}

	return config, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Language: defaultLang,
		Scoring: ScoringConfig{
			DiffWeight:      0.3,
			PatternWeight:   0.4,
			MessageWeight:   0.3,
			MinCategory:     models.CategoryMedium.String(),
			FilePatterns:    DefaultFilePatterns(),
			MessageKeywords: DefaultMessageKeywords(),
		},
		Walk: WalkConfig{
			SkipMerges: true,
		},
		Backends: []BackendConfig{
			{
				Name:           "claude",
				Kind:           string(KindClaude),
				Model:          string(DefaultModelForKind(KindClaude)),
				APIKeyEnv:      "ANTHROPIC_API_KEY",
				MaxTokens:      4096,
				Timeout:        Duration{30 * time.Second},
				MaxAttempts:    3,
				InitialBackoff: Duration{time.Second},
				MaxBackoff:     Duration{30 * time.Second},
				Enabled:        true,
			},
			{
				Name:           "gemini",
				Kind:           string(KindGemini),
				Model:          string(DefaultModelForKind(KindGemini)),
				APIKeyEnv:      "GEMINI_API_KEY",
				MaxTokens:      10000,
				Timeout:        Duration{300 * time.Second},
				MaxAttempts:    3,
				InitialBackoff: Duration{time.Second},
				MaxBackoff:     Duration{30 * time.Second},
				Enabled:        true,
			},
			{
				Name:           "codex",
				Kind:           string(KindOpenAI),
				Model:          string(DefaultModelForKind(KindOpenAI)),
				APIKeyEnv:      "OPENAI_API_KEY",
				MaxTokens:      4096,
				Timeout:        Duration{120 * time.Second},
				MaxAttempts:    3,
				InitialBackoff: Duration{time.Second},
				MaxBackoff:     Duration{30 * time.Second},
				Enabled:        true,
			},
		},
		Synthesis: SynthesisConfig{
			MajorityThreshold: 2.0,
			ClusterDistance:   3,
			Weights: map[string]float64{
				"claude": 1.2,
				"gemini": 1.1,
				"codex":  1.0,
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     Duration{24 * time.Hour},
		},
	}
}

func DefaultFilePatterns() map[string]float64 {
	return map[string]float64{
		"migrations/":        1.0,
		"schema/":            1.0,
		"core/":              1.0,
		"lib/fundamentals/":  1.0,
		"security/":          1.0,
		"src/":               0.8,
		"app/models/":        0.8,
		"app/controllers/":   0.8,
		"config/":            0.8,
		"tests/":             0.5,
		"specs/":             0.5,
		"test/":              0.5,
		"spec/":              0.5,
		"docs/architecture/": 0.5,
		"docs/":              0.3,
		"README":             0.3,
		"examples/":          0.3,
		".gitignore":         0.1,
		".editorconfig":      0.1,
	}
}

func DefaultMessageKeywords() map[string]float64 {
	return map[string]float64{
		"breaking change": 1.0,
		"security fix":    1.0,
		"cve-":            1.0,
		"vulnerability":   1.0,
		"refactor":        0.8,
		"architecture":    0.8,
		"migration":       0.8,
		"deprecate":       0.8,
		"feature":         0.6,
		"enhancement":     0.6,
		"optimize":        0.6,
		"performance":     0.6,
		"fix":             0.4,
		"bug":             0.4,
		"update":          0.4,
		"typo":            0.2,
		"whitespace":      0.2,
		"formatting":      0.2,
		"docs":            0.2,
	}
}

func createDefaultConfig(path string) (*Config, error) {
	config := Default()
	config.PathFile = path

	if err := SaveConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

func SaveConfig(config *Config) error {
	if err := validateConfig(config); err != nil {
		return appErrors.ErrConfigInvalid.WithError(err)
	}

	if config.PathFile == "" {
		return appErrors.ErrConfigWrite.WithError(errors.New("config file path is not set"))
	}

	if err := os.MkdirAll(filepath.Dir(config.PathFile), 0755); err != nil {
		return appErrors.ErrConfigWrite.WithError(err)
	}

	f, err := os.Create(config.PathFile)
	if err != nil {
		return appErrors.ErrConfigWrite.WithError(err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return appErrors.ErrConfigWrite.WithError(err)
	}

	return nil
}

func validateConfig(config *Config) error {
	if config.Language == "" {
		return errors.New("language cannot be empty")
	}

	s := config.Scoring
	if s.DiffWeight < 0 || s.PatternWeight < 0 || s.MessageWeight < 0 {
		return errors.New("scoring weights must not be negative")
	}
	if s.MinCategory != "" {
		if _, err := models.ParseScoreCategory(s.MinCategory); err != nil {
			return err
		}
	}

	if config.Walk.Limit < 0 {
		return errors.New("walk limit must not be negative")
	}

	seen := make(map[string]bool)
	for _, b := range config.Backends {
		if b.Name == "" {
			return errors.New("backend name cannot be empty")
		}
		if seen[b.Name] {
			return fmt.Errorf("duplicate backend name: %s", b.Name)
		}
		seen[b.Name] = true

		if !isKnownKind(b.Kind) {
			return fmt.Errorf("backend %s: unsupported kind %q", b.Name, b.Kind)
		}
		if b.Timeout.Duration <= 0 {
			return fmt.Errorf("backend %s: timeout must be positive", b.Name)
		}
		if b.MaxAttempts < 1 {
			return fmt.Errorf("backend %s: max_attempts must be at least 1", b.Name)
		}
		if b.RequestsPerMinute < 0 {
			return fmt.Errorf("backend %s: requests_per_minute must not be negative", b.Name)
		}
	}

	if config.Synthesis.MajorityThreshold <= 0 {
		return errors.New("synthesis majority_threshold must be positive")
	}
	if config.Synthesis.ClusterDistance < 1 {
		return errors.New("synthesis cluster_distance must be at least 1")
	}

	return nil
}
