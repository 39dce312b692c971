package config

import "time"

// Config holds bookboost configuration.
// Stored at: {home}/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Store        StoreCfg                  `mapstructure:"store" yaml:"store"`
	Objects      ObjectsCfg                `mapstructure:"objects" yaml:"objects"`
	Conversion   ConversionCfg             `mapstructure:"conversion" yaml:"conversion"`
	Extraction   ExtractionCfg             `mapstructure:"extraction" yaml:"extraction"`
	Defra        DefraConfig               `mapstructure:"defra" yaml:"defra"`

	// Prompts replace embedded prompt text. Keys contain dots, so overrides
	// are a list rather than a map.
	Prompts []PromptOverride `mapstructure:"prompts" yaml:"prompts,omitempty"`
}

// PromptOverride replaces the embedded text of one prompt.
type PromptOverride struct {
	Key  string `mapstructure:"key" yaml:"key"`
	Text string `mapstructure:"text" yaml:"text"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type      string `mapstructure:"type" yaml:"type"`             // "openrouter", "openai"
	Model     string `mapstructure:"model" yaml:"model"`           // Model name
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies provider selections and worker limits.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"` // Default LLM provider

	// Per-task overrides of LLMProvider. Empty uses LLMProvider.
	TitlesProvider     string `mapstructure:"titles_provider" yaml:"titles_provider,omitempty"`
	CleanupProvider    string `mapstructure:"cleanup_provider" yaml:"cleanup_provider,omitempty"`
	EvaluationProvider string `mapstructure:"evaluation_provider" yaml:"evaluation_provider,omitempty"`

	MaxWorkers    int `mapstructure:"max_workers" yaml:"max_workers"`       // Event bus workers
	MaxDeliveries int `mapstructure:"max_deliveries" yaml:"max_deliveries"` // Attempts per event
}

// StoreCfg selects where jobs and parts live.
type StoreCfg struct {
	Backend    string `mapstructure:"backend" yaml:"backend"` // "memory", "sqlite", "defra"
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path,omitempty"`
}

// ObjectsCfg configures the object store.
type ObjectsCfg struct {
	// Root is the directory holding objects (default: {home}/objects).
	Root string `mapstructure:"root" yaml:"root,omitempty"`
}

// ConversionCfg configures document conversion.
type ConversionCfg struct {
	Mode      string `mapstructure:"mode" yaml:"mode"` // "local", "remote"
	RemoteURL string `mapstructure:"remote_url" yaml:"remote_url,omitempty"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	// CallbackBaseURL is the public address the remote service calls back on.
	CallbackBaseURL string        `mapstructure:"callback_base_url" yaml:"callback_base_url,omitempty"`
	PollDelay       time.Duration `mapstructure:"poll_delay" yaml:"poll_delay,omitempty"`
}

// ExtractionCfg tunes chapter segmentation.
type ExtractionCfg struct {
	ASCIIFold bool `mapstructure:"ascii_fold" yaml:"ascii_fold"`
	// TocFallbackLines bounds how much text is dropped after a table of
	// contents with no end marker. 0 drops the rest of the manuscript.
	TocFallbackLines int `mapstructure:"toc_fallback_lines" yaml:"toc_fallback_lines"`
}

// DefraConfig holds DefraDB container configuration.
type DefraConfig struct {
	// ContainerName is the Docker container name (default: bookboost-defra)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: sourcenetwork/defradb:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 9181)
	Port string `mapstructure:"port" yaml:"port"`
}

// Backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendDefra  = "defra"

	ConversionLocal  = "local"
	ConversionRemote = "remote"
)

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:      "openrouter",
				Model:     "anthropic/claude-sonnet-4",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 120,
				Enabled:   true,
			},
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o",
				APIKey:  "${OPENAI_API_KEY}",
				Enabled: false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider:   "openrouter",
			MaxWorkers:    8,
			MaxDeliveries: 3,
		},
		Store: StoreCfg{
			Backend: BackendSQLite,
		},
		Conversion: ConversionCfg{
			Mode:   ConversionLocal,
			APIKey: "${CONVERTAPI_SECRET}",
		},
		Extraction: ExtractionCfg{
			ASCIIFold: true,
		},
		Defra: DefraConfig{
			ContainerName: "bookboost-defra",
			Image:         "sourcenetwork/defradb:latest",
			Port:          "9181",
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// PromptOverrides returns the configured overrides keyed by prompt key.
func (c *Config) PromptOverrides() map[string]string {
	out := make(map[string]string, len(c.Prompts))
	for _, p := range c.Prompts {
		if p.Key != "" {
			out[p.Key] = p.Text
		}
	}
	return out
}

// ProviderFor returns the provider configured for a task, falling back to
// the default LLM provider.
func (d DefaultsCfg) ProviderFor(task string) string {
	var name string
	switch task {
	case "titles":
		name = d.TitlesProvider
	case "cleanup":
		name = d.CleanupProvider
	case "evaluation":
		name = d.EvaluationProvider
	}
	if name == "" {
		return d.LLMProvider
	}
	return name
}
