package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

//go:embed default.toml
var defaultTOML []byte

// Duration is a time.Duration that decodes from TOML strings such as "1500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type LLMConfig struct {
	Provider  string `toml:"provider" validate:"required,oneof=openrouter openai ollama claude gemini"`
	Model     string `toml:"model" validate:"required"`
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url" validate:"omitempty,url"`
	KeyPrefix string `toml:"key_prefix"`
	Referer   string `toml:"referer"`
	Title     string `toml:"title"`
}

type MemoryConfig struct {
	// Backend selects the memory store: "webhook" uses the URL collected during
	// intake, "memgraph" uses the [memgraph] section.
	Backend      string   `toml:"backend" validate:"oneof=webhook memgraph"`
	URL          string   `toml:"url"`
	Timeout      Duration `toml:"timeout"`
	StoreTimeout Duration `toml:"store_timeout"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ServerConfig struct {
	Port string `toml:"port" validate:"required,numeric"`
}

type TimingConfig struct {
	EscapeDelay        Duration `toml:"escape_delay"`
	GlitchSpeakDelay   Duration `toml:"glitch_speak_delay"`
	GlitchRecoverDelay Duration `toml:"glitch_recover_delay"`
	WarningDuration    Duration `toml:"warning_duration"`
	RevealPollInterval Duration `toml:"reveal_poll_interval"`
	RevealTimeout      Duration `toml:"reveal_timeout"`
}

type PersonaConfig struct {
	UserName string `toml:"user_name" validate:"required"`
}

type Prompts struct {
	Synthesis  string `toml:"synthesis" validate:"required"`
	Generation string `toml:"generation" validate:"required"`
}

type Config struct {
	LLM      LLMConfig      `toml:"llm"`
	Memory   MemoryConfig   `toml:"memory"`
	Memgraph MemgraphConfig `toml:"memgraph"`
	Server   ServerConfig   `toml:"server"`
	Timing   TimingConfig   `toml:"timing"`
	Persona  PersonaConfig  `toml:"persona"`
	Prompts  Prompts        `toml:"prompts"`
}

// Default returns the embedded configuration.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(defaultTOML, &cfg); err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return &cfg
}

// Load reads the TOML file at path on top of the defaults. A missing file is
// not an error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides config values with environment variables when present.
func (c *Config) ApplyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	override(&c.LLM.Provider, "LLM_PROVIDER")
	override(&c.LLM.Model, "LLM_MODEL")
	override(&c.LLM.APIKey, "LLM_API_KEY")
	override(&c.LLM.BaseURL, "LLM_BASE_URL")
	override(&c.Memory.Backend, "MEMORY_BACKEND")
	override(&c.Memory.URL, "MEMORY_URL")
	override(&c.Memgraph.URI, "MEMGRAPH_URI")
	override(&c.Memgraph.User, "MEMGRAPH_USER")
	override(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	override(&c.Server.Port, "PORT")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config for missing or malformed values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
