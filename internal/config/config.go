package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server  ServerConfig
	LLM     LLMConfig
	Storage StorageConfig
	Router  RouterConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int

	// APIToken guards the HTTP API when set. Empty disables bearer auth,
	// which keeps local single-user setups friction-free.
	APIToken string
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type RouterConfig struct {
	// Categories is the comma-separated category set the classifier may
	// return. Narrowing it disables the corresponding handlers.
	Categories string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4000,
			MCPPort: 4001,
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Router: RouterConfig{
			Categories: "analyze_meal,coaching,web_search,recipe_generation,conversation,clarification",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/platewise/config.json, then applies PLATEWISE_*
// environment overrides. The LLM API key is required and must come from the
// environment.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if cfg.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: LLM API key. Set it via environment variable PLATEWISE_LLM_API_KEY")
	}
	return cfg, nil
}

// CategoryList splits the configured category set.
func (r RouterConfig) CategoryList() []string {
	var out []string
	for _, c := range strings.Split(r.Categories, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
