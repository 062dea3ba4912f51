// Package config loads the conversational settings shared by every session.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config mirrors the ini configuration surface: section MAIN carries the
// provider and interaction settings, section BROWSER the driver flags.
type Config struct {
	// MAIN
	AgentName             string
	ProviderName          string
	ProviderModel         string
	ProviderServerAddress string
	IsLocal               bool
	JarvisPersonality     bool
	Speak                 bool
	Listen                bool
	RecoverLastSession    bool
	Languages             []string

	// BROWSER
	HeadlessBrowser bool
	StealthMode     bool
}

// Load reads an ini configuration file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("ini")

	v.SetDefault("MAIN.agent_name", "Jarvis")
	v.SetDefault("MAIN.provider_name", "ollama")
	v.SetDefault("MAIN.provider_model", "deepseek-r1:14b")
	v.SetDefault("MAIN.provider_server_address", "127.0.0.1:11434")
	v.SetDefault("MAIN.is_local", true)
	v.SetDefault("MAIN.jarvis_personality", false)
	v.SetDefault("MAIN.speak", false)
	v.SetDefault("MAIN.listen", false)
	v.SetDefault("MAIN.recover_last_session", false)
	v.SetDefault("MAIN.languages", "en zh")
	v.SetDefault("BROWSER.headless_browser", true)
	v.SetDefault("BROWSER.stealth_mode", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			slog.Warn("config file not found, using defaults", "path", path)
		}
	}

	cfg := &Config{
		AgentName:             v.GetString("MAIN.agent_name"),
		ProviderName:          v.GetString("MAIN.provider_name"),
		ProviderModel:         v.GetString("MAIN.provider_model"),
		ProviderServerAddress: v.GetString("MAIN.provider_server_address"),
		IsLocal:               v.GetBool("MAIN.is_local"),
		JarvisPersonality:     v.GetBool("MAIN.jarvis_personality"),
		Speak:                 v.GetBool("MAIN.speak"),
		Listen:                v.GetBool("MAIN.listen"),
		RecoverLastSession:    v.GetBool("MAIN.recover_last_session"),
		Languages:             strings.Fields(v.GetString("MAIN.languages")),
		HeadlessBrowser:       v.GetBool("BROWSER.headless_browser"),
		StealthMode:           v.GetBool("BROWSER.stealth_mode"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded settings.
func (c *Config) Validate() error {
	if c.ProviderName == "" {
		return errors.New("provider_name is required")
	}
	if c.ProviderModel == "" {
		return errors.New("provider_model is required")
	}
	if len(c.Languages) == 0 {
		return errors.New("languages must list at least one language tag")
	}
	return nil
}

// PersonalityFolder selects the prompt folder for the configured personality.
func (c *Config) PersonalityFolder() string {
	if c.JarvisPersonality {
		return "jarvis"
	}
	return "base"
}

// MainLanguage returns the first configured language tag.
func (c *Config) MainLanguage() string {
	if len(c.Languages) == 0 {
		return "en"
	}
	return c.Languages[0]
}

// Headless reports whether the browser must run headless. Inside Docker the
// setting is forced on regardless of configuration.
func (c *Config) Headless() bool {
	if RunningInDocker() && !c.HeadlessBrowser {
		slog.Warn("detected Docker environment, forcing headless_browser=true")
		return true
	}
	return c.HeadlessBrowser
}

// RunningInDocker detects a containerized environment: either /.dockerenv
// exists or the init cgroup mentions docker.
func RunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	data, err := os.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "docker")
}
