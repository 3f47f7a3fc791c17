// Package config loads the haskell-mode server configuration from a
// JSONC file and supplies defaults for everything the file omits.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Backend selects how the REPL subprocess is run.
const (
	BackendLocal  = "local"
	BackendDocker = "docker"
)

// ServerConfig holds server-wide settings.
type ServerConfig struct {
	Address      string `json:"address"`
	DataDir      string `json:"data_dir"`
	LogDir       string `json:"log_dir"`
	AuthDisabled bool   `json:"auth_disabled"`
}

// ContainerConfig identifies the docker attach target for a profile with
// the docker backend.
type ContainerConfig struct {
	ID string `json:"id"`
}

// Profile describes how to start one kind of REPL.
type Profile struct {
	Command    string          `json:"command"`
	Args       []string        `json:"args"`
	WorkingDir string          `json:"working_dir"`
	Env        []string        `json:"env"`
	Backend    string          `json:"backend"`
	Container  ContainerConfig `json:"container"`

	// Setup commands are queued ahead of any user command when a
	// session starts. The defaults install the sentinel prompt.
	Setup []string `json:"setup"`
}

// HistoryConfig controls the request/response history store.
type HistoryConfig struct {
	Enabled bool `json:"enabled"`
}

// ScheduleEntry runs a command against a named session on a cron
// schedule.
type ScheduleEntry struct {
	Name    string `json:"name"`
	Cron    string `json:"cron"`
	Session string `json:"session"`
	Command string `json:"command"`
}

// Config is the full loaded configuration.
type Config struct {
	Server    ServerConfig       `json:"server"`
	Profiles  map[string]Profile `json:"profiles"`
	History   HistoryConfig      `json:"history"`
	Schedules []ScheduleEntry    `json:"schedules"`
}

// DefaultSetup is the GHCi initialization sequence that installs the
// sentinel byte as the prompt. Responses cannot be delimited until these
// have run, but the very first response (to :set prompt itself) already
// ends with the new prompt.
func DefaultSetup() []string {
	return []string{
		`:set prompt "\4"`,
		`:set prompt-cont ""`,
	}
}

// DefaultGHCiProfile returns the stock local GHCi profile.
func DefaultGHCiProfile() Profile {
	return Profile{
		Command: "ghci",
		Backend: BackendLocal,
		Setup:   DefaultSetup(),
	}
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".haskell-mode")
	return &Config{
		Server: ServerConfig{
			Address: "127.0.0.1:8391",
			DataDir: filepath.Join(base, "data"),
			LogDir:  filepath.Join(base, "logs"),
		},
		Profiles: map[string]Profile{
			"ghci": DefaultGHCiProfile(),
		},
		History: HistoryConfig{Enabled: true},
	}
}

// Load reads path (JSONC), applies defaults, and validates. A missing
// file yields the default configuration.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(StripJSONComments(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Profiles == nil {
		c.Profiles = map[string]Profile{}
	}
	if _, ok := c.Profiles["ghci"]; !ok {
		c.Profiles["ghci"] = DefaultGHCiProfile()
	}
	for name, p := range c.Profiles {
		if p.Backend == "" {
			p.Backend = BackendLocal
		}
		if p.Setup == nil {
			p.Setup = DefaultSetup()
		}
		c.Profiles[name] = p
	}
}

func (c *Config) validate() error {
	for name, p := range c.Profiles {
		switch p.Backend {
		case BackendLocal:
			if p.Command == "" {
				return fmt.Errorf("profile %q: command is required", name)
			}
		case BackendDocker:
			if p.Container.ID == "" {
				return fmt.Errorf("profile %q: container.id is required for docker backend", name)
			}
			if p.Command == "" {
				return fmt.Errorf("profile %q: command is required", name)
			}
		default:
			return fmt.Errorf("profile %q: unknown backend %q", name, p.Backend)
		}
	}
	for _, s := range c.Schedules {
		if s.Session == "" || s.Command == "" || s.Cron == "" {
			return fmt.Errorf("schedule %q: cron, session and command are all required", s.Name)
		}
	}
	return nil
}
