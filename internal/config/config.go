// Package config loads and persists the service configuration from a YAML
// file.  If the file does not exist on first load, a default configuration
// matching the reference three-signal intersection is written to disk.
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Signal describes one controlled intersection approach: its red and green
// output pins (BCM numbering), its geographic position and its direction
// group.  Immutable for the process lifetime.
type Signal struct {
	ID        string  `yaml:"id"`
	RedPin    int     `yaml:"red_pin"`
	GreenPin  int     `yaml:"green_pin"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Direction string  `yaml:"direction"` // "north_south" or "east_west"
}

// Config is the top-level structure serialised to config.yml.
type Config struct {
	HTTPPort int      `yaml:"http_port"` // port to listen on (default 5000)
	GPIOChip int      `yaml:"gpio_chip"` // GPIO chip index (default 0)
	LogFile  string   `yaml:"log_file"`  // path of the event log
	Signals  []Signal `yaml:"signals"`
}

// Default returns the built-in configuration: the reference intersection
// with NORTH, EAST and SOUTH approaches.
func Default() Config {
	return Config{
		HTTPPort: 5000,
		GPIOChip: 0,
		LogFile:  "events.log",
		Signals: []Signal{
			{ID: "NORTH", RedPin: 27, GreenPin: 17, Latitude: 11.0168, Longitude: 76.9558, Direction: "north_south"},
			{ID: "EAST", RedPin: 12, GreenPin: 16, Latitude: 11.0170, Longitude: 76.9562, Direction: "east_west"},
			{ID: "SOUTH", RedPin: 20, GreenPin: 21, Latitude: 11.0165, Longitude: 76.9560, Direction: "north_south"},
		},
	}
}

// Manager wraps the loaded configuration and a mutex for concurrent access.
type Manager struct {
	mu     sync.RWMutex
	path   string
	cfg    Config
	loaded bool
}

// NewManager creates a manager reading from and writing to path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load reads configuration from disk.  If the file does not exist, the
// default configuration is created and persisted to disk.  The loaded
// configuration is validated; an invalid configuration is a startup error.
func (m *Manager) Load() error {
	m.mu.Lock()
	if m.loaded {
		m.mu.Unlock()
		return nil
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.cfg = Default()
			m.loaded = true
			// Release the write lock before saving: Save acquires a read
			// lock on the same mutex.
			m.mu.Unlock()
			return m.Save()
		}
		m.mu.Unlock()
		return fmt.Errorf("unable to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("invalid %s: %w", m.path, err)
	}
	if err := Validate(cfg); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("invalid %s: %w", m.path, err)
	}
	m.cfg = cfg
	m.loaded = true
	m.mu.Unlock()
	return nil
}

// Save writes the configuration to disk atomically via a temporary file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := yaml.Marshal(m.cfg)
	if err != nil {
		return err
	}
	tmpPath := m.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, m.path)
}

// Get returns a copy of the current configuration.  Callers must treat the
// returned Config as immutable.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Validate checks that the configuration describes a usable intersection:
// at least one signal, unique IDs, unique pins and known direction groups.
func Validate(cfg Config) error {
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("http_port %d out of range", cfg.HTTPPort)
	}
	if len(cfg.Signals) == 0 {
		return fmt.Errorf("no signals configured")
	}
	ids := make(map[string]bool, len(cfg.Signals))
	pins := make(map[int]string, 2*len(cfg.Signals))
	for _, s := range cfg.Signals {
		if s.ID == "" {
			return fmt.Errorf("signal with empty id")
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate signal id %q", s.ID)
		}
		ids[s.ID] = true
		if s.Direction != "north_south" && s.Direction != "east_west" {
			return fmt.Errorf("signal %s: unknown direction group %q", s.ID, s.Direction)
		}
		if s.RedPin == s.GreenPin {
			return fmt.Errorf("signal %s: red and green share pin %d", s.ID, s.RedPin)
		}
		for _, pin := range []int{s.RedPin, s.GreenPin} {
			if owner, taken := pins[pin]; taken {
				return fmt.Errorf("signal %s: pin %d already used by %s", s.ID, pin, owner)
			}
			pins[pin] = s.ID
		}
	}
	return nil
}
