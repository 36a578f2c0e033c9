package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cfoust/mines/pkg/game"

	opt "github.com/repeale/fp-go/option"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DEFAULT []byte

type TCPIngress struct {
	Port int `yaml:"port"`
}

type WebIngress struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type Ingress struct {
	TCP TCPIngress `yaml:"tcp"`
	Web WebIngress `yaml:"web"`
}

// ModePreset configures one game mode's waiting queue.
type ModePreset struct {
	Name  string `yaml:"name"`
	Mines int    `yaml:"mines"`
}

type Matchmaking struct {
	// How long each player has to move.
	TurnSeconds int          `yaml:"turnSeconds"`
	Modes       []ModePreset `yaml:"modes"`
}

func (m *Matchmaking) TurnDuration() time.Duration {
	return time.Duration(m.TurnSeconds) * time.Second
}

func (m *Matchmaking) FindMode(name string) opt.Option[ModePreset] {
	for _, mode := range m.Modes {
		if mode.Name == name {
			return opt.Some(mode)
		}
	}

	return opt.None[ModePreset]()
}

type Server struct {
	Ingress     Ingress     `yaml:"ingress"`
	Matchmaking Matchmaking `yaml:"matchmaking"`
}

type Config struct {
	Server Server `yaml:"server"`
}

func (c *Config) validate() error {
	match := c.Server.Matchmaking

	if match.TurnSeconds < 1 {
		return fmt.Errorf("turnSeconds must be at least 1, got %d", match.TurnSeconds)
	}

	for _, mode := range match.Modes {
		if _, err := game.ParseMode(mode.Name); err != nil {
			return err
		}
		if mode.Mines < 1 || mode.Mines > game.NumCells-1 {
			return fmt.Errorf(
				"mode %s must have between 1 and %d mines, got %d",
				mode.Name,
				game.NumCells-1,
				mode.Mines,
			)
		}
	}

	return nil
}

func readFile(config *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("does not exist")
	}

	switch filepath.Ext(path) {
	// YAML is a superset of JSON, so one decoder covers both.
	case ".json", ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(data, config)
	}

	return fmt.Errorf("not in a valid format")
}

// Process reads the provided configuration files in order, overlaying each
// onto the embedded defaults. Later files win.
func Process(configPaths []string) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(DEFAULT, &config); err != nil {
		return nil, fmt.Errorf("invalid default config file: %v", err)
	}

	for _, path := range configPaths {
		if err := readFile(&config, path); err != nil {
			return nil, fmt.Errorf(
				"could not process config file %s: %v",
				path,
				err,
			)
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
