package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Symbol      string            `yaml:"symbol"`
	MaxPosition int               `yaml:"max_position"`
	Compact     bool              `yaml:"compact"`
	LogLevel    string            `yaml:"log_level"`
	Buffers     Buffers           `yaml:"buffers"`
	Session     Session           `yaml:"session"`
	OracleRef   OracleReference   `yaml:"oracle"`
	ProviderRef ProviderReference `yaml:"provider"`
	Backtest    Backtest          `yaml:"backtest"`
	Report      Report            `yaml:"report"`
	Journal     string            `yaml:"journal"`
}

func Read(r io.Reader) (*Config, error) {
	var cfg Config
	d := yaml.NewDecoder(r)
	if err := d.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

func (c *Config) applyDefaults() {
	if c.MaxPosition == 0 {
		c.MaxPosition = 1
	}
	if c.Buffers.Daily == 0 {
		c.Buffers.Daily = 60
	}
	if c.Buffers.Hourly == 0 {
		c.Buffers.Hourly = 30
	}
	if c.Buffers.Minute == 0 {
		c.Buffers.Minute = 240
	}
}

func (c *Config) validate() error {
	if c.Symbol == "" {
		return errors.New("config: symbol is required")
	}
	if c.MaxPosition < 1 {
		return fmt.Errorf("config: max_position must be positive, got %d", c.MaxPosition)
	}
	return nil
}

// Buffers caps the per-granularity rolling histories.
type Buffers struct {
	Daily  int `yaml:"daily"`
	Hourly int `yaml:"hourly"`
	Minute int `yaml:"minute"`
}

// Session holds trading-hour intervals as "HH:MM-HH:MM" strings and the
// optional instrument night close. Empty hours select the built-in schedule.
type Session struct {
	Hours      []string `yaml:"hours"`
	NightClose string   `yaml:"night_close"`
}

// Backtest is the replay range. Dates are "2006-01-02", inclusive.
type Backtest struct {
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Parallel int    `yaml:"parallel"`
}

// Report configures the backtest outputs. Plot, when set, is the path of the
// rendered equity curve image.
type Report struct {
	Path string `yaml:"path"`
	Plot string `yaml:"plot"`
}

// oracle configs

type OpenAI struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

func (o OpenAI) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

type StaticOracle struct {
	Reply string `yaml:"reply"`
}

type Oracle interface{}

type OracleReference struct {
	Oracle Oracle
}

func (w *OracleReference) UnmarshalYAML(value *yaml.Node) error {
	if len(value.Content) == 0 {
		return nil
	}

	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return errors.New("invalid oracle yaml format")
	}

	key := value.Content[0].Value
	switch key {
	case "openai":
		var oa OpenAI
		if err := value.Content[1].Decode(&oa); err != nil {
			return fmt.Errorf("failed parsing openai oracle config: %w", err)
		}
		w.Oracle = oa
	case "static":
		var st StaticOracle
		if err := value.Content[1].Decode(&st); err != nil {
			return fmt.Errorf("failed parsing static oracle config: %w", err)
		}
		w.Oracle = st
	default:
		return fmt.Errorf("unknown oracle type: %s", key)
	}

	return nil
}

// provider configs

type CSV struct {
	Dir string `yaml:"dir"`
}

type Alpaca struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Secret  string `yaml:"secret"`
	Feed    string `yaml:"feed"`
}

type Provider interface{}

type ProviderReference struct {
	Provider Provider
}

func (w *ProviderReference) UnmarshalYAML(value *yaml.Node) error {
	if len(value.Content) == 0 {
		return nil
	}

	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return errors.New("invalid provider yaml format")
	}

	key := value.Content[0].Value
	switch key {
	case "csv":
		var c CSV
		if err := value.Content[1].Decode(&c); err != nil {
			return fmt.Errorf("failed parsing csv provider config: %w", err)
		}
		w.Provider = c
	case "alpaca":
		var a Alpaca
		if err := value.Content[1].Decode(&a); err != nil {
			return fmt.Errorf("failed parsing alpaca provider config: %w", err)
		}
		w.Provider = a
	default:
		return fmt.Errorf("unknown provider type: %s", key)
	}

	return nil
}
