package datasource

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sosodev/duration"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv names the environment variable holding the lookup token
const APIKeyEnv = "TZ_API_KEY"

// Tie-break modes for zones sharing an offset
const (
	TieBreakArrival = "arrival"
	TieBreakZone    = "zone"
)

// DefaultZones are queried when neither the config file nor a zone file lists any
var DefaultZones = []string{
	"Europe/Lisbon",
	"America/Fortaleza",
	"America/Detroit",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
}

// Config represents the application configuration.
// It is assembled once at startup and not modified afterwards.
type Config struct {
	APIKey string `yaml:"-"`

	BaseURL string   `yaml:"base_url"`
	Zones   []string `yaml:"zones"`

	// Concurrency bounds in-flight requests; 0 means one per zone
	Concurrency    int      `yaml:"concurrency"`
	RequestTimeout Duration `yaml:"request_timeout"`

	FailFast bool   `yaml:"fail_fast"`
	TieBreak string `yaml:"tie_break"`

	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// Duration accepts Go durations ("10s") as well as ISO-8601 ones ("PT10S")
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	d.Duration = parsed
	return nil
}

// ParseDuration parses a Go or ISO-8601 duration
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	iso, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return iso.ToTimeDuration(), nil
}

// DefaultConfig creates a default configuration
func DefaultConfig() *Config {
	config := &Config{
		BaseURL:        DefaultBaseURL,
		Zones:          slices.Clone(DefaultZones),
		RequestTimeout: Duration{30 * time.Second},
		TieBreak:       TieBreakArrival,
	}
	config.RateLimit.Burst = 1
	return config
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
// An empty filename returns the defaults.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	return config, nil
}

// LoadAPIKey reads the lookup token from the environment
func (c *Config) LoadAPIKey(lookupEnv func(string) (string, bool)) error {
	key, ok := lookupEnv(APIKeyEnv)
	if !ok || strings.TrimSpace(key) == "" {
		return ErrMissingAPIKey
	}
	c.APIKey = strings.TrimSpace(key)
	return nil
}

// Validate checks the assembled configuration
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if len(c.Zones) == 0 {
		return errors.New("no zones configured")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.RequestTimeout.Duration < 0 {
		return fmt.Errorf("request timeout must not be negative, got %s", c.RequestTimeout)
	}
	if c.TieBreak != TieBreakArrival && c.TieBreak != TieBreakZone {
		return fmt.Errorf("unknown tie break %q (want %q or %q)", c.TieBreak, TieBreakArrival, TieBreakZone)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate limit must not be negative, got %g", c.RateLimit.RPS)
	}
	return nil
}

// EffectiveConcurrency returns the in-flight bound, defaulting to one per zone
func (c *Config) EffectiveConcurrency() int {
	if c.Concurrency <= 0 || c.Concurrency > len(c.Zones) {
		return len(c.Zones)
	}
	return c.Concurrency
}

// LoadZones reads one zone per line. Blank lines and lines starting with #
// are skipped, duplicates keep their first position.
func LoadZones(r io.Reader) ([]string, error) {
	var zones []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if slices.Contains(zones, line) {
			continue
		}
		zones = append(zones, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return zones, nil
}

// LoadZonesFile reads a zone list from a file, see LoadZones
func LoadZonesFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadZones(file)
}
