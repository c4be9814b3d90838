package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ContainerEnv marks a constrained execution context (CI images, Docker)
// where the system Chromium must be used instead of a downloaded one.
const (
	ContainerEnv           = "PLAYWRIGHT_SKIP_BROWSER_DOWNLOAD"
	ContainerChromiumPath  = "/usr/bin/chromium-browser"
	PolicyPartial          = "partial"
	PolicyDiscard          = "discard"
	SelectionFIFO          = "fifo"
	SelectionRandom        = "random"
	MaxExternalConcurrency = 20
	defaultNavigationLimit = 30 * time.Second
)

// Config captures everything a crawl run needs.
type Config struct {
	Target           string         `yaml:"target"`
	Wait             Duration       `yaml:"wait"`
	PageLimit        int            `yaml:"page_limit"`
	Selection        string         `yaml:"selection"`
	OnTraversalError string         `yaml:"on_traversal_error"`
	Hosts            HostsConfig    `yaml:"hosts"`
	Browser          BrowserConfig  `yaml:"browser"`
	External         ExternalConfig `yaml:"external"`
	Logging          LoggingConfig  `yaml:"logging"`
	Output           OutputConfig   `yaml:"output"`
}

// HostsConfig controls internal/external host matching.
type HostsConfig struct {
	StripWWW bool `yaml:"strip_www"`
}

// BrowserConfig configures the headless browser.
type BrowserConfig struct {
	Headless          bool     `yaml:"headless"`
	ExecutablePath    string   `yaml:"executable_path"`
	Args              []string `yaml:"args"`
	NavigationTimeout Duration `yaml:"navigation_timeout"`
	SkipInstall       bool     `yaml:"skip_install"`
}

// ExternalConfig tunes the external link reachability checks.
type ExternalConfig struct {
	Timeout     Duration `yaml:"timeout"`
	Concurrency int      `yaml:"concurrency"`
	MaxRetries  int      `yaml:"max_retries"`
	UserAgent   string   `yaml:"user_agent"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OutputConfig names optional report files (without extension).
type OutputConfig struct {
	CSV  string `yaml:"csv"`
	JSON string `yaml:"json"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		PageLimit:        1000,
		Selection:        SelectionFIFO,
		OnTraversalError: PolicyPartial,
		Browser: BrowserConfig{
			Headless:          true,
			Args:              []string{"--disable-dev-shm-usage", "--no-sandbox"},
			NavigationTimeout: DurationFrom(defaultNavigationLimit),
		},
		External: ExternalConfig{
			Timeout:     DurationFrom(10 * time.Second),
			Concurrency: 1,
			MaxRetries:  2,
			UserAgent:   "Mozilla/5.0 (compatible; site-crawler/1.0)",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and normalises configuration from a YAML file.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		cfg.Normalise()
		return &cfg, nil
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()

	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader. The target
// is not required here because it may still come from the command line.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalise()
	return &cfg, nil
}

// ApplyEnv fills in values driven by the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if _, ok := lookup(ContainerEnv); ok && c.Browser.ExecutablePath == "" {
		c.Browser.ExecutablePath = ContainerChromiumPath
		c.Browser.SkipInstall = true
	}
}

// Validate enforces required invariants.
func (c Config) Validate() error {
	if c.Target == "" {
		return ErrNoTarget
	}
	if c.PageLimit <= 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidPageLimit, c.PageLimit)
	}
	if c.Wait.Duration < 0 {
		return fmt.Errorf("%w (got %s)", ErrInvalidWait, c.Wait.Duration)
	}
	switch c.OnTraversalError {
	case PolicyPartial, PolicyDiscard:
	default:
		return fmt.Errorf("%w (got %q)", ErrInvalidPolicy, c.OnTraversalError)
	}
	switch c.Selection {
	case SelectionFIFO, SelectionRandom:
	default:
		return fmt.Errorf("%w (got %q)", ErrInvalidSelection, c.Selection)
	}
	if c.Browser.NavigationTimeout.Duration < 0 || c.External.Timeout.Duration < 0 {
		return ErrInvalidTimeout
	}
	if c.External.Concurrency <= 0 || c.External.Concurrency > MaxExternalConcurrency {
		return fmt.Errorf("%w (got %d)", ErrInvalidConcurrent, c.External.Concurrency)
	}
	if c.External.MaxRetries < 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidRetries, c.External.MaxRetries)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w (got %q)", ErrInvalidLogLevel, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w (got %q)", ErrInvalidLogFormat, c.Logging.Format)
	}
	return nil
}

// Normalise trims string settings and lower-cases the enumerated ones. Load
// applies it; callers that override fields afterwards apply it again.
func (c *Config) Normalise() {
	c.Target = strings.TrimSpace(c.Target)
	c.Selection = strings.ToLower(strings.TrimSpace(c.Selection))
	c.OnTraversalError = strings.ToLower(strings.TrimSpace(c.OnTraversalError))
	c.Browser.ExecutablePath = strings.TrimSpace(c.Browser.ExecutablePath)
	c.External.UserAgent = strings.TrimSpace(c.External.UserAgent)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Output.CSV = strings.TrimSpace(c.Output.CSV)
	c.Output.JSON = strings.TrimSpace(c.Output.JSON)
}
