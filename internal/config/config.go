package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no -config flag is given.
const DefaultPath = "mileagecal.yaml"

// ICSConfig selects an ICS feed as the event source instead of Google
// Calendar. At most one of URL and Path should be set.
type ICSConfig struct {
	// URL is an ICS subscription endpoint (http/https/webcal).
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Path is a local .ics file.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// Enabled reports whether an ICS source is configured.
func (c ICSConfig) Enabled() bool {
	return c.URL != "" || c.Path != ""
}

// GoogleConfig holds the OAuth client and Maps credentials.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri" json:"redirect_uri"`
	MapsAPIKey   string `yaml:"maps_api_key" json:"maps_api_key"`
}

// Config is the top-level application configuration.
type Config struct {
	// HomeAddress is the origin of every distance lookup.
	HomeAddress string `yaml:"home_address" json:"home_address"`

	// MaxOneWayMiles is the default threshold, used by scheduled runs and
	// offered when the -max-miles flag is absent.
	MaxOneWayMiles float64 `yaml:"max_one_way_miles" json:"max_one_way_miles"`

	// OutputDir receives the report artifacts.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Timezone is the IANA zone for date prompts and CSV times. Empty means
	// the system local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	CalendarID string `yaml:"calendar_id" json:"calendar_id"`

	// PageSize is the number of events requested per page (max 100).
	PageSize int `yaml:"page_size" json:"page_size"`

	// PageIntervalMs is the minimum gap between page requests.
	PageIntervalMs int `yaml:"page_interval_ms" json:"page_interval_ms"`

	JSONIndent int `yaml:"json_indent" json:"json_indent"`

	// RecordLookupFailures keeps events whose distance lookup failed in the
	// report with error "lookup failed" instead of dropping them.
	RecordLookupFailures bool `yaml:"record_lookup_failures" json:"record_lookup_failures"`

	// TokenFile stores the OAuth token between runs.
	TokenFile string `yaml:"token_file" json:"token_file"`

	// Listen is the address of the local OAuth callback / health server.
	Listen string `yaml:"listen" json:"listen"`

	// Schedule is a cron spec (e.g. "0 6 1 * *"). Empty runs once and exits.
	Schedule string `yaml:"schedule,omitempty" json:"schedule,omitempty"`

	ICS ICSConfig `yaml:"ics,omitempty" json:"ics,omitempty"`

	// PDF additionally prints the HTML report to PDF via headless Chromium.
	PDF bool `yaml:"pdf" json:"pdf"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	Google GoogleConfig `yaml:"google" json:"google"`
}

const (
	defaultOutputDir    = "output"
	defaultCalendarID   = "primary"
	defaultPageSize     = 100
	defaultPageInterval = 100
	defaultJSONIndent   = 2
	defaultTokenFile    = "tokens.json"
	defaultListen       = "127.0.0.1:3000"
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:      defaultOutputDir,
		CalendarID:     defaultCalendarID,
		PageSize:       defaultPageSize,
		PageIntervalMs: defaultPageInterval,
		JSONIndent:     defaultJSONIndent,
		TokenFile:      defaultTokenFile,
		Listen:         defaultListen,
		LogLevel:       defaultLogLevel,
		LogFormat:      defaultLogFormat,
		Google: GoogleConfig{
			RedirectURI: "http://localhost:3000/oauth2callback",
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}
	if c.CalendarID == "" {
		c.CalendarID = defaultCalendarID
	}
	if c.PageSize <= 0 || c.PageSize > defaultPageSize {
		c.PageSize = defaultPageSize
	}
	if c.PageIntervalMs <= 0 {
		c.PageIntervalMs = defaultPageInterval
	}
	if c.JSONIndent <= 0 {
		c.JSONIndent = defaultJSONIndent
	}
	if c.TokenFile == "" {
		c.TokenFile = defaultTokenFile
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		c.LogFormat = defaultLogFormat
	}
	if c.MaxOneWayMiles < 0 {
		c.MaxOneWayMiles = 0
	}
}

// PageInterval returns PageIntervalMs as a duration.
func (c *Config) PageInterval() time.Duration {
	return time.Duration(c.PageIntervalMs) * time.Millisecond
}

// Location resolves Timezone, falling back to time.Local when empty.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled and defaults are normalized.
//
// Environment overrides are applied in both cases; see ApplyEnv.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			cfg.ApplyEnv(os.LookupEnv)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.ApplyEnv(os.LookupEnv)

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".mileagecal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
