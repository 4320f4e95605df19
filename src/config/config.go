package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"glass-notify/src/singleinstance"
)

const (
	AppName          = "glass-notify"
	EnvFileEnvVar    = "GLASS_NOTIFY_ENV"
	APIKeyPathEnvVar = "OPENAI_API_KEY_FILE"
	APIKeyEnvVar     = "OPENAI_API_KEY"

	minPollInterval = time.Second
	maxPollInterval = 2 * time.Second
)

type LoadOptions struct {
	APIKeyPathOverride string
}

type Config struct {
	// APIKey comes from the key file or OPENAI_API_KEY. Empty means the stored
	// credential (set from the menu) is used instead.
	APIKey     string
	APIKeyPath string

	Model            string        `env:"MODEL"`
	Endpoint         string        `env:"API_ENDPOINT"`
	MaxTokens        int           `env:"MAX_TOKENS"`
	Temperature      float64       `env:"TEMPERATURE"`
	TransportTimeout time.Duration `env:"TRANSPORT_TIMEOUT"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT"`
	CacheTTL         time.Duration `env:"CACHE_TTL"`

	Hotkey         string        `env:"HOTKEY"`
	PollInterval   time.Duration `env:"POLL_INTERVAL"`
	GraceDelay     time.Duration `env:"GRACE_DELAY"`
	TypewriterTick time.Duration `env:"TYPEWRITER_TICK"`

	EnrichmentEnabled bool          `env:"ENRICHMENT_ENABLED"`
	AutoTimeout       time.Duration `env:"AUTO_TIMEOUT"`
	DismissOnClear    bool          `env:"DISMISS_ON_CLEAR"`
	ShowSourceText    bool          `env:"SHOW_SOURCE_TEXT"`

	// ResidentPortStart..ResidentPortEnd is the loopback range for the
	// single-instance resident and --notify delegation.
	ResidentPortStart int `env:"SINGLEINSTANCE_PORT_START"`
	ResidentPortEnd   int `env:"SINGLEINSTANCE_PORT_END"`

	EnableFileLogging bool   `env:"ENABLE_FILE_LOGGING"`
	LogFile           string `env:"LOG_FILE"`
	CredentialFile    string `env:"CREDENTIAL_FILE"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	dir := AppDir()
	return &Config{
		Model:             "gpt-4o",
		Endpoint:          "https://api.openai.com/v1/chat/completions",
		MaxTokens:         80,
		Temperature:       0.7,
		TransportTimeout:  10 * time.Second,
		RequestTimeout:    12 * time.Second,
		CacheTTL:          10 * time.Minute,
		Hotkey:            "Cmd+Shift+F",
		PollInterval:      2 * time.Second,
		GraceDelay:        1500 * time.Millisecond,
		TypewriterTick:    20 * time.Millisecond,
		EnrichmentEnabled: true,
		DismissOnClear:    true,
		ShowSourceText:    true,
		ResidentPortStart: 49600,
		ResidentPortEnd:   49620,
		LogFile:           filepath.Join(dir, "glass_notify.log"),
		CredentialFile:    filepath.Join(dir, "credentials.yaml"),
	}
}

// ResidentPorts is the single-instance port range, normalized.
func (c *Config) ResidentPorts() singleinstance.Ports {
	return singleinstance.Ports{Start: c.ResidentPortStart, End: c.ResidentPortEnd}.Normalize()
}

// AppDir is the per-user directory holding the key file, stored credential and log.
func AppDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, AppName)
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use GLASS_NOTIFY_ENV env var as a path to a config file
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.normalize()

	cfg.APIKeyPath = resolveAPIKeyPath(opts, dotenvValues)
	cfg.APIKey = resolveAPIKey(cfg.APIKeyPath)
	return cfg, nil
}

func (c *Config) normalize() {
	if c.PollInterval < minPollInterval {
		c.PollInterval = minPollInterval
	}
	if c.PollInterval > maxPollInterval {
		c.PollInterval = maxPollInterval
	}
	if c.GraceDelay < 0 {
		c.GraceDelay = 0
	}
	if c.TypewriterTick <= 0 {
		c.TypewriterTick = 20 * time.Millisecond
	}
	if c.AutoTimeout < 0 {
		c.AutoTimeout = 0
	}
	c.Hotkey = strings.TrimSpace(c.Hotkey)
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := filepath.Join(AppDir(), "openai_key")

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return strings.TrimSpace(os.Getenv(APIKeyEnvVar))
}
