package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Portal      PortalConfig    `toml:"portal"`
	Browser     BrowserConfig   `toml:"browser"`
	Data        DataConfig      `toml:"data"`
	Storage     StorageConfig   `toml:"storage"`
	Login       LoginConfig     `toml:"login"`
	Logging     LoggingConfig   `toml:"logging"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// PortalConfig describes the target portal. Element ids are fixed in the
// portal package; only the entry points and the remark text vary.
type PortalConfig struct {
	LoginURL        string `toml:"login_url"`
	RemoveMemberURL string `toml:"remove_member_url"`
	RemovalRemark   string `toml:"removal_remark"`
}

// BrowserConfig controls the Chrome instances used for runs and manual login
type BrowserConfig struct {
	Headless       bool     `toml:"headless"`
	NoSandbox      bool     `toml:"no_sandbox"`
	DisableGPU     bool     `toml:"disable_gpu"`
	UserAgent      string   `toml:"user_agent"`      // Empty keeps Chrome's own user agent
	ElementTimeout Duration `toml:"element_timeout"` // Bounded wait for an element to become ready
	StepDelay      float64  `toml:"step_delay"`      // Multiplier for the fixed inter-step pauses (1.0 = as designed)
	LaunchTimeout  Duration `toml:"launch_timeout"`  // Startup test timeout for a fresh browser
	ExecPath       string   `toml:"exec_path"`       // Optional Chrome binary path
}

// DataConfig locates the beneficiary CSV export
type DataConfig struct {
	SourceFile string `toml:"source_file"`
}

type StorageConfig struct {
	SessionsDir string `toml:"sessions_dir"` // One cookie blob per session name
	LogsDir     string `toml:"logs_dir"`     // Success/failure audit CSVs
}

// LoginConfig controls manual-login browser housekeeping
type LoginConfig struct {
	MaxAge        Duration `toml:"max_age"`        // Abandoned login browsers are closed after this
	SweepSchedule string   `toml:"sweep_schedule"` // Cron spec for the sweep
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// WebSocketConfig contains configuration for run status streaming
type WebSocketConfig struct {
	PushInterval Duration `toml:"push_interval"` // Minimum gap between two snapshot pushes per client
}

// Duration is a time.Duration that decodes from TOML strings such as "15s"
type Duration time.Duration

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the value as a time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 5000,
			Host: "localhost",
		},
		Portal: PortalConfig{
			LoginURL:        "https://spr.samagra.gov.in/Login/Public/sLogin.aspx",
			RemoveMemberURL: "https://spr.samagra.gov.in/MemberMgmt/Pages/Remove_Member.aspx",
			RemovalRemark:   "Duplicate member removal - automated process",
		},
		Browser: BrowserConfig{
			Headless:       false, // The portal is watched by an operator during runs
			NoSandbox:      true,
			DisableGPU:     true,
			ElementTimeout: Duration(15 * time.Second),
			StepDelay:      1.0,
			LaunchTimeout:  Duration(30 * time.Second),
		},
		Data: DataConfig{
			SourceFile: "Pending E-kyc.csv",
		},
		Storage: StorageConfig{
			SessionsDir: "./cookies",
			LogsDir:     "./logs",
		},
		Login: LoginConfig{
			MaxAge:        Duration(30 * time.Minute),
			SweepSchedule: "@every 1m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		WebSocket: WebSocketConfig{
			PushInterval: Duration(500 * time.Millisecond),
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// CLI overrides are applied afterwards by ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges over the existing values
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies DUPREMOVER_* environment variables
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DUPREMOVER_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("DUPREMOVER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("DUPREMOVER_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Portal configuration
	if loginURL := os.Getenv("DUPREMOVER_PORTAL_LOGIN_URL"); loginURL != "" {
		config.Portal.LoginURL = loginURL
	}
	if removeURL := os.Getenv("DUPREMOVER_PORTAL_REMOVE_MEMBER_URL"); removeURL != "" {
		config.Portal.RemoveMemberURL = removeURL
	}
	if remark := os.Getenv("DUPREMOVER_PORTAL_REMOVAL_REMARK"); remark != "" {
		config.Portal.RemovalRemark = remark
	}

	// Browser configuration
	if headless := os.Getenv("DUPREMOVER_BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if timeout := os.Getenv("DUPREMOVER_BROWSER_ELEMENT_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Browser.ElementTimeout = Duration(d)
		}
	}
	if delay := os.Getenv("DUPREMOVER_BROWSER_STEP_DELAY"); delay != "" {
		if d, err := strconv.ParseFloat(delay, 64); err == nil && d >= 0 {
			config.Browser.StepDelay = d
		}
	}
	if execPath := os.Getenv("DUPREMOVER_BROWSER_EXEC_PATH"); execPath != "" {
		config.Browser.ExecPath = execPath
	}

	// Data and storage
	if source := os.Getenv("DUPREMOVER_DATA_SOURCE_FILE"); source != "" {
		config.Data.SourceFile = source
	}
	if sessionsDir := os.Getenv("DUPREMOVER_SESSIONS_DIR"); sessionsDir != "" {
		config.Storage.SessionsDir = sessionsDir
	}
	if logsDir := os.Getenv("DUPREMOVER_LOGS_DIR"); logsDir != "" {
		config.Storage.LogsDir = logsDir
	}

	// Logging configuration
	if level := os.Getenv("DUPREMOVER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("DUPREMOVER_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ScaledDelay applies the configured step delay multiplier to a designed pause
func (c BrowserConfig) ScaledDelay(d time.Duration) time.Duration {
	if c.StepDelay <= 0 {
		return 0
	}
	return time.Duration(float64(d) * c.StepDelay)
}
