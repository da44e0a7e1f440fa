package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from environment variable names. The first "_"
// after it separates the section from the key, so FOCUS_AGENT_POLL_INTERVAL
// becomes agent.poll_interval.
const envPrefix = "FOCUS_"

// AppConfig holds configuration values for both the desktop daemon and the
// browser agent. Each process reads only its own section.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	Log     LogConfig     `koanf:"log"`
	Desktop DesktopConfig `koanf:"desktop"`
	Agent   AgentConfig   `koanf:"agent"`
}

// LogConfig controls log verbosity: "debug", "info", "warn", or "error".
type LogConfig struct {
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

// DesktopConfig configures the status publisher and the session controller.
type DesktopConfig struct {
	// Host must be a loopback address; the status endpoint is unauthenticated.
	Host string `koanf:"host" validate:"required,ip,loopback"`
	Port int    `koanf:"port" validate:"required,gte=1,lte=65535"`

	// StateDB is the bbolt file holding the last used keyword rules.
	StateDB   string `koanf:"state_db" validate:"required"`
	PresetDir string `koanf:"preset_dir" validate:"required"`

	// Sites seeds the keyword rules when no preset is chosen.
	Sites []string `koanf:"sites"`

	Focus  time.Duration `koanf:"focus" validate:"required,gte=1s"`
	Break  time.Duration `koanf:"break" validate:"gte=0"`
	Cycles int           `koanf:"cycles" validate:"required,gte=1"`
}

// AgentConfig configures the enforcement loop.
type AgentConfig struct {
	StatusURL string `koanf:"status_url" validate:"required,url"`

	// PollInterval is the alarm period. FetchTimeout must stay below it so a
	// hung request can never overlap the next cycle.
	PollInterval time.Duration `koanf:"poll_interval" validate:"required,gte=100ms"`
	FetchTimeout time.Duration `koanf:"fetch_timeout" validate:"required,gt=0,ltfield=PollInterval"`

	AlarmName     string `koanf:"alarm_name" validate:"required"`
	BlockPageAddr string `koanf:"block_page_addr" validate:"required,ip_port,loopback"`

	// DevToolsURL is the Chrome remote debugging endpoint, host:port or ws://.
	DevToolsURL string `koanf:"devtools_url" validate:"required"`
	StateDB     string `koanf:"state_db" validate:"required"`
}

// BlockPageURL is the absolute URL of the blocking page served by the agent.
func (a AgentConfig) BlockPageURL() string {
	return "http://" + a.BlockPageAddr + "/blocked"
}

// DefaultAppConfig returns the default configuration. Paths follow the
// platform's per-user data directory.
func DefaultAppConfig() AppConfig {
	dataDir := defaultDataDir()
	return AppConfig{
		Env: "prod",
		Log: LogConfig{Level: "info"},
		Desktop: DesktopConfig{
			Host:      "127.0.0.1",
			Port:      5000,
			StateDB:   filepath.Join(dataDir, "focuslink.db"),
			PresetDir: filepath.Join(dataDir, "presets"),
			Focus:     25 * time.Minute,
			Break:     5 * time.Minute,
			Cycles:    4,
		},
		Agent: AgentConfig{
			StatusURL:     "http://127.0.0.1:5000/status",
			PollInterval:  3 * time.Second,
			FetchTimeout:  1500 * time.Millisecond,
			AlarmName:     "focus-enforcement",
			BlockPageAddr: "127.0.0.1:5001",
			DevToolsURL:   "127.0.0.1:9222",
			StateDB:       filepath.Join(dataDir, "agent.db"),
		},
	}
}

// defaultDataDir mirrors where the desktop app keeps its user data.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, "StudyWith", "data")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "StudyWith", "data")
	default:
		base := os.Getenv("XDG_DATA_HOME")
		if base == "" {
			base = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(base, "study-with", "data")
	}
}

// validLoopback accepts a bare IP or an ip:port pair whose IP is a loopback
// address.
func validLoopback(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if host, _, err := net.SplitHostPort(v); err == nil {
		v = host
	}
	ip := net.ParseIP(v)
	return ip != nil && ip.IsLoopback()
}

// validIPPort validates "IP:Port" with a numeric port in 1..65535.
func validIPPort(fl validator.FieldLevel) bool {
	ip, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil || ip == "" || port == "" {
		return false
	}
	if net.ParseIP(ip) == nil {
		return false
	}
	p, err := net.LookupPort("tcp", port)
	return err == nil && p > 0
}

// transformEnv maps FOCUS_SECTION_KEY=value to section.key. Values holding
// commas become lists.
func transformEnv(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	key = strings.Replace(key, "_", ".", 1)
	value = strings.TrimSpace(value)

	if strings.Contains(value, ",") {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return key, out
	}
	return key, value
}

// envLoader loads FOCUS_ prefixed environment variables; tests replace it.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix:        envPrefix,
		TransformFunc: transformEnv,
	}), nil)
}

// defaultLoader loads DefaultAppConfig through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DefaultAppConfig(), "koanf"), nil)
}

// registerValidation registers the custom "loopback" and "ip_port" tags.
var registerValidation = func(v *validator.Validate) error {
	if err := v.RegisterValidation("loopback", validLoopback); err != nil {
		return err
	}
	return v.RegisterValidation("ip_port", validIPPort)
}

// Load reads defaults, overlays the environment, and validates the result.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs struct validation, including the custom tags. The CLI calls
// it again after applying flag overrides.
func Validate(cfg *AppConfig) error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := registerValidation(validate); err != nil {
		return fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
