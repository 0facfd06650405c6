package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is stripped from environment variables before mapping them
	// onto configuration keys.
	EnvPrefix = "SEOFLOW_"

	maxConfigFileSize = 1024 * 1024 // 1MB

	defaultModel          = "claude-3-opus-20240229"
	defaultOpenAIModel    = "gpt-4o"
	defaultSecretsFile    = "keys.json"
	defaultRequestTimeout = 60 * time.Second
	defaultMaxRetries     = 3
)

// Load builds configuration from environment variables and defaults only.
func Load() (*Config, error) {
	return load(nil)
}

// LoadWithFile loads configuration from a YAML file, then overrides it with
// environment variables.
//
// Precedence (highest to lowest):
//  1. SEOFLOW_-prefixed environment variables
//  2. YAML config file (~/.config/seoflow/config.yaml by default)
//  3. Defaults
//
// The file must live under ~/.config/seoflow/ or /etc/seoflow/, carry 0600 or
// 0400 permissions and be at most 1MB. A missing file is not an error.
//
// Environment variables map onto keys by splitting on the first underscore
// after the prefix:
//
//	SEOFLOW_SERVER_HTTP_PORT      -> server.http_port
//	SEOFLOW_ORCHESTRATOR_STEP_TIMEOUT -> orchestrator.step_timeout
func LoadWithFile(configPath string) (*Config, error) {
	if configPath == "" {
		dir, err := userConfigDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(dir, "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	content, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	return load(content)
}

func load(content []byte) (*Config, error) {
	k := koanf.New(".")

	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	// Zero disables retries, so the default applies only when the key is unset.
	if !k.Exists("agents.max_retries") {
		cfg.Agents.MaxRetries = defaultMaxRetries
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps SEOFLOW_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	// Validate through the open descriptor to avoid a TOCTOU race.
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// EnsureConfigDir creates ~/.config/seoflow with 0700 permissions.
func EnsureConfigDir() error {
	dir, err := userConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return nil
}

func userConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "seoflow"), nil
}

// validateConfigPath checks that path resolves inside an allowed directory.
// It runs even when the file does not exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolved = absPath
	}

	userDir, err := userConfigDir()
	if err != nil {
		return err
	}
	for _, dir := range []string{userDir, "/etc/seoflow"} {
		if resolved == dir || strings.HasPrefix(resolved, dir+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/seoflow/ or /etc/seoflow/")
}

func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "seoflow"
	}
	if cfg.Observability.OTLPEndpoint == "" {
		cfg.Observability.OTLPEndpoint = "localhost:4317"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.LogFormat == "" {
		cfg.Observability.LogFormat = "json"
	}

	a := &cfg.Agents
	if a.Provider == "" {
		a.Provider = ProviderAnthropic
	}
	if a.Model == "" {
		switch {
		case a.Provider == ProviderOpenAI:
			a.Model = defaultOpenAIModel
		case os.Getenv("CLAUDE_MODEL") != "":
			a.Model = os.Getenv("CLAUDE_MODEL")
		default:
			a.Model = defaultModel
		}
	}
	if a.MaxTokens == 0 {
		a.MaxTokens = 4000
	}
	if a.Temperature == 0 {
		a.Temperature = 0.7
	}
	if a.RateLimit == 0 {
		a.RateLimit = 50.0 / 60.0
	}
	if a.Burst == 0 {
		a.Burst = 5
	}
	if a.BaseBackoff == 0 {
		a.BaseBackoff = time.Second
	}
	if a.RequestTimeout == 0 {
		a.RequestTimeout = getEnvSeconds("REQUEST_TIMEOUT", defaultRequestTimeout)
	}

	if cfg.Mode.SecretsFile == "" {
		cfg.Mode.SecretsFile = getEnv("KEYS_FILE_PATH", defaultSecretsFile)
	}

	if cfg.Orchestrator.FailurePolicy == "" {
		cfg.Orchestrator.FailurePolicy = FailurePolicyAbort
	}
	if cfg.Orchestrator.StepTimeout == 0 {
		cfg.Orchestrator.StepTimeout = 2 * time.Minute
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreBackendFile
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "results"
	}

	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = "seoflow.runs"
	}

	if cfg.Temporal.HostPort == "" {
		cfg.Temporal.HostPort = "localhost:7233"
	}
	if cfg.Temporal.Namespace == "" {
		cfg.Temporal.Namespace = "default"
	}
	if cfg.Temporal.TaskQueue == "" {
		cfg.Temporal.TaskQueue = "seoflow-runs"
	}
	if cfg.Temporal.ActivityTimeout == 0 {
		cfg.Temporal.ActivityTimeout = 30 * time.Minute
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvSeconds reads an integer number of seconds.
func getEnvSeconds(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return defaultVal
}
